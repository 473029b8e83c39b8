package feed

import (
	"context"
	"fmt"
	"time"
)

// Source describes one configured feed endpoint.
type Source struct {
	ID       string
	Name     string
	URL      string
	Category string
	Region   string
	Priority float64
}

// Entry is one normalized item extracted from a feed document.
// Text fields are plain text; markup and CDATA wrappers are already stripped.
type Entry struct {
	Title       string
	Body        string
	Link        string
	GUID        string
	PublishedAt time.Time
}

// Parser extracts entries from a fetched feed document of one format.
type Parser interface {
	Name() string
	Detect(doc []byte) bool
	Parse(ctx context.Context, doc []byte) ([]Entry, error)
}

// Registry keeps a mapping from format names to parser implementations.
type Registry struct {
	parsers []Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a parser; detection runs in registration order.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Resolve returns the first parser whose Detect accepts the document.
func (r *Registry) Resolve(doc []byte) (Parser, error) {
	for _, p := range r.parsers {
		if p.Detect(doc) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("document matches no registered feed format")
}
