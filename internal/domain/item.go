package domain

import "time"

// RawItem is a deduplicated feed entry as collected from an upstream source.
// The collector creates it; only the scorer mutates it (score fields, once).
type RawItem struct {
	ID             string
	SourceID       string
	Title          string
	Body           string
	URL            string
	GUID           string
	CategoryHint   string
	PublishedAt    time.Time
	CollectedAt    time.Time
	RelevanceScore *float64
	ScoredAt       *time.Time
	Metadata       map[string]string
}

// DedupKey identifies an item across collections: URL when present, GUID otherwise.
func (r RawItem) DedupKey() string {
	if r.URL != "" {
		return r.URL
	}
	return r.GUID
}

// SourceHealth tracks per-feed fetch counters. Observability only, never gating.
type SourceHealth struct {
	SourceID    string     `json:"source_id"`
	FetchCount  int        `json:"fetch_count"`
	ErrorCount  int        `json:"error_count"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}
