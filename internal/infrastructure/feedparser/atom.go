package feedparser

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"

	"newsroom/internal/feed"
)

type atomEntry struct {
	Title     string `xml:"title"`
	ID        string `xml:"id"`
	Summary   string `xml:"summary"`
	Content   string `xml:"content"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Links     []struct {
		Rel  string `xml:"rel,attr"`
		Href string `xml:"href,attr"`
	} `xml:"link"`
}

// AtomParser extracts entries from Atom documents.
type AtomParser struct{}

// NewAtomParser builds the Atom strategy.
func NewAtomParser() *AtomParser {
	return &AtomParser{}
}

// Name identifies the strategy inside the registry.
func (p *AtomParser) Name() string {
	return "atom"
}

// Detect accepts documents whose root element is a feed.
func (p *AtomParser) Detect(doc []byte) bool {
	return bytes.Contains(bytes.ToLower(peek(doc)), []byte("<feed"))
}

// Parse walks <entry> elements, skipping malformed ones.
func (p *AtomParser) Parse(ctx context.Context, doc []byte) ([]feed.Entry, error) {
	return decodeEntries(ctx, doc, "entry", func(dec *xml.Decoder, start xml.StartElement) (feed.Entry, error) {
		var entry atomEntry
		if err := dec.DecodeElement(&entry, &start); err != nil {
			return feed.Entry{}, err
		}

		body := entry.Content
		if strings.TrimSpace(body) == "" {
			body = entry.Summary
		}

		return feed.Entry{
			Title:       StripMarkup(entry.Title),
			Body:        StripMarkup(body),
			Link:        pickAtomLink(entry),
			GUID:        strings.TrimSpace(entry.ID),
			PublishedAt: parseFeedDate(entry.Published, entry.Updated),
		}, nil
	})
}

func pickAtomLink(entry atomEntry) string {
	var fallback string
	for _, l := range entry.Links {
		href := strings.TrimSpace(l.Href)
		if href == "" {
			continue
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return href
		}
		if fallback == "" {
			fallback = href
		}
	}
	return fallback
}
