package feedparser

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"newsroom/internal/feed"
)

var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	Encoded     string `xml:"encoded"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"`
}

// RSSParser extracts entries from RSS 2.0 and RDF documents.
type RSSParser struct{}

// NewRSSParser builds the RSS strategy.
func NewRSSParser() *RSSParser {
	return &RSSParser{}
}

// Name identifies the strategy inside the registry.
func (p *RSSParser) Name() string {
	return "rss"
}

// Detect accepts documents that carry an rss or RDF root element.
func (p *RSSParser) Detect(doc []byte) bool {
	head := bytes.ToLower(peek(doc))
	return bytes.Contains(head, []byte("<rss")) || bytes.Contains(head, []byte("<rdf:rdf"))
}

// Parse walks <item> elements one at a time so a single malformed entry is
// skipped rather than failing the document.
func (p *RSSParser) Parse(ctx context.Context, doc []byte) ([]feed.Entry, error) {
	return decodeEntries(ctx, doc, "item", func(dec *xml.Decoder, start xml.StartElement) (feed.Entry, error) {
		var item rssItem
		if err := dec.DecodeElement(&item, &start); err != nil {
			return feed.Entry{}, err
		}

		body := item.Encoded
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}

		return feed.Entry{
			Title:       StripMarkup(item.Title),
			Body:        StripMarkup(body),
			Link:        strings.TrimSpace(item.Link),
			GUID:        strings.TrimSpace(item.GUID),
			PublishedAt: parseFeedDate(item.PubDate, item.Date),
		}, nil
	})
}

// decodeEntries iterates elements named entryTag at any depth, delegating each
// to decode; decode errors skip that entry, token errors end the document.
func decodeEntries(ctx context.Context, doc []byte, entryTag string, decode func(*xml.Decoder, xml.StartElement) (feed.Entry, error)) ([]feed.Entry, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false

	var entries []feed.Entry
	for {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		tok, err := dec.Token()
		if tok == nil || err != nil {
			break
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != entryTag {
			continue
		}

		entry, err := decode(dec, start)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no %s elements recognized", entryTag)
	}
	return entries, nil
}

func parseFeedDate(candidates ...string) time.Time {
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range rssDateLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed.UTC()
			}
		}
	}
	return time.Now().UTC()
}

func peek(doc []byte) []byte {
	const window = 512
	if len(doc) > window {
		return doc[:window]
	}
	return doc
}
