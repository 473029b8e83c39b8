package feedparser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Downtown Gazette</title>
    <item>
      <title><![CDATA[Council approves <b>garden</b> plan]]></title>
      <link>https://example.org/garden</link>
      <guid>gazette-101</guid>
      <description>&lt;p&gt;The council approved the plan &amp;amp; budget.&lt;/p&gt;</description>
      <pubDate>Fri, 29 Aug 2025 10:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Street fair this weekend</title>
      <link>https://example.org/fair</link>
      <guid>gazette-102</guid>
      <description>Short note.</description>
      <content:encoded><![CDATA[<p>The fair returns to Main Street with <em>forty</em> vendors.</p>]]></content:encoded>
      <pubDate>Sat, 30 Aug 2025 08:30:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

func TestRSSParserExtractsEntries(t *testing.T) {
	t.Parallel()

	entries, err := NewRSSParser().Parse(context.Background(), []byte(rssDoc))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "Council approves garden plan", first.Title)
	assert.Equal(t, "The council approved the plan & budget.", first.Body)
	assert.Equal(t, "https://example.org/garden", first.Link)
	assert.Equal(t, "gazette-101", first.GUID)
	assert.Equal(t, time.Date(2025, 8, 29, 10, 0, 0, 0, time.UTC), first.PublishedAt)

	// content:encoded wins over description when both are present
	second := entries[1]
	assert.Equal(t, "The fair returns to Main Street with forty vendors.", second.Body)
}

func TestRSSParserSkipsTruncatedItem(t *testing.T) {
	t.Parallel()

	doc := `<rss version="2.0"><channel>
<item><title>First</title><link>https://example.org/1</link><description>One full item here.</description></item>
<item><title>Second</title><link>https://example.org/2</link><description>Another full item.</description></item>
<item><title>Broken`

	entries, err := NewRSSParser().Parse(context.Background(), []byte(doc))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "First", entries[0].Title)
	assert.Equal(t, "Second", entries[1].Title)
}

func TestRSSParserRejectsItemlessDocument(t *testing.T) {
	t.Parallel()

	_, err := NewRSSParser().Parse(context.Background(), []byte(`<rss version="2.0"><channel><title>Empty</title></channel></rss>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no item elements")
}

func TestRSSParserDetect(t *testing.T) {
	t.Parallel()

	p := NewRSSParser()
	assert.True(t, p.Detect([]byte(rssDoc)))
	assert.True(t, p.Detect([]byte(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"></rdf:RDF>`)))
	assert.False(t, p.Detect([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`)))
	assert.False(t, p.Detect([]byte(`<html><body>not a feed</body></html>`)))
}

func TestParseFeedDateFallsBackToNow(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	got := parseFeedDate("not a date", "")
	assert.False(t, got.Before(before.Add(-time.Second)))
}
