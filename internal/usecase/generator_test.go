package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

func TestGeneratorRequiresRawItemID(t *testing.T) {
	t.Parallel()

	g := NewGenerator(newMemRawItems(), newMemArticles(), &fakeTextGen{}, nil)

	_, err := g.Generate(context.Background(), GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGeneratorUnknownItem(t *testing.T) {
	t.Parallel()

	g := NewGenerator(newMemRawItems(), newMemArticles(), &fakeTextGen{}, nil)

	_, err := g.Generate(context.Background(), GenerateRequest{RawItemID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGeneratorPersistsDraft(t *testing.T) {
	t.Parallel()

	items := newMemRawItems()
	articles := newMemArticles()
	textGen := &fakeTextGen{}
	g := NewGenerator(items, articles, textGen, nil)

	seedRawItem(t, items, "raw1", "events", "Street festival announced",
		"The festival takes over Main Street next month with music and food.", time.Now().UTC())

	article, err := g.Generate(context.Background(), GenerateRequest{
		RawItemID: "raw1",
		Region:    "riverside",
	})
	require.NoError(t, err)

	assert.Equal(t, "raw1", article.RawItemID)
	assert.Equal(t, domain.StatusGenerated, article.Status)
	assert.Nil(t, article.Confidence)
	assert.Equal(t, "riverside", article.Region)
	assert.Equal(t, "events", article.Category)
	assert.Equal(t, 1, textGen.calls)

	stored, err := articles.Get(context.Background(), article.ID)
	require.NoError(t, err)
	assert.Equal(t, article.Title, stored.Title)
}

func TestGeneratorWithoutTextGenerator(t *testing.T) {
	t.Parallel()

	items := newMemRawItems()
	articles := newMemArticles()
	g := NewGenerator(items, articles, nil, nil)

	seedRawItem(t, items, "raw1", "local", "Council session recap",
		"The council met on Tuesday to discuss several community matters.", time.Now().UTC())

	_, err := g.Generate(context.Background(), GenerateRequest{RawItemID: "raw1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Empty(t, articles.byStatus(domain.StatusGenerated, 10))
}

func TestGeneratorNoRetryOnUpstreamFailure(t *testing.T) {
	t.Parallel()

	items := newMemRawItems()
	articles := newMemArticles()
	textGen := &fakeTextGen{fn: func(ports.GenerationRequest) (ports.GeneratedContent, error) {
		return ports.GeneratedContent{}, errors.New("generator unavailable")
	}}
	g := NewGenerator(items, articles, textGen, nil)

	seedRawItem(t, items, "raw1", "local", "Council session recap",
		"The council met on Tuesday to discuss several community matters.", time.Now().UTC())

	_, err := g.Generate(context.Background(), GenerateRequest{RawItemID: "raw1"})
	require.Error(t, err)
	assert.Equal(t, 1, textGen.calls)
	assert.Empty(t, articles.byStatus(domain.StatusGenerated, 10))
}
