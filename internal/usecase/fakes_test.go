package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"newsroom/internal/domain"
	"newsroom/internal/feed"
	"newsroom/internal/ports"
)

type memRawItems struct {
	mu       sync.Mutex
	items    map[string]domain.RawItem
	order    []string
	articles *memArticles
}

func newMemRawItems() *memRawItems {
	return &memRawItems{items: map[string]domain.RawItem{}}
}

func (m *memRawItems) InsertIfAbsent(_ context.Context, item domain.RawItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.SourceID == item.SourceID && existing.DedupKey() == item.DedupKey() {
			return false, nil
		}
	}
	m.items[item.ID] = item
	m.order = append(m.order, item.ID)
	return true, nil
}

func (m *memRawItems) Get(_ context.Context, id string) (domain.RawItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.RawItem{}, fmt.Errorf("%w: raw item %s", domain.ErrNotFound, id)
	}
	return item, nil
}

func (m *memRawItems) Recent(_ context.Context, limit int) ([]domain.RawItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.RawItem
	for i := len(m.order) - 1; i >= 0 && len(items) < limit; i-- {
		items = append(items, m.items[m.order[i]])
	}
	return items, nil
}

func (m *memRawItems) Unscored(_ context.Context, limit int) ([]domain.RawItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.RawItem
	for _, id := range m.order {
		if item := m.items[id]; item.RelevanceScore == nil {
			items = append(items, item)
			if len(items) == limit {
				break
			}
		}
	}
	return items, nil
}

func (m *memRawItems) SetScore(_ context.Context, id string, score float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.RelevanceScore != nil {
		return nil
	}
	item.RelevanceScore = &score
	item.ScoredAt = &at
	m.items[id] = item
	return nil
}

func (m *memRawItems) TopQualified(_ context.Context, minScore float64, limit int) ([]domain.RawItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	generated := map[string]bool{}
	if m.articles != nil {
		generated = m.articles.rawItemRefs()
	}

	var items []domain.RawItem
	for _, id := range m.order {
		item := m.items[id]
		if item.RelevanceScore == nil || *item.RelevanceScore < minScore || generated[item.ID] {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return *items[i].RelevanceScore > *items[j].RelevanceScore
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memRawItems) PurgeStale(_ context.Context, before time.Time, belowScore float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	var kept []string
	for _, id := range m.order {
		item := m.items[id]
		stale := item.CollectedAt.Before(before) &&
			(item.RelevanceScore == nil || *item.RelevanceScore < belowScore)
		if stale {
			delete(m.items, id)
			purged++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return purged, nil
}

func (m *memRawItems) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memArticles struct {
	mu       sync.Mutex
	articles map[string]domain.Article
	order    []string
}

func newMemArticles() *memArticles {
	return &memArticles{articles: map[string]domain.Article{}}
}

func (m *memArticles) Insert(_ context.Context, a domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[a.ID] = a
	m.order = append(m.order, a.ID)
	return nil
}

func (m *memArticles) Get(_ context.Context, id string) (domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return domain.Article{}, fmt.Errorf("%w: article %s", domain.ErrNotFound, id)
	}
	return a, nil
}

func (m *memArticles) SetValidation(_ context.Context, id string, confidence float64, status domain.ArticleStatus, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return fmt.Errorf("%w: article %s", domain.ErrNotFound, id)
	}
	a.Confidence = &confidence
	a.Status = status
	a.RejectionReason = reason
	a.ValidatedAt = &at
	m.articles[id] = a
	return nil
}

func (m *memArticles) MarkPublished(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok || a.Status != domain.StatusValidated {
		return fmt.Errorf("%w: article %s not in validated state", domain.ErrPreconditionFailed, id)
	}
	a.Status = domain.StatusPublished
	a.PublishedAt = &at
	m.articles[id] = a
	return nil
}

func (m *memArticles) PendingValidation(_ context.Context, limit int) ([]domain.Article, error) {
	return m.byStatus(domain.StatusGenerated, limit), nil
}

func (m *memArticles) ReadyToPublish(_ context.Context, minConfidence float64, limit int) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, id := range m.order {
		a := m.articles[id]
		if a.Status == domain.StatusValidated && a.Confidence != nil && *a.Confidence >= minConfidence {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memArticles) PublishedCountSince(_ context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.articles {
		if a.Status == domain.StatusPublished && a.PublishedAt != nil && !a.PublishedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memArticles) PublishedSince(_ context.Context, since time.Time) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, id := range m.order {
		a := m.articles[id]
		if a.Status == domain.StatusPublished && a.PublishedAt != nil && !a.PublishedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memArticles) PurgeStaleDrafts(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	var kept []string
	for _, id := range m.order {
		a := m.articles[id]
		if a.Status != domain.StatusPublished && a.CreatedAt.Before(before) {
			delete(m.articles, id)
			purged++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return purged, nil
}

func (m *memArticles) byStatus(status domain.ArticleStatus, limit int) []domain.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, id := range m.order {
		if a := m.articles[id]; a.Status == status {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func (m *memArticles) rawItemRefs() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := map[string]bool{}
	for _, a := range m.articles {
		if a.RawItemID != "" {
			refs[a.RawItemID] = true
		}
	}
	return refs
}

type memPublications struct {
	mu      sync.Mutex
	records []domain.Publication
}

func (m *memPublications) Append(_ context.Context, p domain.Publication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, p)
	return nil
}

type memRuns struct {
	mu   sync.Mutex
	runs []domain.PipelineRun
}

func (m *memRuns) Insert(_ context.Context, run domain.PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

type memLedger struct {
	mu      sync.Mutex
	latest  string
	reports map[string]domain.PipelineRun
	health  []domain.SourceHealth
}

func newMemLedger() *memLedger {
	return &memLedger{reports: map[string]domain.PipelineRun{}}
}

func (m *memLedger) SetLatestRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = runID
	return nil
}

func (m *memLedger) LatestRun(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == "" {
		return "", fmt.Errorf("%w: no runs yet", domain.ErrNotFound)
	}
	return m.latest, nil
}

func (m *memLedger) PutReport(_ context.Context, run domain.PipelineRun, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[run.RunID] = run
	return nil
}

func (m *memLedger) Report(_ context.Context, runID string) (domain.PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.reports[runID]
	if !ok {
		return domain.PipelineRun{}, fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}
	return run, nil
}

func (m *memLedger) PutSourceHealth(_ context.Context, health []domain.SourceHealth) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health = health
	return nil
}

func (m *memLedger) SourceHealth(_ context.Context) ([]domain.SourceHealth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health, nil
}

func (m *memLedger) PurgeExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type memLeases struct {
	mu     sync.Mutex
	leases map[string]leaseEntry
}

type leaseEntry struct {
	holder  string
	expires time.Time
}

func newMemLeases() *memLeases {
	return &memLeases{leases: map[string]leaseEntry{}}
}

func (m *memLeases) Acquire(_ context.Context, mode string, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.leases[mode]
	if ok && existing.holder != holder && existing.expires.After(time.Now()) {
		return false, nil
	}
	m.leases[mode] = leaseEntry{holder: holder, expires: time.Now().Add(ttl)}
	return true, nil
}

func (m *memLeases) Release(_ context.Context, mode string, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.leases[mode]; ok && existing.holder == holder {
		delete(m.leases, mode)
	}
	return nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	entries map[string][]feed.Entry
	errs    map[string]error
	calls   map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		entries: map[string][]feed.Entry{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, src feed.Source) ([]feed.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[src.ID]++
	if err := f.errs[src.ID]; err != nil {
		return nil, err
	}
	return f.entries[src.ID], nil
}

type fakeTextGen struct {
	mu    sync.Mutex
	calls int
	fn    func(req ports.GenerationRequest) (ports.GeneratedContent, error)
}

func (f *fakeTextGen) Generate(_ context.Context, req ports.GenerationRequest) (ports.GeneratedContent, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(req)
	}
	return ports.GeneratedContent{
		Title: "Generated: " + req.SourceTitle,
		Body:  "A community update. " + req.SourceBody,
	}, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (f *fakeNotifier) SendDigest(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}
