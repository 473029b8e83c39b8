package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

// ScoreFunc computes a relevance score in [0,1] for a raw item. It must be
// total and side-effect free on its input.
type ScoreFunc func(item domain.RawItem, now time.Time) float64

// ScoredItem is a single scoring outcome surfaced through the scorer endpoint.
type ScoredItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Score     float64 `json:"score"`
	Qualified bool    `json:"qualified"`
}

// ScoreReport aggregates one scoring pass.
type ScoreReport struct {
	Processed         int          `json:"processed"`
	Qualified         int          `json:"qualified"`
	QualificationRate float64      `json:"qualification_rate"`
	Items             []ScoredItem `json:"items"`
}

// Scorer assigns relevance scores to unscored raw items. Idempotent:
// scored items are excluded from the next pass.
type Scorer struct {
	items     ports.RawItemRepository
	scoreFn   ScoreFunc
	threshold float64
	batch     int
	logger    *slog.Logger
}

// NewScorer constructs the scoring stage with a pluggable score function.
func NewScorer(items ports.RawItemRepository, scoreFn ScoreFunc, threshold float64, batch int, logger *slog.Logger) *Scorer {
	if batch <= 0 {
		batch = 100
	}
	return &Scorer{items: items, scoreFn: scoreFn, threshold: threshold, batch: batch, logger: logger}
}

// ScorePending scores every unscored item and persists score plus scored_at.
func (s *Scorer) ScorePending(ctx context.Context) (ScoreReport, error) {
	pending, err := s.items.Unscored(ctx, s.batch)
	if err != nil {
		return ScoreReport{}, fmt.Errorf("select unscored: %w", err)
	}

	now := time.Now().UTC()
	report := ScoreReport{Items: make([]ScoredItem, 0, len(pending))}

	// a persist failure skips that item only; it stays unscored and is
	// retried on the next pass
	var errs []error
	for _, item := range pending {
		score := clamp01(s.scoreFn(item, now))
		if err := s.items.SetScore(ctx, item.ID, score, now); err != nil {
			errs = append(errs, fmt.Errorf("persist score for %s: %w", item.ID, err))
			continue
		}

		qualified := score >= s.threshold
		if qualified {
			report.Qualified++
		}
		report.Processed++
		report.Items = append(report.Items, ScoredItem{
			ID:        item.ID,
			Title:     item.Title,
			Score:     score,
			Qualified: qualified,
		})
	}

	if report.Processed > 0 {
		report.QualificationRate = float64(report.Qualified) / float64(report.Processed)
	}

	if s.logger != nil {
		s.logger.Info("scoring pass complete",
			"processed", report.Processed,
			"qualified", report.Qualified,
			"rate", report.QualificationRate)
	}
	return report, errors.Join(errs...)
}

// categoryKeywords drives the keyword-match component of the default heuristic.
var categoryKeywords = map[string][]string{
	"local":       {"neighborhood", "community", "council", "resident", "street", "district"},
	"business":    {"opening", "store", "restaurant", "shop", "market", "hiring", "owner"},
	"events":      {"festival", "concert", "fair", "event", "celebration", "parade", "weekend"},
	"safety":      {"police", "fire", "emergency", "closure", "warning", "alert"},
	"development": {"construction", "zoning", "permit", "development", "housing", "project"},
}

// DefaultScoreFunc builds the deterministic heuristic combining category
// keyword match, recency decay, and per-source priority.
func DefaultScoreFunc(priorities map[string]float64) ScoreFunc {
	return func(item domain.RawItem, now time.Time) float64 {
		score := keywordScore(item) + recencyScore(item, now)
		if p, ok := priorities[item.SourceID]; ok {
			score += clamp01(p) * 0.3
		}
		return clamp01(score)
	}
}

func keywordScore(item domain.RawItem) float64 {
	keywords := categoryKeywords[strings.ToLower(item.CategoryHint)]
	if len(keywords) == 0 {
		// unlisted categories score on base text volume alone
		return 0.15
	}

	title := strings.ToLower(item.Title)
	body := strings.ToLower(item.Body)

	var hits float64
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			hits += 2
		} else if strings.Contains(body, kw) {
			hits++
		}
	}

	const maxHits = 4
	if hits > maxHits {
		hits = maxHits
	}
	return hits / maxHits * 0.4
}

func recencyScore(item domain.RawItem, now time.Time) float64 {
	age := now.Sub(item.PublishedAt)
	switch {
	case age < 24*time.Hour:
		return 0.3
	case age < 72*time.Hour:
		return 0.2
	case age < 7*24*time.Hour:
		return 0.1
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
