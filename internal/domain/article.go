package domain

import "time"

// ArticleStatus enumerates the article lifecycle.
type ArticleStatus string

const (
	StatusGenerated ArticleStatus = "generated"
	StatusValidated ArticleStatus = "validated"
	StatusReview    ArticleStatus = "review"
	StatusPublished ArticleStatus = "published"
)

// Article is a generated draft moving through validation and publication.
// Confidence is set only by the validator and is required before publishing.
type Article struct {
	ID              string
	RawItemID       string
	Title           string
	Body            string
	Category        string
	Region          string
	Confidence      *float64
	Status          ArticleStatus
	CreatedAt       time.Time
	ValidatedAt     *time.Time
	PublishedAt     *time.Time
	RejectionReason string
}

// Publishable reports whether the article clears both gates for zero-touch exposure.
func (a Article) Publishable(threshold float64) bool {
	return a.Status == StatusValidated && a.Confidence != nil && *a.Confidence >= threshold
}

// Publication is the append-only record associating a published article
// with its target audience segment.
type Publication struct {
	ID          string
	ArticleID   string
	Segment     string
	Category    string
	PublishedAt time.Time
}

// ValidationResult is the validator's verdict for a piece of content.
type ValidationResult struct {
	Confidence float64         `json:"confidence"`
	Approved   bool            `json:"approved"`
	Checks     map[string]bool `json:"checks"`
	Flags      []string        `json:"flags"`
}
