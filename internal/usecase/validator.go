package usecase

import (
	"fmt"
	"strings"

	"newsroom/internal/domain"
)

// Named checks and their contribution to the aggregate confidence.
const (
	checkMinLength = "min_length"
	checkBanned    = "banned_terms"
	checkCoherence = "category_coherence"
	checkStructure = "structure"
)

var checkWeights = map[string]float64{
	checkMinLength: 0.25,
	checkBanned:    0.35,
	checkCoherence: 0.2,
	checkStructure: 0.2,
}

// defaultBannedTerms screens obvious placeholder or unsafe generator output.
var defaultBannedTerms = []string{
	"lorem ipsum",
	"as an ai",
	"i cannot",
	"[insert",
	"click here",
	"buy now",
}

// Validator runs quality/safety heuristics over generated text and computes
// an aggregate confidence in [0,1]. Pure: no storage access.
type Validator struct {
	threshold   float64
	minLength   int
	bannedTerms []string
}

// NewValidator constructs the validation stage. Approval requires confidence
// at or above the validation threshold; the publish gate is separate.
func NewValidator(threshold float64, minLength int, bannedTerms []string) *Validator {
	if minLength <= 0 {
		minLength = 120
	}
	if len(bannedTerms) == 0 {
		bannedTerms = defaultBannedTerms
	}
	return &Validator{threshold: threshold, minLength: minLength, bannedTerms: bannedTerms}
}

// Validate checks the text against each named heuristic.
func (v *Validator) Validate(text, category string) (domain.ValidationResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ValidationResult{}, fmt.Errorf("%w: content text is required", domain.ErrInvalidInput)
	}

	result := domain.ValidationResult{
		Checks: map[string]bool{},
		Flags:  []string{},
	}

	result.Checks[checkMinLength] = len(strings.TrimSpace(text)) >= v.minLength
	result.Checks[checkBanned] = v.passesBannedScreen(text, &result)
	result.Checks[checkCoherence] = v.coherent(text, category)
	result.Checks[checkStructure] = wellStructured(text)

	for name, passed := range result.Checks {
		if passed {
			result.Confidence += checkWeights[name]
		} else if name != checkBanned {
			result.Flags = append(result.Flags, name+" failed")
		}
	}
	result.Confidence = clamp01(result.Confidence)
	result.Approved = result.Confidence >= v.threshold

	return result, nil
}

// Threshold exposes the validation gate for callers that apply the transition.
func (v *Validator) Threshold() float64 {
	return v.threshold
}

func (v *Validator) passesBannedScreen(text string, result *domain.ValidationResult) bool {
	lowered := strings.ToLower(text)
	passed := true
	for _, term := range v.bannedTerms {
		if strings.Contains(lowered, term) {
			result.Flags = append(result.Flags, fmt.Sprintf("banned term %q", term))
			passed = false
		}
	}
	return passed
}

// coherent requires at least one category keyword in the text; unknown or
// empty categories pass since there is nothing to check against.
func (v *Validator) coherent(text, category string) bool {
	keywords := categoryKeywords[strings.ToLower(category)]
	if len(keywords) == 0 {
		return true
	}

	lowered := strings.ToLower(text)
	if strings.Contains(lowered, strings.ToLower(category)) {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// wellStructured wants at least two sentences and no shouting.
func wellStructured(text string) bool {
	trimmed := strings.TrimSpace(text)

	sentences := 0
	for _, r := range trimmed {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences < 2 {
		return false
	}

	upper := 0
	letters := 0
	for _, r := range trimmed {
		if r >= 'A' && r <= 'Z' {
			upper++
			letters++
		} else if r >= 'a' && r <= 'z' {
			letters++
		}
	}
	return letters == 0 || float64(upper)/float64(letters) < 0.5
}
