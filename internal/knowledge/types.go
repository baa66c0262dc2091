package knowledge

import (
	"context"
	"strings"
	"unicode"
)

const DefaultLimit = 3

// Snippet is a short, vetted piece of postpartum guidance.
type Snippet struct {
	Topic      string  `json:"topic"`
	Subtopic   string  `json:"subtopic"`
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	TrustScore float64 `json:"-"`
}

// Resource is a local service a caller can be handed off to.
type Resource struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	URL        string  `json:"url"`
	Topic      string  `json:"-"`
	Region     string  `json:"-"`
	TrustScore float64 `json:"-"`
}

// Store answers read-only lookups ranked by trust score, highest first.
type Store interface {
	Snippets(ctx context.Context, topic string, limit int) ([]Snippet, error)
	Resources(ctx context.Context, topic, region string, limit int) ([]Resource, error)
	Mode() string
	Close() error
}

// NormalizeTopic makes "Mental Health", "mental_health" and " mental health "
// compare equal. topicKeySQL must stay in step with it.
func NormalizeTopic(topic string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return unicode.IsSpace(r) || r == '_'
	}), "_")
}

var regionAliases = map[string]string{
	"on":      "ontario",
	"ont":     "ontario",
	"ontario": "ontario",
}

// NormalizeRegion lowercases region and expands province abbreviations.
func NormalizeRegion(region string) string {
	r := NormalizeTopic(region)
	if full, ok := regionAliases[r]; ok {
		return full
	}
	return r
}
