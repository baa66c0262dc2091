package knowledge

import (
	"context"
	"sort"
)

// InMemoryStore serves a fixed catalog for local/dev use. It is read-only
// after construction.
type InMemoryStore struct {
	snippets  []Snippet
	resources []Resource
}

func NewInMemoryStore() *InMemoryStore {
	return NewInMemoryStoreWith(builtinSnippets, builtinResources)
}

func NewInMemoryStoreWith(snippets []Snippet, resources []Resource) *InMemoryStore {
	return &InMemoryStore{
		snippets:  append([]Snippet(nil), snippets...),
		resources: append([]Resource(nil), resources...),
	}
}

func (s *InMemoryStore) Snippets(_ context.Context, topic string, limit int) ([]Snippet, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	want := NormalizeTopic(topic)

	out := make([]Snippet, 0, limit)
	for _, sn := range s.snippets {
		if NormalizeTopic(sn.Topic) == want {
			out = append(out, sn)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TrustScore > out[j].TrustScore })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Resources(_ context.Context, topic, region string, limit int) ([]Resource, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	wantTopic := NormalizeTopic(topic)
	wantRegion := NormalizeRegion(region)

	out := make([]Resource, 0, limit)
	for _, r := range s.resources {
		if NormalizeTopic(r.Topic) == wantTopic && NormalizeRegion(r.Region) == wantRegion {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TrustScore > out[j].TrustScore })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Mode() string { return "in-memory" }

func (s *InMemoryStore) Close() error { return nil }
