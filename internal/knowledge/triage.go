package knowledge

import (
	"context"
	"fmt"

	"github.com/auntie-care/auntie-voice/internal/policy"
)

const escalationReply = "I'm concerned about what you shared. This can be urgent. Consider calling 911 or a nurse line. I can share options near you."

// Triage is the answer to one free-text message: an intent, a topic, a short
// reply and, when a handoff helps, local resources.
type Triage struct {
	Intent    policy.Intent `json:"intent"`
	Topic     string        `json:"topic"`
	Region    string        `json:"region"`
	Reply     string        `json:"reply_text"`
	Resources []Resource    `json:"resources,omitempty"`
}

// Triager classifies messages and answers them from a Store.
type Triager struct {
	store  Store
	region string
	limit  int
}

func NewTriager(store Store, defaultRegion string, limit int) *Triager {
	if defaultRegion == "" {
		defaultRegion = regionOntario
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Triager{store: store, region: defaultRegion, limit: limit}
}

func (t *Triager) Triage(ctx context.Context, text, region string) (Triage, error) {
	if region == "" {
		region = t.region
	}
	decision := policy.DecideIntent(text)
	out := Triage{Intent: decision.Intent, Topic: decision.Topic, Region: region}

	if decision.Intent == policy.IntentEscalate {
		out.Reply = escalationReply
	} else {
		snippets, err := t.store.Snippets(ctx, decision.Topic, 1)
		if err != nil {
			return Triage{}, fmt.Errorf("triage snippets: %w", err)
		}
		if len(snippets) > 0 {
			out.Reply = snippets[0].Text
		}
	}
	if decision.Intent == policy.IntentComfort {
		return out, nil
	}

	resources, err := t.store.Resources(ctx, decision.Topic, region, t.limit)
	if err != nil {
		return Triage{}, fmt.Errorf("triage resources: %w", err)
	}
	if len(resources) == 0 && decision.Topic != policy.TopicGeneral {
		resources, err = t.store.Resources(ctx, policy.TopicGeneral, region, t.limit)
		if err != nil {
			return Triage{}, fmt.Errorf("triage resources: %w", err)
		}
	}
	out.Resources = resources
	return out, nil
}
