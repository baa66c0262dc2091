package policy

import "testing"

func TestClassifyTopic(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Baby won't latch properly", TopicLatch},
		{"my breast hurts", TopicLatch},
		{"I can't sleep at all", TopicSleep},
		{"pain after my C-section", TopicPain},
		{"pain in my back", TopicGeneral},
		{"heavy bleeding since noon", TopicBleeding},
		{"I'm soaking through a pad", TopicBleeding},
		{"feeling so overwhelmed", TopicMood},
		{"anxious every night", TopicMood},
		{"hello", TopicGeneral},
	}
	for _, tc := range cases {
		if got := ClassifyTopic(tc.text); got != tc.want {
			t.Fatalf("ClassifyTopic(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestDecideIntent(t *testing.T) {
	cases := []struct {
		text       string
		wantIntent Intent
		wantTopic  string
	}{
		{"", IntentComfort, TopicGeneral},
		{"how do I get a better latch", IntentResource, TopicLatch},
		{"tips for sleep?", IntentComfort, TopicSleep},
		{"I feel like I can't keep myself safe", IntentEscalate, TopicBleeding},
		{"soaking a pad an hour and bleeding", IntentEscalate, TopicBleeding},
		{"so overwhelmed, I might hurt the baby", IntentEscalate, TopicMood},
		{"baby has blue lips", IntentEscalate, TopicBleeding},
	}
	for _, tc := range cases {
		got := DecideIntent(tc.text)
		if got.Intent != tc.wantIntent || got.Topic != tc.wantTopic {
			t.Fatalf("DecideIntent(%q) = %+v, want %s/%s", tc.text, got, tc.wantIntent, tc.wantTopic)
		}
		if got.Intent == IntentEscalate && got.Reason == "" {
			t.Fatalf("DecideIntent(%q) escalation missing reason", tc.text)
		}
	}
}
