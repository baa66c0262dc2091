package policy

import (
	"regexp"
	"strings"
)

type Intent string

const (
	IntentEscalate Intent = "ESCALATE"
	IntentResource Intent = "RESOURCE"
	IntentComfort  Intent = "COMFORT"
)

const (
	TopicLatch    = "latch"
	TopicSleep    = "sleep"
	TopicPain     = "pain"
	TopicBleeding = "bleeding"
	TopicMood     = "mood"
	TopicGeneral  = "general"
)

type IntentDecision struct {
	Intent Intent
	Topic  string
	Reason string
}

var (
	redFlagPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)suicide|end it|kill myself|can.t keep myself safe`),
		regexp.MustCompile(`(?i)harm(ing)? (my )?baby|hurt the baby`),
		regexp.MustCompile(`(?i)soaking (a )?pad (an|a|per) hour`),
		regexp.MustCompile(`(?i)severe headache.*vision|chest pain|short(ness)? of breath`),
		regexp.MustCompile(`(?i)fever (39|102)`),
		regexp.MustCompile(`(?i)leg (swelling|pain)|calf pain`),
		regexp.MustCompile(`(?i)incision (open|opening|split)`),
		regexp.MustCompile(`(?i)baby (not )?feeding .*8\+? hours`),
		regexp.MustCompile(`(?i)baby (very )?sleepy|lethargic|blue lips`),
	}
	soakedPadPattern = regexp.MustCompile(`soak.*pad`)

	// Topics where a local handoff helps more than comfort alone.
	resourceTopics = map[string]bool{
		TopicLatch:    true,
		TopicBleeding: true,
		TopicMood:     true,
	}
)

// ClassifyTopic maps free text from a caller or texter to a care topic.
func ClassifyTopic(text string) string {
	s := strings.ToLower(text)
	switch {
	case strings.Contains(s, "latch") || strings.Contains(s, "breast"):
		return TopicLatch
	case strings.Contains(s, "sleep"):
		return TopicSleep
	case strings.Contains(s, "pain") && strings.Contains(s, "c-section"):
		return TopicPain
	case strings.Contains(s, "bleeding") || soakedPadPattern.MatchString(s):
		return TopicBleeding
	case strings.Contains(s, "anx") || strings.Contains(s, "overwhelm") || strings.Contains(s, "depress"):
		return TopicMood
	default:
		return TopicGeneral
	}
}

func HasRedFlag(text string) bool {
	for _, re := range redFlagPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// DecideIntent picks how to answer a message. Red flags always escalate; an
// escalation with no specific topic is filed under bleeding so urgent-care
// resources are offered.
func DecideIntent(text string) IntentDecision {
	in := strings.TrimSpace(text)
	topic := ClassifyTopic(in)
	if in == "" {
		return IntentDecision{Intent: IntentComfort, Topic: TopicGeneral}
	}

	if HasRedFlag(in) {
		if topic == TopicGeneral {
			topic = TopicBleeding
		}
		return IntentDecision{
			Intent: IntentEscalate,
			Topic:  topic,
			Reason: "Message mentions a postpartum warning sign.",
		}
	}

	if resourceTopics[topic] {
		return IntentDecision{Intent: IntentResource, Topic: topic}
	}
	return IntentDecision{Intent: IntentComfort, Topic: topic}
}
