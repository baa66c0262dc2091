package knowledge

import "github.com/auntie-care/auntie-voice/internal/policy"

const regionOntario = "Ontario"

// builtinSnippets seeds empty stores with the guidance Auntie gives by topic.
var builtinSnippets = []Snippet{
	{Topic: policy.TopicLatch, Subtopic: "positioning", Source: "Auntie care notes", TrustScore: 0.9,
		Text: "Latch issues are so common and not your fault. Try a laid-back position and 20 minutes of skin-to-skin tonight."},
	{Topic: policy.TopicLatch, Subtopic: "support", Source: "Public Health Ontario", TrustScore: 0.8,
		Text: "A public health nurse or lactation consultant can watch a feed and help adjust the latch."},
	{Topic: policy.TopicSleep, Subtopic: "night feeds", Source: "Auntie care notes", TrustScore: 0.9,
		Text: "Night cycles are rough. Try a 2-hour sleep window and hand off one feed if you can. Tiny rests count."},
	{Topic: policy.TopicPain, Subtopic: "c-section recovery", Source: "Auntie care notes", TrustScore: 0.9,
		Text: "C-section recovery can sting more at night. Check your meds timing, use a pillow to brace, and change positions slowly."},
	{Topic: policy.TopicBleeding, Subtopic: "warning signs", Source: "Ontario Telehealth", TrustScore: 0.95,
		Text: "Heavy bleeding can be urgent. If you are soaking pads hourly, please consider urgent care or 911."},
	{Topic: policy.TopicMood, Subtopic: "mental health", Source: "Postpartum Support International", TrustScore: 0.95,
		Text: "What you are feeling is real and you deserve care. Tonight, text a trusted person, eat something small, and plan one call tomorrow."},
	{Topic: policy.TopicGeneral, Subtopic: "self care", Source: "Auntie care notes", TrustScore: 0.8,
		Text: "You are doing more than enough. Tonight, drink water, feed on demand, and rest when baby rests. Small wins count."},
}

var builtinResources = []Resource{
	{Topic: policy.TopicLatch, Region: regionOntario, TrustScore: 0.9,
		Name: "Public Health Nurse (Waterloo)", Phone: "519-575-4400", URL: "https://www.regionofwaterloo.ca"},
	{Topic: policy.TopicLatch, Region: regionOntario, TrustScore: 0.8,
		Name: "PSI Helpline", Phone: "1-800-944-4773", URL: "https://postpartum.net"},
	{Topic: policy.TopicBleeding, Region: regionOntario, TrustScore: 0.95,
		Name: "Ontario Telehealth", Phone: "1-866-797-0000", URL: "https://www.ontario.ca/page/get-medical-advice-telehealth-ontario"},
	{Topic: policy.TopicBleeding, Region: regionOntario, TrustScore: 0.9,
		Name: "Grand River Hospital", Phone: "519-749-4300", URL: "https://www.grhosp.on.ca"},
	{Topic: policy.TopicMood, Region: regionOntario, TrustScore: 0.95,
		Name: "PSI Helpline (24/7 text HELP to 800-944-4773)", Phone: "1-800-944-4773", URL: "https://postpartum.net"},
	{Topic: policy.TopicMood, Region: regionOntario, TrustScore: 0.9,
		Name: "Here 24/7 (Waterloo Region)", Phone: "1-844-437-3247", URL: "https://here247.ca"},
	{Topic: policy.TopicGeneral, Region: regionOntario, TrustScore: 0.8,
		Name: "Postpartum Support International", Phone: "1-800-944-4773", URL: "https://postpartum.net"},
	{Topic: policy.TopicPain, Region: regionOntario, TrustScore: 0.9,
		Name: "Ontario Telehealth Nurse", Phone: "1-866-797-0000", URL: "https://www.ontario.ca/page/get-medical-advice-telehealth-ontario"},
	{Topic: policy.TopicSleep, Region: regionOntario, TrustScore: 0.85,
		Name: "Public Health Nurse (Waterloo)", Phone: "519-575-4400", URL: "https://www.regionofwaterloo.ca"},
}
