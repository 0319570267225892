package mood

import "github.com/andreagonzahe/lunaria-app/internal/domain"

// Section is one block of the daily questionnaire.
type Section struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
}

// SectionThresholds are the score cut-offs of one section.
type SectionThresholds struct {
	Low      int
	Possible int
	Strong   int
}

// Thresholds used by Classify.
var Thresholds = struct {
	Mania      SectionThresholds
	Depression SectionThresholds
	Mixed      SectionThresholds
}{
	Mania:      SectionThresholds{Low: 2, Possible: 3, Strong: 5},
	Depression: SectionThresholds{Low: 2, Possible: 3, Strong: 5},
	Mixed:      SectionThresholds{Low: 0, Possible: 1, Strong: 3},
}

// Questionnaire is the daily check-in, in the order the sections are asked.
var Questionnaire = []Section{
	{
		Key:         "mania",
		Title:       "Mania / Hypomania-leaning",
		Description: "Check all that apply to you today",
		Items: []string{
			`I felt unusually "up," excited, or very irritable compared with my normal mood.`,
			"I had noticeably more energy or was more physically or mentally active than usual.",
			"I needed less sleep than usual and still felt more energized than tired.",
			"My speech or thoughts felt unusually fast, or others had trouble keeping up with me.",
			"I did things that were more risky or impulsive than usual (for example, spending, sex, driving, substances, sudden big decisions).",
			"I spent more money than usual in a way that felt impulsive or hard to control (for example, buying things I do not need or cannot afford).",
			"I felt unusually confident or driven to achieve and found it hard to slow down or relax.",
			`I felt keyed up or over-activated (anxious, wired, or "amped up") while my energy was higher than usual.`,
			"I felt unusually irritable or easily annoyed while my energy or activity level was higher than usual.",
		},
	},
	{
		Key:         "depression",
		Title:       "Depression-leaning",
		Description: "Check all that apply to you today",
		Items: []string{
			"I felt down, sad, or hopeless.",
			"I had much less interest or pleasure in activities I usually enjoy.",
			"I felt tired, heavy, or slowed down in my movements or thinking.",
			"I slept much more than usual or found it very hard to get out of bed.",
			"I avoided people or isolated myself more than usual.",
			"I had trouble concentrating, making decisions, or finishing tasks.",
			"I felt anxious or worried a lot of the time, even while my mood was low.",
			"I felt unusually irritable or easily annoyed while my mood was low.",
		},
	},
	{
		Key:         "mixed",
		Title:       "Mixed-features / Anxiety / Agitation",
		Description: "Check all that apply to you today",
		Items: []string{
			`At the same time, I felt very "activated" or restless and also felt empty, sad, or hopeless.`,
			"I felt strong urges to do things (be active, start projects, or act on impulses) while also feeling low or distressed about myself or my life.",
			"I felt very anxious, on edge, or unable to relax, even when nothing specific was happening.",
			"I felt inner tension or agitation (restless in my body, like I could not sit still), even while feeling low or distressed.",
		},
	},
	{
		Key:         "safety",
		Title:       "Safety",
		Description: "This is important - please answer honestly",
		Items: []string{
			"I had thoughts that I would be better off dead or of hurting myself in some way.",
		},
	},
}

// StateLabel returns the human-readable name of a mood state.
func StateLabel(s domain.MoodState) string {
	switch s {
	case domain.StateElevated:
		return "Elevated/Hypomanic"
	case domain.StateDepressed:
		return "Depressed"
	case domain.StateMixed:
		return "Mixed Features"
	case domain.StateBaseline:
		return "Baseline"
	case domain.StateSafetyAlert:
		return "Safety Alert"
	default:
		return "Unknown"
	}
}
