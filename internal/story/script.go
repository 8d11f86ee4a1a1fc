package story

import (
	"errors"
	"fmt"
)

// Script holds every line of text the narrative shows.
type Script struct {
	Intro          string   `yaml:"intro"`
	Scattering     string   `yaml:"scattering"`
	FirstQuestion  string   `yaml:"first_question"`
	FirstPrompt    string   `yaml:"first_prompt"`
	SecondQuestion string   `yaml:"second_question"`
	AnswerPrompt   string   `yaml:"answer_prompt"`
	Reading        string   `yaml:"reading"`
	PoemPrompt     string   `yaml:"poem_prompt"`
	RetryDialogue  string   `yaml:"retry_dialogue"`
	Rejections     []string `yaml:"rejections"`
	Finale         string   `yaml:"finale"`
	Letter         string   `yaml:"letter"`
	Poem           string   `yaml:"poem"`
}

// DefaultScript returns the built-in narrative.
func DefaultScript() Script {
	return Script{
		Intro:          "Make a FIST 👊",
		Scattering:     "Scattering...",
		FirstQuestion:  "Hey you!\nCan I ask you something? ❤️",
		FirstPrompt:    "Show me 'Perfect' 👌",
		SecondQuestion: "Will you be my\nValentine\nthis year?",
		AnswerPrompt:   "👍 Yes!   /   👎 No...",
		Reading:        "Reading... (Wait 5s)",
		PoemPrompt:     "Flash 'Peace' ✌️ for a Poem",
		RetryDialogue:  "Are you sure? 🥺\n(Try the other thumb)",
		Rejections: []string{
			"Try again sweetheart 😉",
			"Wrong answer 🚫",
			"Your heart says yes ❤️",
			"Don't be shy...",
			"Access Denied: Try Thumbs Up 👍",
			"Are you sure? Look closer...",
			"Glitch in the matrix! Try again 🙃",
			"I'll wait... 🕒",
		},
		Finale: "Happy Valentine's Day ❤️",
		Letter: "My Dearest,\n\n" +
			"From the moment our paths crossed, my world has revolved around you.\n\n" +
			"You are my greatest joy and my only love.\n\n" +
			"I Love You. ❤️",
		Poem: "The quiet room grows warm and bright,\n" +
			"whenever you walk into sight.\n" +
			"A hand held up, a question asked,\n" +
			"and every doubt is gone at last.\n\n" +
			"So take my heart, it's yours to keep,\n" +
			"in waking hours and in sleep.",
	}
}

// Merge fills empty fields of s from defaults.
func (s Script) Merge(defaults Script) Script {
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&s.Intro, defaults.Intro)
	fill(&s.Scattering, defaults.Scattering)
	fill(&s.FirstQuestion, defaults.FirstQuestion)
	fill(&s.FirstPrompt, defaults.FirstPrompt)
	fill(&s.SecondQuestion, defaults.SecondQuestion)
	fill(&s.AnswerPrompt, defaults.AnswerPrompt)
	fill(&s.Reading, defaults.Reading)
	fill(&s.PoemPrompt, defaults.PoemPrompt)
	fill(&s.RetryDialogue, defaults.RetryDialogue)
	fill(&s.Finale, defaults.Finale)
	fill(&s.Letter, defaults.Letter)
	fill(&s.Poem, defaults.Poem)
	if len(s.Rejections) == 0 {
		s.Rejections = append([]string(nil), defaults.Rejections...)
	}
	return s
}

// Validate reports missing lines.
func (s Script) Validate() error {
	var errs []error
	required := []struct{ name, value string }{
		{"intro", s.Intro},
		{"first_question", s.FirstQuestion},
		{"first_prompt", s.FirstPrompt},
		{"second_question", s.SecondQuestion},
		{"answer_prompt", s.AnswerPrompt},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("script: %s is empty", r.name))
		}
	}
	if len(s.Rejections) == 0 {
		errs = append(errs, errors.New("script: rejections is empty"))
	}
	for i, r := range s.Rejections {
		if r == "" {
			errs = append(errs, fmt.Errorf("script: rejection %d is empty", i))
		}
	}
	return errors.Join(errs...)
}
