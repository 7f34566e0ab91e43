// ABOUTME: Benchmark scenarios with known topic boundaries
// ABOUTME: Builds synthetic timed transcripts from topical segments

package chapters

import (
	"math"

	"github.com/harper/chapterize/internal/models"
)

// fragmentSeconds is the spacing between generated caption lines
const fragmentSeconds = 10.0

// Segment is one topic of a scenario transcript
type Segment struct {
	Topic      string
	Seconds    float64
	Sentences  []string // cycled until Seconds is filled
	TitleTerms []string // any one of these should appear in the chapter title
}

// Scenario is a transcript with ground truth chapter boundaries
type Scenario struct {
	ID          string
	Name        string
	Description string
	Segments    []Segment
}

// Fragments renders the scenario as caption fragments, one per sentence
func (s Scenario) Fragments() []models.Fragment {
	var fragments []models.Fragment
	clock := 0.0
	for _, seg := range s.Segments {
		if len(seg.Sentences) == 0 {
			continue
		}
		n := int(math.Max(1, math.Round(seg.Seconds/fragmentSeconds)))
		for i := 0; i < n; i++ {
			fragments = append(fragments, models.Fragment{
				Text:     seg.Sentences[i%len(seg.Sentences)],
				Start:    clock,
				Duration: fragmentSeconds - 1,
			})
			clock += fragmentSeconds
		}
	}
	return fragments
}

// Boundaries returns the start time of every segment after the first
func (s Scenario) Boundaries() []float64 {
	var out []float64
	clock := 0.0
	for i, seg := range s.Segments {
		if len(seg.Sentences) == 0 {
			continue
		}
		if i > 0 {
			out = append(out, clock)
		}
		clock += math.Max(1, math.Round(seg.Seconds/fragmentSeconds)) * fragmentSeconds
	}
	return out
}

// GetLectureScenario returns a three-topic lecture
func GetLectureScenario() Scenario {
	return Scenario{
		ID:          "lecture",
		Name:        "Three-topic lecture",
		Description: "A course lecture moving from photosynthesis to plate tectonics to the French Revolution",
		Segments: []Segment{
			{
				Topic:      "photosynthesis",
				Seconds:    300,
				TitleTerms: []string{"photosynthesis", "plant", "light", "chlorophyll"},
				Sentences: []string{
					"Um, so today we start with photosynthesis and how plants capture light.",
					"Chlorophyll absorbs mostly red and blue light and reflects green.",
					"The light reactions happen in the thylakoid membranes of the chloroplast.",
					"Water is split and oxygen is released as a byproduct of the light reactions.",
					"The Calvin cycle then fixes carbon dioxide into sugars using that stored energy.",
					"Without photosynthesis there would be no oxygen in the atmosphere for us to breathe.",
				},
			},
			{
				Topic:      "plate tectonics",
				Seconds:    300,
				TitleTerms: []string{"plate", "tectonic", "earthquake", "continent", "crust"},
				Sentences: []string{
					"Okay, switching gears, let's talk about plate tectonics and the crust.",
					"The lithosphere is broken into plates that float on the asthenosphere.",
					"Where plates collide you get mountain ranges and deep ocean trenches.",
					"Earthquakes cluster along plate boundaries like the Pacific ring of fire.",
					"Continental drift was proposed long before anyone could explain the mechanism.",
					"Seafloor spreading at mid ocean ridges finally provided that evidence.",
				},
			},
			{
				Topic:      "french revolution",
				Seconds:    300,
				TitleTerms: []string{"revolution", "french", "france", "bastille", "monarchy"},
				Sentences: []string{
					"Finally, uh, the French Revolution, which began in seventeen eighty nine.",
					"The storming of the Bastille became a symbol of the fall of the monarchy.",
					"The Estates General had not met for over a century before that crisis.",
					"Debt from foreign wars left the French crown nearly bankrupt.",
					"The Declaration of the Rights of Man set out liberty and equality.",
					"The Terror followed, and thousands were executed by the revolutionary tribunal.",
				},
			},
		},
	}
}

// GetInterviewScenario returns a two-topic interview
func GetInterviewScenario() Scenario {
	return Scenario{
		ID:          "interview",
		Name:        "Two-topic podcast interview",
		Description: "A podcast guest discusses sourdough baking and then marathon training",
		Segments: []Segment{
			{
				Topic:      "sourdough",
				Seconds:    360,
				TitleTerms: []string{"sourdough", "bread", "baking", "starter", "dough"},
				Sentences: []string{
					"So tell me how you got into sourdough baking in the first place.",
					"My starter is about six years old and I feed it flour and water daily.",
					"The long fermentation is what gives the bread its sour flavor.",
					"You want high hydration dough if you are after an open crumb.",
					"I bake in a cast iron dutch oven to trap the steam for the crust.",
					"Shaping the loaf tightly is the step most beginners struggle with.",
				},
			},
			{
				Topic:      "marathon",
				Seconds:    360,
				TitleTerms: []string{"marathon", "running", "training", "race", "run"},
				Sentences: []string{
					"You also ran your first marathon last spring, right?",
					"Training took about eighteen weeks with one long run every weekend.",
					"The hardest part of the race was mile twenty when my legs gave out.",
					"I learned to take energy gels every forty five minutes while running.",
					"Tapering in the final weeks before the marathon made a huge difference.",
					"Next year I want to run the race under four hours.",
				},
			},
		},
	}
}

// GetMonologueScenario returns a single-topic talk with no boundaries
func GetMonologueScenario() Scenario {
	return Scenario{
		ID:          "monologue",
		Name:        "Single-topic talk",
		Description: "A talk that stays on database indexing throughout and should not be split",
		Segments: []Segment{
			{
				Topic:      "database indexing",
				Seconds:    600,
				TitleTerms: []string{"index", "database", "query", "b-tree"},
				Sentences: []string{
					"Database indexes trade write speed and storage for faster queries.",
					"A b-tree index keeps keys sorted so range scans stay cheap.",
					"The query planner decides whether an index scan beats a sequential scan.",
					"Composite indexes only help when the query filters on the leading columns.",
					"Too many indexes slow down every insert and update on the table.",
					"Always check the query plan before adding another database index.",
				},
			},
		},
	}
}

// GetAllScenarios returns every built-in scenario
func GetAllScenarios() []Scenario {
	return []Scenario{
		GetLectureScenario(),
		GetInterviewScenario(),
		GetMonologueScenario(),
	}
}

// GetScenario looks up a built-in scenario by ID
func GetScenario(id string) (Scenario, bool) {
	for _, s := range GetAllScenarios() {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}
