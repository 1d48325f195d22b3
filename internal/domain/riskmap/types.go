package riskmap

import "strings"

// Risk is a single entry from the risk catalog. Immutable after load.
type Risk struct {
	ID               string              `yaml:"id" json:"id"`
	Title            string              `yaml:"title" json:"title"`
	Category         string              `yaml:"category" json:"category,omitempty"`
	ShortDescription []string            `yaml:"shortDescription" json:"short_description,omitempty"`
	LongDescription  []string            `yaml:"longDescription" json:"long_description,omitempty"`
	ImpactTypes      []string            `yaml:"impactType" json:"impact_types,omitempty"`
	LifecycleStages  []string            `yaml:"lifecycleStage" json:"lifecycle_stages,omitempty"`
	Examples         []string            `yaml:"examples" json:"examples,omitempty"`
	Mappings         map[string][]string `yaml:"mappings" json:"mappings,omitempty"`

	// ControlIDs is the static risk -> control association table.
	ControlIDs []string `yaml:"controls" json:"controls,omitempty"`
}

// Control is a mitigation from the control catalog. Immutable after load.
type Control struct {
	ID          string              `yaml:"id" json:"id"`
	Title       string              `yaml:"title" json:"title"`
	Category    string              `yaml:"category" json:"category,omitempty"`
	Description []string            `yaml:"description" json:"description,omitempty"`
	PersonaIDs  []string            `yaml:"personas" json:"personas,omitempty"`
	Components  []string            `yaml:"components" json:"components,omitempty"`
	Mappings    map[string][]string `yaml:"mappings" json:"mappings,omitempty"`

	// RiskIDs is the set of risks this control mitigates.
	RiskIDs []string `yaml:"risks" json:"risks,omitempty"`
}

// Persona is a role tag used to filter which questions apply to a user.
type Persona struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description []string `yaml:"description" json:"description,omitempty"`
}

// Answer is one selectable option on a question.
type Answer struct {
	Label string `yaml:"label" json:"label"`
}

// Question is a self-assessment question. Relevance holds the answer labels that
// make the question's RiskIDs relevant; the compiled per-answer lookup lives on
// the Store.
type Question struct {
	ID         string   `yaml:"id" json:"id"`
	Text       []string `yaml:"text" json:"text"`
	PersonaIDs []string `yaml:"personas" json:"personas"`
	Answers    []Answer `yaml:"answers" json:"answers"`
	Relevance  []string `yaml:"relevance" json:"relevance,omitempty"`
	RiskIDs    []string `yaml:"risks" json:"risks,omitempty"`
}

// PersonaPrompt is the persona selection question shown before the assessment.
type PersonaPrompt struct {
	Text    []string `yaml:"text" json:"text"`
	Answers []Answer `yaml:"answers" json:"answers"`
}

// Prompt returns the question text as a single string.
func (q Question) Prompt() string {
	return JoinText(q.Text)
}

// AppliesTo reports whether the question applies to at least one of the
// selected personas.
func (q Question) AppliesTo(personaIDs []string) bool {
	for _, selected := range personaIDs {
		for _, p := range q.PersonaIDs {
			if p == selected {
				return true
			}
		}
	}
	return false
}

// JoinText collapses a YAML text block list into a single string.
func JoinText(blocks []string) string {
	return strings.TrimSpace(strings.Join(blocks, " "))
}
