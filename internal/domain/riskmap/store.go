package riskmap

import (
	"fmt"
)

// Store is the immutable in-memory rule set: risks, controls, personas, and
// self-assessment questions. It is built once at startup and safe for
// concurrent reads without locking.
type Store struct {
	risks     []Risk
	controls  []Control
	personas  []Persona
	prompt    PersonaPrompt
	questions []Question

	riskByID     map[string]Risk
	controlByID  map[string]Control
	personaByID  map[string]Persona
	questionByID map[string]Question

	// relevance is the compiled per-question lookup from answer label to the
	// risk ids that answer implies. Built and validated once at load time.
	relevance map[string]map[string][]string

	// controlsByRisk maps a risk id to the controls that list it.
	controlsByRisk map[string][]string
}

// NewStore assembles and validates a store from already-parsed catalogs.
// Any inconsistent reference is a configuration error and aborts the build.
func NewStore(risks []Risk, controls []Control, personas []Persona, prompt PersonaPrompt, questions []Question) (*Store, error) {
	s := &Store{
		risks:          risks,
		controls:       controls,
		personas:       personas,
		prompt:         prompt,
		questions:      questions,
		riskByID:       make(map[string]Risk, len(risks)),
		controlByID:    make(map[string]Control, len(controls)),
		personaByID:    make(map[string]Persona, len(personas)),
		questionByID:   make(map[string]Question, len(questions)),
		relevance:      make(map[string]map[string][]string, len(questions)),
		controlsByRisk: make(map[string][]string),
	}

	for _, r := range risks {
		if r.ID == "" {
			return nil, fmt.Errorf("risk catalog: entry with empty id")
		}
		if _, dup := s.riskByID[r.ID]; dup {
			return nil, fmt.Errorf("risk catalog: duplicate id %q", r.ID)
		}
		s.riskByID[r.ID] = r
	}
	for _, c := range controls {
		if c.ID == "" {
			return nil, fmt.Errorf("control catalog: entry with empty id")
		}
		if _, dup := s.controlByID[c.ID]; dup {
			return nil, fmt.Errorf("control catalog: duplicate id %q", c.ID)
		}
		s.controlByID[c.ID] = c
	}
	for _, p := range personas {
		if p.ID == "" {
			return nil, fmt.Errorf("persona catalog: entry with empty id")
		}
		if _, dup := s.personaByID[p.ID]; dup {
			return nil, fmt.Errorf("persona catalog: duplicate id %q", p.ID)
		}
		s.personaByID[p.ID] = p
	}

	if err := s.validateReferences(); err != nil {
		return nil, err
	}
	s.compile()

	return s, nil
}

// validateReferences rejects any rule that points at an unknown identifier.
func (s *Store) validateReferences() error {
	for _, r := range s.risks {
		for _, cid := range r.ControlIDs {
			if _, ok := s.controlByID[cid]; !ok {
				return fmt.Errorf("risk %q references unknown control %q", r.ID, cid)
			}
		}
	}

	for _, c := range s.controls {
		for _, rid := range c.RiskIDs {
			if _, ok := s.riskByID[rid]; !ok {
				return fmt.Errorf("control %q mitigates unknown risk %q", c.ID, rid)
			}
		}
		for _, pid := range c.PersonaIDs {
			if _, ok := s.personaByID[pid]; !ok {
				return fmt.Errorf("control %q references unknown persona %q", c.ID, pid)
			}
		}
	}

	for _, q := range s.questions {
		if q.ID == "" {
			return fmt.Errorf("self-assessment: question with empty id")
		}
		if _, dup := s.questionByID[q.ID]; dup {
			return fmt.Errorf("self-assessment: duplicate question id %q", q.ID)
		}
		s.questionByID[q.ID] = q

		for _, rid := range q.RiskIDs {
			if _, ok := s.riskByID[rid]; !ok {
				return fmt.Errorf("question %q relevance references unknown risk %q", q.ID, rid)
			}
		}
		for _, pid := range q.PersonaIDs {
			if _, ok := s.personaByID[pid]; !ok {
				return fmt.Errorf("question %q references unknown persona %q", q.ID, pid)
			}
		}

		labels := make(map[string]bool, len(q.Answers))
		for _, a := range q.Answers {
			labels[a.Label] = true
		}
		for _, rel := range q.Relevance {
			if !labels[rel] {
				return fmt.Errorf("question %q relevance %q is not a declared answer", q.ID, rel)
			}
		}
	}

	for _, a := range s.prompt.Answers {
		if _, ok := s.personaByID[a.Label]; !ok {
			return fmt.Errorf("persona prompt answer %q is not a declared persona", a.Label)
		}
	}

	return nil
}

// compile builds the typed lookup tables. References have been validated.
func (s *Store) compile() {
	for _, q := range s.questions {
		byAnswer := make(map[string][]string, len(q.Relevance))
		for _, rel := range q.Relevance {
			byAnswer[rel] = q.RiskIDs
		}
		s.relevance[q.ID] = byAnswer
	}

	// A risk/control association may be declared on either side of the
	// catalogs. Union both, risk-side declarations first.
	for _, r := range s.risks {
		s.controlsByRisk[r.ID] = append([]string(nil), r.ControlIDs...)
	}
	for _, c := range s.controls {
		for _, riskID := range c.RiskIDs {
			if !containsID(s.controlsByRisk[riskID], c.ID) {
				s.controlsByRisk[riskID] = append(s.controlsByRisk[riskID], c.ID)
			}
		}
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Risk returns a risk by id.
func (s *Store) Risk(id string) (Risk, bool) {
	r, ok := s.riskByID[id]
	return r, ok
}

// Control returns a control by id.
func (s *Store) Control(id string) (Control, bool) {
	c, ok := s.controlByID[id]
	return c, ok
}

// Persona returns a persona by id.
func (s *Store) Persona(id string) (Persona, bool) {
	p, ok := s.personaByID[id]
	return p, ok
}

// Question returns a question by id.
func (s *Store) Question(id string) (Question, bool) {
	q, ok := s.questionByID[id]
	return q, ok
}

// Risks enumerates the risk catalog in declaration order.
func (s *Store) Risks() []Risk { return s.risks }

// Controls enumerates the control catalog in declaration order.
func (s *Store) Controls() []Control { return s.controls }

// Personas enumerates the persona catalog in declaration order.
func (s *Store) Personas() []Persona { return s.personas }

// Questions enumerates the self-assessment questions in declaration order.
func (s *Store) Questions() []Question { return s.questions }

// PersonaPrompt returns the persona selection question.
func (s *Store) PersonaPrompt() PersonaPrompt { return s.prompt }

// ImpliedRisks returns the risk ids implied by answering a question with the
// given label. Nil when the question is unknown or the answer carries no
// relevance rule.
func (s *Store) ImpliedRisks(questionID, answerLabel string) []string {
	return s.relevance[questionID][answerLabel]
}

// ControlsForRisk returns the control ids associated with a risk.
func (s *Store) ControlsForRisk(riskID string) []string {
	return s.controlsByRisk[riskID]
}
