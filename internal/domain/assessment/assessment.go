package assessment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnswerSet maps a question id to the user's chosen answer label.
type AnswerSet map[string]string

// Clone returns an independent copy of the answer set.
func (a AnswerSet) Clone() AnswerSet {
	if a == nil {
		return AnswerSet{}
	}
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// State is the explicit per-session context passed into the evaluator. It is
// the only mutable piece of the assessment flow and is scoped to one session.
type State struct {
	SessionID        string    `json:"session_id"`
	SelectedPersonas []string  `json:"selected_personas"`
	SelectedUseCases []string  `json:"selected_use_cases"`
	Answers          AnswerSet `json:"answers"`

	// InventoryUseCaseID links the session to a saved AI inventory
	// submission, when one exists.
	InventoryUseCaseID string    `json:"inventory_use_case_id,omitempty"`
	AssessmentRecordID string    `json:"assessment_record_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewState creates an empty session state with a fresh id.
func NewState() *State {
	return &State{
		SessionID: uuid.New().String(),
		Answers:   AnswerSet{},
		CreatedAt: time.Now().UTC(),
	}
}

// Result is the derived outcome of one evaluation pass: the relevant risk
// ids (sorted) and the recommended control ids (first-seen order, deduped).
type Result struct {
	RelevantRisks       []string `json:"relevant_risks"`
	RecommendedControls []string `json:"recommended_controls"`
}

// InventorySubmission is a persisted snapshot of an AI inventory record.
type InventorySubmission struct {
	UseCaseID    string                   `json:"use_case_id"`
	UseCaseName  string                   `json:"use_case_name,omitempty"`
	BusinessUnit string                   `json:"business_unit,omitempty"`
	ModelCreator string                   `json:"model_creator,omitempty"`
	ModelUsage   string                   `json:"model_usage,omitempty"`
	Payload      map[string]interface{}   `json:"payload"`
	RepeatBlocks map[string][]interface{} `json:"repeat_blocks,omitempty"`
	CreatedAt    time.Time                `json:"created_at,omitzero"`
	UpdatedAt    time.Time                `json:"updated_at,omitzero"`
}

// AssessmentSubmission is a persisted snapshot of a completed self-assessment:
// the answer set plus the derived risk and control id sets. Never mutated
// after save except for the updated timestamp.
type AssessmentSubmission struct {
	AssessmentID        string    `json:"assessment_id"`
	InventoryUseCaseID  string    `json:"inventory_use_case_id,omitempty"`
	SelectedPersonas    []string  `json:"selected_personas"`
	SelectedUseCases    []string  `json:"selected_use_cases"`
	Answers             AnswerSet `json:"answers"`
	RelevantRisks       []string  `json:"relevant_risks"`
	RecommendedControls []string  `json:"recommended_controls"`

	// VayuResult is the client-supplied risk tiering outcome, stored
	// verbatim. The tier computation happens outside this service.
	VayuResult map[string]interface{} `json:"vayu_result,omitempty"`

	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at,omitzero"`
	UpdatedAt time.Time              `json:"updated_at,omitzero"`
}

// NewUseCaseID generates an AI inventory use-case identifier.
func NewUseCaseID() string {
	return "UC-" + shortHex(8)
}

// NewAssessmentID generates a self-assessment submission identifier.
func NewAssessmentID() string {
	return "ASMT-" + shortHex(10)
}

func shortHex(n int) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(hex[:n])
}
