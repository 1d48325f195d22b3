package assessment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "github.com/cosai-tools/risk-navigator/internal/domain/assessment"
	"github.com/cosai-tools/risk-navigator/internal/domain/riskmap"
	"github.com/cosai-tools/risk-navigator/internal/service/assessment"
)

func newTestService(t *testing.T) *assessment.Service {
	t.Helper()

	risks := []riskmap.Risk{
		{ID: "R1", Title: "Data Poisoning", Category: "risksData", ControlIDs: []string{"C1", "C2"},
			Mappings: map[string][]string{"nist-ai-rmf": {"GOVERN-1.1"}}},
		{ID: "R2", Title: "Prompt Injection", Category: "risksInput", ControlIDs: []string{"C2", "C3"}},
		{ID: "R3", Title: "Model Theft", Category: "risksModel", ControlIDs: []string{"C3"}},
	}
	controls := []riskmap.Control{
		{ID: "C1", Title: "Training Data Validation", Category: "controlsData", RiskIDs: []string{"R1"}},
		{ID: "C2", Title: "Access Control", Category: "controlsAccess", RiskIDs: []string{"R1", "R2"}},
		{ID: "C3", Title: "Output Filtering", Category: "controlsAccess", RiskIDs: []string{"R2", "R3"}},
	}
	personas := []riskmap.Persona{
		{ID: "modelCreator", Title: "Model Creator"},
		{ID: "modelConsumer", Title: "Model Consumer"},
	}
	prompt := riskmap.PersonaPrompt{
		Answers: []riskmap.Answer{{Label: "modelCreator"}, {Label: "modelConsumer"}},
	}
	questions := []riskmap.Question{
		{
			ID:         "Q1",
			Text:       []string{"Do you train on external data?"},
			PersonaIDs: []string{"modelCreator"},
			Answers:    []riskmap.Answer{{Label: "Yes"}, {Label: "No"}},
			Relevance:  []string{"Yes"},
			RiskIDs:    []string{"R1"},
		},
		{
			ID:         "Q2",
			Text:       []string{"Do users submit free-form prompts?"},
			PersonaIDs: []string{"modelConsumer"},
			Answers:    []riskmap.Answer{{Label: "Yes"}, {Label: "No"}},
			Relevance:  []string{"Yes"},
			RiskIDs:    []string{"R2"},
		},
		{
			ID:         "Q3",
			Text:       []string{"Is the model weights file distributed?"},
			PersonaIDs: []string{"modelCreator", "modelConsumer"},
			Answers:    []riskmap.Answer{{Label: "Yes"}, {Label: "No"}},
			Relevance:  []string{"Yes"},
			RiskIDs:    []string{"R3", "R1"},
		},
	}

	store, err := riskmap.NewStore(risks, controls, personas, prompt, questions)
	require.NoError(t, err)

	return assessment.NewService(store, zaptest.NewLogger(t))
}

func TestEvaluate(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name         string
		personas     []string
		answers      domain.AnswerSet
		wantRisks    []string
		wantControls []string
	}{
		{
			name:         "matching answer produces implied risk",
			personas:     []string{"modelCreator"},
			answers:      domain.AnswerSet{"Q1": "Yes"},
			wantRisks:    []string{"R1"},
			wantControls: []string{"C1", "C2"},
		},
		{
			name:         "omitted answer excludes the risk",
			personas:     []string{"modelCreator"},
			answers:      domain.AnswerSet{},
			wantRisks:    []string{},
			wantControls: []string{},
		},
		{
			name:         "non-matching answer contributes nothing",
			personas:     []string{"modelCreator"},
			answers:      domain.AnswerSet{"Q1": "No"},
			wantRisks:    []string{},
			wantControls: []string{},
		},
		{
			name:     "question outside selected personas is skipped",
			personas: []string{"modelCreator"},
			// Q2 only applies to modelConsumer, so R2 must not appear.
			answers:      domain.AnswerSet{"Q2": "Yes"},
			wantRisks:    []string{},
			wantControls: []string{},
		},
		{
			name:         "risks are unioned and sorted across questions",
			personas:     []string{"modelCreator", "modelConsumer"},
			answers:      domain.AnswerSet{"Q1": "Yes", "Q2": "Yes", "Q3": "Yes"},
			wantRisks:    []string{"R1", "R2", "R3"},
			wantControls: []string{"C1", "C2", "C3"},
		},
		{
			name:         "answer to unknown question contributes nothing",
			personas:     []string{"modelCreator"},
			answers:      domain.AnswerSet{"Q404": "Yes"},
			wantRisks:    []string{},
			wantControls: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.Evaluate(tt.personas, tt.answers)
			assert.Equal(t, tt.wantRisks, result.RelevantRisks)
			assert.Equal(t, tt.wantControls, result.RecommendedControls)
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	svc := newTestService(t)
	personas := []string{"modelCreator", "modelConsumer"}
	answers := domain.AnswerSet{"Q1": "Yes", "Q3": "Yes"}

	first := svc.Evaluate(personas, answers)
	second := svc.Evaluate(personas, answers)

	assert.Equal(t, first, second)
}

func TestEvaluate_OutputIsSubsetOfCatalog(t *testing.T) {
	svc := newTestService(t)

	known := make(map[string]bool)
	for _, r := range svc.Store().Risks() {
		known[r.ID] = true
	}

	answerSets := []domain.AnswerSet{
		{"Q1": "Yes"},
		{"Q1": "Yes", "Q2": "Yes", "Q3": "Yes"},
		{"Q1": "No", "Q2": "bogus-label"},
		{},
	}
	for _, answers := range answerSets {
		result := svc.Evaluate([]string{"modelCreator", "modelConsumer"}, answers)
		for _, id := range result.RelevantRisks {
			assert.True(t, known[id], "risk %s not in catalog", id)
		}
	}
}

func TestControlsForRisks(t *testing.T) {
	svc := newTestService(t)

	t.Run("exactly the controls whose mitigation set intersects", func(t *testing.T) {
		controls := svc.ControlsForRisks([]string{"R2"})
		assert.Equal(t, []string{"C2", "C3"}, controls)
	})

	t.Run("control mitigating two present risks appears once", func(t *testing.T) {
		controls := svc.ControlsForRisks([]string{"R1", "R2"})
		assert.Equal(t, []string{"C1", "C2", "C3"}, controls)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, svc.ControlsForRisks(nil))
	})
}

func TestApplicableQuestions(t *testing.T) {
	svc := newTestService(t)

	qs := svc.ApplicableQuestions([]string{"modelConsumer"})
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"Q2", "Q3"}, ids)

	assert.Empty(t, svc.ApplicableQuestions(nil))
}

func TestControlsByCategory(t *testing.T) {
	svc := newTestService(t)

	order, grouped := svc.ControlsByCategory([]string{"C1", "C2", "C3"})
	assert.Equal(t, []string{"controlsData", "controlsAccess"}, order)
	assert.Len(t, grouped["controlsAccess"], 2)
	assert.Len(t, grouped["controlsData"], 1)
}

func TestBuildExportSummary(t *testing.T) {
	svc := newTestService(t)

	state := domain.NewState()
	state.SelectedPersonas = []string{"modelCreator"}
	state.Answers = domain.AnswerSet{"Q1": "Yes"}

	result := svc.Evaluate(state.SelectedPersonas, state.Answers)
	summary := svc.BuildExportSummary(state, result)

	require.Len(t, summary.Risks, 1)
	assert.Equal(t, "R1", summary.Risks[0].ID)
	assert.Equal(t, "Data", summary.Risks[0].Category)

	require.Len(t, summary.Controls, 2)
	assert.Equal(t, []string{"R1"}, summary.Controls[0].Mitigates)

	require.Len(t, summary.Frameworks, 1)
	assert.Equal(t, "nist-ai-rmf", summary.Frameworks[0].FrameworkID)
	assert.Equal(t, []string{"GOVERN-1.1"}, summary.Frameworks[0].MappedItems)
	assert.Equal(t, []string{"risks"}, summary.Frameworks[0].Sources)
}
