package riskmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosai-tools/risk-navigator/internal/domain/riskmap"
)

func validFixture() ([]riskmap.Risk, []riskmap.Control, []riskmap.Persona, riskmap.PersonaPrompt, []riskmap.Question) {
	risks := []riskmap.Risk{
		{ID: "R1", Title: "Data Poisoning", ControlIDs: []string{"C1", "C2"}},
		{ID: "R2", Title: "Model Exfiltration", ControlIDs: []string{"C2"}},
	}
	controls := []riskmap.Control{
		{ID: "C1", Title: "Input Validation", RiskIDs: []string{"R1"}},
		{ID: "C2", Title: "Access Control", RiskIDs: []string{"R1", "R2"}},
	}
	personas := []riskmap.Persona{
		{ID: "modelCreator", Title: "Model Creator"},
		{ID: "modelConsumer", Title: "Model Consumer"},
	}
	prompt := riskmap.PersonaPrompt{
		Text:    []string{"Which roles describe your organization?"},
		Answers: []riskmap.Answer{{Label: "modelCreator"}, {Label: "modelConsumer"}},
	}
	questions := []riskmap.Question{
		{
			ID:         "Q1",
			Text:       []string{"Do you train models on third-party data?"},
			PersonaIDs: []string{"modelCreator"},
			Answers:    []riskmap.Answer{{Label: "Yes"}, {Label: "No"}},
			Relevance:  []string{"Yes"},
			RiskIDs:    []string{"R1"},
		},
		{
			ID:         "Q2",
			Text:       []string{"Do you expose model endpoints publicly?"},
			PersonaIDs: []string{"modelCreator", "modelConsumer"},
			Answers:    []riskmap.Answer{{Label: "Yes"}, {Label: "No"}},
			Relevance:  []string{"Yes"},
			RiskIDs:    []string{"R2"},
		},
	}
	return risks, controls, personas, prompt, questions
}

func TestNewStore(t *testing.T) {
	risks, controls, personas, prompt, questions := validFixture()

	store, err := riskmap.NewStore(risks, controls, personas, prompt, questions)
	require.NoError(t, err)

	r, ok := store.Risk("R1")
	assert.True(t, ok)
	assert.Equal(t, "Data Poisoning", r.Title)

	_, ok = store.Risk("R99")
	assert.False(t, ok)

	assert.Len(t, store.Risks(), 2)
	assert.Len(t, store.Controls(), 2)
	assert.Len(t, store.Personas(), 2)
	assert.Len(t, store.Questions(), 2)
}

func TestNewStore_RejectsInconsistentReferences(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r []riskmap.Risk, c []riskmap.Control, q []riskmap.Question)
		wantErr string
	}{
		{
			name: "question references unknown risk",
			mutate: func(r []riskmap.Risk, c []riskmap.Control, q []riskmap.Question) {
				q[0].RiskIDs = []string{"R99"}
			},
			wantErr: "unknown risk",
		},
		{
			name: "control mitigates unknown risk",
			mutate: func(r []riskmap.Risk, c []riskmap.Control, q []riskmap.Question) {
				c[0].RiskIDs = []string{"R99"}
			},
			wantErr: "unknown risk",
		},
		{
			name: "risk references unknown control",
			mutate: func(r []riskmap.Risk, c []riskmap.Control, q []riskmap.Question) {
				r[0].ControlIDs = []string{"C99"}
			},
			wantErr: "unknown control",
		},
		{
			name: "question references unknown persona",
			mutate: func(r []riskmap.Risk, c []riskmap.Control, q []riskmap.Question) {
				q[0].PersonaIDs = []string{"ghost"}
			},
			wantErr: "unknown persona",
		},
		{
			name: "relevance label is not a declared answer",
			mutate: func(r []riskmap.Risk, c []riskmap.Control, q []riskmap.Question) {
				q[0].Relevance = []string{"Maybe"}
			},
			wantErr: "not a declared answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risks, controls, personas, prompt, questions := validFixture()
			tt.mutate(risks, controls, questions)

			_, err := riskmap.NewStore(risks, controls, personas, prompt, questions)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewStore_RejectsDuplicateIDs(t *testing.T) {
	risks, controls, personas, prompt, questions := validFixture()
	risks = append(risks, riskmap.Risk{ID: "R1", Title: "Duplicate"})

	_, err := riskmap.NewStore(risks, controls, personas, prompt, questions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestStore_ImpliedRisks(t *testing.T) {
	risks, controls, personas, prompt, questions := validFixture()
	store, err := riskmap.NewStore(risks, controls, personas, prompt, questions)
	require.NoError(t, err)

	assert.Equal(t, []string{"R1"}, store.ImpliedRisks("Q1", "Yes"))
	assert.Nil(t, store.ImpliedRisks("Q1", "No"))
	assert.Nil(t, store.ImpliedRisks("Q99", "Yes"))
}

func TestStore_ControlsForRisk(t *testing.T) {
	risks, controls, personas, prompt, questions := validFixture()
	store, err := riskmap.NewStore(risks, controls, personas, prompt, questions)
	require.NoError(t, err)

	assert.Equal(t, []string{"C1", "C2"}, store.ControlsForRisk("R1"))
	assert.Equal(t, []string{"C2"}, store.ControlsForRisk("R2"))
	assert.Empty(t, store.ControlsForRisk("R99"))
}

func TestStore_ControlsForRiskControlSideDeclaration(t *testing.T) {
	risks, controls, personas, prompt, questions := validFixture()
	// C1 claims to mitigate R2 without R2 listing it back.
	controls[0].RiskIDs = []string{"R1", "R2"}

	store, err := riskmap.NewStore(risks, controls, personas, prompt, questions)
	require.NoError(t, err)

	assert.Equal(t, []string{"C2", "C1"}, store.ControlsForRisk("R2"))
}

func TestQuestion_AppliesTo(t *testing.T) {
	q := riskmap.Question{PersonaIDs: []string{"modelCreator"}}

	assert.True(t, q.AppliesTo([]string{"modelCreator", "modelConsumer"}))
	assert.False(t, q.AppliesTo([]string{"modelConsumer"}))
	assert.False(t, q.AppliesTo(nil))
}
