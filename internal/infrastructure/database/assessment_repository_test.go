package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
	"github.com/cosai-tools/risk-navigator/internal/domain/errors"
)

// fakeRow and fakeQuerier stand in for a pgx pool so the query wiring and
// scan paths can be exercised without a live database.
type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeQuerier struct {
	row  pgx.Row
	sql  string
	args []any
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql = sql
	q.args = args
	return q.row
}

func TestSubmissionPayload(t *testing.T) {
	sub := &assessment.AssessmentSubmission{
		InventoryUseCaseID: "UC-0A1B2C3D",
		SelectedPersonas:   []string{"modelCreator"},
		Answers:            assessment.AnswerSet{"q1": "Yes"},
		RelevantRisks:      []string{"R1"},
		VayuResult:         map[string]interface{}{"tier": "high"},
	}

	payload := submissionPayload(sub)

	assert.Equal(t, "UC-0A1B2C3D", payload["ai_inventory_use_case_id"])
	assert.Equal(t, []string{"modelCreator"}, payload["selected_personas"])
	assert.Equal(t, []string{"R1"}, payload["relevant_risks"])
	assert.Equal(t, []string{}, payload["selected_use_cases"])
	assert.Equal(t, []string{}, payload["recommended_controls"])
	assert.Equal(t, map[string]interface{}{"tier": "high"}, payload["vayu_result"])
}

func TestSubmissionPayloadOmitsEmptyVayuResult(t *testing.T) {
	payload := submissionPayload(&assessment.AssessmentSubmission{})
	assert.NotContains(t, payload, "vayu_result")
}

func TestAssessmentRepository_SaveArgs(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "ASMT-0123456789"
		return nil
	}}}
	repo := &AssessmentRepository{db: q}

	sub := &assessment.AssessmentSubmission{
		SelectedPersonas: []string{"modelCreator"},
		Answers:          assessment.AnswerSet{"q1": "Yes"},
		RelevantRisks:    []string{"R1"},
		VayuResult:       map[string]interface{}{"tier": "high", "score": 7},
	}

	id, err := repo.Save(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "ASMT-0123456789", id)

	require.Len(t, q.args, 9)
	assert.Regexp(t, `^ASMT-[0-9A-F]{10}$`, q.args[0])
	assert.Nil(t, q.args[1], "empty inventory link is stored as NULL")
	assert.Equal(t, []string{"modelCreator"}, q.args[2])
	assert.JSONEq(t, `{"q1":"Yes"}`, string(q.args[4].([]byte)))
	assert.JSONEq(t, `{"tier":"high","score":7}`, string(q.args[7].([]byte)))
	assert.Contains(t, q.sql, "ON CONFLICT (assessment_id) DO UPDATE")
}

func TestAssessmentRepository_SaveForeignKeyViolation(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		return &pgconn.PgError{Code: "23503"}
	}}}
	repo := &AssessmentRepository{db: q}

	_, err := repo.Save(context.Background(), &assessment.AssessmentSubmission{
		InventoryUseCaseID: "UC-MISSING1",
	})
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeConflict, appErr.Type)
}

func TestAssessmentRepository_GetByIDScansRow(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	inventoryID := "UC-0A1B2C3D"

	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "ASMT-0123456789"
		*dest[1].(**string) = &inventoryID
		*dest[2].(*[]string) = []string{"modelCreator"}
		*dest[3].(*[]string) = []string{"chatbot"}
		*dest[4].(*[]byte) = []byte(`{"q1":"Yes"}`)
		*dest[5].(*[]string) = []string{"R1", "R2"}
		*dest[6].(*[]string) = []string{"C1"}
		*dest[7].(*[]byte) = []byte(`{"tier":"high"}`)
		*dest[8].(*[]byte) = []byte(`{"relevant_risks":["R1","R2"]}`)
		*dest[9].(*time.Time) = created
		*dest[10].(*time.Time) = created
		return nil
	}}}
	repo := &AssessmentRepository{db: q}

	sub, err := repo.GetByID(context.Background(), "ASMT-0123456789")
	require.NoError(t, err)

	assert.Equal(t, "ASMT-0123456789", sub.AssessmentID)
	assert.Equal(t, "UC-0A1B2C3D", sub.InventoryUseCaseID)
	assert.Equal(t, []string{"modelCreator"}, sub.SelectedPersonas)
	assert.Equal(t, assessment.AnswerSet{"q1": "Yes"}, sub.Answers)
	assert.Equal(t, []string{"R1", "R2"}, sub.RelevantRisks)
	assert.Equal(t, map[string]interface{}{"tier": "high"}, sub.VayuResult)
	assert.Equal(t, created, sub.CreatedAt)
	assert.Equal(t, []any{"ASMT-0123456789"}, q.args)
}

func TestAssessmentRepository_GetByIDNotFound(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		return pgx.ErrNoRows
	}}}
	repo := &AssessmentRepository{db: q}

	_, err := repo.GetByID(context.Background(), "ASMT-UNKNOWN")
	assert.ErrorIs(t, err, errors.ErrSubmissionNotFound)
}

func TestSubmissionPayloadOmitsEmptyInventoryLink(t *testing.T) {
	payload := submissionPayload(&assessment.AssessmentSubmission{})

	assert.NotContains(t, payload, "ai_inventory_use_case_id")
	assert.Equal(t, assessment.AnswerSet{}, payload["answers"])
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(assert.AnError))
	assert.False(t, isForeignKeyViolation(nil))
}
