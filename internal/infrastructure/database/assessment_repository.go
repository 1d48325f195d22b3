package database

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
	"github.com/cosai-tools/risk-navigator/internal/domain/errors"
)

// AssessmentRepository implements assessment.AssessmentRepository on Postgres.
type AssessmentRepository struct {
	db querier
}

// NewAssessmentRepository creates a PostgreSQL self-assessment repository.
func NewAssessmentRepository(db *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Save upserts a self-assessment submission keyed by assessment_id. The
// optional ai_inventory_use_case_id must reference an existing inventory
// submission; constraint violations surface as conflict errors.
func (r *AssessmentRepository) Save(ctx context.Context, sub *assessment.AssessmentSubmission) (string, error) {
	if sub.AssessmentID == "" {
		sub.AssessmentID = assessment.NewAssessmentID()
	}

	answersJSON, err := json.Marshal(orEmptyAnswers(sub.Answers))
	if err != nil {
		return "", errors.NewInternalError("failed to marshal answers").WithCause(err)
	}

	vayuJSON, err := json.Marshal(orEmptyMap(sub.VayuResult))
	if err != nil {
		return "", errors.NewInternalError("failed to marshal vayu result").WithCause(err)
	}

	payloadJSON, err := json.Marshal(submissionPayload(sub))
	if err != nil {
		return "", errors.NewInternalError("failed to marshal submission payload").WithCause(err)
	}

	var inventoryID *string
	if sub.InventoryUseCaseID != "" {
		inventoryID = &sub.InventoryUseCaseID
	}

	var persistedID string
	err = r.db.QueryRow(ctx, `
		INSERT INTO self_assessment_submissions (
			assessment_id,
			ai_inventory_use_case_id,
			selected_personas,
			selected_use_cases,
			answers,
			relevant_risks,
			recommended_controls,
			vayu_result,
			payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (assessment_id) DO UPDATE
		SET
			ai_inventory_use_case_id = EXCLUDED.ai_inventory_use_case_id,
			selected_personas = EXCLUDED.selected_personas,
			selected_use_cases = EXCLUDED.selected_use_cases,
			answers = EXCLUDED.answers,
			relevant_risks = EXCLUDED.relevant_risks,
			recommended_controls = EXCLUDED.recommended_controls,
			vayu_result = EXCLUDED.vayu_result,
			payload = EXCLUDED.payload
		RETURNING assessment_id
	`, sub.AssessmentID, inventoryID,
		orEmpty(sub.SelectedPersonas),
		orEmpty(sub.SelectedUseCases),
		answersJSON,
		orEmpty(sub.RelevantRisks),
		orEmpty(sub.RecommendedControls),
		vayuJSON,
		payloadJSON).Scan(&persistedID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", errors.NewConflictError("linked inventory submission does not exist").WithCause(err)
		}
		return "", errors.NewInternalError("failed to save assessment submission").WithCause(err)
	}

	return persistedID, nil
}

// GetByID loads a self-assessment submission by assessment_id.
func (r *AssessmentRepository) GetByID(ctx context.Context, assessmentID string) (*assessment.AssessmentSubmission, error) {
	if assessmentID == "" {
		return nil, errors.ErrSubmissionNotFound
	}

	var (
		sub         assessment.AssessmentSubmission
		inventoryID *string
		answersJSON []byte
		vayuJSON    []byte
		payloadJSON []byte
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := r.db.QueryRow(ctx, `
		SELECT
			assessment_id,
			ai_inventory_use_case_id,
			selected_personas,
			selected_use_cases,
			answers,
			relevant_risks,
			recommended_controls,
			vayu_result,
			payload,
			created_at,
			updated_at
		FROM self_assessment_submissions
		WHERE assessment_id = $1
	`, assessmentID).Scan(&sub.AssessmentID, &inventoryID,
		&sub.SelectedPersonas,
		&sub.SelectedUseCases,
		&answersJSON,
		&sub.RelevantRisks,
		&sub.RecommendedControls,
		&vayuJSON, &payloadJSON, &createdAt, &updatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrSubmissionNotFound
		}
		return nil, errors.NewInternalError("failed to load assessment submission").WithCause(err)
	}

	sub.InventoryUseCaseID = deref(inventoryID)
	sub.CreatedAt = createdAt
	sub.UpdatedAt = updatedAt

	if err := json.Unmarshal(answersJSON, &sub.Answers); err != nil {
		return nil, errors.NewInternalError("failed to decode answers").WithCause(err)
	}
	if err := json.Unmarshal(vayuJSON, &sub.VayuResult); err != nil {
		return nil, errors.NewInternalError("failed to decode vayu result").WithCause(err)
	}
	if err := json.Unmarshal(payloadJSON, &sub.Payload); err != nil {
		return nil, errors.NewInternalError("failed to decode submission payload").WithCause(err)
	}

	return &sub, nil
}

// submissionPayload builds the flexible jsonb payload column: the full
// submission snapshot, mirroring the typed columns for export tooling.
func submissionPayload(sub *assessment.AssessmentSubmission) map[string]interface{} {
	payload := map[string]interface{}{
		"selected_personas":    orEmpty(sub.SelectedPersonas),
		"selected_use_cases":   orEmpty(sub.SelectedUseCases),
		"answers":              orEmptyAnswers(sub.Answers),
		"relevant_risks":       orEmpty(sub.RelevantRisks),
		"recommended_controls": orEmpty(sub.RecommendedControls),
	}
	if sub.InventoryUseCaseID != "" {
		payload["ai_inventory_use_case_id"] = sub.InventoryUseCaseID
	}
	if len(sub.VayuResult) > 0 {
		payload["vayu_result"] = sub.VayuResult
	}
	return payload
}

func orEmptyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyAnswers(a assessment.AnswerSet) assessment.AnswerSet {
	if a == nil {
		return assessment.AnswerSet{}
	}
	return a
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
