package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
	"github.com/cosai-tools/risk-navigator/internal/domain/errors"
)

// InventoryRepository implements assessment.InventoryRepository on Postgres.
type InventoryRepository struct {
	db querier
}

// NewInventoryRepository creates a PostgreSQL inventory submission repository.
func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Save upserts an AI inventory submission keyed by use_case_id. The row's
// updated_at is refreshed by the table trigger on every modification.
func (r *InventoryRepository) Save(ctx context.Context, sub *assessment.InventorySubmission) (string, error) {
	if sub.UseCaseID == "" {
		sub.UseCaseID = assessment.NewUseCaseID()
	}

	payload := sub.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["useCaseId"] = sub.UseCaseID

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewInternalError("failed to marshal inventory payload").WithCause(err)
	}

	repeatBlocks := sub.RepeatBlocks
	if repeatBlocks == nil {
		repeatBlocks = map[string][]interface{}{}
	}
	repeatJSON, err := json.Marshal(repeatBlocks)
	if err != nil {
		return "", errors.NewInternalError("failed to marshal repeat blocks").WithCause(err)
	}

	var persistedID string
	err = r.db.QueryRow(ctx, `
		INSERT INTO ai_inventory_submissions (
			use_case_id,
			use_case_name,
			business_unit,
			model_creator,
			model_usage,
			payload,
			repeat_blocks
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (use_case_id) DO UPDATE
		SET
			use_case_name = EXCLUDED.use_case_name,
			business_unit = EXCLUDED.business_unit,
			model_creator = EXCLUDED.model_creator,
			model_usage = EXCLUDED.model_usage,
			payload = EXCLUDED.payload,
			repeat_blocks = EXCLUDED.repeat_blocks
		RETURNING use_case_id
	`, sub.UseCaseID, sub.UseCaseName, sub.BusinessUnit, sub.ModelCreator,
		sub.ModelUsage, payloadJSON, repeatJSON).Scan(&persistedID)
	if err != nil {
		return "", errors.NewInternalError("failed to save inventory submission").WithCause(err)
	}

	return persistedID, nil
}

// GetByID loads an AI inventory submission by use_case_id.
func (r *InventoryRepository) GetByID(ctx context.Context, useCaseID string) (*assessment.InventorySubmission, error) {
	if useCaseID == "" {
		return nil, errors.ErrSubmissionNotFound
	}

	var (
		sub          assessment.InventorySubmission
		payloadJSON  []byte
		repeatJSON   []byte
		useCaseName  *string
		businessUnit *string
		modelCreator *string
		modelUsage   *string
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := r.db.QueryRow(ctx, `
		SELECT
			use_case_id,
			use_case_name,
			business_unit,
			model_creator,
			model_usage,
			payload,
			repeat_blocks,
			created_at,
			updated_at
		FROM ai_inventory_submissions
		WHERE use_case_id = $1
	`, useCaseID).Scan(&sub.UseCaseID, &useCaseName, &businessUnit, &modelCreator,
		&modelUsage, &payloadJSON, &repeatJSON, &createdAt, &updatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrSubmissionNotFound
		}
		return nil, errors.NewInternalError("failed to load inventory submission").WithCause(err)
	}

	sub.UseCaseName = deref(useCaseName)
	sub.BusinessUnit = deref(businessUnit)
	sub.ModelCreator = deref(modelCreator)
	sub.ModelUsage = deref(modelUsage)
	sub.CreatedAt = createdAt
	sub.UpdatedAt = updatedAt

	if err := json.Unmarshal(payloadJSON, &sub.Payload); err != nil {
		return nil, errors.NewInternalError("failed to decode inventory payload").WithCause(err)
	}
	if err := json.Unmarshal(repeatJSON, &sub.RepeatBlocks); err != nil {
		return nil, errors.NewInternalError("failed to decode repeat blocks").WithCause(err)
	}

	return &sub, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
