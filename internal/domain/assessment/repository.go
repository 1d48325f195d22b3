package assessment

import "context"

// InventoryRepository persists AI inventory submissions.
type InventoryRepository interface {
	// Save upserts a submission keyed by use case id and returns the
	// persisted id, generating one when the submission carries none.
	Save(ctx context.Context, sub *InventorySubmission) (string, error)

	// GetByID loads a submission by use case id.
	GetByID(ctx context.Context, useCaseID string) (*InventorySubmission, error)
}

// AssessmentRepository persists self-assessment submissions.
type AssessmentRepository interface {
	// Save upserts a submission keyed by assessment id and returns the
	// persisted id, generating one when the submission carries none.
	Save(ctx context.Context, sub *AssessmentSubmission) (string, error)

	// GetByID loads a submission by assessment id.
	GetByID(ctx context.Context, assessmentID string) (*AssessmentSubmission, error)
}
