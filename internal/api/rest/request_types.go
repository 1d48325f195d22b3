package rest

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
	"github.com/cosai-tools/risk-navigator/internal/domain/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// evaluateRequest is a stateless evaluation: nothing is stored.
type evaluateRequest struct {
	Personas []string             `json:"personas" validate:"required,min=1,dive,required"`
	Answers  assessment.AnswerSet `json:"answers"`
}

// selectPersonasRequest replaces the session's persona selection.
type selectPersonasRequest struct {
	Personas []string `json:"personas" validate:"required,min=1,dive,required"`
	UseCases []string `json:"use_cases,omitempty" validate:"omitempty,dive,required"`
}

// submitAnswersRequest merges answers into the session. A question missing
// from the map keeps its previous answer; an empty string clears it.
type submitAnswersRequest struct {
	Answers assessment.AnswerSet `json:"answers" validate:"required,min=1"`
}

// inventorySubmissionRequest is the AI inventory intake form payload.
type inventorySubmissionRequest struct {
	UseCaseID    string                   `json:"use_case_id,omitempty"`
	UseCaseName  string                   `json:"use_case_name,omitempty"`
	BusinessUnit string                   `json:"business_unit,omitempty"`
	ModelCreator string                   `json:"model_creator,omitempty"`
	ModelUsage   string                   `json:"model_usage,omitempty"`
	Payload      map[string]interface{}   `json:"payload,omitempty"`
	RepeatBlocks map[string][]interface{} `json:"repeat_blocks,omitempty"`
}

// saveAssessmentRequest persists a session's assessment outcome, optionally
// linked to a saved inventory use case. The vayu result is an externally
// computed risk tiering outcome stored verbatim alongside the submission.
type saveAssessmentRequest struct {
	AssessmentID       string                 `json:"assessment_id,omitempty"`
	InventoryUseCaseID string                 `json:"inventory_use_case_id,omitempty"`
	VayuResult         map[string]interface{} `json:"vayu_result,omitempty"`
}

func validateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		var details map[string]interface{}
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			details = make(map[string]interface{}, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fmt.Sprintf("failed %q validation", fe.Tag())
			}
		}
		return errors.NewValidationError("INVALID_REQUEST", "request validation failed").
			WithDetails(details).WithCause(err)
	}
	return nil
}
