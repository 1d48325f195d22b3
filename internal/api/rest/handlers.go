package rest

import (
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
	"github.com/cosai-tools/risk-navigator/internal/domain/errors"
	"github.com/cosai-tools/risk-navigator/internal/domain/riskmap"
	"github.com/cosai-tools/risk-navigator/internal/infrastructure/cache"
	"github.com/cosai-tools/risk-navigator/internal/metrics"
	assessmentsvc "github.com/cosai-tools/risk-navigator/internal/service/assessment"
)

// Handler serves the assessment API. The inventory and records repositories
// are nil when persistence is not configured; the save endpoints then return
// a 503 rather than failing the whole flow.
type Handler struct {
	svc       *assessmentsvc.Service
	sessions  cache.SessionStore
	inventory assessment.InventoryRepository
	records   assessment.AssessmentRepository
	logger    *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(svc *assessmentsvc.Service, sessions cache.SessionStore,
	inventory assessment.InventoryRepository, records assessment.AssessmentRepository,
	logger *slog.Logger) *Handler {
	return &Handler{
		svc:       svc,
		sessions:  sessions,
		inventory: inventory,
		records:   records,
		logger:    logger,
	}
}

// --- Catalog endpoints ---

type personasResponse struct {
	Prompt   riskmap.PersonaPrompt `json:"prompt"`
	Personas []riskmap.Persona     `json:"personas"`
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, personasResponse{
		Prompt:   h.svc.Store().PersonaPrompt(),
		Personas: h.svc.Store().Personas(),
	})
}

func (h *Handler) handleListRisks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"risks": h.svc.Store().Risks()})
}

func (h *Handler) handleGetRisk(w http.ResponseWriter, r *http.Request) {
	risk, ok := h.svc.Store().Risk(r.PathValue("id"))
	if !ok {
		writeError(r.Context(), w, errors.ErrRiskNotFound)
		return
	}
	writeJSON(w, http.StatusOK, risk)
}

func (h *Handler) handleListControls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"controls": h.svc.Store().Controls()})
}

func (h *Handler) handleGetControl(w http.ResponseWriter, r *http.Request) {
	control, ok := h.svc.Store().Control(r.PathValue("id"))
	if !ok {
		writeError(r.Context(), w, errors.ErrControlNotFound)
		return
	}
	writeJSON(w, http.StatusOK, control)
}

// handleListQuestions lists the self-assessment questions, optionally
// filtered to the personas named in the repeated "personas" query parameter.
func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	personas := r.URL.Query()["personas"]

	questions := h.svc.Store().Questions()
	if len(personas) > 0 {
		if err := h.validatePersonas(personas); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		questions = h.svc.ApplicableQuestions(personas)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	question, ok := h.svc.Store().Question(r.PathValue("id"))
	if !ok {
		writeError(r.Context(), w, errors.ErrQuestionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

// --- Stateless evaluation ---

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.validatePersonas(req.Personas); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.validateAnswers(req.Answers); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	start := time.Now()
	result := h.svc.Evaluate(req.Personas, req.Answers)
	metrics.RecordEvaluation(time.Since(start), len(result.RelevantRisks))

	writeJSON(w, http.StatusOK, result)
}

// --- Session lifecycle ---

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Create(r.Context())
	metrics.RecordSessionOperation("create", err)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	metrics.RecordSessionOperation("get", err)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.Delete(r.Context(), r.PathValue("id"))
	metrics.RecordSessionOperation("delete", err)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectPersonas replaces the session's persona selection. Answers to
// questions that no longer apply are kept; they simply stop contributing to
// the evaluation.
func (h *Handler) handleSelectPersonas(w http.ResponseWriter, r *http.Request) {
	var req selectPersonasRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.validatePersonas(req.Personas); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	state, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	state.SelectedPersonas = req.Personas
	if req.UseCases != nil {
		state.SelectedUseCases = req.UseCases
	}

	if err := h.sessions.Save(r.Context(), state); err != nil {
		metrics.RecordSessionOperation("save", err)
		writeError(r.Context(), w, err)
		return
	}
	metrics.RecordSessionOperation("save", nil)

	writeJSON(w, http.StatusOK, state)
}

// handleSubmitAnswers merges answers into the session. Questions absent from
// the request keep their previous answer; an empty string clears one.
func (h *Handler) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	var req submitAnswersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.validateAnswers(req.Answers); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	state, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if state.Answers == nil {
		state.Answers = assessment.AnswerSet{}
	}
	for questionID, label := range req.Answers {
		if label == "" {
			delete(state.Answers, questionID)
			continue
		}
		state.Answers[questionID] = label
	}

	if err := h.sessions.Save(r.Context(), state); err != nil {
		metrics.RecordSessionOperation("save", err)
		writeError(r.Context(), w, err)
		return
	}
	metrics.RecordSessionOperation("save", nil)

	writeJSON(w, http.StatusOK, state)
}

// --- Page endpoints ---

type assessmentPageResponse struct {
	SessionID string               `json:"session_id"`
	Personas  []string             `json:"personas"`
	Questions []riskmap.Question   `json:"questions"`
	Answers   assessment.AnswerSet `json:"answers"`
	Progress  progressSummary      `json:"progress"`
}

type progressSummary struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// handleAssessmentPage returns the questions applicable to the session's
// personas together with the current answers and completion progress.
func (h *Handler) handleAssessmentPage(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if len(state.SelectedPersonas) == 0 {
		writeError(r.Context(), w, errors.ErrNoPersonasSelected)
		return
	}

	questions := h.svc.ApplicableQuestions(state.SelectedPersonas)
	answered := 0
	for _, q := range questions {
		if _, ok := state.Answers[q.ID]; ok {
			answered++
		}
	}

	writeJSON(w, http.StatusOK, assessmentPageResponse{
		SessionID: state.SessionID,
		Personas:  state.SelectedPersonas,
		Questions: questions,
		Answers:   state.Answers,
		Progress:  progressSummary{Answered: answered, Total: len(questions)},
	})
}

type controlMappingResponse struct {
	SessionID           string                       `json:"session_id"`
	RelevantRisks       []riskmap.Risk               `json:"relevant_risks"`
	RecommendedControls []string                     `json:"recommended_controls"`
	Categories          []string                     `json:"categories"`
	ControlsByCategory  map[string][]riskmap.Control `json:"controls_by_category"`
}

// handleControlMappingPage evaluates the session and returns the relevant
// risks with their recommended controls grouped by control category.
func (h *Handler) handleControlMappingPage(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if len(state.SelectedPersonas) == 0 {
		writeError(r.Context(), w, errors.ErrNoPersonasSelected)
		return
	}

	start := time.Now()
	result := h.svc.Evaluate(state.SelectedPersonas, state.Answers)
	metrics.RecordEvaluation(time.Since(start), len(result.RelevantRisks))

	risks := make([]riskmap.Risk, 0, len(result.RelevantRisks))
	for _, id := range result.RelevantRisks {
		if risk, ok := h.svc.Store().Risk(id); ok {
			risks = append(risks, risk)
		}
	}

	categories, grouped := h.svc.ControlsByCategory(result.RecommendedControls)

	writeJSON(w, http.StatusOK, controlMappingResponse{
		SessionID:           state.SessionID,
		RelevantRisks:       risks,
		RecommendedControls: result.RecommendedControls,
		Categories:          categories,
		ControlsByCategory:  grouped,
	})
}

type riskAnalysisResponse struct {
	SessionID          string            `json:"session_id"`
	Risk               riskmap.Risk      `json:"risk"`
	Relevant           bool              `json:"relevant"`
	MitigatingControls []riskmap.Control `json:"mitigating_controls"`
}

// handleRiskAnalysisPage returns the full detail for one risk in the context
// of a session: description, framework mappings, and mitigating controls,
// plus whether the session's answers made it relevant.
func (h *Handler) handleRiskAnalysisPage(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	risk, ok := h.svc.Store().Risk(r.PathValue("riskID"))
	if !ok {
		writeError(r.Context(), w, errors.ErrRiskNotFound)
		return
	}

	result := h.svc.Evaluate(state.SelectedPersonas, state.Answers)
	relevant := false
	for _, id := range result.RelevantRisks {
		if id == risk.ID {
			relevant = true
			break
		}
	}

	controls := make([]riskmap.Control, 0, len(risk.ControlIDs))
	for _, id := range risk.ControlIDs {
		if control, ok := h.svc.Store().Control(id); ok {
			controls = append(controls, control)
		}
	}

	writeJSON(w, http.StatusOK, riskAnalysisResponse{
		SessionID:          state.SessionID,
		Risk:               risk,
		Relevant:           relevant,
		MitigatingControls: controls,
	})
}

// handleExportPage returns a portable summary of the session's outcome.
func (h *Handler) handleExportPage(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if len(state.SelectedPersonas) == 0 {
		writeError(r.Context(), w, errors.ErrNoPersonasSelected)
		return
	}

	result := h.svc.Evaluate(state.SelectedPersonas, state.Answers)
	writeJSON(w, http.StatusOK, h.svc.BuildExportSummary(state, result))
}

// --- Submission endpoints ---

func (h *Handler) handleSaveInventory(w http.ResponseWriter, r *http.Request) {
	if h.inventory == nil {
		writeError(r.Context(), w, errors.ErrPersistenceDisabled)
		return
	}

	var req inventorySubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	sub := &assessment.InventorySubmission{
		UseCaseID:    req.UseCaseID,
		UseCaseName:  req.UseCaseName,
		BusinessUnit: req.BusinessUnit,
		ModelCreator: req.ModelCreator,
		ModelUsage:   req.ModelUsage,
		Payload:      req.Payload,
		RepeatBlocks: req.RepeatBlocks,
	}
	if sub.Payload == nil {
		sub.Payload = map[string]interface{}{}
	}

	id, err := h.inventory.Save(r.Context(), sub)
	metrics.RecordSubmissionSave("ai_inventory_submissions", err)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"use_case_id": id})
}

func (h *Handler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	if h.inventory == nil {
		writeError(r.Context(), w, errors.ErrPersistenceDisabled)
		return
	}

	sub, err := h.inventory.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleSaveAssessment evaluates the session and persists the outcome as a
// self-assessment submission. Re-saving under the same assessment id updates
// the stored row in place.
func (h *Handler) handleSaveAssessment(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		writeError(r.Context(), w, errors.ErrPersistenceDisabled)
		return
	}

	// Every field is optional; an empty body is a plain save.
	var req saveAssessmentRequest
	if err := decodeJSON(r, &req); err != nil && !stderrors.Is(err, io.EOF) {
		writeError(r.Context(), w, err)
		return
	}

	state, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if len(state.SelectedPersonas) == 0 {
		writeError(r.Context(), w, errors.ErrNoPersonasSelected)
		return
	}

	result := h.svc.Evaluate(state.SelectedPersonas, state.Answers)

	assessmentID := req.AssessmentID
	if assessmentID == "" {
		assessmentID = state.AssessmentRecordID
	}
	inventoryID := req.InventoryUseCaseID
	if inventoryID == "" {
		inventoryID = state.InventoryUseCaseID
	}

	sub := &assessment.AssessmentSubmission{
		AssessmentID:        assessmentID,
		InventoryUseCaseID:  inventoryID,
		SelectedPersonas:    state.SelectedPersonas,
		SelectedUseCases:    state.SelectedUseCases,
		Answers:             state.Answers,
		RelevantRisks:       result.RelevantRisks,
		RecommendedControls: result.RecommendedControls,
		VayuResult:          req.VayuResult,
	}

	id, err := h.records.Save(r.Context(), sub)
	metrics.RecordSubmissionSave("self_assessment_submissions", err)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	// Remember the record so later saves from this session update it.
	state.AssessmentRecordID = id
	state.InventoryUseCaseID = inventoryID
	if err := h.sessions.Save(r.Context(), state); err != nil {
		h.logger.WarnContext(r.Context(), "failed to link saved assessment to session",
			"session_id", state.SessionID, "assessment_id", id, "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]string{"assessment_id": id})
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		writeError(r.Context(), w, errors.ErrPersistenceDisabled)
		return
	}

	sub, err := h.records.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// --- Validation helpers ---

func (h *Handler) validatePersonas(personaIDs []string) error {
	for _, id := range personaIDs {
		if _, ok := h.svc.Store().Persona(id); !ok {
			return errors.NewValidationError("UNKNOWN_PERSONA",
				"selected persona is not declared in the catalog").
				WithDetails(map[string]interface{}{"persona": id})
		}
	}
	return nil
}

// validateAnswers rejects answers for unknown questions and labels the
// question does not declare. An empty label is a clear request and is allowed.
func (h *Handler) validateAnswers(answers assessment.AnswerSet) error {
	for questionID, label := range answers {
		question, ok := h.svc.Store().Question(questionID)
		if !ok {
			return errors.NewValidationError("UNKNOWN_QUESTION",
				"answer references an unknown question").
				WithDetails(map[string]interface{}{"question": questionID})
		}
		if label == "" {
			continue
		}
		declared := false
		for _, a := range question.Answers {
			if a.Label == label {
				declared = true
				break
			}
		}
		if !declared {
			return errors.NewValidationError("UNDECLARED_ANSWER",
				"answer label is not declared on the question").
				WithDetails(map[string]interface{}{"question": questionID, "answer": label})
		}
	}
	return nil
}
