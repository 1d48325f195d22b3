package assessment

import (
	"sort"

	"go.uber.org/zap"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
	"github.com/cosai-tools/risk-navigator/internal/domain/riskmap"
)

// Service evaluates answer sets against the risk map rule set. Both passes
// are pure functions over their inputs given a well-formed store; they cannot
// fail at runtime.
type Service struct {
	store  *riskmap.Store
	logger *zap.Logger
}

// NewService creates an assessment service backed by a validated rule store.
func NewService(store *riskmap.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Evaluate computes the relevant risks and recommended controls for the
// selected personas and answer set.
//
// For each question applicable to at least one selected persona, the recorded
// answer is looked up against the question's relevance criteria; matches union
// the question's implied risk ids into the result. Unanswered questions
// contribute nothing; questions applicable to none of the selected personas
// are skipped entirely.
func (s *Service) Evaluate(personas []string, answers assessment.AnswerSet) assessment.Result {
	riskSet := make(map[string]bool)

	for _, q := range s.store.Questions() {
		if !q.AppliesTo(personas) {
			continue
		}
		label, answered := answers[q.ID]
		if !answered {
			continue
		}
		for _, riskID := range s.store.ImpliedRisks(q.ID, label) {
			riskSet[riskID] = true
		}
	}

	risks := make([]string, 0, len(riskSet))
	for id := range riskSet {
		risks = append(risks, id)
	}
	sort.Strings(risks)

	result := assessment.Result{
		RelevantRisks:       risks,
		RecommendedControls: s.ControlsForRisks(risks),
	}

	s.logger.Debug("evaluated answer set",
		zap.Int("personas", len(personas)),
		zap.Int("answers", len(answers)),
		zap.Int("relevant_risks", len(result.RelevantRisks)),
		zap.Int("recommended_controls", len(result.RecommendedControls)))

	return result
}

// ControlsForRisks unions the control associations of every risk in the input
// set. A control appears at most once regardless of how many risks it
// mitigates; order is first-seen across the input risks.
func (s *Service) ControlsForRisks(riskIDs []string) []string {
	seen := make(map[string]bool)
	controls := make([]string, 0)

	for _, riskID := range riskIDs {
		for _, controlID := range s.store.ControlsForRisk(riskID) {
			if seen[controlID] {
				continue
			}
			seen[controlID] = true
			controls = append(controls, controlID)
		}
	}

	return controls
}

// ApplicableQuestions filters the questionnaire down to the questions that
// apply to at least one of the selected personas, in declaration order.
func (s *Service) ApplicableQuestions(personas []string) []riskmap.Question {
	questions := make([]riskmap.Question, 0)
	for _, q := range s.store.Questions() {
		if q.AppliesTo(personas) {
			questions = append(questions, q)
		}
	}
	return questions
}

// ControlsByCategory groups resolved controls by their catalog category,
// preserving first-seen category order.
func (s *Service) ControlsByCategory(controlIDs []string) ([]string, map[string][]riskmap.Control) {
	order := make([]string, 0)
	grouped := make(map[string][]riskmap.Control)

	for _, id := range controlIDs {
		control, ok := s.store.Control(id)
		if !ok {
			continue
		}
		category := control.Category
		if category == "" {
			category = "Other"
		}
		if _, exists := grouped[category]; !exists {
			order = append(order, category)
		}
		grouped[category] = append(grouped[category], control)
	}

	return order, grouped
}

// Store exposes the underlying rule store for read-only catalog lookups.
func (s *Service) Store() *riskmap.Store {
	return s.store
}
