package assessment

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cosai-tools/risk-navigator/internal/domain/assessment"
)

// ExportSummary is a portable snapshot of an evaluation outcome, suitable for
// download from the results page.
type ExportSummary struct {
	GeneratedAt      time.Time             `json:"generated_at"`
	SelectedPersonas []string              `json:"selected_personas"`
	Risks            []ExportRisk          `json:"risks"`
	Controls         []ExportControl       `json:"controls"`
	Frameworks       []ExportFrameworkHits `json:"frameworks,omitempty"`
	Answers          assessment.AnswerSet  `json:"answers"`
}

// ExportRisk is a compact risk entry in an export summary.
type ExportRisk struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// ExportControl is a compact control entry in an export summary.
type ExportControl struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Category  string   `json:"category,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Mitigates []string `json:"mitigates,omitempty"`
}

// ExportFrameworkHits aggregates framework mapping ids across the selected
// risks and controls.
type ExportFrameworkHits struct {
	FrameworkID string   `json:"framework_id"`
	MappedItems []string `json:"mapped_items"`
	Sources     []string `json:"sources"`
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// compactText collapses a text block into single-spaced plain text.
func compactText(blocks []string) string {
	joined := strings.Join(blocks, " ")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(joined, " "))
}

// normalizeCategory drops catalog-internal prefixes from category labels.
func normalizeCategory(value, suffix string) string {
	if value == "" {
		return "Other"
	}
	normalized := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(value, suffix, ""), "Control", ""))
	if normalized == "" {
		return "Other"
	}
	return normalized
}

// BuildExportSummary creates a portable summary for the given session state
// and evaluation result.
func (s *Service) BuildExportSummary(state *assessment.State, result assessment.Result) ExportSummary {
	summary := ExportSummary{
		GeneratedAt:      time.Now().UTC(),
		SelectedPersonas: append([]string(nil), state.SelectedPersonas...),
		Answers:          state.Answers.Clone(),
		Risks:            make([]ExportRisk, 0, len(result.RelevantRisks)),
		Controls:         make([]ExportControl, 0, len(result.RecommendedControls)),
	}

	relevant := make(map[string]bool, len(result.RelevantRisks))
	hits := make(map[string]*ExportFrameworkHits)

	for _, riskID := range result.RelevantRisks {
		relevant[riskID] = true
		risk, ok := s.store.Risk(riskID)
		if !ok {
			continue
		}
		summary.Risks = append(summary.Risks, ExportRisk{
			ID:       risk.ID,
			Title:    risk.Title,
			Category: normalizeCategory(risk.Category, "risks"),
			Summary:  compactText(risk.ShortDescription),
		})
		collectFrameworkHits(hits, risk.Mappings, "risks")
	}

	for _, controlID := range result.RecommendedControls {
		control, ok := s.store.Control(controlID)
		if !ok {
			continue
		}
		mitigates := make([]string, 0, len(control.RiskIDs))
		for _, riskID := range control.RiskIDs {
			if relevant[riskID] {
				mitigates = append(mitigates, riskID)
			}
		}
		summary.Controls = append(summary.Controls, ExportControl{
			ID:        control.ID,
			Title:     control.Title,
			Category:  normalizeCategory(control.Category, "controls"),
			Summary:   compactText(control.Description),
			Mitigates: mitigates,
		})
		collectFrameworkHits(hits, control.Mappings, "controls")
	}

	summary.Frameworks = flattenFrameworkHits(hits)
	return summary
}

func collectFrameworkHits(hits map[string]*ExportFrameworkHits, mappings map[string][]string, source string) {
	for frameworkID, mappingIDs := range mappings {
		if len(mappingIDs) == 0 {
			continue
		}
		entry, ok := hits[frameworkID]
		if !ok {
			entry = &ExportFrameworkHits{FrameworkID: frameworkID}
			hits[frameworkID] = entry
		}
		for _, id := range mappingIDs {
			if id != "" && !contains(entry.MappedItems, id) {
				entry.MappedItems = append(entry.MappedItems, id)
			}
		}
		if !contains(entry.Sources, source) {
			entry.Sources = append(entry.Sources, source)
		}
	}
}

func flattenFrameworkHits(hits map[string]*ExportFrameworkHits) []ExportFrameworkHits {
	if len(hits) == 0 {
		return nil
	}
	out := make([]ExportFrameworkHits, 0, len(hits))
	for _, entry := range hits {
		sort.Strings(entry.MappedItems)
		sort.Strings(entry.Sources)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FrameworkID < out[j].FrameworkID })
	return out
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
