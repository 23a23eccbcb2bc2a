package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"guardkit/pkg/knowledge"
)

// The store returns untyped name/fact/score records, so the overview layer
// re-infers entity categories from text patterns. These types are the
// recovered, lossy view of what was persisted.

type SystemInfo struct {
	Name        string `json:"name"`
	Methodology string `json:"methodology,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
}

type OverviewComponent struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type OverviewDecision struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type OverviewConcern struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SystemOverview is the typed reconstruction of the persisted architecture.
// Status is "ok" or "no_context".
type SystemOverview struct {
	Status     string              `json:"status"`
	System     *SystemInfo         `json:"system,omitempty"`
	Components []OverviewComponent `json:"components,omitempty"`
	Decisions  []OverviewDecision  `json:"decisions,omitempty"`
	Concerns   []OverviewConcern   `json:"concerns,omitempty"`
}

const (
	StatusOK        = "ok"
	StatusNoContext = "no_context"
)

var (
	methodologyRe = regexp.MustCompile(`(?i)methodology:\s*([^.]+)`)
	purposeRe     = regexp.MustCompile(`(?i)purpose:\s*([^.]+)`)
	adrIDRe       = regexp.MustCompile(`(?i)(ADR-[A-Z]+-\d+)`)
	adrStatusRe   = regexp.MustCompile(`(?i)status:\s*(accepted|superseded|proposed|deprecated)`)
)

// GetSystemOverview fetches the persisted architecture and reconstructs the
// typed overview. Degrades to StatusNoContext when the store is unavailable
// or holds nothing.
func GetSystemOverview(ctx context.Context, sp *SystemPlan) *SystemOverview {
	summary := sp.ArchitectureSummary(ctx)
	if summary == nil || len(summary.Facts) == 0 {
		return &SystemOverview{Status: StatusNoContext}
	}

	ov := &SystemOverview{Status: StatusOK}
	for _, f := range summary.Facts {
		switch extractEntityType(f.Name, f.Fact) {
		case "component":
			ov.Components = append(ov.Components, parseComponentFact(f))
		case "architecture_decision":
			ov.Decisions = append(ov.Decisions, parseDecisionFact(f))
		case "crosscutting_concern":
			ov.Concerns = append(ov.Concerns, parseConcernFact(f))
		default:
			sys := parseSystemFact(f)
			if ov.System == nil {
				ov.System = &sys
			}
		}
	}
	return ov
}

// extractEntityType classifies one search hit. Precedence order matters and
// unrecognized facts deliberately default to system context so nothing is
// silently dropped.
func extractEntityType(name, fact string) string {
	nameLower := strings.ToLower(name)
	factLower := strings.ToLower(fact)

	switch {
	case strings.HasPrefix(nameLower, "component:"):
		return "component"
	case strings.HasPrefix(nameLower, "adr-"):
		return "architecture_decision"
	case strings.HasPrefix(nameLower, "crosscutting:"):
		return "crosscutting_concern"
	case strings.HasPrefix(nameLower, "system context"):
		return "system_context"
	case strings.Contains(factLower, "cross-cutting") || strings.HasPrefix(factLower, "crosscutting:"):
		return "crosscutting_concern"
	default:
		return "system_context"
	}
}

// stripLabel removes a leading "Label:" prefix from a name, case-insensitive.
func stripLabel(name, label string) string {
	if len(name) >= len(label) && strings.EqualFold(name[:len(label)], label) {
		return strings.TrimSpace(name[len(label):])
	}
	return strings.TrimSpace(name)
}

func parseComponentFact(f knowledge.Fact) OverviewComponent {
	return OverviewComponent{
		Name:        stripLabel(f.Name, "Component:"),
		Description: strings.TrimSpace(f.Fact),
	}
}

func parseConcernFact(f knowledge.Fact) OverviewConcern {
	return OverviewConcern{
		Name:        stripLabel(f.Name, "Crosscutting:"),
		Description: strings.TrimSpace(f.Fact),
	}
}

// parseSystemFact pulls system fields from free text with loose regexes.
// All pulls are best-effort; missing fields stay empty.
func parseSystemFact(f knowledge.Fact) SystemInfo {
	sys := SystemInfo{Name: stripLabel(f.Name, "System Context:")}
	if m := methodologyRe.FindStringSubmatch(f.Fact); m != nil {
		sys.Methodology = strings.TrimSpace(m[1])
	}
	if m := purposeRe.FindStringSubmatch(f.Fact); m != nil {
		sys.Purpose = strings.TrimSpace(m[1])
	}
	return sys
}

func parseDecisionFact(f knowledge.Fact) OverviewDecision {
	dec := OverviewDecision{Status: "accepted"}
	if m := adrIDRe.FindStringSubmatch(f.Name); m != nil {
		dec.ID = strings.ToUpper(m[1])
	}
	if _, after, ok := strings.Cut(f.Name, ":"); ok {
		dec.Title = strings.TrimSpace(after)
	} else {
		dec.Title = strings.TrimSpace(f.Name)
	}
	if m := adrStatusRe.FindStringSubmatch(f.Fact); m != nil {
		dec.Status = strings.ToLower(m[1])
	}
	return dec
}

// CondenseForInjection greedily packs the overview into maxTokens, appending
// fragments strictly in priority order: methodology, system name, component
// names, decisions, concern names, then per-component descriptions. Each
// fragment is appended only if the cumulative estimate stays within budget.
func CondenseForInjection(ov *SystemOverview, maxTokens int) string {
	if ov == nil || ov.Status != StatusOK {
		return ""
	}

	var parts []string
	current := 0
	// The budget check runs against the estimate of the joined output, not a
	// per-fragment sum, so the final string never exceeds maxTokens.
	tryAppend := func(text string) {
		candidate := strings.Join(append(parts[:len(parts):len(parts)], text), "\n")
		if cost := knowledge.EstimateTokens(candidate); cost <= maxTokens {
			parts = append(parts, text)
			current = cost
		}
	}

	if ov.System != nil && ov.System.Methodology != "" {
		tryAppend("Methodology: " + ov.System.Methodology)
	}
	if ov.System != nil && ov.System.Name != "" {
		tryAppend("System: " + ov.System.Name)
	}

	if len(ov.Components) > 0 {
		names := make([]string, 0, len(ov.Components))
		for _, c := range ov.Components {
			names = append(names, c.Name)
		}
		tryAppend("Components: " + strings.Join(names, ", "))
	}

	var pairs []string
	for _, d := range ov.Decisions {
		if d.ID != "" && d.Title != "" {
			pairs = append(pairs, d.ID+": "+d.Title)
		}
	}
	if len(pairs) > 0 {
		tryAppend("Decisions: " + strings.Join(pairs, "; "))
	}

	if len(ov.Concerns) > 0 {
		names := make([]string, 0, len(ov.Concerns))
		for _, c := range ov.Concerns {
			names = append(names, c.Name)
		}
		tryAppend("Crosscutting Concerns: " + strings.Join(names, ", "))
	}

	for _, c := range ov.Components {
		if current >= maxTokens {
			break
		}
		if c.Description != "" {
			tryAppend(c.Name + ": " + c.Description)
		}
	}

	return strings.Join(parts, "\n")
}

// FormatOverviewDisplay renders the overview for the terminal. Format is
// "text", "markdown", or "json"; section filters to one of all/system/
// components/decisions/crosscutting.
func FormatOverviewDisplay(ov *SystemOverview, format, section string) string {
	if ov == nil || ov.Status != StatusOK {
		return "no context available"
	}

	if format == "json" {
		data, err := json.MarshalIndent(ov, "", "  ")
		if err != nil {
			return "no context available"
		}
		return string(data)
	}

	header := func(title string) string {
		if format == "markdown" {
			return "## " + title
		}
		return title
	}
	wantSection := func(name string) bool {
		return section == "" || section == "all" || section == name
	}

	var lines []string

	if wantSection("system") && ov.System != nil {
		lines = append(lines, header("System Context"))
		lines = append(lines, "Name: "+ov.System.Name)
		if ov.System.Methodology != "" {
			lines = append(lines, "Methodology: "+ov.System.Methodology)
		}
		if ov.System.Purpose != "" {
			lines = append(lines, "Purpose: "+ov.System.Purpose)
		}
		lines = append(lines, "")
	}

	if wantSection("components") && len(ov.Components) > 0 {
		lines = append(lines, header("Components"))
		for _, c := range ov.Components {
			lines = append(lines, "- "+c.Name)
			if c.Description != "" {
				lines = append(lines, "  "+c.Description)
			}
		}
		lines = append(lines, "")
	}

	if wantSection("decisions") && len(ov.Decisions) > 0 {
		lines = append(lines, header("Architecture Decisions"))
		for _, d := range ov.Decisions {
			lines = append(lines, fmt.Sprintf("- %s: %s", d.ID, d.Title))
			lines = append(lines, "  Status: "+d.Status)
		}
		lines = append(lines, "")
	}

	if wantSection("crosscutting") && len(ov.Concerns) > 0 {
		lines = append(lines, header("Crosscutting Concerns"))
		for _, c := range ov.Concerns {
			lines = append(lines, "- "+c.Name)
			if c.Description != "" {
				lines = append(lines, "  "+c.Description)
			}
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
