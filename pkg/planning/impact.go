package planning

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"guardkit/pkg/knowledge"
	"guardkit/pkg/logx"
)

// Analysis depth tiers. Depth controls which knowledge groups get queried,
// not the query text itself.
const (
	DepthQuick    = "quick"
	DepthStandard = "standard"
	DepthDeep     = "deep"
)

type ImpactComponent struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Relevance   float64 `json:"relevance_score"`
}

type ImpactADR struct {
	ID       string `json:"adr_id"`
	Title    string `json:"title"`
	Conflict bool   `json:"conflict"`
}

type ImpactScenario struct {
	Name         string `json:"scenario_name"`
	FileLocation string `json:"file_location,omitempty"`
	AtRisk       bool   `json:"at_risk"`
}

// RiskScore is the bounded 1-5 heuristic with a human-readable rationale.
type RiskScore struct {
	Score     int    `json:"score"`
	Label     string `json:"label"`
	Rationale string `json:"rationale"`
}

// Impact is the result of one impact analysis run. Status is "ok" or
// "no_context".
type Impact struct {
	Status       string            `json:"status"`
	Query        string            `json:"query,omitempty"`
	Components   []ImpactComponent `json:"components,omitempty"`
	ADRs         []ImpactADR       `json:"adrs,omitempty"`
	Scenarios    []ImpactScenario  `json:"bdd_scenarios,omitempty"`
	Risk         RiskScore         `json:"risk"`
	Implications []string          `json:"implications,omitempty"`
}

// ImpactOptions control analysis depth and task file resolution.
type ImpactOptions struct {
	Depth      string
	IncludeBDD bool // honored only at DepthDeep
	TaskDirs   []string
}

var (
	taskIDRe      = regexp.MustCompile(`^TASK-[A-Z0-9-]+$`)
	bddLocationRe = regexp.MustCompile(`File:\s*([^.]+\.feature:\d+)`)
)

// Conflict and at-risk detection is literal case-insensitive substring
// matching. Changing these phrases silently changes every risk score.
var conflictKeywords = []string{"conflicts with", "violates", "superseded by"}

// DefaultTaskDirs are searched in order when resolving a task ID to its file.
//
//nolint:gochecknoglobals // Fixed search order
var DefaultTaskDirs = []string{"tasks/in_progress", "tasks/backlog", "tasks/design_approved"}

// RunImpactAnalysis identifies architecture elements affected by a task or
// topic and scores the risk. Degrades to StatusNoContext when the store is
// unavailable, a query fails, or nothing matches.
func RunImpactAnalysis(ctx context.Context, sp *SystemPlan, taskOrTopic string, opts ImpactOptions) *Impact {
	if !sp.available() {
		logx.Debug(ctx, "graphiti", "GRAPHITI: impact analysis not available")
		return &Impact{Status: StatusNoContext}
	}
	if opts.Depth == "" {
		opts.Depth = DepthStandard
	}

	query := buildImpactQuery(ctx, taskOrTopic, opts.TaskDirs)
	sp.logger.Info("GRAPHITI: running impact analysis: depth=%s, query=%q", opts.Depth, query)

	impact := &Impact{Status: StatusOK, Query: query}

	archGroup := sp.client.GroupID(groupArchitecture)
	componentHits, err := sp.client.Search(ctx, query, []string{archGroup}, 10)
	if err != nil {
		sp.logger.Warn("GRAPHITI: impact component query failed: %v", err)
		return &Impact{Status: StatusNoContext}
	}
	impact.Components = parseComponentHits(componentHits)

	if opts.Depth == DepthStandard || opts.Depth == DepthDeep {
		decisionsGroup := sp.client.GroupID(groupDecisions)
		adrHits, err := sp.client.Search(ctx, query, []string{decisionsGroup}, 10)
		if err != nil {
			sp.logger.Warn("GRAPHITI: impact ADR query failed: %v", err)
			return &Impact{Status: StatusNoContext}
		}
		impact.ADRs = parseADRHits(adrHits)
	}

	if opts.Depth == DepthDeep && opts.IncludeBDD {
		bddGroup := sp.client.GroupID(groupBDDScenarios)
		bddHits, err := sp.client.Search(ctx, query, []string{bddGroup}, 10)
		if err != nil || len(bddHits) == 0 {
			// A missing or empty BDD group degrades silently.
			logx.Debug(ctx, "graphiti", "GRAPHITI: no BDD scenarios found, skipping BDD impact section")
		} else {
			impact.Scenarios = parseBDDHits(bddHits)
		}
	}

	impact.Risk = calculateRisk(impact.Components, impact.ADRs, impact.Scenarios)
	impact.Implications = deriveImplications(impact.Components, impact.ADRs)

	if len(impact.Components) == 0 && len(impact.ADRs) == 0 && len(impact.Scenarios) == 0 {
		logx.Debug(ctx, "graphiti", "GRAPHITI: no impact data found")
		return &Impact{Status: StatusNoContext}
	}
	return impact
}

// taskFrontmatter is the subset of task file frontmatter used for query
// enrichment.
type taskFrontmatter struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// buildImpactQuery resolves a TASK-x identifier to an enriched query built
// from the task file's title and tags, falling back to the raw input when
// the file cannot be found or parsed. Non-task inputs pass through verbatim.
func buildImpactQuery(ctx context.Context, taskOrTopic string, taskDirs []string) string {
	if !taskIDRe.MatchString(taskOrTopic) {
		return taskOrTopic
	}
	if len(taskDirs) == 0 {
		taskDirs = DefaultTaskDirs
	}

	for _, dir := range taskDirs {
		path := filepath.Join(dir, taskOrTopic+".md")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fm, ok := taskFileFrontmatter(string(data))
		if !ok {
			logx.Debug(ctx, "graphiti", "GRAPHITI: failed to parse task file %s", path)
			continue
		}
		parts := []string{}
		if fm.Title != "" {
			parts = append(parts, fm.Title)
		}
		parts = append(parts, fm.Tags...)
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return taskOrTopic
}

func taskFileFrontmatter(content string) (taskFrontmatter, bool) {
	var fm taskFrontmatter
	if !strings.HasPrefix(content, "---") {
		return fm, false
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return fm, false
	}
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return fm, false
	}
	return fm, true
}

// calculateRisk runs the scoring heuristic: 1.0 base, +0.5 per component
// beyond the first, +1.0 per conflicting ADR else +0.25, +0.3 per at-risk
// scenario, clamped to [1,5] and rounded half-to-even (2.5 scores 2, not 3).
func calculateRisk(components []ImpactComponent, adrs []ImpactADR, scenarios []ImpactScenario) RiskScore {
	score := 1.0
	if len(components) > 1 {
		score += 0.5 * float64(len(components)-1)
	}
	conflictCount := 0
	for _, adr := range adrs {
		if adr.Conflict {
			score += 1.0
			conflictCount++
		} else {
			score += 0.25
		}
	}
	atRiskCount := 0
	for _, s := range scenarios {
		if s.AtRisk {
			score += 0.3
			atRiskCount++
		}
	}

	score = math.Max(1.0, math.Min(5.0, score))
	rounded := int(math.RoundToEven(score))

	label := "medium"
	switch rounded {
	case 1:
		label = "low"
	case 4:
		label = "high"
	case 5:
		label = "critical"
	}

	var clauses []string
	if len(components) > 0 {
		clauses = append(clauses, fmt.Sprintf("%d component(s) affected", len(components)))
	}
	if len(adrs) > 0 {
		if conflictCount > 0 {
			clauses = append(clauses, fmt.Sprintf("%d conflicting ADR(s)", conflictCount))
		} else {
			clauses = append(clauses, fmt.Sprintf("%d constraining ADR(s)", len(adrs)))
		}
	}
	if atRiskCount > 0 {
		clauses = append(clauses, fmt.Sprintf("%d at-risk scenario(s)", atRiskCount))
	}

	rationale := "Minimal impact"
	if len(clauses) > 0 {
		rationale = strings.Join(clauses, "; ")
	}
	return RiskScore{Score: rounded, Label: label, Rationale: rationale}
}

func parseComponentHits(hits []knowledge.Fact) []ImpactComponent {
	var components []ImpactComponent
	for _, hit := range hits {
		name := stripLabel(hit.Name, "Component:")
		description := hit.Fact
		// When the fact repeats the component label, the description is
		// whatever follows the name.
		factLower := strings.ToLower(hit.Fact)
		if strings.HasPrefix(factLower, "component:") {
			if idx := strings.Index(factLower, strings.ToLower(name)); idx >= 0 {
				description = strings.TrimSpace(hit.Fact[idx+len(name):])
			}
		}
		components = append(components, ImpactComponent{
			Name:        name,
			Description: description,
			Relevance:   hit.Score,
		})
	}
	return components
}

func parseADRHits(hits []knowledge.Fact) []ImpactADR {
	var adrs []ImpactADR
	for _, hit := range hits {
		id := ""
		if m := adrIDRe.FindStringSubmatch(hit.Name); m != nil {
			id = m[1]
		}
		title := hit.Name
		if _, after, ok := strings.Cut(hit.Name, ":"); ok {
			title = strings.TrimSpace(after)
		}
		factLower := strings.ToLower(hit.Fact)
		conflict := false
		for _, kw := range conflictKeywords {
			if strings.Contains(factLower, kw) {
				conflict = true
				break
			}
		}
		adrs = append(adrs, ImpactADR{ID: id, Title: title, Conflict: conflict})
	}
	return adrs
}

func parseBDDHits(hits []knowledge.Fact) []ImpactScenario {
	var scenarios []ImpactScenario
	for _, hit := range hits {
		location := ""
		if m := bddLocationRe.FindStringSubmatch(hit.Fact); m != nil {
			location = strings.TrimSpace(m[1])
		}
		factLower := strings.ToLower(hit.Fact)
		scenarios = append(scenarios, ImpactScenario{
			Name:         stripLabel(hit.Name, "Scenario:"),
			FileLocation: location,
			AtRisk:       strings.Contains(factLower, "at risk") || strings.Contains(factLower, "at-risk"),
		})
	}
	return scenarios
}

func deriveImplications(components []ImpactComponent, adrs []ImpactADR) []string {
	var implications []string
	for _, comp := range components {
		implications = append(implications, fmt.Sprintf("Changes to %s may affect dependent components", comp.Name))
	}
	for _, adr := range adrs {
		if adr.Conflict {
			implications = append(implications, fmt.Sprintf("%s (%s) has conflicts that must be resolved", adr.ID, adr.Title))
		} else {
			implications = append(implications, fmt.Sprintf("%s (%s) provides constraints to follow", adr.ID, adr.Title))
		}
	}
	return implications
}

// CondenseImpactForInjection packs the impact analysis into maxTokens.
// Priority order: risk line, affected component names, ADR constraints with
// conflicts first, then implications, each individually budget-checked.
func CondenseImpactForInjection(impact *Impact, maxTokens int) string {
	if impact == nil || impact.Status != StatusOK {
		return ""
	}

	var parts []string
	tryAppend := func(text string) {
		candidate := strings.Join(append(parts[:len(parts):len(parts)], text), "\n")
		if knowledge.EstimateTokens(candidate) <= maxTokens {
			parts = append(parts, text)
		}
	}

	tryAppend(fmt.Sprintf("Risk: %d/5 (%s) - %s", impact.Risk.Score, impact.Risk.Label, impact.Risk.Rationale))

	if len(impact.Components) > 0 {
		names := make([]string, 0, len(impact.Components))
		for _, c := range impact.Components {
			names = append(names, c.Name)
		}
		tryAppend("Affected Components: " + strings.Join(names, ", "))
	}

	for _, adr := range impact.ADRs {
		if adr.Conflict {
			tryAppend(fmt.Sprintf("CONFLICT: %s - %s", adr.ID, adr.Title))
		}
	}
	for _, adr := range impact.ADRs {
		if !adr.Conflict {
			tryAppend(fmt.Sprintf("Constraint: %s - %s", adr.ID, adr.Title))
		}
	}

	for _, imp := range impact.Implications {
		tryAppend("- " + imp)
	}

	return strings.Join(parts, "\n")
}

// FormatImpactDisplay renders the impact for the terminal. Quick depth shows
// components only; standard adds ADRs and implications; deep adds BDD
// scenarios. Risk renders as a 5-character block bar.
func FormatImpactDisplay(impact *Impact, depth string) string {
	if impact == nil || impact.Status != StatusOK {
		return "no impact data"
	}

	var lines []string

	bar := "[" + strings.Repeat("█", impact.Risk.Score) + strings.Repeat(" ", 5-impact.Risk.Score) + "]"
	lines = append(lines, fmt.Sprintf("Risk: %s %d/5 (%s)", bar, impact.Risk.Score, impact.Risk.Label))
	lines = append(lines, "Rationale: "+impact.Risk.Rationale)
	lines = append(lines, "")

	if len(impact.Components) > 0 {
		lines = append(lines, "Affected Components:")
		for _, c := range impact.Components {
			lines = append(lines, fmt.Sprintf("  - %s (relevance: %.2f)", c.Name, c.Relevance))
		}
		lines = append(lines, "")
	}

	if depth == DepthStandard || depth == DepthDeep {
		if len(impact.ADRs) > 0 {
			lines = append(lines, "Constraining ADRs:")
			for _, adr := range impact.ADRs {
				marker := ""
				if adr.Conflict {
					marker = " [CONFLICT]"
				}
				lines = append(lines, fmt.Sprintf("  - %s: %s%s", adr.ID, adr.Title, marker))
			}
			lines = append(lines, "")
		}
	}

	if depth == DepthDeep && len(impact.Scenarios) > 0 {
		lines = append(lines, "BDD Scenarios:")
		for _, s := range impact.Scenarios {
			marker := ""
			if s.AtRisk {
				marker = " [AT RISK]"
			}
			lines = append(lines, fmt.Sprintf("  - %s%s", s.Name, marker))
			if s.FileLocation != "" {
				lines = append(lines, "    Location: "+s.FileLocation)
			}
		}
		lines = append(lines, "")
	}

	if depth == DepthStandard || depth == DepthDeep {
		if len(impact.Implications) > 0 {
			lines = append(lines, "Implications:")
			for _, imp := range impact.Implications {
				lines = append(lines, "  - "+imp)
			}
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}
