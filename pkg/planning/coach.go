package planning

import (
	"context"

	"guardkit/pkg/knowledge"
	"guardkit/pkg/logx"
)

// CoachTask is the slice of a task record the context builder reads.
type CoachTask struct {
	ID         string
	Title      string
	Complexity int // 0 means unset and defaults to 5
}

const (
	defaultComplexity = 5

	// Impact analysis is attempted only for complex tasks with enough
	// budget left after the overview section.
	impactComplexityMin = 7
	impactBudgetFloor   = 400
)

// BuildCoachContext composes the bounded architecture-context string
// injected into coach prompts. Overview and impact are isolated failure
// domains: an impact failure never discards an already-built overview, and
// a zero budget short-circuits before any store call is made.
func BuildCoachContext(ctx context.Context, sp *SystemPlan, task CoachTask) string {
	complexity := task.Complexity
	if complexity == 0 {
		complexity = defaultComplexity
	}

	budget := ArchTokenBudget(complexity)
	if budget == 0 {
		return ""
	}
	if !sp.available() {
		return ""
	}

	overview := GetSystemOverview(ctx, sp)
	condensed := CondenseForInjection(overview, budget)
	if condensed == "" {
		// Never emit a lone section header with no content.
		return ""
	}
	out := "## Architecture Context\n\n" + condensed

	remaining := budget - knowledge.EstimateTokens(condensed)
	if complexity >= impactComplexityMin && remaining > impactBudgetFloor {
		topic := task.ID
		if topic == "" {
			topic = task.Title
		}
		impact := RunImpactAnalysis(ctx, sp, topic, ImpactOptions{Depth: DepthStandard})
		if impactText := CondenseImpactForInjection(impact, remaining); impactText != "" {
			out += "\n\n## Task Impact\n\n" + impactText
		} else {
			logx.Debug(ctx, "graphiti", "GRAPHITI: no impact section for %s", topic)
		}
	}

	return out
}
