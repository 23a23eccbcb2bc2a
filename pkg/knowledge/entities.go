// Package knowledge defines the architecture entity model and the client
// interface to the knowledge store.
//
// Entities carry deterministic IDs derived purely from identifying fields, so
// that repeated persistence of the same logical entity updates in place
// instead of accumulating duplicates.
package knowledge

import (
	"fmt"
	"regexp"
	"strings"
)

// Entity IDs are derived from names truncated to this length.
const slugMaxLen = 30

// Methodology tag that switches components into bounded-context mode.
const MethodologyDDD = "ddd"

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases text, collapses runs of non-alphanumeric characters into
// single hyphens, strips edge hyphens, and truncates to maxLen. The result is
// byte-for-byte reproducible for a given input.
func Slugify(text string, maxLen int) string {
	slug := strings.ToLower(text)
	slug = nonAlnumRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return slug
}

// EstimateTokens approximates the token cost of text as word count times 1.3,
// truncated. All budget checks in the condensation paths use this estimate.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) * 1.3)
}

// SystemContextDef describes the system being built: its purpose, bounded
// contexts, external systems, and design methodology.
type SystemContextDef struct {
	Name            string
	Purpose         string
	BoundedContexts []string
	ExternalSystems []string
	Methodology     string // conventionally "ddd", "modular", or "layered"
}

// EntityID derives the stable upsert key. Depends only on Name.
func (s SystemContextDef) EntityID() string {
	return "SYS-" + Slugify(s.Name, slugMaxLen)
}

func (s SystemContextDef) EntityType() string {
	return "system_context"
}

// EpisodeBody returns the storage-ready body: domain data only, never
// bookkeeping metadata. The persistence layer adds everything else.
func (s SystemContextDef) EpisodeBody() map[string]any {
	return map[string]any{
		"name":             s.Name,
		"purpose":          s.Purpose,
		"bounded_contexts": s.BoundedContexts,
		"external_systems": s.ExternalSystems,
		"methodology":      s.Methodology,
	}
}

// ComponentDef describes one component (or bounded context under DDD).
// The DDD-only fields are serialized only when Methodology is "ddd".
type ComponentDef struct {
	Name             string
	Description      string
	Responsibilities []string
	Dependencies     []string
	Methodology      string

	// DDD-only fields.
	AggregateRoots []string
	DomainEvents   []string
	ContextMapping string
}

// EntityID derives the stable upsert key. Depends only on Name.
func (c ComponentDef) EntityID() string {
	return "COMP-" + Slugify(c.Name, slugMaxLen)
}

func (c ComponentDef) EntityType() string {
	if c.Methodology == MethodologyDDD {
		return "bounded_context"
	}
	return "component"
}

func (c ComponentDef) EpisodeBody() map[string]any {
	body := map[string]any{
		"name":             c.Name,
		"description":      c.Description,
		"responsibilities": c.Responsibilities,
		"dependencies":     c.Dependencies,
	}
	if c.Methodology == MethodologyDDD {
		body["aggregate_roots"] = c.AggregateRoots
		body["domain_events"] = c.DomainEvents
		body["context_mapping"] = c.ContextMapping
	}
	return body
}

// CrosscuttingConcernDef describes a concern spanning multiple components,
// such as observability or authentication.
type CrosscuttingConcernDef struct {
	Name                string
	Description         string
	AppliesTo           []string
	ImplementationNotes string
}

func (x CrosscuttingConcernDef) EntityID() string {
	return "XC-" + Slugify(x.Name, slugMaxLen)
}

func (x CrosscuttingConcernDef) EntityType() string {
	return "crosscutting_concern"
}

func (x CrosscuttingConcernDef) EpisodeBody() map[string]any {
	return map[string]any{
		"name":                 x.Name,
		"description":          x.Description,
		"applies_to":           x.AppliesTo,
		"implementation_notes": x.ImplementationNotes,
	}
}

// ArchitectureDecision is one ADR. The entity ID is purely a function of
// Number: two decisions sharing a number collide regardless of title.
type ArchitectureDecision struct {
	Number            int
	Title             string
	Status            string // conventionally proposed|accepted|deprecated|superseded
	Context           string
	Decision          string
	Consequences      []string
	RelatedComponents []string
}

func (a ArchitectureDecision) EntityID() string {
	return fmt.Sprintf("ADR-SP-%03d", a.Number)
}

func (a ArchitectureDecision) EntityType() string {
	return "architecture_decision"
}

func (a ArchitectureDecision) EpisodeBody() map[string]any {
	return map[string]any{
		"number":             a.Number,
		"title":              a.Title,
		"status":             a.Status,
		"context":            a.Context,
		"decision":           a.Decision,
		"consequences":       a.Consequences,
		"related_components": a.RelatedComponents,
	}
}

// Retrieved facts below this relevance score are excluded from prompts.
const promptScoreThreshold = 0.5

// ArchitectureContext aggregates everything known about the architecture for
// one prompt-assembly request. It is constructed fresh per request and never
// persisted as a whole.
type ArchitectureContext struct {
	SystemContext  *SystemContextDef
	Components     []ComponentDef
	Decisions      []ArchitectureDecision
	Concerns       []CrosscuttingConcernDef
	RetrievedFacts []Fact
}

// EmptyArchitectureContext returns an all-absent instance used for graceful
// degradation when the store is unavailable.
func EmptyArchitectureContext() ArchitectureContext {
	return ArchitectureContext{}
}

// IsEmpty reports whether the context carries no information at all.
func (ac ArchitectureContext) IsEmpty() bool {
	return ac.SystemContext == nil &&
		len(ac.Components) == 0 &&
		len(ac.Decisions) == 0 &&
		len(ac.Concerns) == 0 &&
		len(ac.RetrievedFacts) == 0
}

// FormatForPrompt renders the context as prompt-injection text bounded by
// tokenBudget. Retrieved facts are included only when their score exceeds 0.5.
// Fragments are packed greedily in declaration order; a fragment that would
// exceed the budget is skipped without aborting lower-priority fragments.
func (ac ArchitectureContext) FormatForPrompt(tokenBudget int) string {
	if tokenBudget <= 0 {
		return ""
	}

	var fragments []string
	used := 0

	tryAppend := func(fragment string) {
		if fragment == "" {
			return
		}
		cost := EstimateTokens(fragment)
		if used+cost > tokenBudget {
			return
		}
		fragments = append(fragments, fragment)
		used += cost
	}

	if ac.SystemContext != nil {
		line := "System: " + ac.SystemContext.Name
		if ac.SystemContext.Methodology != "" {
			line += " (" + ac.SystemContext.Methodology + ")"
		}
		tryAppend(line)
		tryAppend(ac.SystemContext.Purpose)
	}
	for i := range ac.Components {
		c := &ac.Components[i]
		tryAppend("- " + c.Name + ": " + c.Description)
	}
	for i := range ac.Decisions {
		d := &ac.Decisions[i]
		tryAppend(fmt.Sprintf("- %s: %s (%s)", d.EntityID(), d.Title, d.Status))
	}
	for i := range ac.Concerns {
		tryAppend("- " + ac.Concerns[i].Name + ": " + ac.Concerns[i].Description)
	}
	for _, f := range ac.RetrievedFacts {
		if f.Score > promptScoreThreshold {
			tryAppend(f.Fact)
		}
	}

	return strings.Join(fragments, "\n")
}
