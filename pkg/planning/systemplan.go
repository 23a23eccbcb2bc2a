package planning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"guardkit/pkg/knowledge"
	"guardkit/pkg/logx"
)

// PlanResult summarizes one parse-then-persist pipeline run.
type PlanResult struct {
	Persisted     int
	Failed        int
	Warnings      []string
	ArtefactDir   string
	ArtefactFiles []string
}

// RunSystemPlan parses the architecture spec at specPath, upserts every
// entity in document order (system context, components, concerns,
// decisions), and writes human-readable artefact files under
// docsDir/architecture. Store unavailability counts upserts as failed but
// never blocks artefact writing.
func RunSystemPlan(ctx context.Context, sp *SystemPlan, specPath, docsDir string) (*PlanResult, error) {
	spec, err := ParseArchitectureSpec(specPath)
	if err != nil {
		return nil, err
	}

	result := &PlanResult{Warnings: spec.ParseWarnings}
	record := func(uuid string) {
		if uuid == "" {
			result.Failed++
		} else {
			result.Persisted++
		}
	}

	if spec.SystemContext != nil {
		record(sp.UpsertSystemContext(ctx, *spec.SystemContext))
	}
	for _, comp := range spec.Components {
		record(sp.UpsertComponent(ctx, comp))
	}
	for _, concern := range spec.Concerns {
		record(sp.UpsertCrosscutting(ctx, concern))
	}
	for _, adr := range spec.Decisions {
		record(sp.UpsertADR(ctx, adr))
	}

	dir, files, err := writeArtefacts(spec, docsDir)
	if err != nil {
		return nil, err
	}
	result.ArtefactDir = dir
	result.ArtefactFiles = files

	logx.Infof("system plan complete: %d persisted, %d failed, %d artefacts",
		result.Persisted, result.Failed, len(files))
	return result, nil
}

// writeArtefacts renders the parsed spec into markdown files under
// docsDir/architecture. Components go to bounded-contexts.md when the
// methodology is DDD, components.md otherwise.
func writeArtefacts(spec *ArchSpecResult, docsDir string) (string, []string, error) {
	dir := filepath.Join(docsDir, "architecture")
	if err := os.MkdirAll(filepath.Join(dir, "decisions"), 0o755); err != nil {
		return "", nil, fmt.Errorf("create artefact dir: %w", err)
	}

	var files []string
	write := func(name, content string) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write artefact %s: %w", name, err)
		}
		files = append(files, path)
		return nil
	}

	methodology := ""
	if spec.SystemContext != nil {
		methodology = spec.SystemContext.Methodology
		if err := write("system-context.md", renderSystemContext(spec.SystemContext)); err != nil {
			return "", nil, err
		}
	}

	componentsFile := "components.md"
	if methodology == knowledge.MethodologyDDD {
		componentsFile = "bounded-contexts.md"
	}
	if len(spec.Components) > 0 {
		if err := write(componentsFile, renderComponents(spec.Components, methodology)); err != nil {
			return "", nil, err
		}
	}

	if len(spec.Concerns) > 0 {
		if err := write("crosscutting-concerns.md", renderConcerns(spec.Concerns)); err != nil {
			return "", nil, err
		}
	}

	for _, adr := range spec.Decisions {
		name := filepath.Join("decisions", adr.EntityID()+".md")
		if err := write(name, renderDecision(adr)); err != nil {
			return "", nil, err
		}
	}

	if err := write("ARCHITECTURE.md", renderIndex(spec, componentsFile)); err != nil {
		return "", nil, err
	}
	return dir, files, nil
}

func renderSystemContext(sys *knowledge.SystemContextDef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# System Context: %s\n\n", sys.Name)
	if sys.Purpose != "" {
		fmt.Fprintf(&b, "%s\n\n", sys.Purpose)
	}
	if sys.Methodology != "" {
		fmt.Fprintf(&b, "Methodology: %s\n\n", sys.Methodology)
	}
	if len(sys.BoundedContexts) > 0 {
		b.WriteString("## Bounded Contexts\n\n")
		for _, bc := range sys.BoundedContexts {
			fmt.Fprintf(&b, "- %s\n", bc)
		}
		b.WriteString("\n")
	}
	if len(sys.ExternalSystems) > 0 {
		b.WriteString("## External Systems\n\n")
		for _, es := range sys.ExternalSystems {
			fmt.Fprintf(&b, "- %s\n", es)
		}
	}
	return b.String()
}

func renderComponents(components []knowledge.ComponentDef, methodology string) string {
	var b strings.Builder
	if methodology == knowledge.MethodologyDDD {
		b.WriteString("# Bounded Contexts\n")
	} else {
		b.WriteString("# Components\n")
	}
	for _, c := range components {
		fmt.Fprintf(&b, "\n## %s\n\n", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, "%s\n", c.Description)
		}
		if len(c.Responsibilities) > 0 {
			fmt.Fprintf(&b, "\nResponsibilities: %s\n", strings.Join(c.Responsibilities, ", "))
		}
		if len(c.Dependencies) > 0 {
			fmt.Fprintf(&b, "\nDependencies: %s\n", strings.Join(c.Dependencies, ", "))
		}
		if methodology == knowledge.MethodologyDDD && len(c.AggregateRoots) > 0 {
			fmt.Fprintf(&b, "\nAggregate Roots: %s\n", strings.Join(c.AggregateRoots, ", "))
		}
	}
	return b.String()
}

func renderConcerns(concerns []knowledge.CrosscuttingConcernDef) string {
	var b strings.Builder
	b.WriteString("# Crosscutting Concerns\n")
	for _, x := range concerns {
		fmt.Fprintf(&b, "\n## %s\n\n", x.Name)
		if x.Description != "" {
			fmt.Fprintf(&b, "%s\n", x.Description)
		}
		if len(x.AppliesTo) > 0 {
			fmt.Fprintf(&b, "\nApplies to: %s\n", strings.Join(x.AppliesTo, ", "))
		}
		if x.ImplementationNotes != "" {
			fmt.Fprintf(&b, "\nNotes: %s\n", x.ImplementationNotes)
		}
	}
	return b.String()
}

func renderDecision(adr knowledge.ArchitectureDecision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", adr.EntityID(), adr.Title)
	status := adr.Status
	if status == "" {
		status = "proposed"
	}
	fmt.Fprintf(&b, "## Status\n\n%s\n", status)
	if adr.Context != "" {
		fmt.Fprintf(&b, "\n## Context\n\n%s\n", adr.Context)
	}
	if adr.Decision != "" {
		fmt.Fprintf(&b, "\n## Decision\n\n%s\n", adr.Decision)
	}
	if len(adr.Consequences) > 0 {
		b.WriteString("\n## Consequences\n\n")
		for _, c := range adr.Consequences {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

func renderIndex(spec *ArchSpecResult, componentsFile string) string {
	var b strings.Builder
	b.WriteString("# Architecture\n\n")
	if spec.SystemContext != nil {
		fmt.Fprintf(&b, "- [System Context](system-context.md) - %s\n", spec.SystemContext.Name)
	}
	if len(spec.Components) > 0 {
		fmt.Fprintf(&b, "- [Components](%s) - %d defined\n", componentsFile, len(spec.Components))
	}
	if len(spec.Concerns) > 0 {
		fmt.Fprintf(&b, "- [Crosscutting Concerns](crosscutting-concerns.md) - %d defined\n", len(spec.Concerns))
	}
	if len(spec.Decisions) > 0 {
		b.WriteString("- Decisions:\n")
		for _, adr := range spec.Decisions {
			fmt.Fprintf(&b, "  - [%s](decisions/%s.md) - %s\n", adr.EntityID(), adr.EntityID(), adr.Title)
		}
	}
	return b.String()
}
