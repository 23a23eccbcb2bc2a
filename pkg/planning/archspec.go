package planning

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"guardkit/pkg/knowledge"
)

// ArchSpecResult bundles the entities extracted from one architecture spec
// document plus any non-fatal parse warnings. Structurally incomplete input
// degrades to empty collections, never an error.
type ArchSpecResult struct {
	SystemContext *knowledge.SystemContextDef
	Components    []knowledge.ComponentDef
	Concerns      []knowledge.CrosscuttingConcernDef
	Decisions     []knowledge.ArchitectureDecision
	ParseWarnings []string
}

var (
	fieldRe          = regexp.MustCompile(`(?m)^-\s+\*\*(.+?)\*\*:\s*(.+)$`)
	subsectionRe     = regexp.MustCompile(`(?m)^###\s+(\S+:\s*.+)$`)
	adrNumberRe      = regexp.MustCompile(`ADR-SP-(\d+)`)
	consequenceSepRe = regexp.MustCompile(`,\s*[+-]`)
)

// ParseArchitectureSpec parses the architecture spec markdown file at path.
// The only error it returns is a failure to read the file; everything else
// degrades into ParseWarnings.
func ParseArchitectureSpec(path string) (*ArchSpecResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read architecture spec: %w", err)
	}
	return ParseArchitectureSpecContent(string(data)), nil
}

// ParseArchitectureSpecContent parses architecture spec markdown already in
// memory. Components are parsed before the system context so their names can
// populate its bounded contexts; the system context's methodology is then
// propagated back onto every component.
func ParseArchitectureSpecContent(content string) *ArchSpecResult {
	result := &ArchSpecResult{}

	componentsSection := extractNumberedSection(content, "Components")
	if componentsSection == "" {
		result.ParseWarnings = append(result.ParseWarnings, "No Components section found")
	} else {
		result.Components = parseComponents(componentsSection)
	}

	systemSection := extractNumberedSection(content, "System Context")
	if systemSection == "" {
		result.ParseWarnings = append(result.ParseWarnings, "No System Context section found")
	} else {
		result.SystemContext = parseSystemContext(systemSection, result.Components)
		for i := range result.Components {
			result.Components[i].Methodology = result.SystemContext.Methodology
		}
	}

	concernsSection := extractNumberedSection(content, "Crosscutting Concerns")
	if concernsSection == "" {
		result.ParseWarnings = append(result.ParseWarnings, "No Crosscutting Concerns section found")
	} else {
		result.Concerns = parseConcerns(concernsSection)
	}

	decisionsSection := extractNumberedSection(content, "Architecture Decisions")
	if decisionsSection == "" {
		result.ParseWarnings = append(result.ParseWarnings, "No Architecture Decisions section found")
	} else {
		result.Decisions = parseDecisions(decisionsSection)
	}

	return result
}

// extractNumberedSection returns the body of a `## N. Name` section, from the
// end of its heading to the next `## ` heading or end of document.
func extractNumberedSection(content, name string) string {
	re := regexp.MustCompile(`(?mi)^##\s+\d+\.\s+` + regexp.QuoteMeta(name) + `\s*$`)
	loc := re.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	rest := content[loc[1]:]
	if next := regexp.MustCompile(`(?m)^##\s+`).FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return strings.TrimSpace(rest)
}

// subsections splits a section body into (heading, body) pairs for every
// `### <prefix>...: Title` heading carrying the given prefix.
func subsections(section, prefix string) [][2]string {
	matches := subsectionRe.FindAllStringSubmatchIndex(section, -1)
	var out [][2]string
	for i, m := range matches {
		heading := section[m[2]:m[3]]
		if !strings.HasPrefix(heading, prefix) {
			continue
		}
		end := len(section)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		out = append(out, [2]string{heading, strings.TrimSpace(section[m[1]:end])})
	}
	return out
}

// fieldValue extracts the first `- **Name**: value` line for the named field.
func fieldValue(body, name string) string {
	for _, m := range fieldRe.FindAllStringSubmatch(body, -1) {
		if strings.EqualFold(strings.TrimSpace(m[1]), name) {
			return strings.TrimSpace(m[2])
		}
	}
	return ""
}

// fieldList splits a scalar field value on commas, trimming items and
// dropping empties.
func fieldList(body, name string) []string {
	value := fieldValue(body, name)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// headingTitle returns the text after the first colon of a subsection
// heading, e.g. "COMP-orders: Order Management" -> "Order Management".
func headingTitle(heading string) string {
	if _, after, ok := strings.Cut(heading, ":"); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(heading)
}

func parseSystemContext(section string, components []knowledge.ComponentDef) *knowledge.SystemContextDef {
	sys := &knowledge.SystemContextDef{
		Name:        fieldValue(section, "Name"),
		Purpose:     fieldValue(section, "Purpose"),
		Methodology: fieldValue(section, "Methodology"),
	}
	for _, c := range components {
		sys.BoundedContexts = append(sys.BoundedContexts, c.Name)
	}
	sys.ExternalSystems = parseExternalSystemsTable(section)
	return sys
}

// parseExternalSystemsTable pulls external system names from the first cell
// of every data row in the table under `### External Systems`. The header row
// and the dash separator row are skipped.
func parseExternalSystemsTable(section string) []string {
	re := regexp.MustCompile(`(?mi)^###\s+External Systems\s*$`)
	loc := re.FindStringIndex(section)
	if loc == nil {
		return nil
	}
	body := section[loc[1]:]
	if next := regexp.MustCompile(`(?m)^###\s+`).FindStringIndex(body); next != nil {
		body = body[:next[0]]
	}

	var systems []string
	headerSeen := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if strings.Contains(line, "---") {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		cells := strings.Split(strings.Trim(line, "|"), "|")
		if len(cells) == 0 {
			continue
		}
		name := strings.TrimSpace(strings.ReplaceAll(cells[0], "**", ""))
		if name != "" {
			systems = append(systems, name)
		}
	}
	return systems
}

func parseComponents(section string) []knowledge.ComponentDef {
	var components []knowledge.ComponentDef
	for _, sub := range subsections(section, "COMP-") {
		heading, body := sub[0], sub[1]
		components = append(components, knowledge.ComponentDef{
			Name:             headingTitle(heading),
			Description:      fieldValue(body, "Description"),
			Responsibilities: fieldList(body, "Responsibilities"),
			Dependencies:     fieldList(body, "Dependencies"),
			AggregateRoots:   fieldList(body, "Aggregate Roots"),
			DomainEvents:     fieldList(body, "Domain Events"),
			ContextMapping:   fieldValue(body, "Context Mapping"),
		})
	}
	return components
}

func parseConcerns(section string) []knowledge.CrosscuttingConcernDef {
	var concerns []knowledge.CrosscuttingConcernDef
	for _, sub := range subsections(section, "XC-") {
		heading, body := sub[0], sub[1]
		concerns = append(concerns, knowledge.CrosscuttingConcernDef{
			Name:                headingTitle(heading),
			Description:         fieldValue(body, "Description"),
			AppliesTo:           fieldList(body, "Applies To"),
			ImplementationNotes: fieldValue(body, "Implementation Notes"),
		})
	}
	return concerns
}

func parseDecisions(section string) []knowledge.ArchitectureDecision {
	var decisions []knowledge.ArchitectureDecision
	for _, sub := range subsections(section, "ADR-SP-") {
		heading, body := sub[0], sub[1]
		number := 0
		if m := adrNumberRe.FindStringSubmatch(heading); m != nil {
			number, _ = strconv.Atoi(m[1])
		}
		decisions = append(decisions, knowledge.ArchitectureDecision{
			Number:            number,
			Title:             headingTitle(heading),
			Status:            fieldValue(body, "Status"),
			Context:           fieldValue(body, "Context"),
			Decision:          fieldValue(body, "Decision"),
			Consequences:      splitConsequences(fieldValue(body, "Consequences")),
			RelatedComponents: fieldList(body, "Related Components"),
		})
	}
	return decisions
}

// splitConsequences breaks a consequences value at commas only when the next
// item starts with a + or - marker, so plain commas inside one consequence
// phrase survive intact.
func splitConsequences(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var items []string
	start := 0
	for _, m := range consequenceSepRe.FindAllStringIndex(value, -1) {
		items = append(items, strings.TrimSpace(value[start:m[0]]))
		start = m[1] - 1 // keep the sign with the next item
	}
	if last := strings.TrimSpace(value[start:]); last != "" {
		items = append(items, last)
	}
	return items
}
