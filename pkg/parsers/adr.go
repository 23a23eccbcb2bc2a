package parsers

import (
	"regexp"
	"strings"
)

// ADRParser extracts Architecture Decision Records into episodes for the
// project_decisions group.
type ADRParser struct{}

func NewADRParser() *ADRParser {
	return &ADRParser{}
}

func (p *ADRParser) Type() string {
	return "adr"
}

func (p *ADRParser) SupportedExtensions() []string {
	return []string{".md"}
}

// CanParse accepts on either of two independent triggers: the filename starts
// with "adr-", or the content carries all three canonical ADR headings.
func (p *ADRParser) CanParse(content, path string) bool {
	if strings.HasPrefix(strings.ToLower(baseName(path)), "adr-") {
		return true
	}

	lower := strings.ToLower(content)
	return strings.Contains(lower, "## status") &&
		strings.Contains(lower, "## context") &&
		strings.Contains(lower, "## decision")
}

var adrTitleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

func (p *ADRParser) Parse(content, path string) ParseResult {
	if strings.TrimSpace(content) == "" {
		return ParseResult{
			Warnings: []string{"ADR content is empty"},
		}
	}

	_, body := stripFrontmatter(content)
	var warnings []string

	title := ""
	if m := adrTitleRe.FindStringSubmatch(body); m != nil {
		title = strings.TrimSpace(m[1])
	} else {
		title = strings.TrimSuffix(baseName(path), ".md")
		warnings = append(warnings, "ADR has no title heading, using filename")
	}

	status := extractSection(body, "status")
	if status == "" {
		warnings = append(warnings, "ADR is missing a status section")
	}
	if extractSection(body, "context") == "" {
		warnings = append(warnings, "ADR is missing a context section")
	}
	if extractSection(body, "decision") == "" {
		warnings = append(warnings, "ADR is missing a decision section")
	}

	base := baseName(path)
	entityID := slugify(strings.TrimSuffix(base, ".md"))
	if entityID == "" {
		entityID = slugify(title)
	}

	metadata := map[string]string{
		"source_path": path,
		"title":       title,
	}
	if status != "" {
		metadata["status"] = firstLine(status)
	}

	return ParseResult{
		Episodes: []EpisodeData{{
			Content:    body,
			GroupID:    "project_decisions",
			EntityType: "adr",
			EntityID:   entityID,
			Metadata:   metadata,
		}},
		Warnings: warnings,
		Success:  true,
	}
}

// extractSection returns the body of a "## <name>" section, case-insensitive,
// up to the next "## " heading or end of document.
func extractSection(content, name string) string {
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") &&
			strings.EqualFold(strings.TrimSpace(trimmed[3:]), name) {
			start = i + 1
			break
		}
	}
	if start == -1 {
		return ""
	}
	var out []string
	for _, line := range lines[start:] {
		if strings.HasPrefix(line, "## ") {
			break
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return strings.TrimSpace(text)
}
