package parsers

import (
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section headers recognized when mining project docs for knowledge.
//
//nolint:gochecknoglobals // Shared header catalogs
var (
	PurposeHeaders = []string{"overview", "purpose", "about", "what is this"}
	TechHeaders    = []string{"tech stack", "technologies", "built with", "stack"}
	ArchHeaders    = []string{"architecture", "patterns", "structure"}
)

// ProjectDocParser mines CLAUDE.md and README.md files for project purpose,
// tech stack, and architecture patterns.
type ProjectDocParser struct{}

func NewProjectDocParser() *ProjectDocParser {
	return &ProjectDocParser{}
}

func (p *ProjectDocParser) Type() string {
	return "project_doc"
}

func (p *ProjectDocParser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// CanParse accepts only files whose basename without extension is exactly
// "claude" or "readme", case-insensitive.
func (p *ProjectDocParser) CanParse(content, path string) bool {
	name := strings.ToLower(baseName(path))
	stem, ext, ok := strings.Cut(name, ".")
	if !ok {
		return false
	}
	if ext != "md" && ext != "markdown" {
		return false
	}
	return stem == "claude" || stem == "readme"
}

var (
	headingRe = regexp.MustCompile(`(?m)^##\s+(.+)$`)
	titleRe   = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

func (p *ProjectDocParser) Parse(content, path string) ParseResult {
	if strings.TrimSpace(content) == "" {
		return ParseResult{
			Warnings: []string{"Project doc content is empty"},
		}
	}

	var warnings []string
	rawFrontmatter, body := stripFrontmatterYAML(content, &warnings)

	sections := splitSections(body)

	purpose := findSection(sections, PurposeHeaders)
	if purpose == "" {
		warnings = append(warnings, "No project purpose section found")
	}
	tech := findSection(sections, TechHeaders)
	if tech == "" {
		warnings = append(warnings, "No tech stack section found")
	}
	arch := findSection(sections, ArchHeaders)
	if arch == "" {
		warnings = append(warnings, "No architecture patterns section found")
	}

	if purpose == "" && tech == "" && arch == "" && len(sections) == 0 {
		warnings = append(warnings, "Project doc has no recognizable section headers")
	}

	metadata := map[string]string{"source_path": path}
	if rawFrontmatter != "" {
		metadata["frontmatter"] = rawFrontmatter
	}

	var overviewParts []string
	if title := firstHeadingTitle(body); title != "" {
		overviewParts = append(overviewParts, "Project: "+title)
	}
	if purpose != "" {
		overviewParts = append(overviewParts, purpose)
	}
	if tech != "" {
		overviewParts = append(overviewParts, "Tech Stack:\n"+tech)
	}
	if len(overviewParts) == 0 {
		overviewParts = append(overviewParts, body)
	}

	episodes := []EpisodeData{{
		Content:    strings.Join(overviewParts, "\n\n"),
		GroupID:    "project_overview",
		EntityType: "project_doc",
		EntityID:   path,
		Metadata:   metadata,
	}}

	if arch != "" {
		episodes = append(episodes, EpisodeData{
			Content:    "Architecture Patterns:\n" + arch,
			GroupID:    "project_architecture",
			EntityType: "project_doc",
			EntityID:   path + "#architecture",
			Metadata:   metadata,
		})
	}

	return ParseResult{
		Episodes: episodes,
		Warnings: warnings,
		Success:  true,
	}
}

// stripFrontmatterYAML removes a YAML frontmatter block, returning it raw.
// Malformed YAML degrades to a warning instead of failing the parse.
func stripFrontmatterYAML(content string, warnings *[]string) (raw, body string) {
	if !strings.HasPrefix(strings.TrimSpace(content), "---") {
		return "", content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return "", content
	}

	raw = strings.Join(lines[1:end], "\n")
	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(raw), &parsed); err != nil {
		*warnings = append(*warnings, "Malformed YAML frontmatter: "+err.Error())
	}

	return raw, strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
}

// splitSections maps lowercased "## " heading text to section bodies.
func splitSections(content string) map[string]string {
	sections := make(map[string]string)

	locs := headingRe.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		heading := strings.ToLower(strings.TrimSpace(content[loc[2]:loc[3]]))
		start := loc[1]
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections[heading] = strings.TrimSpace(content[start:end])
	}

	return sections
}

// findSection returns the first section whose heading contains one of the
// candidate header phrases. Headings are scanned in sorted order so the
// result is deterministic when several match.
func findSection(sections map[string]string, headers []string) string {
	headings := make([]string, 0, len(sections))
	for heading := range sections {
		headings = append(headings, heading)
	}
	sort.Strings(headings)

	for _, candidate := range headers {
		for _, heading := range headings {
			if strings.Contains(heading, candidate) {
				return sections[heading]
			}
		}
	}
	return ""
}

func firstHeadingTitle(content string) string {
	m := titleRe.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
