// Package parsers turns project markdown (ADRs, feature specs, project docs)
// into knowledge store episodes, with pluggable detection across parser
// implementations.
package parsers

import (
	"path/filepath"
	"regexp"
	"strings"
)

// EpisodeData is the write-path DTO produced by every parser.
type EpisodeData struct {
	Content    string
	GroupID    string // raw persistence namespace, e.g. "project_decisions"
	EntityType string
	EntityID   string
	Metadata   map[string]string
}

// ParseResult bundles episodes with non-fatal warnings.
type ParseResult struct {
	Episodes []EpisodeData
	Warnings []string
	Success  bool
}

// Parser is one content-specific markdown parser.
type Parser interface {
	// Type is the stable string key used for explicit parser selection.
	Type() string

	// SupportedExtensions lists lowercased extensions (with dot) for
	// extension-based dispatch. May be empty.
	SupportedExtensions() []string

	// CanParse is a cheap, side-effect-free detection predicate.
	CanParse(content, path string) bool

	// Parse extracts episodes. Structural problems degrade to warnings.
	Parse(content, path string) ParseResult
}

var (
	slugSpaceRe    = regexp.MustCompile(`[\s_]+`)
	slugInvalidRe  = regexp.MustCompile(`[^a-z0-9-]`)
	slugCollapseRe = regexp.MustCompile(`-+`)
)

// slugify converts text into a lowercase hyphen-separated identifier.
func slugify(text string) string {
	slug := strings.ToLower(text)
	slug = slugSpaceRe.ReplaceAllString(slug, "-")
	slug = slugInvalidRe.ReplaceAllString(slug, "")
	slug = slugCollapseRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// baseName returns the final path element.
func baseName(path string) string {
	return filepath.Base(filepath.ToSlash(path))
}

// stripFrontmatter removes a leading YAML frontmatter block delimited by
// "---" lines. Returns the frontmatter lines (raw, without delimiters) and
// the remaining content. Content without frontmatter passes through intact.
func stripFrontmatter(content string) (frontmatter map[string]string, body string) {
	frontmatter = map[string]string{}
	if !strings.HasPrefix(strings.TrimSpace(content), "---") {
		return frontmatter, content
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
		return frontmatter, content
	}

	for _, line := range lines[1:end] {
		if key, value, ok := strings.Cut(line, ":"); ok {
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			if key != "" && value != "" {
				frontmatter[key] = value
			}
		}
	}

	return frontmatter, strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
}
