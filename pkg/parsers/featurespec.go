package parsers

import (
	"fmt"
	"regexp"
	"strings"
)

// FeatureSpecParser parses feature specification documents: a titled feature
// overview followed by phase sections whose task tables become one episode
// per task.
type FeatureSpecParser struct{}

func NewFeatureSpecParser() *FeatureSpecParser {
	return &FeatureSpecParser{}
}

func (p *FeatureSpecParser) Type() string {
	return "feature-spec"
}

func (p *FeatureSpecParser) SupportedExtensions() []string {
	return []string{".md"}
}

// CanParse matches basenames starting with "feature-spec" and ending ".md".
func (p *FeatureSpecParser) CanParse(content, path string) bool {
	name := strings.ToLower(baseName(path))
	return strings.HasSuffix(name, ".md") && strings.HasPrefix(name, "feature-spec")
}

var (
	featureTitleRe = regexp.MustCompile(`(?i)#\s*Feature\s+Specification:\s*(.+)`)
	overviewRe     = regexp.MustCompile(`(?is)##\s*Feature\s+Overview\s*\n+(.*?)(?:\n##|\n###|\z)`)
	phaseHeaderRe  = regexp.MustCompile(`(?i)###\s*(Phase\s+\d+[^(\n]*)\s*\([^)]*\)`)
	tableSepRe     = regexp.MustCompile(`^\|[-\s|]+\|$`)
)

type featureTask struct {
	ID          string
	Description string
	Estimate    string
}

type featurePhase struct {
	Name  string
	Tasks []featureTask
}

func (p *FeatureSpecParser) Parse(content, path string) ParseResult {
	var warnings []string

	frontmatter, body := stripFrontmatter(content)

	featureName := ""
	if m := featureTitleRe.FindStringSubmatch(body); m != nil {
		featureName = strings.TrimSpace(m[1])
	}
	if featureName == "" {
		featureName = frontmatter["feature_name"]
	}
	if featureName == "" {
		if !strings.Contains(content, "# Feature Specification:") {
			return ParseResult{
				Warnings: []string{"Content is not a valid feature specification"},
			}
		}
		return ParseResult{
			Warnings: []string{"Could not extract feature name from content"},
		}
	}

	featureSlug := slugify(featureName)
	groupID := featureSlug
	entityType := "feature-spec"

	overview := ""
	if m := overviewRe.FindStringSubmatch(body); m != nil {
		overview = strings.TrimSpace(m[1])
	}
	if overview == "" {
		warnings = append(warnings, "Missing feature overview section")
	}

	overviewContent := fmt.Sprintf("# Feature Specification: %s\n\n", featureName)
	if overview != "" {
		overviewContent += "## Feature Overview\n\n" + overview
	} else {
		overviewContent += body
	}

	overviewMetadata := map[string]string{"source_path": path}
	if fn := frontmatter["feature_name"]; fn != "" {
		overviewMetadata["feature_name"] = fn
	}

	episodes := []EpisodeData{{
		Content:    overviewContent,
		GroupID:    groupID,
		EntityType: entityType,
		EntityID:   featureSlug + "-overview",
		Metadata:   overviewMetadata,
	}}

	phases, phaseWarnings := extractPhases(body)
	warnings = append(warnings, phaseWarnings...)
	if len(phases) == 0 {
		warnings = append(warnings, "No phases found in feature spec")
	}

	for _, phase := range phases {
		for _, task := range phase.Tasks {
			if task.ID == "" || task.Description == "" {
				continue
			}

			taskContent := fmt.Sprintf(
				"Task: %s\nDescription: %s\nEstimate: %s\nPhase: %s",
				task.ID, task.Description, task.Estimate, phase.Name)

			episodes = append(episodes, EpisodeData{
				Content:    taskContent,
				GroupID:    groupID,
				EntityType: entityType,
				EntityID:   featureSlug + "-" + slugify(task.ID),
				Metadata: map[string]string{
					"source_path": path,
					"phase":       phase.Name,
					"task_id":     task.ID,
					"estimate":    task.Estimate,
				},
			})
		}
	}

	return ParseResult{
		Episodes: episodes,
		Warnings: warnings,
		Success:  true,
	}
}

func extractPhases(content string) ([]featurePhase, []string) {
	var phases []featurePhase
	var warnings []string

	matches := phaseHeaderRe.FindAllStringSubmatchIndex(content, -1)
	for i, m := range matches {
		name := strings.TrimSpace(content[m[2]:m[3]])
		start := m[1]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		tasks, tableWarnings := extractTasksFromTable(content[start:end], name)
		warnings = append(warnings, tableWarnings...)
		phases = append(phases, featurePhase{Name: name, Tasks: tasks})
	}

	return phases, warnings
}

// extractTasksFromTable walks the lines of one phase body tracking table
// state. The header row establishes the expected column count; mismatched
// rows still parse but warn; a blank line resets the table state so two
// tables in one phase are handled independently.
func extractTasksFromTable(content, phaseName string) ([]featureTask, []string) {
	var tasks []featureTask
	var warnings []string

	inTable := false
	headerFound := false
	headerColumns := 0

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if line == "" {
			inTable = false
			headerFound = false
			headerColumns = 0
			continue
		}

		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			continue
		}

		if tableSepRe.MatchString(line) {
			separatorCount := countCells(line)
			if headerColumns > 0 && separatorCount != headerColumns {
				warnings = append(warnings, fmt.Sprintf(
					"Malformed table in %s: separator has %d columns but header has %d",
					phaseName, separatorCount, headerColumns))
			}
			headerFound = true
			continue
		}

		cells := splitCells(line)

		if !headerFound {
			inTable = true
			headerColumns = len(cells)
			continue
		}

		if !inTable {
			continue
		}

		if len(cells) != headerColumns && headerColumns > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"Malformed table row in %s: row has %d cells but expected %d",
				phaseName, len(cells), headerColumns))
		}

		if len(cells) >= 2 {
			task := featureTask{ID: cells[0], Description: cells[1]}
			if len(cells) > 2 {
				task.Estimate = cells[2]
			}
			if task.ID != "" && task.Description != "" {
				tasks = append(tasks, task)
			}
		}
	}

	return tasks, warnings
}

func splitCells(line string) []string {
	var cells []string
	for _, cell := range strings.Split(line, "|") {
		cell = strings.TrimSpace(cell)
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}

func countCells(line string) int {
	return len(splitCells(line))
}
