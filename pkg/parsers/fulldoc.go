package parsers

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultChunkThreshold is the document size in bytes above which full-doc
// capture splits into per-section chunks.
const DefaultChunkThreshold = 10 * 1024

// FullDocParser captures an entire markdown document verbatim into the
// project_knowledge group, chunking large documents by "## " sections.
//
// It is explicit-only: CanParse always returns false, so auto-detection never
// selects it. It is reachable solely through Registry.Get("full_doc").
type FullDocParser struct {
	chunkThreshold int
}

func NewFullDocParser() *FullDocParser {
	return &FullDocParser{chunkThreshold: DefaultChunkThreshold}
}

// NewFullDocParserWithThreshold overrides the chunking threshold, mainly for
// tests and bulk imports.
func NewFullDocParserWithThreshold(threshold int) *FullDocParser {
	return &FullDocParser{chunkThreshold: threshold}
}

func (p *FullDocParser) Type() string {
	return "full_doc"
}

// SupportedExtensions is empty so the parser never claims an extension slot.
func (p *FullDocParser) SupportedExtensions() []string {
	return nil
}

// CanParse always returns false; full-doc capture must be requested
// explicitly by parser type.
func (p *FullDocParser) CanParse(_, _ string) bool {
	return false
}

func (p *FullDocParser) Parse(content, path string) ParseResult {
	if strings.TrimSpace(content) == "" {
		return ParseResult{
			Warnings: []string{"Document content is empty"},
		}
	}

	var warnings []string
	rawFrontmatter, body := stripFrontmatterYAML(content, &warnings)

	title := firstHeadingTitle(body)
	if title == "" {
		if m := headingRe.FindStringSubmatch(body); m != nil {
			title = strings.TrimSpace(m[1])
		}
	}
	if title == "" {
		base := baseName(path)
		if idx := strings.LastIndexByte(base, '.'); idx > 0 {
			base = base[:idx]
		}
		title = base
		warnings = append(warnings, "Document has no title heading, using filename")
	}

	baseMetadata := func() map[string]string {
		m := map[string]string{
			"file_path": path,
			"file_size": strconv.Itoa(len(content)),
			"title":     title,
		}
		if rawFrontmatter != "" {
			m["frontmatter"] = rawFrontmatter
		}
		return m
	}

	if len(body) <= p.chunkThreshold {
		return ParseResult{
			Episodes: []EpisodeData{{
				Content:    body,
				GroupID:    "project_knowledge",
				EntityType: "full_doc",
				EntityID:   path,
				Metadata:   baseMetadata(),
			}},
			Warnings: warnings,
			Success:  true,
		}
	}

	chunks := chunkBySections(body, title)
	if len(chunks) <= 1 {
		warnings = append(warnings, "Document exceeds chunk threshold but has no sections to chunk by")
		return ParseResult{
			Episodes: []EpisodeData{{
				Content:    body,
				GroupID:    "project_knowledge",
				EntityType: "full_doc",
				EntityID:   path,
				Metadata:   baseMetadata(),
			}},
			Warnings: warnings,
			Success:  true,
		}
	}

	episodes := make([]EpisodeData, 0, len(chunks))
	for i, chunk := range chunks {
		metadata := baseMetadata()
		metadata["chunk_index"] = strconv.Itoa(i)
		metadata["chunk_total"] = strconv.Itoa(len(chunks))
		metadata["chunk_title"] = chunk.title

		episodes = append(episodes, EpisodeData{
			Content:    chunk.content,
			GroupID:    "project_knowledge",
			EntityType: "full_doc",
			EntityID:   fmt.Sprintf("%s_chunk_%d", path, i),
			Metadata:   metadata,
		})
	}

	return ParseResult{
		Episodes: episodes,
		Warnings: warnings,
		Success:  true,
	}
}

type docChunk struct {
	title   string
	content string
}

// chunkBySections splits a document at its "## " headings. Content before the
// first section becomes an introduction chunk.
func chunkBySections(body, docTitle string) []docChunk {
	locs := headingRe.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		return []docChunk{{title: docTitle, content: body}}
	}

	var chunks []docChunk

	intro := strings.TrimSpace(body[:locs[0][0]])
	if intro != "" {
		chunks = append(chunks, docChunk{title: docTitle, content: intro})
	}

	for i, loc := range locs {
		heading := strings.TrimSpace(body[loc[2]:loc[3]])
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunks = append(chunks, docChunk{
			title:   docTitle + " - " + heading,
			content: strings.TrimSpace(body[loc[0]:end]),
		})
	}

	return chunks
}
