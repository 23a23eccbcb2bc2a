package parsers

import (
	"strings"
	"testing"
)

func TestADRCanParse(t *testing.T) {
	p := NewADRParser()

	tests := []struct {
		name    string
		content string
		path    string
		want    bool
	}{
		{"adr filename prefix", "# Anything", "docs/adr-001-postgres.md", true},
		{"adr filename uppercase", "# Anything", "ADR-002-CACHE.md", true},
		{"heading trigger", "## Status\nx\n## Context\ny\n## Decision\nz", "notes.md", true},
		{"heading trigger case-insensitive", "## STATUS\n## CONTEXT\n## DECISION", "notes.md", true},
		{"missing one heading", "## Status\n## Context", "notes.md", false},
		{"plain doc", "# Readme\nHello", "readme.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanParse(tt.content, tt.path); got != tt.want {
				t.Errorf("CanParse(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestADRParse(t *testing.T) {
	p := NewADRParser()
	result := p.Parse(adrContent, "docs/adr-001-repo-pattern.md")

	if !result.Success {
		t.Fatalf("parse failed: %v", result.Warnings)
	}
	if len(result.Episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(result.Episodes))
	}

	ep := result.Episodes[0]
	if ep.GroupID != "project_decisions" {
		t.Errorf("group = %q", ep.GroupID)
	}
	if ep.EntityType != "adr" {
		t.Errorf("entity type = %q", ep.EntityType)
	}
	if ep.EntityID != "adr-001-repo-pattern" {
		t.Errorf("entity id = %q", ep.EntityID)
	}
	if ep.Metadata["title"] != "ADR-001: Use Repository Pattern" {
		t.Errorf("title = %q", ep.Metadata["title"])
	}
	if ep.Metadata["status"] != "Accepted" {
		t.Errorf("status = %q", ep.Metadata["status"])
	}
	if !strings.Contains(ep.Content, "repository pattern") {
		t.Error("episode content missing decision text")
	}
}

func TestADRParseMissingSectionsWarns(t *testing.T) {
	p := NewADRParser()
	result := p.Parse("# ADR-007: Minimal\n\n## Status\nProposed\n", "adr-007.md")

	if !result.Success {
		t.Fatal("structurally incomplete ADRs must still parse")
	}
	if len(result.Warnings) != 2 {
		t.Errorf("expected warnings for missing context and decision, got %v", result.Warnings)
	}
}

func TestADRParseEmptyContent(t *testing.T) {
	p := NewADRParser()
	result := p.Parse("   \n", "adr-001.md")

	if result.Success {
		t.Error("empty content must not succeed")
	}
	if len(result.Warnings) == 0 {
		t.Error("empty content must warn")
	}
}
