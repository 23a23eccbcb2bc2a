package parsers

import "testing"

const adrContent = `# ADR-001: Use Repository Pattern

## Status
Accepted

## Context
We need a data access pattern.

## Decision
Use the repository pattern.
`

func TestDetectExtensionDispatch(t *testing.T) {
	r := NewDefaultRegistry()

	p := r.Detect("docs/adr-001-repo-pattern.md", adrContent)
	if p == nil || p.Type() != "adr" {
		t.Fatalf("expected adr parser, got %v", p)
	}
}

func TestDetectFallsThroughWhenExtensionParserDeclines(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFeatureSpecParser()) // claims .md
	r.Register(NewProjectDocParser())

	// A .md file the feature-spec parser declines should still reach the
	// project-doc parser via the linear scan.
	p := r.Detect("README.md", "# Project\n\n## Overview\nStuff.")
	if p == nil || p.Type() != "project_doc" {
		t.Fatalf("expected project_doc parser, got %v", p)
	}
}

func TestDetectReturnsNilWhenNothingMatches(t *testing.T) {
	r := NewDefaultRegistry()

	if p := r.Detect("script.py", "print('hello')"); p != nil {
		t.Errorf("expected nil parser for non-markdown, got %s", p.Type())
	}
	if p := r.Detect("notes.md", "# Research Notes\n\nFindings."); p != nil {
		t.Errorf("expected nil parser for generic markdown, got %s", p.Type())
	}
}

func TestFullDocNeverAutoDetected(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFullDocParser())

	if p := r.Detect("anything.md", "# Title\nContent"); p != nil {
		t.Errorf("full_doc must never be auto-detected, got %s", p.Type())
	}

	// Explicit selection still works.
	if p := r.Get("full_doc"); p == nil || p.Type() != "full_doc" {
		t.Error("full_doc must be reachable via explicit type selection")
	}
}

func TestFullDocDoesNotClaimExtensions(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFullDocParser())

	if _, ok := r.byExt[".md"]; ok {
		t.Error("full_doc must not occupy the .md extension slot")
	}
}

func TestRegisterLastWins(t *testing.T) {
	r := NewRegistry()
	first := NewADRParser()
	second := NewADRParser()
	r.Register(first)
	r.Register(second)

	if got := r.Get("adr"); got != second {
		t.Error("re-registering a type must overwrite the prior parser")
	}
	if types := r.Types(); len(types) != 1 {
		t.Errorf("overwritten parser must leave the order list, got %v", types)
	}
}

func TestDetectRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(NewADRParser())
	r.Register(NewFeatureSpecParser())

	// Content that satisfies the ADR heading trigger under a feature-spec
	// filename: extension dispatch tries adr (registered first for .md is
	// overwritten by feature-spec's .md claim), feature-spec accepts.
	p := r.Detect("feature-spec-dark-mode.md", "# Feature Specification: Dark Mode")
	if p == nil || p.Type() != "feature-spec" {
		t.Fatalf("expected feature-spec parser, got %v", p)
	}
}
