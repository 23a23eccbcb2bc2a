package parsers

import (
	"path/filepath"
	"strings"
)

// Registry holds the registered parsers and dispatches detection.
//
// Dispatch order: the parser mapped from the file's lowercased extension is
// tried first, but only accepted if its own CanParse predicate agrees. When
// that fails (or no extension mapping exists) every registered parser's
// CanParse is tried linearly in registration order.
type Registry struct {
	parsers []Parser
	byType  map[string]Parser
	byExt   map[string]Parser
}

func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string]Parser),
		byExt:  make(map[string]Parser),
	}
}

// NewDefaultRegistry returns a registry with the production parser set, in
// production order. The full-document parser registers last so explicit
// selection still reaches it.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewADRParser())
	r.Register(NewFeatureSpecParser())
	r.Register(NewProjectDocParser())
	r.Register(NewFullDocParser())
	return r
}

// Register adds a parser. Registering a parser with an already-used type name
// or extension silently overwrites the prior mapping; last registration wins.
func (r *Registry) Register(p Parser) {
	if prior, ok := r.byType[p.Type()]; ok {
		for i, existing := range r.parsers {
			if existing == prior {
				r.parsers = append(r.parsers[:i], r.parsers[i+1:]...)
				break
			}
		}
	}
	r.byType[p.Type()] = p
	r.parsers = append(r.parsers, p)

	for _, ext := range p.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// Get returns the parser registered under the given type name, or nil.
func (r *Registry) Get(parserType string) Parser {
	return r.byType[parserType]
}

// Detect selects the best parser for the given file, or nil if none match.
func (r *Registry) Detect(path, content string) Parser {
	ext := strings.ToLower(filepath.Ext(path))
	if p, ok := r.byExt[ext]; ok && p.CanParse(content, path) {
		return p
	}

	for _, p := range r.parsers {
		if p.CanParse(content, path) {
			return p
		}
	}
	return nil
}

// Types returns the registered parser type names in registration order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.parsers))
	for _, p := range r.parsers {
		types = append(types, p.Type())
	}
	return types
}
