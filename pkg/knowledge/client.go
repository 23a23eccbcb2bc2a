package knowledge

import "context"

// Fact is one search hit from the knowledge store. The store returns only
// name/fact/score, not typed entities; read paths re-infer entity types from
// these text fields.
type Fact struct {
	Name  string  `json:"name"`
	Fact  string  `json:"fact"`
	Score float64 `json:"score"`
}

// Episode is one unit of content submitted to the store.
type Episode struct {
	Name       string
	Body       string // serialized domain data, searchable text
	GroupID    string // already namespace-prefixed via Client.GroupID
	EntityID   string // stable upsert key; empty for append-only episodes
	EntityType string
	Source     string
	Metadata   map[string]string
}

// Client is the opaque knowledge store consumed by the planning layer.
// Implementations must treat UpsertEpisode as insert-or-update keyed by
// (GroupID, EntityID).
type Client interface {
	// Enabled reports whether the store should be used at all. A disabled
	// client presents identically to a missing one.
	Enabled() bool

	// GroupID prefixes a raw group name with the project namespace so two
	// projects sharing one store never collide.
	GroupID(group string) string

	// Search runs a relevance-ranked query across the given (already
	// prefixed) groups.
	Search(ctx context.Context, query string, groupIDs []string, numResults int) ([]Fact, error)

	// AddEpisode appends an episode without an upsert key.
	AddEpisode(ctx context.Context, ep Episode) error

	// UpsertEpisode inserts or updates the episode keyed by its entity ID
	// and returns the store-assigned UUID.
	UpsertEpisode(ctx context.Context, ep Episode) (string, error)

	Close() error
}

// Standard project-scoped knowledge groups.
//
//nolint:gochecknoglobals // Shared group catalog
var ProjectGroups = map[string]string{
	"project_overview":     "High-level project purpose and goals",
	"project_architecture": "System architecture and patterns",
	"feature_specs":        "Feature specifications and requirements",
	"project_decisions":    "Architecture Decision Records (ADRs)",
	"project_constraints":  "Constraints and limitations",
	"domain_knowledge":     "Domain terminology and concepts",
}

// System-level knowledge groups internal to GuardKit.
//
//nolint:gochecknoglobals // Shared group catalog
var SystemGroups = map[string]string{
	"role_constraints":     "Player/Coach role boundaries",
	"quality_gate_configs": "Task-type specific quality thresholds",
	"implementation_modes": "Direct vs task-work patterns",
}
