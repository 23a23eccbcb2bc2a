package planning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"guardkit/pkg/knowledge"
	"guardkit/pkg/logx"
)

// Knowledge groups the planning layer reads and writes. Raw names; they are
// namespace-prefixed by the client before use.
const (
	groupArchitecture = "project_architecture"
	groupDecisions    = "project_decisions"
	groupBDDScenarios = "bdd_scenarios"
)

// SystemPlan is the only code path that reads or writes architecture
// entities against the knowledge store. Every write is an idempotent upsert
// keyed by the entity's derived ID. Every operation degrades gracefully:
// writes return "" and reads return nil/empty when the store is unavailable
// or an operation fails, so callers never distinguish "store missing" from
// "found nothing".
type SystemPlan struct {
	client  knowledge.Client
	project string
	logger  *logx.Logger
}

// ArchitectureSummary is the untyped read-back of persisted architecture
// knowledge. The store returns only name/fact/score records.
type ArchitectureSummary struct {
	Facts []knowledge.Fact
}

func NewSystemPlan(client knowledge.Client, project string) *SystemPlan {
	return &SystemPlan{
		client:  client,
		project: project,
		logger:  logx.NewLogger("system-plan"),
	}
}

// available gates every operation on this type.
func (sp *SystemPlan) available() bool {
	return sp.client != nil && sp.client.Enabled()
}

// UpsertSystemContext persists the system context, returning the store UUID
// or "" on any failure.
func (sp *SystemPlan) UpsertSystemContext(ctx context.Context, sys knowledge.SystemContextDef) string {
	return sp.upsert(ctx, groupArchitecture, knowledge.Episode{
		Name:       "System Context: " + sys.Name,
		Body:       encodeBody(sys.EpisodeBody()),
		EntityID:   sys.EntityID(),
		EntityType: sys.EntityType(),
	})
}

// UpsertComponent persists one component, returning the store UUID or "" on
// any failure.
func (sp *SystemPlan) UpsertComponent(ctx context.Context, comp knowledge.ComponentDef) string {
	return sp.upsert(ctx, groupArchitecture, knowledge.Episode{
		Name:       "Component: " + comp.Name,
		Body:       encodeBody(comp.EpisodeBody()),
		EntityID:   comp.EntityID(),
		EntityType: comp.EntityType(),
	})
}

// UpsertCrosscutting persists one crosscutting concern, returning the store
// UUID or "" on any failure.
func (sp *SystemPlan) UpsertCrosscutting(ctx context.Context, concern knowledge.CrosscuttingConcernDef) string {
	return sp.upsert(ctx, groupArchitecture, knowledge.Episode{
		Name:       "Crosscutting: " + concern.Name,
		Body:       encodeBody(concern.EpisodeBody()),
		EntityID:   concern.EntityID(),
		EntityType: concern.EntityType(),
	})
}

// UpsertADR persists one architecture decision, returning the store UUID or
// "" on any failure.
func (sp *SystemPlan) UpsertADR(ctx context.Context, adr knowledge.ArchitectureDecision) string {
	return sp.upsert(ctx, groupDecisions, knowledge.Episode{
		Name:       fmt.Sprintf("%s: %s", adr.EntityID(), adr.Title),
		Body:       encodeBody(adr.EpisodeBody()),
		EntityID:   adr.EntityID(),
		EntityType: adr.EntityType(),
	})
}

func (sp *SystemPlan) upsert(ctx context.Context, group string, ep knowledge.Episode) string {
	if !sp.available() {
		logx.Debug(ctx, "graphiti", "GRAPHITI: store unavailable, skipping upsert of %s", ep.EntityID)
		return ""
	}
	ep.GroupID = sp.client.GroupID(group)
	ep.Source = "system_plan"
	uuid, err := sp.client.UpsertEpisode(ctx, ep)
	if err != nil {
		sp.logger.Warn("GRAPHITI: upsert %s failed: %v", ep.EntityID, err)
		return ""
	}
	logx.Debug(ctx, "graphiti", "GRAPHITI: upserted %s as %s", ep.EntityID, uuid)
	return uuid
}

// HasArchitectureContext probes whether any architecture knowledge has been
// persisted for this project. False on unavailability or store failure.
func (sp *SystemPlan) HasArchitectureContext(ctx context.Context) bool {
	if !sp.available() {
		return false
	}
	groupID := sp.client.GroupID(groupArchitecture)
	facts, err := sp.client.Search(ctx, "system context architecture", []string{groupID}, 1)
	if err != nil {
		logx.Debug(ctx, "graphiti", "GRAPHITI: existence probe failed: %v", err)
		return false
	}
	return len(facts) > 0
}

// ArchitectureSummary fetches the persisted architecture as raw facts. Nil
// when the store is unavailable, the search fails, or nothing is stored.
func (sp *SystemPlan) ArchitectureSummary(ctx context.Context) *ArchitectureSummary {
	if !sp.available() {
		return nil
	}
	groupIDs := []string{
		sp.client.GroupID(groupArchitecture),
		sp.client.GroupID(groupDecisions),
	}
	facts, err := sp.client.Search(ctx, "system architecture components decisions", groupIDs, 25)
	if err != nil {
		sp.logger.Warn("GRAPHITI: architecture summary failed: %v", err)
		return nil
	}
	if len(facts) == 0 {
		return nil
	}
	return &ArchitectureSummary{Facts: facts}
}

// RelevantContextForTopic runs a semantic search for the topic across the
// architecture and decisions groups. Empty on any failure.
func (sp *SystemPlan) RelevantContextForTopic(ctx context.Context, topic string, numResults int) []knowledge.Fact {
	if !sp.available() {
		return nil
	}
	groupIDs := []string{
		sp.client.GroupID(groupArchitecture),
		sp.client.GroupID(groupDecisions),
	}
	facts, err := sp.client.Search(ctx, topic, groupIDs, numResults)
	if err != nil {
		sp.logger.Warn("GRAPHITI: topic search failed: %v", err)
		return nil
	}
	return facts
}

// encodeBody renders an episode body as flat "key: value." text in sorted
// key order. The read path recovers fields from this text with loose
// regexes, so the rendering must stay plain prose rather than JSON.
func encodeBody(body map[string]any) string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		var value string
		switch v := body[k].(type) {
		case string:
			value = v
		case []string:
			value = strings.Join(v, ", ")
		default:
			value = fmt.Sprintf("%v", v)
		}
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s. ", k, value)
	}
	return strings.TrimSpace(b.String())
}
