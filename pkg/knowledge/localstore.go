package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"guardkit/pkg/logx"
	"guardkit/pkg/metrics"
)

// LocalStore is a SQLite-backed Client implementation. Episodes are stored in
// a relational table and mirrored into an FTS5 index for relevance-ranked
// search, which keeps the whole pipeline runnable without a graph backend.
type LocalStore struct {
	db      *sql.DB
	project string
	enabled bool
	logger  *logx.Logger
}

const localStoreSchema = `
CREATE TABLE IF NOT EXISTS episodes (
	id INTEGER PRIMARY KEY,
	uuid TEXT NOT NULL,
	group_id TEXT NOT NULL,
	entity_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	body TEXT NOT NULL,
	entity_type TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS episodes_entity_key
	ON episodes(group_id, entity_id) WHERE entity_id <> '';

CREATE VIRTUAL TABLE IF NOT EXISTS episodes_fts
	USING fts5(name, body, content='episodes', content_rowid='id');

CREATE TRIGGER IF NOT EXISTS episodes_ai AFTER INSERT ON episodes BEGIN
	INSERT INTO episodes_fts(rowid, name, body) VALUES (new.id, new.name, new.body);
END;

CREATE TRIGGER IF NOT EXISTS episodes_ad AFTER DELETE ON episodes BEGIN
	INSERT INTO episodes_fts(episodes_fts, rowid, name, body)
		VALUES ('delete', old.id, old.name, old.body);
END;

CREATE TRIGGER IF NOT EXISTS episodes_au AFTER UPDATE ON episodes BEGIN
	INSERT INTO episodes_fts(episodes_fts, rowid, name, body)
		VALUES ('delete', old.id, old.name, old.body);
	INSERT INTO episodes_fts(rowid, name, body) VALUES (new.id, new.name, new.body);
END;
`

// OpenLocalStore opens (or creates) the store database at path, scoped to the
// given project namespace.
func OpenLocalStore(path, project string, enabled bool) (*LocalStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping store database: %w", err)
	}

	if _, err := db.Exec(localStoreSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &LocalStore{
		db:      db,
		project: project,
		enabled: enabled,
		logger:  logx.NewLogger("store"),
	}, nil
}

// Enabled implements Client.
func (s *LocalStore) Enabled() bool {
	return s.enabled && s.db != nil
}

// GroupID implements Client. Already-prefixed groups pass through unchanged.
func (s *LocalStore) GroupID(group string) string {
	prefix := s.project + "__"
	if strings.HasPrefix(group, prefix) {
		return group
	}
	return prefix + group
}

// ftsQuery turns free text into a defensive FTS5 query: each term quoted and
// OR-joined, so punctuation in user input cannot break the match syntax.
func ftsQuery(query string) string {
	var terms []string
	for _, word := range strings.Fields(query) {
		word = strings.ReplaceAll(word, `"`, "")
		if word == "" {
			continue
		}
		terms = append(terms, `"`+word+`"`)
	}
	return strings.Join(terms, " OR ")
}

// Search implements Client. Scores map the FTS5 bm25 rank into (0, 1).
func (s *LocalStore) Search(ctx context.Context, query string, groupIDs []string, numResults int) ([]Fact, error) {
	match := ftsQuery(query)
	if match == "" || len(groupIDs) == 0 {
		return nil, nil
	}
	if numResults <= 0 {
		numResults = 10
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(groupIDs)), ",")
	stmt := fmt.Sprintf(`
		SELECT e.name, e.body, bm25(episodes_fts) AS rank
		FROM episodes_fts
		JOIN episodes e ON e.id = episodes_fts.rowid
		WHERE episodes_fts MATCH ? AND e.group_id IN (%s)
		ORDER BY rank
		LIMIT ?`, placeholders)

	args := make([]any, 0, len(groupIDs)+2)
	args = append(args, match)
	for _, g := range groupIDs {
		args = append(args, g)
		metrics.StoreSearches.WithLabelValues(g).Inc()
	}
	args = append(args, numResults)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		metrics.StoreFailures.WithLabelValues("search").Inc()
		return nil, fmt.Errorf("failed to search episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var facts []Fact
	for rows.Next() {
		var f Fact
		var rank float64
		if err := rows.Scan(&f.Name, &f.Fact, &rank); err != nil {
			metrics.StoreFailures.WithLabelValues("search").Inc()
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		// bm25 rank is negative, more negative = better match.
		if rank < 0 {
			rank = -rank
		}
		f.Score = rank / (rank + 1)
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search rows: %w", err)
	}
	return facts, nil
}

// AddEpisode implements Client with append-only semantics.
func (s *LocalStore) AddEpisode(ctx context.Context, ep Episode) error {
	now := time.Now().UTC().Format(time.RFC3339)
	meta, err := marshalMetadata(ep.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodes (uuid, group_id, entity_id, name, body, entity_type, source, metadata, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), ep.GroupID, ep.Name, ep.Body, ep.EntityType, ep.Source, meta, now, now)
	if err != nil {
		metrics.StoreFailures.WithLabelValues("add_episode").Inc()
		return fmt.Errorf("failed to add episode %q: %w", ep.Name, err)
	}
	return nil
}

// UpsertEpisode implements Client. Re-upserting the same (group, entity) key
// updates the row in place and returns the original UUID.
func (s *LocalStore) UpsertEpisode(ctx context.Context, ep Episode) (string, error) {
	if ep.EntityID == "" {
		return "", fmt.Errorf("upsert requires a non-empty entity id (episode %q)", ep.Name)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	meta, err := marshalMetadata(ep.Metadata)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodes (uuid, group_id, entity_id, name, body, entity_type, source, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id, entity_id) WHERE entity_id <> '' DO UPDATE SET
			name = excluded.name,
			body = excluded.body,
			entity_type = excluded.entity_type,
			source = excluded.source,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		uuid.NewString(), ep.GroupID, ep.EntityID, ep.Name, ep.Body, ep.EntityType, ep.Source, meta, now, now)
	if err != nil {
		metrics.StoreFailures.WithLabelValues("upsert_episode").Inc()
		return "", fmt.Errorf("failed to upsert episode %s: %w", ep.EntityID, err)
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT uuid FROM episodes WHERE group_id = ? AND entity_id = ?`,
		ep.GroupID, ep.EntityID).Scan(&id)
	if err != nil {
		metrics.StoreFailures.WithLabelValues("upsert_episode").Inc()
		return "", fmt.Errorf("failed to read back episode %s: %w", ep.EntityID, err)
	}

	metrics.EpisodeUpserts.WithLabelValues(ep.GroupID).Inc()
	s.logger.Debug("Upserted episode %s into %s", ep.EntityID, ep.GroupID)
	return id, nil
}

// Close implements Client.
func (s *LocalStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close store database: %w", err)
	}
	s.db = nil
	return nil
}

func marshalMetadata(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal episode metadata: %w", err)
	}
	return string(data), nil
}
