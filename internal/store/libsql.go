package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/flowlayout/internal/graph"
	"github.com/rendis/flowlayout/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// DB returns the underlying *sql.DB.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Snapshots ---

// SaveSnapshot appends g as the next revision of dialogID. The revision is
// read and written in one transaction so concurrent writers cannot
// interleave.
func (s *LibSQLStore) SaveSnapshot(ctx context.Context, dialogID string, g *graph.Graph) (*Snapshot, bool, error) {
	if dialogID == "" {
		return nil, false, schema.NewError(schema.ErrCodeValidation, "dialog id is required")
	}
	if g == nil {
		g = &graph.Graph{}
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, false, fmt.Errorf("marshal graph: %w", err)
	}
	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	// In WAL mode BeginTx may start a deferred transaction; a write-intent
	// statement forces the write lock before the revision is read.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_migrations (version, name) VALUES (-1, '_write_lock')`); err != nil {
		return nil, false, fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_migrations WHERE version = -1`); err != nil {
		return nil, false, fmt.Errorf("cleanup write lock: %w", err)
	}

	var latestID, latestDigest sql.NullString
	var revision int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, digest, revision FROM snapshots WHERE dialog_id = ? ORDER BY revision DESC LIMIT 1`, dialogID,
	).Scan(&latestID, &latestDigest, &revision)
	if err != nil && err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("read latest revision: %w", err)
	}
	if latestDigest.Valid && latestDigest.String == digest {
		_ = tx.Rollback()
		snap, gErr := s.GetSnapshot(ctx, latestID.String)
		return snap, false, gErr
	}

	w, h := g.Bounds()
	snap := &Snapshot{
		ID:        uuid.New().String(),
		DialogID:  dialogID,
		Revision:  revision + 1,
		Digest:    digest,
		Nodes:     len(g.Nodes),
		Edges:     len(g.Edges),
		Width:     w,
		Height:    h,
		Graph:     g,
		CreatedAt: s.now(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, dialog_id, revision, digest, node_count, edge_count, width, height, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.DialogID, snap.Revision, snap.Digest, snap.Nodes, snap.Edges, snap.Width, snap.Height,
		snappy.Encode(nil, raw), snap.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit snapshot: %w", err)
	}
	return snap, true, nil
}

const snapshotColumns = `id, dialog_id, revision, digest, node_count, edge_count, width, height, created_at`

func (s *LibSQLStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	return s.getSnapshot(ctx, "snapshot", id,
		`SELECT `+snapshotColumns+`, payload FROM snapshots WHERE id = ?`, id)
}

func (s *LibSQLStore) LatestSnapshot(ctx context.Context, dialogID string) (*Snapshot, error) {
	return s.getSnapshot(ctx, "dialog", dialogID,
		`SELECT `+snapshotColumns+`, payload FROM snapshots WHERE dialog_id = ? ORDER BY revision DESC LIMIT 1`, dialogID)
}

func (s *LibSQLStore) getSnapshot(ctx context.Context, resource, key, query string, args ...any) (*Snapshot, error) {
	snap := &Snapshot{}
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&snap.ID, &snap.DialogID, &snap.Revision, &snap.Digest, &snap.Nodes, &snap.Edges,
		&snap.Width, &snap.Height, &snap.CreatedAt, &payload,
	)
	if err == sql.ErrNoRows {
		return nil, storeNotFound(resource, key)
	}
	if err != nil {
		return nil, err
	}
	g, err := decodeGraph(payload)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "snapshot %s: corrupt payload", snap.ID).WithCause(err)
	}
	snap.Graph = g
	return snap, nil
}

// ListSnapshots returns snapshot headers, newest first.
func (s *LibSQLStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots`
	var where []string
	var args []any

	if filter.DialogID != "" {
		where = append(where, "dialog_id = ?")
		args = append(args, filter.DialogID)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, dialog_id, revision DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		if err := rows.Scan(&snap.ID, &snap.DialogID, &snap.Revision, &snap.Digest, &snap.Nodes, &snap.Edges,
			&snap.Width, &snap.Height, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ListDialogs summarises every dialog with at least one snapshot.
func (s *LibSQLStore) ListDialogs(ctx context.Context) ([]*DialogSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.dialog_id, c.cnt, s.revision, s.created_at
		 FROM snapshots s
		 JOIN (SELECT dialog_id, COUNT(*) AS cnt, MAX(revision) AS rev FROM snapshots GROUP BY dialog_id) c
		   ON c.dialog_id = s.dialog_id AND c.rev = s.revision
		 ORDER BY s.dialog_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DialogSummary
	for rows.Next() {
		d := &DialogSummary{}
		if err := rows.Scan(&d.DialogID, &d.Revisions, &d.Latest, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *LibSQLStore) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, schema.NewErrorf(schema.ErrCodeValidation, "keep must be at least 1, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY dialog_id ORDER BY revision DESC) AS rn
				FROM snapshots
			) WHERE rn > ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// --- Helpers ---

func decodeGraph(payload []byte) (*graph.Graph, error) {
	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, err
	}
	g := &graph.Graph{}
	if err := json.Unmarshal(raw, g); err != nil {
		return nil, err
	}
	return g, nil
}

func storeNotFound(resource, id string) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

var _ Store = (*LibSQLStore)(nil)
