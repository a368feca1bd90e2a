// Package sqlite implements store.DocumentStore on an embedded SQLite
// database. Similarity search ranks vectors in process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smartsum/backend/pkg/notes"
	"github.com/smartsum/backend/pkg/store"
	"github.com/smartsum/backend/pkg/store/sqlite/migrations"
)

// Store is a SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
}

var _ store.DocumentStore = (*Store)(nil)

// Open opens or creates the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, time.Now().Unix()); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, doc store.Document) error {
	report, err := marshalReport(doc.Report)
	if err != nil {
		return err
	}
	now := store.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, source_kind, status, error, report, mindmap, report_key, mindmap_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Name, doc.SourceKind, string(doc.Status), doc.Error, report,
		doc.Mindmap, doc.ReportKey, doc.MindmapKey,
		doc.CreatedAt.UnixMicro(), doc.UpdatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

func (s *Store) UpdateDocument(ctx context.Context, doc store.Document) error {
	report, err := marshalReport(doc.Report)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET
			name = ?, source_kind = ?, status = ?, error = ?, report = ?,
			mindmap = ?, report_key = ?, mindmap_key = ?, updated_at = ?
		WHERE id = ?
	`, doc.Name, doc.SourceKind, string(doc.Status), doc.Error, report,
		doc.Mindmap, doc.ReportKey, doc.MindmapKey, store.Now().UnixMicro(), doc.ID)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, doc.ID)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (store.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source_kind, status, error, report, mindmap, report_key, mindmap_key, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	var (
		doc                  store.Document
		status               string
		report               sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&doc.ID, &doc.Name, &doc.SourceKind, &status, &doc.Error, &report,
		&doc.Mindmap, &doc.ReportKey, &doc.MindmapKey, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("getting document: %w", err)
	}

	doc.Status = store.Status(status)
	doc.CreatedAt = time.UnixMicro(createdAt).UTC()
	doc.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	if report.Valid && report.String != "" {
		var r notes.DocumentReport
		if err := json.Unmarshal([]byte(report.String), &r); err != nil {
			return store.Document{}, fmt.Errorf("decoding report: %w", err)
		}
		doc.Report = &r
	}
	return doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, limit int) ([]store.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source_kind, status, error, report_key, mindmap_key, created_at, updated_at
		FROM documents ORDER BY created_at DESC, id LIMIT ?
	`, store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []store.Document{}
	for rows.Next() {
		var (
			doc                  store.Document
			status               string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.SourceKind, &status, &doc.Error,
			&doc.ReportKey, &doc.MindmapKey, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		doc.Status = store.Status(status)
		doc.CreatedAt = time.UnixMicro(createdAt).UTC()
		doc.UpdatedAt = time.UnixMicro(updatedAt).UTC()
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) SaveSegmentEmbeddings(ctx context.Context, documentID string, segments []store.SegmentEmbedding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segment_embeddings WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segment_embeddings (document_id, segment_id, topic, summary, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, seg := range segments {
		if _, err := stmt.ExecContext(ctx, documentID, seg.SegmentID, seg.Topic, seg.Summary, float32SliceToBytes(seg.Vector)); err != nil {
			return fmt.Errorf("saving embedding %d: %w", seg.SegmentID, err)
		}
	}
	return tx.Commit()
}

// SearchSegments scans every stored vector and ranks by cosine similarity.
func (s *Store) SearchSegments(ctx context.Context, vector []float32, limit int) ([]store.SegmentHit, error) {
	if len(vector) == 0 {
		return []store.SegmentHit{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.document_id, d.name, e.segment_id, e.topic, e.summary, e.embedding
		FROM segment_embeddings e JOIN documents d ON d.id = e.document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("searching segments: %w", err)
	}
	defer rows.Close()

	hits := []store.SegmentHit{}
	for rows.Next() {
		var (
			hit  store.SegmentHit
			blob []byte
		)
		if err := rows.Scan(&hit.DocumentID, &hit.DocumentName, &hit.SegmentID, &hit.Topic, &hit.Summary, &blob); err != nil {
			return nil, err
		}
		hit.Score = notes.CosineSimilarity(vector, bytesToFloat32Slice(blob))
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func marshalReport(r *notes.DocumentReport) (any, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return string(data), nil
}

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
