// Package pgx implements store.DocumentStore on PostgreSQL with pgvector.
package pgx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartsum/backend/internal/util"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/notes"
	"github.com/smartsum/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

const connectTries = 3

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// DocumentDBStorage implements store.DocumentStore on a pgx connection.
type DocumentDBStorage struct {
	conn  pgxIConn
	close func()
}

var _ store.DocumentStore = (*DocumentDBStorage)(nil)

// NewPool connects to url with pgvector types registered on every
// connection.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	// the database container may still be starting
	if err := util.RetryErrWithContext(ctx, connectTries, func(ctx context.Context) error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Open migrates the database at url and returns a store that owns its pool.
func Open(ctx context.Context, url string) (*DocumentDBStorage, error) {
	if err := Migrate(url); err != nil {
		return nil, err
	}
	pool, err := NewPool(ctx, url)
	if err != nil {
		return nil, err
	}
	return &DocumentDBStorage{conn: pool, close: pool.Close}, nil
}

// NewDocumentDBStorageWithConnection wraps an existing connection. Close
// does not close it.
func NewDocumentDBStorageWithConnection(conn pgxIConn) *DocumentDBStorage {
	return &DocumentDBStorage{conn: conn}
}

func (s *DocumentDBStorage) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func (s *DocumentDBStorage) CreateDocument(ctx context.Context, doc store.Document) error {
	doc = sanitize(doc)
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

	_, err = s.conn.Exec(ctx, `
		INSERT INTO documents (id, name, source_kind, status, error, report, mindmap, report_key, mindmap_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, doc.ID, doc.Name, doc.SourceKind, string(doc.Status), doc.Error, report,
		doc.Mindmap, doc.ReportKey, doc.MindmapKey, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

func (s *DocumentDBStorage) UpdateDocument(ctx context.Context, doc store.Document) error {
	doc = sanitize(doc)
	report, err := marshalReport(doc.Report)
	if err != nil {
		return err
	}

	tag, err := s.conn.Exec(ctx, `
		UPDATE documents SET
			name = $2, source_kind = $3, status = $4, error = $5, report = $6,
			mindmap = $7, report_key = $8, mindmap_key = $9, updated_at = $10
		WHERE id = $1
	`, doc.ID, doc.Name, doc.SourceKind, string(doc.Status), doc.Error, report,
		doc.Mindmap, doc.ReportKey, doc.MindmapKey, store.Now())
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, doc.ID)
	}
	return nil
}

func (s *DocumentDBStorage) GetDocument(ctx context.Context, id string) (store.Document, error) {
	var (
		doc    store.Document
		status string
		report []byte
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, name, source_kind, status, error, report, mindmap, report_key, mindmap_key, created_at, updated_at
		FROM documents WHERE id = $1
	`, id).Scan(&doc.ID, &doc.Name, &doc.SourceKind, &status, &doc.Error, &report,
		&doc.Mindmap, &doc.ReportKey, &doc.MindmapKey, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.Document{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("getting document: %w", err)
	}

	doc.Status = store.Status(status)
	if len(report) > 0 {
		var r notes.DocumentReport
		if err := json.Unmarshal(report, &r); err != nil {
			return store.Document{}, fmt.Errorf("decoding report: %w", err)
		}
		doc.Report = &r
	}
	return doc, nil
}

func (s *DocumentDBStorage) ListDocuments(ctx context.Context, limit int) ([]store.Document, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, source_kind, status, error, report_key, mindmap_key, created_at, updated_at
		FROM documents ORDER BY created_at DESC, id LIMIT $1
	`, store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []store.Document{}
	for rows.Next() {
		var (
			doc    store.Document
			status string
		)
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.SourceKind, &status, &doc.Error,
			&doc.ReportKey, &doc.MindmapKey, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.Status = store.Status(status)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SaveSegmentEmbeddings replaces the document's embeddings in one
// transaction, batching inserts.
func (s *DocumentDBStorage) SaveSegmentEmbeddings(ctx context.Context, documentID string, segments []store.SegmentEmbedding) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM segment_embeddings WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}

	err = store.ChunkRange(len(segments), 500, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, seg := range segments[start:end] {
			batch.Queue(`
				INSERT INTO segment_embeddings (document_id, segment_id, topic, summary, embedding)
				VALUES ($1, $2, $3, $4, $5)
			`, documentID, seg.SegmentID, util.SanitizePostgresText(seg.Topic),
				util.SanitizePostgresText(seg.Summary), pgvector.NewVector(seg.Vector))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("saving embeddings: %w", err)
	}

	logger.Debug("[Store] Saved segment embeddings", "document_id", documentID, "segments", len(segments))
	return tx.Commit(ctx)
}

func (s *DocumentDBStorage) SearchSegments(ctx context.Context, vector []float32, limit int) ([]store.SegmentHit, error) {
	if len(vector) == 0 {
		return []store.SegmentHit{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.conn.Query(ctx, `
		SELECT e.document_id, d.name, e.segment_id, e.topic, e.summary, 1 - (e.embedding <=> $1) AS score
		FROM segment_embeddings e JOIN documents d ON d.id = e.document_id
		WHERE vector_dims(e.embedding) = $3
		ORDER BY e.embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(vector), limit, len(vector))
	if err != nil {
		return nil, fmt.Errorf("searching segments: %w", err)
	}
	defer rows.Close()

	hits := []store.SegmentHit{}
	for rows.Next() {
		var hit store.SegmentHit
		if err := rows.Scan(&hit.DocumentID, &hit.DocumentName, &hit.SegmentID, &hit.Topic, &hit.Summary, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func marshalReport(r *notes.DocumentReport) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	// jsonb rejects escaped NUL characters
	return bytes.ReplaceAll(data, []byte(`\u0000`), nil), nil
}

// sanitize strips text Postgres cannot store.
func sanitize(doc store.Document) store.Document {
	doc.Name = util.SanitizePostgresText(doc.Name)
	doc.Error = util.SanitizePostgresText(doc.Error)
	doc.Mindmap = util.SanitizePostgresText(doc.Mindmap)
	return doc
}
