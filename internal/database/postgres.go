package database

import (
	"context"
	"fmt"

	"ragnotes/internal/embedding"
	"ragnotes/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// PostgresIndex is a vector index backed by PostgreSQL with pgvector
type PostgresIndex struct {
	Pool       *pgxpool.Pool
	Table      string
	Dimensions int
	embedder   embedding.Embedder
}

var (
	_ Index        = (*PostgresIndex)(nil)
	_ SourceLister = (*PostgresIndex)(nil)
)

// NewPostgresIndex creates a new database connection. Query text is embedded
// with embedder before searching.
func NewPostgresIndex(ctx context.Context, connStr, table string, dims int, embedder embedding.Embedder) (*PostgresIndex, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresIndex{Pool: pool, Table: table, Dimensions: dims, embedder: embedder}, nil
}

func (db *PostgresIndex) table() string {
	return pgx.Identifier{db.Table}.Sanitize()
}

// Initialize sets up the extension, the chunks table and its indices
func (db *PostgresIndex) Initialize(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err := db.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			file_path TEXT NOT NULL,
			page INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			start_index INTEGER NOT NULL,
			embedding vector(%d) NOT NULL,
			UNIQUE (file_path, page, chunk_index)
		)
	`, db.table(), db.Dimensions))
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", db.Table, err)
	}

	_, err = db.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`, pgx.Identifier{db.Table + "_embedding_idx"}.Sanitize(), db.table()))
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	_, err = db.Pool.Exec(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (source)`,
		pgx.Identifier{db.Table + "_source_idx"}.Sanitize(), db.table()))
	if err != nil {
		return fmt.Errorf("failed to create source index: %w", err)
	}

	return nil
}

// Upsert stores a chunk and its vector, replacing an existing row for the
// same file, page and chunk index
func (db *PostgresIndex) Upsert(ctx context.Context, chunk models.Chunk, vec []float32) error {
	if len(vec) != db.Dimensions {
		return fmt.Errorf("embedding has %d dimensions, index expects %d", len(vec), db.Dimensions)
	}

	m := chunk.Metadata
	_, err := db.Pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (content, source, file_path, page, chunk_index, start_index, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (file_path, page, chunk_index) DO UPDATE
		SET content = EXCLUDED.content,
		    source = EXCLUDED.source,
		    start_index = EXCLUDED.start_index,
		    embedding = EXCLUDED.embedding
	`, db.table()),
		chunk.Content,
		m.Source,
		m.FilePath,
		m.PageNumber,
		m.ChunkIndex,
		m.StartIndex,
		pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %d of %s: %w", m.ChunkIndex, m.FilePath, err)
	}
	return nil
}

// Query embeds text and returns the k most similar chunks
func (db *PostgresIndex) Query(ctx context.Context, text string, k int) ([]models.RetrievalResult, error) {
	vec, err := db.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return db.QuerySimilar(ctx, vec, k)
}

// QuerySimilar finds chunks similar to the query embedding
func (db *PostgresIndex) QuerySimilar(ctx context.Context, vec []float32, limit int) ([]models.RetrievalResult, error) {
	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`
		SELECT content, source, file_path, page, chunk_index, start_index,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, db.table()), pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	return processRows(rows)
}

func processRows(rows pgx.Rows) ([]models.RetrievalResult, error) {
	defer rows.Close()

	var results []models.RetrievalResult
	for rows.Next() {
		var r models.RetrievalResult
		m := &r.Chunk.Metadata
		if err := rows.Scan(
			&r.Chunk.Content,
			&m.Source,
			&m.FilePath,
			&m.PageNumber,
			&m.ChunkIndex,
			&m.StartIndex,
			&r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// Sources lists the distinct source identifiers in the index
func (db *PostgresIndex) Sources(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`SELECT DISTINCT source FROM %s ORDER BY source`, db.table()))
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Close closes the database connection
func (db *PostgresIndex) Close() {
	db.Pool.Close()
}
