package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/covaposh/faqbot/internal/model"
	apperr "github.com/covaposh/faqbot/internal/pkg/errors"
)

// ChunkRepo is the storage adapter for FAQ chunks: append-only inserts,
// cosine-similarity queries through pgvector and a substring fallback
// query over the same rows.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert writes the batch inside a single transaction: either every chunk
// lands or none do.
func (r *ChunkRepo) Insert(ctx context.Context, chunks []*model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrStoreWrite, err)
	}
	const query = `INSERT INTO faq_chunks (source, chunk, embedding, ctime) VALUES ($1, $2, $3, $4)`
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, query,
			chunk.Source,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
			chunk.Ctime,
		); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%w: %v", apperr.ErrStoreWrite, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrStoreWrite, err)
	}
	return len(chunks), nil
}

// Query returns the topK most similar chunks ordered by descending cosine
// similarity. A negative threshold disables the similarity filter. An empty
// result is a valid success, distinct from a query error.
func (r *ChunkRepo) Query(ctx context.Context, embedding []float32, topK int, threshold float64) ([]model.Match, error) {
	const query = `
		SELECT source, chunk, 1 - (embedding <=> $1) AS score
		FROM faq_chunks
		WHERE $2 < 0 OR 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(embedding), threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreQuery, err)
	}
	defer rows.Close()
	var matches []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.Source, &m.Text, &m.Score); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreQuery, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreQuery, err)
	}
	return matches, nil
}

// SearchKeywords returns chunks containing ANY of the keywords as a
// case-insensitive substring. Results come back in insertion order, which
// doubles as the deterministic tie-break for the constant score.
func (r *ChunkRepo) SearchKeywords(ctx context.Context, keywords []string, score float64, limit int) ([]model.Match, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	patterns := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, "%"+escapeLike(kw)+"%")
	}
	const query = `
		SELECT source, chunk
		FROM faq_chunks
		WHERE chunk ILIKE ANY($1)
		ORDER BY id
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(patterns), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreQuery, err)
	}
	defer rows.Close()
	var matches []model.Match
	for rows.Next() {
		m := model.Match{Score: score}
		if err := rows.Scan(&m.Source, &m.Text); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStoreQuery, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStoreQuery, err)
	}
	return matches, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
