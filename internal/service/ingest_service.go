package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/covaposh/faqbot/internal/ai"
	"github.com/covaposh/faqbot/internal/filestore"
	"github.com/covaposh/faqbot/internal/model"
	apperr "github.com/covaposh/faqbot/internal/pkg/errors"
)

type IngestService struct {
	embedder  ai.IEmbedder
	store     ChunkStore
	chunker   *ai.Chunker
	archive   filestore.Store
	dimension int
	maxChars  int
	timeout   time.Duration
}

// NewIngestService wires the ingestion pipeline. archive may be nil, in
// which case raw documents are not kept.
func NewIngestService(embedder ai.IEmbedder, store ChunkStore, chunker *ai.Chunker, archive filestore.Store, dimension, maxChars, timeoutSeconds int) *IngestService {
	return &IngestService{
		embedder:  embedder,
		store:     store,
		chunker:   chunker,
		archive:   archive,
		dimension: dimension,
		maxChars:  maxChars,
		timeout:   time.Duration(timeoutSeconds) * time.Second,
	}
}

// Ingest chunks the text, embeds every chunk in one batch and inserts the
// rows in one store call. Nothing is written when embedding fails.
func (s *IngestService) Ingest(ctx context.Context, source, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, apperr.AtStage("validate", apperr.ErrEmptyInput)
	}
	if s.maxChars > 0 && len(text) > s.maxChars {
		return 0, apperr.AtStage("validate", fmt.Errorf("%w: document exceeds %d characters", apperr.ErrInvalid, s.maxChars))
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "faq-" + time.Now().Format("2006-01-02")
	}
	logger := logutil.GetLogger(ctx).With(zap.String("source", source))

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, apperr.AtStage("chunk", fmt.Errorf("%w: no usable text after chunking", apperr.ErrEmptyInput))
	}

	embedCtx, cancel := s.callContext(ctx)
	vectors, err := s.embedder.Embed(embedCtx, chunks)
	cancel()
	if err != nil {
		logger.Error("failed to embed chunks", zap.Int("chunks", len(chunks)), zap.Error(err))
		return 0, apperr.AtStage("embed", mapEmbedErr(err))
	}
	now := time.Now().UnixMilli()
	rows := make([]*model.Chunk, 0, len(chunks))
	for i, chunk := range chunks {
		if s.dimension > 0 && len(vectors[i]) != s.dimension {
			return 0, apperr.AtStage("embed", fmt.Errorf("%w: vector dimension %d, want %d",
				apperr.ErrEmbeddingUnavailable, len(vectors[i]), s.dimension))
		}
		rows = append(rows, &model.Chunk{
			Source:    source,
			Text:      chunk,
			Embedding: vectors[i],
			Ctime:     now,
		})
	}

	inserted, err := s.store.Insert(ctx, rows)
	if err != nil {
		logger.Error("failed to insert chunks", zap.Int("chunks", len(rows)), zap.Error(err))
		return 0, apperr.AtStage("insert", err)
	}
	logger.Info("ingested document", zap.Int("chunks", inserted))

	s.archiveRaw(ctx, source, text)
	return inserted, nil
}

// archiveRaw keeps a copy of the raw document for later re-ingestion.
// Best effort: archive failures are logged, never surfaced to the caller.
func (s *IngestService) archiveRaw(ctx context.Context, source, text string) {
	if s.archive == nil {
		return
	}
	key := fmt.Sprintf("%s-%d.txt", source, time.Now().UnixMilli())
	reader := newMemReader(text)
	if err := s.archive.Save(ctx, key, reader, int64(len(text))); err != nil {
		logutil.GetLogger(ctx).Warn("failed to archive raw document",
			zap.String("key", key), zap.Error(err))
	}
}

func (s *IngestService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

type memReader struct {
	*strings.Reader
}

func newMemReader(s string) *memReader {
	return &memReader{Reader: strings.NewReader(s)}
}

func (r *memReader) Close() error {
	return nil
}
