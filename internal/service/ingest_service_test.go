package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/covaposh/faqbot/internal/ai"
	apperr "github.com/covaposh/faqbot/internal/pkg/errors"
)

func newTestIngestService(embedder *fakeEmbedder, store *fakeStore) *IngestService {
	return NewIngestService(embedder, store, ai.NewChunker(180, 40), nil, 3, 0, 0)
}

func TestIngest_EmptyText(t *testing.T) {
	store := &fakeStore{}
	svc := newTestIngestService(&fakeEmbedder{}, store)

	_, err := svc.Ingest(context.Background(), "faq", "  \n ")
	require.ErrorIs(t, err, apperr.ErrEmptyInput)
	require.Equal(t, "validate", apperr.StageOf(err))
	require.Empty(t, store.inserted)
}

func TestIngest_SingleChunk(t *testing.T) {
	store := &fakeStore{}
	svc := newTestIngestService(&fakeEmbedder{}, store)

	count, err := svc.Ingest(context.Background(), "faq-jam", "Q: Jam buka? A: 09:00-17:00.")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, store.inserted, 1)
	require.Equal(t, "faq-jam", store.inserted[0].Source)
	require.Equal(t, "Q: Jam buka? A: 09:00-17:00.", store.inserted[0].Text)
	require.Equal(t, []float32{1, 0, 0}, store.inserted[0].Embedding)
	require.NotZero(t, store.inserted[0].Ctime)
}

func TestIngest_LongTextChunksAndBatches(t *testing.T) {
	words := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		words = append(words, fmt.Sprintf("kata%d", i))
	}
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	svc := newTestIngestService(embedder, store)

	count, err := svc.Ingest(context.Background(), "katalog", strings.Join(words, " "))
	require.NoError(t, err)
	require.Equal(t, 3, count)
	// all chunks go through a single embedding batch and a single insert
	require.Equal(t, 1, embedder.calls)
	require.Len(t, store.inserted, 3)
}

func TestIngest_DefaultSourceIsDateStamped(t *testing.T) {
	store := &fakeStore{}
	svc := newTestIngestService(&fakeEmbedder{}, store)

	_, err := svc.Ingest(context.Background(), "  ", "buket mawar merah")
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	require.Equal(t, "faq-"+time.Now().Format("2006-01-02"), store.inserted[0].Source)
}

func TestIngest_OversizedDocumentRejected(t *testing.T) {
	store := &fakeStore{}
	svc := NewIngestService(&fakeEmbedder{}, store, ai.NewChunker(180, 40), nil, 3, 10, 0)

	_, err := svc.Ingest(context.Background(), "faq", "dokumen yang jauh terlalu panjang")
	require.ErrorIs(t, err, apperr.ErrInvalid)
	require.Equal(t, "validate", apperr.StageOf(err))
	require.Empty(t, store.inserted)
}

func TestIngest_EmbedFailureWritesNothing(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{err: fmt.Errorf("%w: upstream down", ai.ErrUnavailable)}
	svc := newTestIngestService(embedder, store)

	_, err := svc.Ingest(context.Background(), "faq", "buket mawar merah")
	require.ErrorIs(t, err, apperr.ErrEmbeddingUnavailable)
	require.Equal(t, "embed", apperr.StageOf(err))
	require.Empty(t, store.inserted)
}

func TestIngest_CountMismatchWritesNothing(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{err: fmt.Errorf("%w: got 0 for 1 inputs", ai.ErrCountMismatch)}
	svc := newTestIngestService(embedder, store)

	_, err := svc.Ingest(context.Background(), "faq", "buket mawar merah")
	require.ErrorIs(t, err, apperr.ErrEmbeddingCountMismatch)
	require.Empty(t, store.inserted)
}

func TestIngest_DimensionMismatchWritesNothing(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"buket mawar merah": {1, 0},
	}}
	svc := newTestIngestService(embedder, store)

	_, err := svc.Ingest(context.Background(), "faq", "buket mawar merah")
	require.ErrorIs(t, err, apperr.ErrEmbeddingUnavailable)
	require.Empty(t, store.inserted)
}
