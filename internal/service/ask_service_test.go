package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covaposh/faqbot/internal/ai"
	"github.com/covaposh/faqbot/internal/config"
	"github.com/covaposh/faqbot/internal/model"
	apperr "github.com/covaposh/faqbot/internal/pkg/errors"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, []float32{1, 0, 0})
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	lastReq *ai.GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req *ai.GenerateRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeStore struct {
	vectorMatches  []model.Match
	keywordMatches []model.Match
	queryErr       error
	keywordErr     error
	insertErr      error
	inserted       []*model.Chunk
	queryCalls     int
	keywordCalls   int
	lastTopK       int
	lastThreshold  float64
	lastKeywords   []string
	lastLimit      int
}

func (f *fakeStore) Insert(ctx context.Context, chunks []*model.Chunk) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, chunks...)
	return len(chunks), nil
}

func (f *fakeStore) Query(ctx context.Context, embedding []float32, topK int, threshold float64) ([]model.Match, error) {
	f.queryCalls++
	f.lastTopK = topK
	f.lastThreshold = threshold
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.vectorMatches, nil
}

func (f *fakeStore) SearchKeywords(ctx context.Context, keywords []string, score float64, limit int) ([]model.Match, error) {
	f.keywordCalls++
	f.lastKeywords = keywords
	f.lastLimit = limit
	if f.keywordErr != nil {
		return nil, f.keywordErr
	}
	return f.keywordMatches, nil
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		TopK:               6,
		Threshold:          0.72,
		FallbackActivation: 0.5,
		KeywordScore:       0.51,
		KeywordLimit:       5,
		MinHybridResults:   6,
		MaxChunkWords:      180,
		ChunkOverlapWords:  40,
		StopWords:          config.DefaultStopWords(),
	}
}

func newTestAskService(embedder *fakeEmbedder, generator *fakeGenerator, store *fakeStore) *AskService {
	return NewAskService(embedder, generator, store, testRetrievalConfig(), 0)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc := newTestAskService(&fakeEmbedder{}, &fakeGenerator{}, &fakeStore{})
	_, err := svc.Ask(context.Background(), "   ", 0, -1)
	require.ErrorIs(t, err, apperr.ErrEmptyInput)
	require.Equal(t, "validate", apperr.StageOf(err))
}

func TestAsk_StrongVectorResultSkipsFallback(t *testing.T) {
	store := &fakeStore{
		vectorMatches: []model.Match{
			{Source: "faq", Text: "Toko buka 09:00-17:00.", Score: 0.91},
		},
	}
	generator := &fakeGenerator{reply: "Toko buka jam 09:00 sampai 17:00."}
	svc := newTestAskService(&fakeEmbedder{}, generator, store)

	answer, err := svc.Ask(context.Background(), "jam buka toko?", 0, -1)
	require.NoError(t, err)
	require.Equal(t, "Toko buka jam 09:00 sampai 17:00.", answer.Text)
	require.Len(t, answer.References, 1)
	require.Equal(t, "faq", answer.References[0].Source)
	require.Equal(t, 0.91, answer.References[0].Score)
	require.Equal(t, 0, store.keywordCalls)
}

func TestAsk_EmptyVectorResultTriggersKeywordFallback(t *testing.T) {
	store := &fakeStore{
		keywordMatches: []model.Match{
			{Source: "faq", Text: "Pengiriman ke Bandung tersedia.", Score: 0.51},
		},
	}
	generator := &fakeGenerator{reply: "Bisa, kami kirim ke Bandung."}
	svc := newTestAskService(&fakeEmbedder{}, generator, store)

	answer, err := svc.Ask(context.Background(), "Apakah bisa kirim ke Bandung?", 0, -1)
	require.NoError(t, err)
	require.Equal(t, 1, store.keywordCalls)
	require.Equal(t, []string{"kirim", "bandung"}, store.lastKeywords)
	require.Equal(t, 6, store.lastLimit)
	require.Equal(t, "Bisa, kami kirim ke Bandung.", answer.Text)
}

func TestAsk_WeakVectorResultMergesKeywordHits(t *testing.T) {
	store := &fakeStore{
		vectorMatches: []model.Match{
			{Source: "faq", Text: "chunk satu", Score: 0.42},
		},
		keywordMatches: []model.Match{
			{Source: "faq", Text: "chunk satu", Score: 0.51},
			{Source: "faq", Text: "chunk dua", Score: 0.51},
		},
	}
	svc := newTestAskService(&fakeEmbedder{}, &fakeGenerator{reply: "ok"}, store)

	matches, err := svc.Retrieve(context.Background(), "harga buket mawar", 6, 0)
	require.NoError(t, err)
	require.Equal(t, 1, store.keywordCalls)
	// duplicate text keeps the vector-ranked occurrence
	require.Len(t, matches, 2)
	require.Equal(t, "chunk satu", matches[0].Text)
	require.Equal(t, 0.42, matches[0].Score)
	require.Equal(t, "chunk dua", matches[1].Text)
}

func TestAsk_NoContextReturnsFixedReply(t *testing.T) {
	generator := &fakeGenerator{reply: "should not be used"}
	svc := newTestAskService(&fakeEmbedder{}, generator, &fakeStore{})

	answer, err := svc.Ask(context.Background(), "pertanyaan di luar katalog", 0, -1)
	require.NoError(t, err)
	require.Equal(t, noContextReply, answer.Text)
	require.Empty(t, answer.References)
	require.Equal(t, 0, generator.calls)
}

func TestAsk_ClampsTopKAndThreshold(t *testing.T) {
	store := &fakeStore{
		vectorMatches: []model.Match{{Source: "faq", Text: "x", Score: 0.9}},
	}
	svc := newTestAskService(&fakeEmbedder{}, &fakeGenerator{reply: "ok"}, store)

	_, err := svc.Ask(context.Background(), "clamp atas", 50, 5)
	require.NoError(t, err)
	require.Equal(t, 10, store.lastTopK)
	require.Equal(t, 0.99, store.lastThreshold)

	_, err = svc.Ask(context.Background(), "pakai default", 0, -1)
	require.NoError(t, err)
	require.Equal(t, 6, store.lastTopK)
	require.Equal(t, 0.72, store.lastThreshold)
}

func TestAsk_EmbedFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("%w: upstream down", ai.ErrUnavailable)}
	store := &fakeStore{}
	svc := newTestAskService(embedder, &fakeGenerator{}, store)

	_, err := svc.Ask(context.Background(), "jam buka?", 0, -1)
	require.ErrorIs(t, err, apperr.ErrEmbeddingUnavailable)
	require.Equal(t, "embed", apperr.StageOf(err))
	require.Equal(t, 0, store.queryCalls)
}

func TestAsk_NoGeneratorConfiguredFailsClosed(t *testing.T) {
	store := &fakeStore{
		vectorMatches: []model.Match{{Source: "faq", Text: "x", Score: 0.9}},
	}
	svc := NewAskService(&fakeEmbedder{}, ai.NewGroupGenerator(nil), store, testRetrievalConfig(), 0)

	_, err := svc.Ask(context.Background(), "jam buka?", 0, -1)
	require.ErrorIs(t, err, apperr.ErrGenerationUnavailable)
	require.Equal(t, "generate", apperr.StageOf(err))
}

func TestAsk_GenerationFailure(t *testing.T) {
	store := &fakeStore{
		vectorMatches: []model.Match{{Source: "faq", Text: "x", Score: 0.9}},
	}
	generator := &fakeGenerator{err: fmt.Errorf("%w: timeout", ai.ErrUnavailable)}
	svc := newTestAskService(&fakeEmbedder{}, generator, store)

	_, err := svc.Ask(context.Background(), "jam buka?", 0, -1)
	require.ErrorIs(t, err, apperr.ErrGenerationUnavailable)
	require.Equal(t, "generate", apperr.StageOf(err))
}

func TestAsk_PromptCarriesContextAndQuestion(t *testing.T) {
	store := &fakeStore{
		vectorMatches: []model.Match{
			{Source: "faq-jam", Text: "Toko buka 09:00-17:00.", Score: 0.9},
			{Source: "faq-alamat", Text: "Alamat: Jl. Mawar 1.", Score: 0.8},
		},
	}
	generator := &fakeGenerator{reply: "ok"}
	svc := newTestAskService(&fakeEmbedder{}, generator, store)

	_, err := svc.Ask(context.Background(), "jam buka dan alamat?", 0, -1)
	require.NoError(t, err)
	require.NotNil(t, generator.lastReq)
	require.Contains(t, generator.lastReq.Prompt, "#1 [faq-jam] Toko buka 09:00-17:00.")
	require.Contains(t, generator.lastReq.Prompt, "#2 [faq-alamat] Alamat: Jl. Mawar 1.")
	require.Contains(t, generator.lastReq.Prompt, "jam buka dan alamat?")
	require.Contains(t, generator.lastReq.System, "COVAPOSH")
	require.Equal(t, float32(0.2), generator.lastReq.Temperature)
}

func TestAsk_CacheHitSkipsPipeline(t *testing.T) {
	store := &fakeStore{
		vectorMatches: []model.Match{{Source: "faq", Text: "x", Score: 0.9}},
	}
	embedder := &fakeEmbedder{}
	svc := newTestAskService(embedder, &fakeGenerator{reply: "ok"}, store)

	_, err := svc.Ask(context.Background(), "jam buka?", 0, -1)
	require.NoError(t, err)
	_, err = svc.Ask(context.Background(), "jam buka?", 0, -1)
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls)
	require.Equal(t, 1, store.queryCalls)
}

func TestExtractKeywords(t *testing.T) {
	svc := newTestAskService(&fakeEmbedder{}, &fakeGenerator{}, &fakeStore{})

	require.Equal(t, []string{"harga", "buket", "mawar"},
		svc.ExtractKeywords("Berapa harga buket mawar yang itu?"))
	// duplicates collapse, punctuation splits tokens
	require.Equal(t, []string{"buket", "mawar"},
		svc.ExtractKeywords("buket, buket mawar!"))
	// stop-words only leaves nothing
	require.Empty(t, svc.ExtractKeywords("yang itu apa ya"))
	// at most the configured token count survives
	require.Len(t, svc.ExtractKeywords("satu dua tiga empat lima enam tujuh"), 5)
}
