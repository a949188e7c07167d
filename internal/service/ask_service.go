package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/covaposh/faqbot/internal/ai"
	"github.com/covaposh/faqbot/internal/config"
	"github.com/covaposh/faqbot/internal/model"
	apperr "github.com/covaposh/faqbot/internal/pkg/errors"
)

const (
	minTopK      = 1
	maxTopK      = 10
	maxThreshold = 0.99

	answerTemperature = 0.2
)

// systemPrompt constrains generation to the retrieved context only.
const systemPrompt = `Kamu adalah asisten toko buket COVAPOSH. Jawab singkat, jelas, sopan.
Jawab HANYA berdasarkan KONTEKS yang diberikan. Kalau jawab berdasarkan konteks, sebutkan info penting (alamat/jam/produk/harga).
Jika pertanyaan tidak tercakup oleh KONTEKS, jawab jujur bahwa kamu hanya bisa menjawab seputar COVAPOSH, dan arahkan ke WhatsApp.`

// noContextReply is the fixed answer when retrieval found nothing. It is a
// designed response, not an error path: generating from empty context
// invites hallucination.
const noContextReply = "Maaf, aku belum menemukan info itu di katalog. Silakan hubungi admin lewat WhatsApp ya."

// ChunkStore is the narrow store contract the Q&A pipeline needs.
type ChunkStore interface {
	Insert(ctx context.Context, chunks []*model.Chunk) (int, error)
	Query(ctx context.Context, embedding []float32, topK int, threshold float64) ([]model.Match, error)
	SearchKeywords(ctx context.Context, keywords []string, score float64, limit int) ([]model.Match, error)
}

type AskService struct {
	embedder  ai.IEmbedder
	generator ai.IGenerator
	store     ChunkStore
	cfg       config.RetrievalConfig
	stopWords map[string]struct{}
	timeout   time.Duration
	cache     *expirable.LRU[string, model.Answer]
}

func NewAskService(embedder ai.IEmbedder, generator ai.IGenerator, store ChunkStore, cfg config.RetrievalConfig, timeoutSeconds int) *AskService {
	stop := make(map[string]struct{}, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &AskService{
		embedder:  embedder,
		generator: generator,
		store:     store,
		cfg:       cfg,
		stopWords: stop,
		timeout:   time.Duration(timeoutSeconds) * time.Second,
		cache:     expirable.NewLRU[string, model.Answer](1024, nil, 10*time.Minute),
	}
}

// Ask runs the full query path: embed, retrieve (hybrid), compose. topK<=0
// and threshold<0 select the configured defaults; both are clamped.
func (s *AskService) Ask(ctx context.Context, question string, topK int, threshold float64) (*model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperr.AtStage("validate", apperr.ErrEmptyInput)
	}
	topK = s.clampTopK(topK)
	threshold = s.clampThreshold(threshold)

	cacheKey := s.cacheKey(question, topK, threshold)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return &cached, nil
	}

	matches, err := s.Retrieve(ctx, question, topK, threshold)
	if err != nil {
		return nil, err
	}
	answer, err := s.compose(ctx, question, matches)
	if err != nil {
		return nil, err
	}
	s.cache.Add(cacheKey, *answer)
	return answer, nil
}

// Retrieve embeds the question and queries the vector store; when vector
// retrieval comes back empty or weak it supplements the result with
// keyword hits. Vector-ranked matches always come first, keyword hits are
// appended, and duplicates (same chunk text) keep their first occurrence.
func (s *AskService) Retrieve(ctx context.Context, question string, topK int, threshold float64) ([]model.Match, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("question", question))

	embedCtx, cancel := s.callContext(ctx)
	vectors, err := s.embedder.Embed(embedCtx, []string{question})
	cancel()
	if err != nil {
		logger.Error("failed to embed question", zap.Error(err))
		return nil, apperr.AtStage("embed", mapEmbedErr(err))
	}

	matches, err := s.store.Query(ctx, vectors[0], topK, threshold)
	if err != nil {
		logger.Error("vector query failed", zap.Error(err))
		return nil, apperr.AtStage("retrieve", err)
	}

	bestScore := 0.0
	for _, m := range matches {
		if m.Score > bestScore {
			bestScore = m.Score
		}
	}
	if len(matches) > 0 && bestScore >= s.cfg.FallbackActivation {
		return matches, nil
	}

	keywords := s.ExtractKeywords(question)
	logger.Debug("vector retrieval weak, trying keyword fallback",
		zap.Float64("best_score", bestScore),
		zap.Strings("keywords", keywords),
	)
	if len(keywords) == 0 {
		return matches, nil
	}
	limit := topK
	if s.cfg.MinHybridResults > limit {
		limit = s.cfg.MinHybridResults
	}
	keywordMatches, err := s.store.SearchKeywords(ctx, keywords, s.cfg.KeywordScore, limit)
	if err != nil {
		logger.Error("keyword query failed", zap.Error(err))
		return nil, apperr.AtStage("retrieve", err)
	}
	merged := dedupeMatches(append(matches, keywordMatches...))
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// compose builds the context-grounded prompt and invokes generation. An
// empty match list short-circuits to the fixed reply without a generation
// call.
func (s *AskService) compose(ctx context.Context, question string, matches []model.Match) (*model.Answer, error) {
	references := make([]model.Reference, 0, len(matches))
	for _, m := range matches {
		references = append(references, model.Reference{Source: m.Source, Score: m.Score})
	}
	if len(matches) == 0 {
		return &model.Answer{Text: noContextReply, References: references}, nil
	}
	if s.generator == nil {
		return nil, apperr.AtStage("generate", apperr.ErrGenerationUnavailable)
	}

	var sb strings.Builder
	sb.WriteString("KONTEKS:\n")
	for i, m := range matches {
		fmt.Fprintf(&sb, "#%d [%s] %s\n", i+1, m.Source, m.Text)
	}
	sb.WriteString("\nPERTANYAAN:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nJAWAB:")

	genCtx, cancel := s.callContext(ctx)
	defer cancel()
	text, err := s.generator.Generate(genCtx, &ai.GenerateRequest{
		System:      systemPrompt,
		Prompt:      sb.String(),
		Temperature: answerTemperature,
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("generation failed", zap.Error(err))
		return nil, apperr.AtStage("generate", fmt.Errorf("%w: %v", apperr.ErrGenerationUnavailable, err))
	}
	if strings.TrimSpace(text) == "" {
		text = noContextReply
	}
	return &model.Answer{Text: text, References: references}, nil
}

// ExtractKeywords lowercases the question, strips punctuation, drops
// stop-words and duplicates, and keeps at most the configured number of
// tokens.
func (s *AskService) ExtractKeywords(question string) []string {
	var sb strings.Builder
	for _, r := range strings.ToLower(question) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}
	seen := make(map[string]struct{})
	var keywords []string
	for _, token := range strings.Fields(sb.String()) {
		if _, stop := s.stopWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
		if len(keywords) >= s.cfg.KeywordLimit {
			break
		}
	}
	return keywords
}

func (s *AskService) clampTopK(topK int) int {
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if topK < minTopK {
		topK = minTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	return topK
}

func (s *AskService) clampThreshold(threshold float64) float64 {
	if threshold < 0 {
		threshold = s.cfg.Threshold
	}
	if threshold < 0 {
		threshold = 0
	}
	if threshold > maxThreshold {
		threshold = maxThreshold
	}
	return threshold
}

func (s *AskService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *AskService) cacheKey(question string, topK int, threshold float64) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%.4f", question, topK, threshold)))
	return hex.EncodeToString(hash[:])
}

func dedupeMatches(matches []model.Match) []model.Match {
	seen := make(map[string]struct{}, len(matches))
	result := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.Text]; ok {
			continue
		}
		seen[m.Text] = struct{}{}
		result = append(result, m)
	}
	return result
}

func mapEmbedErr(err error) error {
	if errors.Is(err, ai.ErrCountMismatch) {
		return fmt.Errorf("%w: %v", apperr.ErrEmbeddingCountMismatch, err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrEmbeddingUnavailable, err)
}
