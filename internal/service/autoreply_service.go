package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/covaposh/faqbot/internal/ai"
	"github.com/covaposh/faqbot/internal/model"
	"github.com/covaposh/faqbot/internal/whatsapp"
)

const autoReplyTemperature = 0.6

// autoReplyPrompt asks for a short holding message; it is deliberately not
// context-grounded, this is operational chatter and not a catalog answer.
const autoReplyPrompt = `Kamu asisten ramah untuk toko COVAPOSH. Buat 1 pesan singkat ramah: admin sedang sibuk, akan balas sebentar lagi, sertakan link katalog: %s`

// ConversationStore is the persistence contract of the auto-reply sweep.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, phone string) (int64, error)
	Phone(ctx context.Context, convID int64) (string, error)
	AddMessage(ctx context.Context, convID int64, fromAdmin bool, body, waMessageID string) error
	HasAdminReplySince(ctx context.Context, convID int64, since int64) (bool, error)
	SchedulePending(ctx context.Context, convID int64, reason string, sendAfter int64) error
	ListDuePending(ctx context.Context, now int64, limit uint) ([]model.PendingReply, error)
	MarkSent(ctx context.Context, id int64) error
}

// AutoReplyService drains the pending auto-reply queue: when the admin has
// not answered a conversation within the configured window, the customer
// gets a short holding message. This is messaging-channel plumbing around
// the Q&A core; the core never calls into it.
type AutoReplyService struct {
	store      ConversationStore
	generator  ai.IGenerator
	sender     whatsapp.Sender
	catalogURL string
	timeout    time.Duration
}

func NewAutoReplyService(store ConversationStore, generator ai.IGenerator, sender whatsapp.Sender, catalogURL string, timeoutSeconds int) *AutoReplyService {
	return &AutoReplyService{
		store:      store,
		generator:  generator,
		sender:     sender,
		catalogURL: catalogURL,
		timeout:    time.Duration(timeoutSeconds) * time.Second,
	}
}

func (s *AutoReplyService) defaultReply() string {
	reply := "Hai, terima kasih sudah menghubungi COVAPOSH. Admin sedang sibuk, kami akan balas secepatnya."
	if s.catalogURL != "" {
		reply += " Sementara itu cek katalog: " + s.catalogURL
	}
	return reply
}

// ProcessPending handles all due pending replies and returns how many were
// actually sent. Send failures leave the row unsent for the next sweep.
func (s *AutoReplyService) ProcessPending(ctx context.Context) (int, error) {
	logger := logutil.GetLogger(ctx)
	now := time.Now().UnixMilli()
	rows, err := s.store.ListDuePending(ctx, now, 50)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, row := range rows {
		replied, err := s.store.HasAdminReplySince(ctx, row.ConversationID, row.Ctime)
		if err != nil {
			logger.Error("failed to check admin reply", zap.Int64("pending_id", row.ID), zap.Error(err))
			continue
		}
		if replied {
			// admin got there first, nothing to do
			if err := s.store.MarkSent(ctx, row.ID); err != nil {
				logger.Error("failed to mark pending reply", zap.Int64("pending_id", row.ID), zap.Error(err))
			}
			continue
		}
		phone, err := s.store.Phone(ctx, row.ConversationID)
		if err != nil {
			logger.Warn("conversation lookup failed, dropping pending reply",
				zap.Int64("pending_id", row.ID), zap.Error(err))
			_ = s.store.MarkSent(ctx, row.ID)
			continue
		}

		replyText := s.buildReply(ctx)
		if err := s.sender.SendText(ctx, phone, replyText); err != nil {
			// leave the row for retry on the next sweep
			logger.Error("failed to send auto reply", zap.Int64("pending_id", row.ID), zap.Error(err))
			continue
		}
		if err := s.store.AddMessage(ctx, row.ConversationID, true, replyText, ""); err != nil {
			logger.Error("failed to record auto reply", zap.Int64("pending_id", row.ID), zap.Error(err))
		}
		if err := s.store.MarkSent(ctx, row.ID); err != nil {
			logger.Error("failed to mark pending reply", zap.Int64("pending_id", row.ID), zap.Error(err))
		}
		processed++
	}
	return processed, nil
}

func (s *AutoReplyService) buildReply(ctx context.Context) string {
	reply := s.defaultReply()
	if s.generator == nil {
		return reply
	}
	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	generated, err := s.generator.Generate(genCtx, &ai.GenerateRequest{
		System:      fmt.Sprintf(autoReplyPrompt, s.catalogURL),
		Prompt:      "Tulis pesannya sekarang.",
		Temperature: autoReplyTemperature,
	})
	if err != nil {
		logutil.GetLogger(ctx).Warn("auto reply generation failed, using template", zap.Error(err))
		return reply
	}
	if generated = strings.TrimSpace(generated); generated != "" {
		return generated
	}
	return reply
}
