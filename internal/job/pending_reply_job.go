package job

import (
	"context"

	"github.com/covaposh/faqbot/internal/service"
)

// PendingReplyJob periodically drains the pending auto-reply queue. The
// sweep lives outside the Q&A core: it only consumes the generation
// capability for a templated holding message.
type PendingReplyJob struct {
	autoReply *service.AutoReplyService
}

func NewPendingReplyJob(autoReply *service.AutoReplyService) *PendingReplyJob {
	return &PendingReplyJob{autoReply: autoReply}
}

func (j *PendingReplyJob) Name() string {
	return "pending_auto_reply"
}

func (j *PendingReplyJob) Run(ctx context.Context) error {
	if j.autoReply == nil {
		return nil
	}
	_, err := j.autoReply.ProcessPending(ctx)
	return err
}
