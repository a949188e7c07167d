package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/covaposh/faqbot/internal/model"
	"github.com/covaposh/faqbot/internal/pkg/dbutil"
)

// ConversationRepo backs the messaging-channel plumbing: one conversation
// per phone number, an append-only message log and the pending auto-reply
// queue the sweep job drains.
type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) GetOrCreate(ctx context.Context, phone string) (int64, error) {
	id, err := r.findByPhone(ctx, phone)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	data := map[string]interface{}{
		"phone": phone,
		"ctime": time.Now().UnixMilli(),
	}
	sqlStr, args, err := builder.BuildInsert("conversations", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		// a concurrent webhook delivery may have created it first
		if dbutil.IsConflict(err) {
			return r.findByPhone(ctx, phone)
		}
		return 0, err
	}
	return r.findByPhone(ctx, phone)
}

func (r *ConversationRepo) findByPhone(ctx context.Context, phone string) (int64, error) {
	where := map[string]interface{}{"phone": phone}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"id"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var id int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *ConversationRepo) Phone(ctx context.Context, convID int64) (string, error) {
	where := map[string]interface{}{"id": convID}
	sqlStr, args, err := builder.BuildSelect("conversations", where, []string{"phone"})
	if err != nil {
		return "", err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var phone string
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&phone); err != nil {
		return "", err
	}
	return phone, nil
}

func (r *ConversationRepo) AddMessage(ctx context.Context, convID int64, fromAdmin bool, body, waMessageID string) error {
	data := map[string]interface{}{
		"conversation_id":     convID,
		"from_admin":          fromAdmin,
		"body":                body,
		"whatsapp_message_id": waMessageID,
		"ctime":               time.Now().UnixMilli(),
	}
	sqlStr, args, err := builder.BuildInsert("messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ConversationRepo) HasAdminReplySince(ctx context.Context, convID int64, since int64) (bool, error) {
	where := map[string]interface{}{
		"conversation_id": convID,
		"from_admin":      true,
		"ctime >=":        since,
		"_limit":          []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("messages", where, []string{"id"})
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var id int64
	switch err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err {
	case nil:
		return true, nil
	case sql.ErrNoRows:
		return false, nil
	default:
		return false, err
	}
}

func (r *ConversationRepo) SchedulePending(ctx context.Context, convID int64, reason string, sendAfter int64) error {
	data := map[string]interface{}{
		"conversation_id": convID,
		"reason":          reason,
		"send_after":      sendAfter,
		"sent":            false,
		"ctime":           time.Now().UnixMilli(),
	}
	sqlStr, args, err := builder.BuildInsert("pending_auto_replies", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ConversationRepo) ListDuePending(ctx context.Context, now int64, limit uint) ([]model.PendingReply, error) {
	where := map[string]interface{}{
		"sent":          false,
		"send_after <=": now,
		"_orderby":      "send_after asc",
		"_limit":        []uint{0, limit},
	}
	sqlStr, args, err := builder.BuildSelect("pending_auto_replies", where,
		[]string{"id", "conversation_id", "reason", "send_after", "sent", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.PendingReply
	for rows.Next() {
		var item model.PendingReply
		if err := rows.Scan(&item.ID, &item.ConversationID, &item.Reason, &item.SendAfter, &item.Sent, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ConversationRepo) MarkSent(ctx context.Context, id int64) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{"sent": true}
	sqlStr, args, err := builder.BuildUpdate("pending_auto_replies", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
