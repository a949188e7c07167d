package model

type Conversation struct {
	ID    int64
	Phone string
	Ctime int64
}

type Message struct {
	ID                int64
	ConversationID    int64
	FromAdmin         bool
	Body              string
	WhatsappMessageID string
	Ctime             int64
}

type PendingReply struct {
	ID             int64
	ConversationID int64
	Reason         string
	SendAfter      int64
	Sent           bool
	Ctime          int64
}
