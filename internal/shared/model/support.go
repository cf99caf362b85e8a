package model

// TicketStatus 支持工单状态
type TicketStatus string

const (
	TicketStatusPending TicketStatus = "pending"
	TicketStatusActive  TicketStatus = "active"
	TicketStatusClosed  TicketStatus = "closed"
)

// SupportTicket 支持工单
type SupportTicket struct {
	ID        string       `json:"id"`
	Subject   string       `json:"subject,omitempty"`
	Status    TicketStatus `json:"status"`
	CreatedAt int64        `json:"createdAt,omitempty"`
}

// MessageSender 消息发送方
type MessageSender string

const (
	SenderUser    MessageSender = "user"
	SenderSupport MessageSender = "support"
)

// SupportMessage 支持消息
type SupportMessage struct {
	Sender    MessageSender `json:"sender"`
	Text      string        `json:"text"`
	Timestamp int64         `json:"timestamp"`
}
