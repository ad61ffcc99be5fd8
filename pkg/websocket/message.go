package websocket

import "time"

// Envelope — "конверт", в котором уходят push-сообщения.
// Поле Event позволяет фронтенду понять, как реагировать
// ("created" / "updated" / "paid").
type Envelope struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NotificationPayload — DTO уведомления из "колокольчика".
type NotificationPayload struct {
	ID           uint64    `json:"id"`
	Type         string    `json:"type"`
	DataKey      string    `json:"dataKey"`
	Action       string    `json:"action"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	IsRead       bool      `json:"isRead"`
	PendingCount int       `json:"pendingCount"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PaymentStatusPayload — событие об изменении статуса оплаты комиссии.
type PaymentStatusPayload struct {
	RequestID     uint64 `json:"requestId"`
	ApplicationID uint64 `json:"applicationId"`
	Status        string `json:"status"`
}
