package dto

type NotificationDTO struct {
	ID           uint64  `json:"id"`
	Type         string  `json:"type"`
	TargetUserID *uint64 `json:"targetUserId,omitempty"`
	TargetRoles  string  `json:"targetRoles,omitempty"`
	DataKey      string  `json:"dataKey"`
	Title        string  `json:"title"`
	Message      string  `json:"message"`
	Action       string  `json:"action"`
	IsRead       bool    `json:"isRead"`
	PendingCount int     `json:"pendingCount"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}
