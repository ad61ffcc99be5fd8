package entities

import (
	"strings"
	"time"
)

type NotificationType string

const (
	NotificationTypeSystem   NotificationType = "System"
	NotificationTypePersonal NotificationType = "Personal"
)

type NotificationAction string

const (
	NotificationActionApply  NotificationAction = "Apply"
	NotificationActionAccept NotificationAction = "Accept"
	NotificationActionReject NotificationAction = "Reject"
	NotificationActionPaid   NotificationAction = "Paid"
	NotificationActionSend   NotificationAction = "Send"
)

// Сентинел "все роли" в хранимой строке TargetRoles.
const RolesAllSentinel = "all"

// Notification - агрегированное уведомление.
// Инвариант: на пару (Type, DataKey), а для Personal дополнительно на
// получателя, существует не более одного НЕПРОЧИТАННОГО уведомления.
// Пока оно не прочитано, повторные события сливаются в него через
// PendingCount; после прочтения следующее событие создает новую строку.
type Notification struct {
	ID           uint64             `json:"id"`
	Type         NotificationType   `json:"type"`
	TargetUserID *uint64            `json:"targetUserId,omitempty"`
	TargetRoles  string             `json:"targetRoles,omitempty"`
	DataKey      string             `json:"dataKey"`
	Title        string             `json:"title"`
	Message      string             `json:"message"`
	Action       NotificationAction `json:"action"`
	IsRead       bool               `json:"isRead"`
	PendingCount int                `json:"pendingCount"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Audience - разобранный адресат системного уведомления:
// либо широковещательно, либо закрытый список ролей.
type Audience struct {
	Broadcast bool
	Roles     []string
}

// ParseAudience разбирает хранимую строку ролей ("all" либо "Admin,Customer").
func ParseAudience(targetRoles string) Audience {
	if strings.EqualFold(strings.TrimSpace(targetRoles), RolesAllSentinel) {
		return Audience{Broadcast: true}
	}
	parts := strings.Split(targetRoles, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			roles = append(roles, p)
		}
	}
	return Audience{Roles: roles}
}
