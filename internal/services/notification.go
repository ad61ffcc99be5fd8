package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketplace-system/internal/entities"
	"marketplace-system/internal/repositories"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/types"
	"marketplace-system/pkg/utils"
	"marketplace-system/pkg/websocket"
)

// Шаблон агрегированного текста: "Có 3 заявки на поставку." и т.п.
// Формат фиксирован контрактом фронтенда, не менять.
const aggregatedMessageTemplate = "Có %d %s."

const notificationEventName = "notification"

// PushDeliveryInterface - канал доставки push-сообщений (websocket-хаб).
// Доставка best-effort: отсутствие подключенных получателей не ошибка.
type PushDeliveryInterface interface {
	SendToUser(userID uint64, eventName string, payload interface{}) error
	SendToRole(roleGroup string, eventName string, payload interface{}) error
	Broadcast(eventName string, payload interface{}) error
}

// NotificationServiceInterface - агрегирующий центр уведомлений.
// Любое доменное событие проходит через Notify*: сначала слияние в
// хранилище (гарантированно), затем push подключенным клиентам.
type NotificationServiceInterface interface {
	// NotifySystem - уведомление для ролей ("Admin", "Admin,Customer")
	// либо для всех (entities.RolesAllSentinel).
	NotifySystem(ctx context.Context, targetRoles string, action entities.NotificationAction, dataKey, title, message string) error
	// NotifyUser - персональное уведомление конкретному получателю.
	NotifyUser(ctx context.Context, userID uint64, action entities.NotificationAction, dataKey, title, message string) error
	List(ctx context.Context, userID uint64, roles []string, filter types.Filter) ([]entities.Notification, uint64, error)
	UnreadCount(ctx context.Context, userID uint64, roles []string) (uint64, error)
	MarkRead(ctx context.Context, id, userID uint64, roles []string) error
	MarkAllRead(ctx context.Context, userID uint64, roles []string) (int64, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepositoryInterface
	push             PushDeliveryInterface
	logger           *zap.Logger
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepositoryInterface,
	push PushDeliveryInterface,
	logger *zap.Logger,
) NotificationServiceInterface {
	return &notificationService{
		notificationRepo: notificationRepo,
		push:             push,
		logger:           logger.Named("notification_service"),
	}
}

func (s *notificationService) NotifySystem(ctx context.Context, targetRoles string, action entities.NotificationAction, dataKey, title, message string) error {
	// Пустой адресат - молча пропускаем событие, основной сценарий не страдает.
	if strings.TrimSpace(targetRoles) == "" {
		s.logger.Warn("Системное уведомление без адресата пропущено", zap.String("dataKey", dataKey))
		return nil
	}
	notification := &entities.Notification{
		Type:        entities.NotificationTypeSystem,
		TargetRoles: targetRoles,
		DataKey:     dataKey,
		Title:       title,
		Message:     message,
		Action:      action,
	}
	return s.deliver(ctx, notification)
}

func (s *notificationService) NotifyUser(ctx context.Context, userID uint64, action entities.NotificationAction, dataKey, title, message string) error {
	if userID == 0 {
		s.logger.Warn("Персональное уведомление без получателя пропущено", zap.String("dataKey", dataKey))
		return nil
	}
	notification := &entities.Notification{
		Type:         entities.NotificationTypePersonal,
		TargetUserID: &userID,
		DataKey:      dataKey,
		Title:        title,
		Message:      message,
		Action:       action,
	}
	return s.deliver(ctx, notification)
}

// deliver сливает событие с непрочитанным уведомлением той же темы
// и рассылает итоговую строку. Счетчик наращивают только события Apply;
// остальные действия затирают тему (Accept/Reject/Paid закрывают вопрос).
func (s *notificationService) deliver(ctx context.Context, notification *entities.Notification) error {
	increment := notification.Action == entities.NotificationActionApply

	merged, err := s.notificationRepo.UpsertUnread(ctx, notification, increment)
	if err != nil {
		return fmt.Errorf("ошибка сохранения уведомления: %w", err)
	}

	// При слиянии текст становится агрегированным: "Có {N} {заголовок}.".
	if merged.PendingCount > 1 {
		merged.Message = fmt.Sprintf(aggregatedMessageTemplate, merged.PendingCount, strings.ToLower(merged.Title))
		if err := s.notificationRepo.UpdateMessage(ctx, merged.ID, merged.Message); err != nil {
			s.logger.Error("Не удалось обновить агрегированный текст", zap.Uint64("id", merged.ID), zap.Error(err))
		}
	}

	s.pushOut(merged)
	return nil
}

// pushOut рассылает уведомление подключенным клиентам. Ошибки доставки
// только логируются: запись в хранилище уже состоялась.
func (s *notificationService) pushOut(n *entities.Notification) {
	payload := websocket.NotificationPayload{
		ID:           n.ID,
		Type:         string(n.Type),
		DataKey:      n.DataKey,
		Action:       string(n.Action),
		Title:        n.Title,
		Message:      n.Message,
		IsRead:       n.IsRead,
		PendingCount: n.PendingCount,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}

	var err error
	switch {
	case n.TargetUserID != nil:
		err = s.push.SendToUser(*n.TargetUserID, notificationEventName, payload)
	default:
		audience := entities.ParseAudience(n.TargetRoles)
		if audience.Broadcast {
			err = s.push.Broadcast(notificationEventName, payload)
			break
		}
		for _, role := range audience.Roles {
			if sendErr := s.push.SendToRole(role, notificationEventName, payload); sendErr != nil {
				err = sendErr
			}
		}
	}
	if err != nil {
		s.logger.Error("Ошибка push-доставки уведомления", zap.Uint64("id", n.ID), zap.Error(err))
	}
}

func (s *notificationService) List(ctx context.Context, userID uint64, roles []string, filter types.Filter) ([]entities.Notification, uint64, error) {
	return s.notificationRepo.List(ctx, userID, roles, filter)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint64, roles []string) (uint64, error) {
	return s.notificationRepo.UnreadCount(ctx, userID, roles)
}

// MarkRead помечает уведомление прочитанным. Чужое уведомление пометить
// нельзя; повторная пометка своего - no-op без ошибки.
func (s *notificationService) MarkRead(ctx context.Context, id, userID uint64, roles []string) error {
	notification, err := s.notificationRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.canAccess(notification, userID, roles) {
		return apperrors.ErrForbidden
	}
	if notification.IsRead {
		return nil
	}
	return s.notificationRepo.MarkRead(ctx, id)
}

func (s *notificationService) canAccess(n *entities.Notification, userID uint64, roles []string) bool {
	if n.TargetUserID != nil {
		return *n.TargetUserID == userID
	}
	audience := entities.ParseAudience(n.TargetRoles)
	if audience.Broadcast {
		return true
	}
	for _, role := range audience.Roles {
		if utils.RolesContain(roles, role) {
			return true
		}
	}
	return false
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint64, roles []string) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID, roles)
}
