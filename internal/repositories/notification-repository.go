package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace-system/internal/entities"
	db "marketplace-system/internal/infrastructure/db"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/types"
)

type dbNotification struct {
	ID           uint64
	Type         string
	TargetUserID sql.NullInt64
	TargetRoles  sql.NullString
	DataKey      string
	Title        string
	Message      string
	Action       string
	IsRead       bool
	PendingCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (row *dbNotification) toEntity() *entities.Notification {
	n := &entities.Notification{
		ID:           row.ID,
		Type:         entities.NotificationType(row.Type),
		TargetRoles:  row.TargetRoles.String,
		DataKey:      row.DataKey,
		Title:        row.Title,
		Message:      row.Message,
		Action:       entities.NotificationAction(row.Action),
		IsRead:       row.IsRead,
		PendingCount: row.PendingCount,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.TargetUserID.Valid {
		target := uint64(row.TargetUserID.Int64)
		n.TargetUserID = &target
	}
	return n
}

const (
	notificationTable  = "notifications"
	notificationFields = "id, type, target_user_id, target_roles, data_key, title, message, action, is_read, pending_count, created_at, updated_at"
)

// Колонки, разрешенные для сортировки/фильтрации списка уведомлений.
var notificationFilterMap = map[string]string{
	"type":       "type",
	"action":     "action",
	"is_read":    "is_read",
	"data_key":   "data_key",
	"created_at": "created_at",
}

type NotificationRepositoryInterface interface {
	// UpsertUnread атомарно сливает событие с существующим непрочитанным
	// уведомлением той же темы (и получателя - для Personal) либо создает
	// новую строку. increment=true наращивает pending_count, иначе счетчик
	// сбрасывается в ноль. Возвращает строку после слияния.
	UpsertUnread(ctx context.Context, n *entities.Notification, increment bool) (*entities.Notification, error)
	UpdateMessage(ctx context.Context, id uint64, message string) error
	FindByID(ctx context.Context, id uint64) (*entities.Notification, error)
	MarkRead(ctx context.Context, id uint64) error
	MarkAllRead(ctx context.Context, userID uint64, roles []string) (int64, error)
	List(ctx context.Context, userID uint64, roles []string, filter types.Filter) ([]entities.Notification, uint64, error)
	UnreadCount(ctx context.Context, userID uint64, roles []string) (uint64, error)
}

type notificationRepository struct {
	storage *pgxpool.Pool
}

func NewNotificationRepository(storage *pgxpool.Pool) NotificationRepositoryInterface {
	return &notificationRepository{storage: storage}
}

// Условие соответствия ролей: хранимая строка "Admin, Customer" или сентинел "all".
// Плейсхолдер списка ролей подставляется форматированием ($N) либо остается
// вопросительным знаком для squirrel.
const roleMatchCondition = `(lower(trim(target_roles)) = 'all' OR EXISTS (
	SELECT 1 FROM unnest(string_to_array(target_roles, ',')) AS r
	WHERE lower(trim(r)) = ANY(%s)
))`

func lowerRoles(roles []string) []string {
	lowered := make([]string, 0, len(roles))
	for _, role := range roles {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(role)))
	}
	return lowered
}

func (r *notificationRepository) UpsertUnread(ctx context.Context, n *entities.Notification, increment bool) (*entities.Notification, error) {
	// Частичный уникальный индекс на (type, data_key, COALESCE(target_user_id,0))
	// WHERE is_read = false превращает "прочитай-потом-запиши" в один
	// атомарный UPSERT: конкурентные события одной темы не теряют счетчик.
	query := fmt.Sprintf(`
		INSERT INTO %s (type, target_user_id, target_roles, data_key, title, message, action, is_read, pending_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, 1)
		ON CONFLICT (type, data_key, COALESCE(target_user_id, 0)) WHERE is_read = false
		DO UPDATE SET
			pending_count = CASE WHEN $8 THEN %s.pending_count + 1 ELSE 0 END,
			title      = EXCLUDED.title,
			message    = EXCLUDED.message,
			action     = EXCLUDED.action,
			updated_at = NOW()
		RETURNING %s`, notificationTable, notificationTable, notificationFields)

	var targetUserID interface{}
	if n.TargetUserID != nil {
		targetUserID = *n.TargetUserID
	}

	var dbRow dbNotification
	err := r.storage.QueryRow(ctx, query,
		string(n.Type), targetUserID, n.TargetRoles, n.DataKey, n.Title, n.Message, string(n.Action), increment,
	).Scan(&dbRow.ID, &dbRow.Type, &dbRow.TargetUserID, &dbRow.TargetRoles, &dbRow.DataKey, &dbRow.Title,
		&dbRow.Message, &dbRow.Action, &dbRow.IsRead, &dbRow.PendingCount, &dbRow.CreatedAt, &dbRow.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return dbRow.toEntity(), nil
}

func (r *notificationRepository) UpdateMessage(ctx context.Context, id uint64, message string) error {
	query := fmt.Sprintf("UPDATE %s SET message = $1, updated_at = NOW() WHERE id = $2", notificationTable)
	_, err := r.storage.Exec(ctx, query, message, id)
	return err
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint64) (*entities.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", notificationFields, notificationTable)
	var dbRow dbNotification
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&dbRow.ID, &dbRow.Type, &dbRow.TargetUserID, &dbRow.TargetRoles, &dbRow.DataKey, &dbRow.Title,
		&dbRow.Message, &dbRow.Action, &dbRow.IsRead, &dbRow.PendingCount, &dbRow.CreatedAt, &dbRow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return dbRow.toEntity(), nil
}

// MarkRead идемпотентен: повторная пометка уже прочитанного не ошибка.
func (r *notificationRepository) MarkRead(ctx context.Context, id uint64) error {
	query := fmt.Sprintf("UPDATE %s SET is_read = true, pending_count = 0, updated_at = NOW() WHERE id = $1", notificationTable)
	result, err := r.storage.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkAllRead помечает прочитанными все непрочитанные уведомления пользователя:
// и персональные, и системные по любой из его ролей. Одна команда - один
// логический юнит с точки зрения вызывающего.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint64, roles []string) (int64, error) {
	query := fmt.Sprintf(`UPDATE `+notificationTable+` SET is_read = true, pending_count = 0, updated_at = NOW()
		WHERE is_read = false AND (
			target_user_id = $1
			OR (type = $2 AND `+roleMatchCondition+`)
		)`, "$3")

	result, err := r.storage.Exec(ctx, query, userID, string(entities.NotificationTypeSystem), lowerRoles(roles))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *notificationRepository) List(ctx context.Context, userID uint64, roles []string, filter types.Filter) ([]entities.Notification, uint64, error) {
	audienceCond := fmt.Sprintf(`(target_user_id = ? OR (type = ? AND `+roleMatchCondition+`))`, "?")

	base := sq.Select(notificationFields).
		From(notificationTable).
		Where(sq.Expr(audienceCond, userID, string(entities.NotificationTypeSystem), lowerRoles(roles))).
		PlaceholderFormat(sq.Dollar)

	countBuilder := sq.Select("COUNT(*)").
		From(notificationTable).
		Where(sq.Expr(audienceCond, userID, string(entities.NotificationTypeSystem), lowerRoles(roles))).
		PlaceholderFormat(sq.Dollar)

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Notification{}, 0, nil
	}

	base = db.ApplyListParams(base, filter, notificationFilterMap)
	if len(filter.Sort) == 0 {
		base = base.OrderBy("created_at DESC")
	}

	query, args, err := base.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := make([]entities.Notification, 0)
	for rows.Next() {
		var dbRow dbNotification
		if err := rows.Scan(&dbRow.ID, &dbRow.Type, &dbRow.TargetUserID, &dbRow.TargetRoles, &dbRow.DataKey,
			&dbRow.Title, &dbRow.Message, &dbRow.Action, &dbRow.IsRead, &dbRow.PendingCount,
			&dbRow.CreatedAt, &dbRow.UpdatedAt); err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, *dbRow.toEntity())
	}
	return notifications, total, rows.Err()
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint64, roles []string) (uint64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM `+notificationTable+`
		WHERE is_read = false AND (
			target_user_id = $1
			OR (type = $2 AND `+roleMatchCondition+`)
		)`, "$3")

	var count uint64
	if err := r.storage.QueryRow(ctx, query, userID, string(entities.NotificationTypeSystem), lowerRoles(roles)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
