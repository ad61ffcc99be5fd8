package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-system/internal/entities"
	apperrors "marketplace-system/pkg/errors"
)

func newNotificationFixture() (*fakeNotificationRepo, *fakePush, NotificationServiceInterface) {
	repo := newFakeNotificationRepo()
	push := &fakePush{}
	svc := NewNotificationService(repo, push, testLogger())
	return repo, push, svc
}

func TestNotifySystem_MergesRepeatedApplies(t *testing.T) {
	repo, push, svc := newNotificationFixture()
	ctx := context.Background()

	err := svc.NotifySystem(ctx, entities.RoleAdmin, entities.NotificationActionApply,
		"request:service:1:applications", "Đơn đăng ký mới", "Đơn đăng ký mới")
	require.NoError(t, err)

	err = svc.NotifySystem(ctx, entities.RoleAdmin, entities.NotificationActionApply,
		"request:service:1:applications", "Đơn đăng ký mới", "Đơn đăng ký mới")
	require.NoError(t, err)

	// Два события по одной теме слились в одну непрочитанную строку.
	require.Len(t, repo.rows, 1)
	merged := repo.rows[0]
	assert.Equal(t, 2, merged.PendingCount)
	assert.False(t, merged.IsRead)
	assert.Equal(t, "Có 2 đơn đăng ký mới.", merged.Message)

	// Оба события дошли до подключенных клиентов роли.
	require.Len(t, push.messages, 2)
	assert.Equal(t, "role", push.messages[0].Target)
	assert.Equal(t, entities.RoleAdmin, push.messages[0].Role)
}

func TestNotifySystem_ReadTopicStartsNewRow(t *testing.T) {
	repo, _, svc := newNotificationFixture()
	ctx := context.Background()

	require.NoError(t, svc.NotifySystem(ctx, entities.RoleAdmin, entities.NotificationActionApply,
		"request:service:7:applications", "Đơn đăng ký mới", "Đơn đăng ký mới"))
	require.NoError(t, svc.NotifySystem(ctx, entities.RoleAdmin, entities.NotificationActionApply,
		"request:service:7:applications", "Đơn đăng ký mới", "Đơn đăng ký mới"))

	require.NoError(t, repo.MarkRead(ctx, repo.rows[0].ID))

	// После прочтения следующее событие той же темы открывает новую строку.
	require.NoError(t, svc.NotifySystem(ctx, entities.RoleAdmin, entities.NotificationActionApply,
		"request:service:7:applications", "Đơn đăng ký mới", "Đơn đăng ký mới"))

	require.Len(t, repo.rows, 2)
	assert.True(t, repo.rows[0].IsRead)
	assert.Equal(t, 1, repo.rows[1].PendingCount)
	assert.False(t, repo.rows[1].IsRead)
	assert.Equal(t, "Đơn đăng ký mới", repo.rows[1].Message)
}

func TestNotifyUser_ResetActionClearsPendingCount(t *testing.T) {
	repo, _, svc := newNotificationFixture()
	ctx := context.Background()
	customerID := uint64(42)

	require.NoError(t, svc.NotifyUser(ctx, customerID, entities.NotificationActionApply,
		"request:service:3:applications", "Đơn đăng ký mới", "Đơn đăng ký mới"))
	require.NoError(t, svc.NotifyUser(ctx, customerID, entities.NotificationActionApply,
		"request:service:3:applications", "Đơn đăng ký mới", "Đơn đăng ký mới"))
	require.Equal(t, 2, repo.rows[0].PendingCount)

	// Accept закрывает вопрос: счетчик обнуляется, строка остается одной.
	require.NoError(t, svc.NotifyUser(ctx, customerID, entities.NotificationActionAccept,
		"request:service:3:applications", "Đơn đăng ký được chọn", "Đơn đăng ký được chọn"))

	require.Len(t, repo.rows, 1)
	assert.Equal(t, 0, repo.rows[0].PendingCount)
	assert.Equal(t, entities.NotificationActionAccept, repo.rows[0].Action)
}

func TestNotifyUser_SeparateRecipientsSeparateRows(t *testing.T) {
	repo, _, svc := newNotificationFixture()
	ctx := context.Background()

	require.NoError(t, svc.NotifyUser(ctx, 1, entities.NotificationActionApply,
		"request:service:5:applications", "Đơn đăng ký mới", "Đơn đăng ký mới"))
	require.NoError(t, svc.NotifyUser(ctx, 2, entities.NotificationActionApply,
		"request:service:5:applications", "Đơn đăng ký mới", "Đơn đăng ký mới"))

	// Одна тема, разные получатели - агрегаты не пересекаются.
	require.Len(t, repo.rows, 2)
	assert.Equal(t, 1, repo.rows[0].PendingCount)
	assert.Equal(t, 1, repo.rows[1].PendingCount)
}

func TestNotifySystem_EmptyAudienceIsSilentNoop(t *testing.T) {
	repo, push, svc := newNotificationFixture()

	err := svc.NotifySystem(context.Background(), "  ", entities.NotificationActionSend,
		"request:service:new", "Yêu cầu mới", "Yêu cầu mới")

	require.NoError(t, err)
	assert.Empty(t, repo.rows)
	assert.Empty(t, push.messages)
}

func TestMarkRead_ForeignNotificationForbidden(t *testing.T) {
	repo, _, svc := newNotificationFixture()
	ctx := context.Background()

	require.NoError(t, svc.NotifyUser(ctx, 10, entities.NotificationActionApply,
		"application:9", "Đơn đăng ký mới", "Đơn đăng ký mới"))
	id := repo.rows[0].ID

	err := svc.MarkRead(ctx, id, 99, []string{entities.RoleCustomer})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// Владелец помечает; повторная пометка - no-op без ошибки.
	require.NoError(t, svc.MarkRead(ctx, id, 10, []string{entities.RoleCustomer}))
	require.NoError(t, svc.MarkRead(ctx, id, 10, []string{entities.RoleCustomer}))
	assert.True(t, repo.rows[0].IsRead)
}

func TestMarkRead_SystemByRoleMembership(t *testing.T) {
	repo, _, svc := newNotificationFixture()
	ctx := context.Background()

	require.NoError(t, svc.NotifySystem(ctx, entities.RoleAdmin, entities.NotificationActionApply,
		"request:service:2:applications", "Đơn đăng ký mới", "Đơn đăng ký mới"))
	id := repo.rows[0].ID

	err := svc.MarkRead(ctx, id, 5, []string{entities.RoleContractor})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, svc.MarkRead(ctx, id, 5, []string{entities.RoleAdmin}))
	assert.True(t, repo.rows[0].IsRead)
}
