package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	apperrors "marketplace-system/pkg/errors"
)

type applicationFixture struct {
	svc             ApplicationServiceInterface
	serviceRepo     *fakeServiceRequestRepo
	materialRepo    *fakeMaterialRequestRepo
	contractorRepo  *fakeContractorAppRepo
	distributorRepo *fakeDistributorAppRepo
	notifRepo       *fakeNotificationRepo
}

func newApplicationFixture(t *testing.T) *applicationFixture {
	t.Helper()
	f := &applicationFixture{
		serviceRepo:     newFakeServiceRequestRepo(),
		materialRepo:    newFakeMaterialRequestRepo(),
		contractorRepo:  newFakeContractorAppRepo(),
		distributorRepo: newFakeDistributorAppRepo(),
		notifRepo:       newFakeNotificationRepo(),
	}
	notifications := NewNotificationService(f.notifRepo, &fakePush{}, testLogger())
	userRepo := newFakeUserRepo(&entities.User{
		ID: 2, FullName: "Nguyễn Văn B", Phone: "+84901234567", Email: "partner@example.com",
	})
	f.svc = NewApplicationService(f.serviceRepo, f.materialRepo, f.contractorRepo,
		f.distributorRepo, userRepo, notifications, testLogger())
	return f
}

func (f *applicationFixture) seedMaterialRequest(t *testing.T, allowQuantityEdit bool) uint64 {
	t.Helper()
	id, err := f.materialRepo.Create(context.Background(), &entities.MaterialRequest{
		CustomerID:        1,
		Status:            entities.RequestStatusOpening,
		AllowQuantityEdit: allowQuantityEdit,
		Items: []entities.MaterialRequestItem{
			{MaterialID: 100, MaterialName: "Xi măng", Quantity: 3},
			{MaterialID: 200, MaterialName: "Cát", Quantity: 10},
		},
	})
	require.NoError(t, err)
	return id
}

func TestSubmitContractor_CreatesPendingAndNotifies(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	requestID, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)

	app, err := f.svc.SubmitContractor(ctx, 2, requestID, dto.CreateContractorApplicationDTO{
		Description:   "Sửa chữa trọn gói",
		EstimatePrice: 50_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.ApplicationStatusPending, app.Status)
	assert.NotZero(t, app.ID)

	// Две копии: администраторам с контактами, владельцу без.
	require.Len(t, f.notifRepo.rows, 2)
	admin, owner := f.notifRepo.rows[0], f.notifRepo.rows[1]
	assert.Equal(t, entities.NotificationTypeSystem, admin.Type)
	assert.Contains(t, admin.Message, "Nguyễn Văn B")
	assert.Contains(t, admin.Message, "+84901234567")
	assert.Equal(t, entities.NotificationTypePersonal, owner.Type)
	assert.NotContains(t, owner.Message, "+84901234567")
}

func TestSubmitContractor_RequestMustBeOpening(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()

	for _, status := range []entities.RequestStatus{
		entities.RequestStatusDraft, entities.RequestStatusPending, entities.RequestStatusClosed,
	} {
		requestID, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{CustomerID: 1, Status: status})
		require.NoError(t, err)

		_, err = f.svc.SubmitContractor(ctx, 2, requestID, dto.CreateContractorApplicationDTO{
			Description: "Sửa chữa trọn gói", EstimatePrice: 1_000_000,
		})
		assert.ErrorIs(t, err, apperrors.ErrApplicationNotOpen, "статус %s", status)
	}

	_, err := f.svc.SubmitContractor(ctx, 2, 999, dto.CreateContractorApplicationDTO{
		Description: "Sửa chữa trọn gói", EstimatePrice: 1_000_000,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSubmitDistributor_QuantitiesLockedToRequest(t *testing.T) {
	f := newApplicationFixture(t)
	requestID := f.seedMaterialRequest(t, false)

	app, err := f.svc.SubmitDistributor(context.Background(), 2, requestID, dto.CreateDistributorApplicationDTO{
		Items: []dto.DistributorApplicationItemDTO{
			// Поставщик пытается продать 7 вместо запрошенных 3.
			{MaterialID: 100, Quantity: 7, UnitPrice: 90_000},
			// Позиции нет в заявке - количество остается как подано.
			{MaterialID: 999, Quantity: 2, UnitPrice: 50_000},
		},
	})
	require.NoError(t, err)

	require.Len(t, app.Items, 2)
	assert.Equal(t, 3, app.Items[0].Quantity)
	assert.Equal(t, 2, app.Items[1].Quantity)
	// Итог считается после перезаписи: 3*90000 + 2*50000.
	assert.Equal(t, int64(370_000), app.TotalEstimatePrice)
}

func TestSubmitDistributor_QuantitiesKeptWhenEditAllowed(t *testing.T) {
	f := newApplicationFixture(t)
	requestID := f.seedMaterialRequest(t, true)

	app, err := f.svc.SubmitDistributor(context.Background(), 2, requestID, dto.CreateDistributorApplicationDTO{
		Items: []dto.DistributorApplicationItemDTO{
			{MaterialID: 100, Quantity: 7, UnitPrice: 90_000},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, app.Items[0].Quantity)
	assert.Equal(t, int64(630_000), app.TotalEstimatePrice)
}

func TestReject_OnlyFromPendingAndTerminal(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	requestID, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)
	app, err := f.svc.SubmitContractor(ctx, 2, requestID, dto.CreateContractorApplicationDTO{
		Description: "Sửa chữa trọn gói", EstimatePrice: 1_000_000,
	})
	require.NoError(t, err)

	// Посторонний не может отказать.
	err = f.svc.Reject(ctx, entities.RequestKindService, app.ID, 777, false)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, f.svc.Reject(ctx, entities.RequestKindService, app.ID, 1, false))
	rejected, err := f.contractorRepo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ApplicationStatusRejected, rejected.Status)

	// Отказ терминален: повтор отклоняется.
	err = f.svc.Reject(ctx, entities.RequestKindService, app.ID, 1, false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	// Партнер получил персональное уведомление об отказе.
	var rejectNotices int
	for _, row := range f.notifRepo.rows {
		if row.Action == entities.NotificationActionReject {
			rejectNotices++
			require.NotNil(t, row.TargetUserID)
			assert.Equal(t, uint64(2), *row.TargetUserID)
		}
	}
	assert.Equal(t, 1, rejectNotices)
}

func TestDelete_OwnPendingApplicationOnly(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	requestID, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)
	app, err := f.svc.SubmitContractor(ctx, 2, requestID, dto.CreateContractorApplicationDTO{
		Description: "Sửa chữa trọn gói", EstimatePrice: 1_000_000,
	})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, entities.RequestKindService, app.ID, 777)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// Выбранный отклик отозвать нельзя.
	require.NoError(t, f.contractorRepo.UpdateStatus(ctx, nil, app.ID, entities.ApplicationStatusPendingCommission, nil))
	err = f.svc.Delete(ctx, entities.RequestKindService, app.ID, 2)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	require.NoError(t, f.contractorRepo.UpdateStatus(ctx, nil, app.ID, entities.ApplicationStatusPending, nil))
	require.NoError(t, f.svc.Delete(ctx, entities.RequestKindService, app.ID, 2))
	_, err = f.contractorRepo.FindByID(ctx, app.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Об отзыве извещены администраторы и владелец заявки.
	withdrawnKey := fmt.Sprintf("application:%d:withdrawn", app.ID)
	var adminNotified, ownerNotified bool
	for _, row := range f.notifRepo.rows {
		if row.DataKey != withdrawnKey {
			continue
		}
		if row.Type == entities.NotificationTypeSystem {
			adminNotified = true
		}
		if row.TargetUserID != nil && *row.TargetUserID == 1 {
			ownerNotified = true
		}
	}
	assert.True(t, adminNotified)
	assert.True(t, ownerNotified)
}
