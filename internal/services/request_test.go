package services

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	apperrors "marketplace-system/pkg/errors"
)

type requestFixture struct {
	svc             RequestServiceInterface
	serviceRepo     *fakeServiceRequestRepo
	materialRepo    *fakeMaterialRequestRepo
	contractorRepo  *fakeContractorAppRepo
	distributorRepo *fakeDistributorAppRepo
	fileStorage     *fakeFileStorage
	notifRepo       *fakeNotificationRepo
}

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	f := &requestFixture{
		serviceRepo:     newFakeServiceRequestRepo(),
		materialRepo:    newFakeMaterialRequestRepo(),
		contractorRepo:  newFakeContractorAppRepo(),
		distributorRepo: newFakeDistributorAppRepo(),
		fileStorage:     &fakeFileStorage{},
		notifRepo:       newFakeNotificationRepo(),
	}
	notifications := NewNotificationService(f.notifRepo, &fakePush{}, testLogger())
	f.svc = NewRequestService(f.serviceRepo, f.materialRepo, f.contractorRepo,
		f.distributorRepo, fakeTxManager{}, f.fileStorage, notifications, testLogger())
	return f
}

func TestCreateServiceRequest_OpensAndNotifiesContractors(t *testing.T) {
	f := newRequestFixture(t)

	req, err := f.svc.CreateServiceRequest(context.Background(), 1, dto.CreateServiceRequestDTO{
		Description: "Sơn lại toàn bộ căn hộ",
		Address:     "Quận 1, TP.HCM",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusOpening, req.Status)

	require.Len(t, f.notifRepo.rows, 1)
	published := f.notifRepo.rows[0]
	assert.Equal(t, entities.NotificationTypeSystem, published.Type)
	assert.Equal(t, entities.RoleContractor, published.TargetRoles)
	assert.Equal(t, "request:service:new", published.DataKey)
}

func TestCreateMaterialRequest_DraftStaysSilent(t *testing.T) {
	f := newRequestFixture(t)

	req, err := f.svc.CreateMaterialRequest(context.Background(), 1, dto.CreateMaterialRequestDTO{
		Description: "Vật tư xây dựng cho công trình",
		Address:     "Hà Nội",
		AsDraft:     true,
		Items: []dto.MaterialRequestItemDTO{
			{MaterialID: 100, MaterialName: "Xi măng", Quantity: 3},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusDraft, req.Status)

	// Черновик не виден партнерам, пока его не опубликовали.
	assert.Empty(t, f.notifRepo.rows)

	require.NoError(t, f.svc.Publish(context.Background(), entities.RequestKindMaterial, req.ID, 1))
	updated, err := f.materialRepo.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusOpening, updated.Status)

	require.Len(t, f.notifRepo.rows, 1)
	assert.Equal(t, entities.RoleDistributor, f.notifRepo.rows[0].TargetRoles)
}

func TestPublish_OnlyFromDraft(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	id, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)

	err = f.svc.Publish(ctx, entities.RequestKindService, id, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestUpdate_LockedAfterSelection(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	id, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Description: "старое", Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)

	err = f.svc.Update(ctx, entities.RequestKindService, id, 1, dto.UpdateRequestDTO{
		Description: null.StringFrom("обновленное описание"),
	})
	require.NoError(t, err)
	updated, err := f.serviceRepo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "обновленное описание", updated.Description)

	// Чужая заявка.
	err = f.svc.Update(ctx, entities.RequestKindService, id, 777, dto.UpdateRequestDTO{
		Description: null.StringFrom("взлом"),
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// После выбора отклика заявка заблокирована для правок.
	require.NoError(t, f.serviceRepo.SetSelectedApplication(ctx, nil, id, 5))
	err = f.svc.Update(ctx, entities.RequestKindService, id, 1, dto.UpdateRequestDTO{
		Description: null.StringFrom("поздно"),
	})
	assert.ErrorIs(t, err, apperrors.ErrRequestLocked)
}

func TestSelectApplication_SettlesContractorWithDeadline(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	requestID, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)
	appID, err := f.contractorRepo.Create(ctx, &entities.ContractorApplication{
		PartnerID: 2, RequestID: requestID, EstimatePrice: 30_000_000,
		Status: entities.ApplicationStatusPending,
	})
	require.NoError(t, err)

	before := time.Now().UTC()
	require.NoError(t, f.svc.SelectApplication(ctx, entities.RequestKindService, requestID, 1, appID))

	app, err := f.contractorRepo.FindByID(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, entities.ApplicationStatusPendingCommission, app.Status)
	require.NotNil(t, app.DueCommissionTime)
	assert.WithinDuration(t, before.Add(48*time.Hour), *app.DueCommissionTime, time.Minute)

	req, err := f.serviceRepo.FindByID(ctx, requestID)
	require.NoError(t, err)
	require.NotNil(t, req.SelectedApplicationID)
	assert.Equal(t, appID, *req.SelectedApplicationID)
	assert.Equal(t, entities.RequestStatusPending, req.Status)

	// Партнера известили персонально.
	require.Len(t, f.notifRepo.rows, 1)
	notice := f.notifRepo.rows[0]
	assert.Equal(t, entities.NotificationActionAccept, notice.Action)
	require.NotNil(t, notice.TargetUserID)
	assert.Equal(t, uint64(2), *notice.TargetUserID)
}

func TestSelectApplication_DistributorHasNoDeadline(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	requestID, err := f.materialRepo.Create(ctx, &entities.MaterialRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)
	appID, err := f.distributorRepo.Create(ctx, &entities.DistributorApplication{
		PartnerID: 3, RequestID: requestID, TotalEstimatePrice: 15_000_000,
		Status: entities.ApplicationStatusPending,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.SelectApplication(ctx, entities.RequestKindMaterial, requestID, 1, appID))

	app, err := f.distributorRepo.FindByID(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, entities.ApplicationStatusPendingCommission, app.Status)
	assert.Nil(t, app.DueCommissionTime)
}

func TestSelectApplication_SecondSelectionRejected(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	requestID, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)
	firstID, err := f.contractorRepo.Create(ctx, &entities.ContractorApplication{
		PartnerID: 2, RequestID: requestID, EstimatePrice: 30_000_000,
		Status: entities.ApplicationStatusPending,
	})
	require.NoError(t, err)
	secondID, err := f.contractorRepo.Create(ctx, &entities.ContractorApplication{
		PartnerID: 4, RequestID: requestID, EstimatePrice: 25_000_000,
		Status: entities.ApplicationStatusPending,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.SelectApplication(ctx, entities.RequestKindService, requestID, 1, firstID))

	err = f.svc.SelectApplication(ctx, entities.RequestKindService, requestID, 1, secondID)
	assert.ErrorIs(t, err, apperrors.ErrRequestLocked)

	// Второй отклик не тронут.
	second, err := f.contractorRepo.FindByID(ctx, secondID)
	require.NoError(t, err)
	assert.Equal(t, entities.ApplicationStatusPending, second.Status)
}

func TestSelectApplication_RejectedApplicationNotSelectable(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	requestID, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)
	appID, err := f.contractorRepo.Create(ctx, &entities.ContractorApplication{
		PartnerID: 2, RequestID: requestID, EstimatePrice: 30_000_000,
		Status: entities.ApplicationStatusRejected,
	})
	require.NoError(t, err)

	err = f.svc.SelectApplication(ctx, entities.RequestKindService, requestID, 1, appID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestClose_Idempotent(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	id, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Close(ctx, entities.RequestKindService, id, 1))
	require.NoError(t, f.svc.Close(ctx, entities.RequestKindService, id, 1))

	req, err := f.serviceRepo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusClosed, req.Status)
}

func TestDelete_CleansBlobStorageFirst(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	id, err := f.serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)
	require.NoError(t, f.serviceRepo.AddImages(ctx, id, []entities.RequestImage{
		{URL: "https://cdn.example/requests/a.jpg", PublicID: "requests/a.jpg"},
		{URL: "https://cdn.example/requests/b.jpg", PublicID: "requests/b.jpg"},
	}))

	// Посторонний без прав администратора получает отказ.
	err = f.svc.Delete(ctx, entities.RequestKindService, id, 777, false)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// Администратор удаляет чужую заявку вместе с объектами хранилища.
	require.NoError(t, f.svc.Delete(ctx, entities.RequestKindService, id, 777, true))
	assert.ElementsMatch(t, []string{"requests/a.jpg", "requests/b.jpg"}, f.fileStorage.deleted)

	_, err = f.serviceRepo.FindByID(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
