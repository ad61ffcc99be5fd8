package services

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"marketplace-system/internal/entities"
	"marketplace-system/internal/repositories"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/filestorage"
	"marketplace-system/pkg/payment"
	"marketplace-system/pkg/types"
)

// Общие фейки для юнит-тестов сервисного слоя. Хранят все в памяти и
// воспроизводят контракты репозиториев, включая UPSERT-слияние уведомлений
// и Pending-guard платежей.

func testLogger() *zap.Logger { return zap.NewNop() }

// --- уведомления ---

type fakeNotificationRepo struct {
	rows   []*entities.Notification
	nextID uint64
}

func newFakeNotificationRepo() *fakeNotificationRepo { return &fakeNotificationRepo{nextID: 1} }

func sameTarget(a, b *uint64) bool {
	if a == nil && b == nil {
		return true
	}
	return a != nil && b != nil && *a == *b
}

func (f *fakeNotificationRepo) UpsertUnread(_ context.Context, n *entities.Notification, increment bool) (*entities.Notification, error) {
	for _, row := range f.rows {
		if !row.IsRead && row.Type == n.Type && row.DataKey == n.DataKey && sameTarget(row.TargetUserID, n.TargetUserID) {
			if increment {
				row.PendingCount++
			} else {
				row.PendingCount = 0
			}
			row.Title = n.Title
			row.Message = n.Message
			row.Action = n.Action
			row.UpdatedAt = time.Now()
			copied := *row
			return &copied, nil
		}
	}
	created := *n
	created.ID = f.nextID
	f.nextID++
	created.IsRead = false
	created.PendingCount = 1
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.rows = append(f.rows, &created)
	copied := created
	return &copied, nil
}

func (f *fakeNotificationRepo) UpdateMessage(_ context.Context, id uint64, message string) error {
	for _, row := range f.rows {
		if row.ID == id {
			row.Message = message
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeNotificationRepo) FindByID(_ context.Context, id uint64) (*entities.Notification, error) {
	for _, row := range f.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id uint64) error {
	for _, row := range f.rows {
		if row.ID == id {
			row.IsRead = true
			row.PendingCount = 0
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, _ uint64, _ []string) (int64, error) {
	var marked int64
	for _, row := range f.rows {
		if !row.IsRead {
			row.IsRead = true
			row.PendingCount = 0
			marked++
		}
	}
	return marked, nil
}

func (f *fakeNotificationRepo) List(_ context.Context, _ uint64, _ []string, _ types.Filter) ([]entities.Notification, uint64, error) {
	out := make([]entities.Notification, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, *row)
	}
	return out, uint64(len(out)), nil
}

func (f *fakeNotificationRepo) UnreadCount(_ context.Context, _ uint64, _ []string) (uint64, error) {
	var count uint64
	for _, row := range f.rows {
		if !row.IsRead {
			count++
		}
	}
	return count, nil
}

var _ repositories.NotificationRepositoryInterface = (*fakeNotificationRepo)(nil)

// --- push-доставка ---

type pushedMessage struct {
	Target  string
	UserID  uint64
	Role    string
	Event   string
	Payload interface{}
}

type fakePush struct {
	messages []pushedMessage
}

func (f *fakePush) SendToUser(userID uint64, eventName string, payload interface{}) error {
	f.messages = append(f.messages, pushedMessage{Target: "user", UserID: userID, Event: eventName, Payload: payload})
	return nil
}

func (f *fakePush) SendToRole(role string, eventName string, payload interface{}) error {
	f.messages = append(f.messages, pushedMessage{Target: "role", Role: role, Event: eventName, Payload: payload})
	return nil
}

func (f *fakePush) Broadcast(eventName string, payload interface{}) error {
	f.messages = append(f.messages, pushedMessage{Target: "broadcast", Event: eventName, Payload: payload})
	return nil
}

var _ PushDeliveryInterface = (*fakePush)(nil)

// --- транзакции и кеш ---

type fakeTxManager struct{}

func (fakeTxManager) WithinTransaction(_ context.Context, fn func(q repositories.Querier) error) error {
	return fn(nil)
}

var _ repositories.TxManagerInterface = fakeTxManager{}

type fakeCache struct {
	locked map[string]bool
}

func newFakeCache() *fakeCache { return &fakeCache{locked: make(map[string]bool)} }

func (f *fakeCache) Get(_ context.Context, _ string) (string, error) {
	return "", apperrors.ErrNotFound
}
func (f *fakeCache) Set(_ context.Context, _ string, _ interface{}, _ time.Duration) error {
	return nil
}
func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.locked, key)
	}
	return nil
}
func (f *fakeCache) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	if f.locked[key] {
		return false, nil
	}
	f.locked[key] = true
	return true, nil
}

var _ repositories.CacheRepositoryInterface = (*fakeCache)(nil)

// --- заявки ---

type fakeServiceRequestRepo struct {
	rows   map[uint64]*entities.ServiceRequest
	nextID uint64
}

func newFakeServiceRequestRepo() *fakeServiceRequestRepo {
	return &fakeServiceRequestRepo{rows: make(map[uint64]*entities.ServiceRequest), nextID: 1}
}

func (f *fakeServiceRequestRepo) Create(_ context.Context, req *entities.ServiceRequest) (uint64, error) {
	id := f.nextID
	f.nextID++
	copied := *req
	copied.ID = id
	f.rows[id] = &copied
	return id, nil
}

func (f *fakeServiceRequestRepo) FindByID(_ context.Context, id uint64) (*entities.ServiceRequest, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeServiceRequestRepo) List(_ context.Context, _ *uint64, _, _ uint64) ([]entities.ServiceRequest, uint64, error) {
	out := make([]entities.ServiceRequest, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, *row)
	}
	return out, uint64(len(out)), nil
}

func (f *fakeServiceRequestRepo) Update(_ context.Context, id uint64, description, address *string) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if description != nil {
		row.Description = *description
	}
	if address != nil {
		row.Address = *address
	}
	return nil
}

func (f *fakeServiceRequestRepo) UpdateStatus(_ context.Context, _ repositories.Querier, id uint64, status entities.RequestStatus) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.Status = status
	return nil
}

func (f *fakeServiceRequestRepo) SetSelectedApplication(_ context.Context, _ repositories.Querier, id, applicationID uint64) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.SelectedApplicationID = &applicationID
	row.Status = entities.RequestStatusPending
	return nil
}

func (f *fakeServiceRequestRepo) AddImages(_ context.Context, id uint64, images []entities.RequestImage) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.Images = append(row.Images, images...)
	return nil
}

func (f *fakeServiceRequestRepo) GetImages(_ context.Context, id uint64) ([]entities.RequestImage, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return row.Images, nil
}

func (f *fakeServiceRequestRepo) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

var _ repositories.ServiceRequestRepositoryInterface = (*fakeServiceRequestRepo)(nil)

type fakeMaterialRequestRepo struct {
	rows   map[uint64]*entities.MaterialRequest
	nextID uint64
}

func newFakeMaterialRequestRepo() *fakeMaterialRequestRepo {
	return &fakeMaterialRequestRepo{rows: make(map[uint64]*entities.MaterialRequest), nextID: 1}
}

func (f *fakeMaterialRequestRepo) Create(_ context.Context, req *entities.MaterialRequest) (uint64, error) {
	id := f.nextID
	f.nextID++
	copied := *req
	copied.ID = id
	f.rows[id] = &copied
	return id, nil
}

func (f *fakeMaterialRequestRepo) FindByID(_ context.Context, id uint64) (*entities.MaterialRequest, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeMaterialRequestRepo) List(_ context.Context, _ *uint64, _, _ uint64) ([]entities.MaterialRequest, uint64, error) {
	out := make([]entities.MaterialRequest, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, *row)
	}
	return out, uint64(len(out)), nil
}

func (f *fakeMaterialRequestRepo) Update(_ context.Context, id uint64, description, address *string) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if description != nil {
		row.Description = *description
	}
	if address != nil {
		row.Address = *address
	}
	return nil
}

func (f *fakeMaterialRequestRepo) UpdateStatus(_ context.Context, _ repositories.Querier, id uint64, status entities.RequestStatus) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.Status = status
	return nil
}

func (f *fakeMaterialRequestRepo) SetSelectedApplication(_ context.Context, _ repositories.Querier, id, applicationID uint64) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.SelectedApplicationID = &applicationID
	row.Status = entities.RequestStatusPending
	return nil
}

func (f *fakeMaterialRequestRepo) AddImages(_ context.Context, id uint64, images []entities.RequestImage) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.Images = append(row.Images, images...)
	return nil
}

func (f *fakeMaterialRequestRepo) GetImages(_ context.Context, id uint64) ([]entities.RequestImage, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return row.Images, nil
}

func (f *fakeMaterialRequestRepo) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

var _ repositories.MaterialRequestRepositoryInterface = (*fakeMaterialRequestRepo)(nil)

// --- отклики ---

type fakeContractorAppRepo struct {
	rows   map[uint64]*entities.ContractorApplication
	nextID uint64
}

func newFakeContractorAppRepo() *fakeContractorAppRepo {
	return &fakeContractorAppRepo{rows: make(map[uint64]*entities.ContractorApplication), nextID: 1}
}

func (f *fakeContractorAppRepo) Create(_ context.Context, app *entities.ContractorApplication) (uint64, error) {
	id := f.nextID
	f.nextID++
	copied := *app
	copied.ID = id
	f.rows[id] = &copied
	return id, nil
}

func (f *fakeContractorAppRepo) FindByID(_ context.Context, id uint64) (*entities.ContractorApplication, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeContractorAppRepo) ListByRequest(_ context.Context, requestID uint64) ([]entities.ContractorApplication, error) {
	out := make([]entities.ContractorApplication, 0)
	for _, row := range f.rows {
		if row.RequestID == requestID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeContractorAppRepo) UpdateStatus(_ context.Context, _ repositories.Querier, id uint64, status entities.ApplicationStatus, due *time.Time) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.Status = status
	row.DueCommissionTime = due
	return nil
}

func (f *fakeContractorAppRepo) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

var _ repositories.ContractorApplicationRepositoryInterface = (*fakeContractorAppRepo)(nil)

type fakeDistributorAppRepo struct {
	rows   map[uint64]*entities.DistributorApplication
	nextID uint64
}

func newFakeDistributorAppRepo() *fakeDistributorAppRepo {
	return &fakeDistributorAppRepo{rows: make(map[uint64]*entities.DistributorApplication), nextID: 1}
}

func (f *fakeDistributorAppRepo) Create(_ context.Context, app *entities.DistributorApplication) (uint64, error) {
	id := f.nextID
	f.nextID++
	copied := *app
	copied.ID = id
	f.rows[id] = &copied
	return id, nil
}

func (f *fakeDistributorAppRepo) FindByID(_ context.Context, id uint64) (*entities.DistributorApplication, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeDistributorAppRepo) ListByRequest(_ context.Context, requestID uint64) ([]entities.DistributorApplication, error) {
	out := make([]entities.DistributorApplication, 0)
	for _, row := range f.rows {
		if row.RequestID == requestID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeDistributorAppRepo) UpdateStatus(_ context.Context, _ repositories.Querier, id uint64, status entities.ApplicationStatus, due *time.Time) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.Status = status
	row.DueCommissionTime = due
	return nil
}

func (f *fakeDistributorAppRepo) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

var _ repositories.DistributorApplicationRepositoryInterface = (*fakeDistributorAppRepo)(nil)

// --- пользователи, отзывы, платежи ---

type fakeUserRepo struct {
	rows map[uint64]*entities.User
}

func newFakeUserRepo(users ...*entities.User) *fakeUserRepo {
	f := &fakeUserRepo{rows: make(map[uint64]*entities.User)}
	for _, u := range users {
		copied := *u
		f.rows[u.ID] = &copied
	}
	return f
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uint64) (*entities.User, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entities.User, error) {
	for _, row := range f.rows {
		if row.Email == email {
			copied := *row
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUserRepo) UpdateReputation(_ context.Context, _ repositories.Querier, id uint64, averageRating float64, ratingCount int, reputationPoints int64) error {
	row, ok := f.rows[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	row.AverageRating = averageRating
	row.RatingCount = ratingCount
	row.ReputationPoints = reputationPoints
	return nil
}

var _ repositories.UserRepositoryInterface = (*fakeUserRepo)(nil)

type fakeReviewRepo struct {
	rows   []*entities.Review
	nextID uint64
}

func newFakeReviewRepo() *fakeReviewRepo { return &fakeReviewRepo{nextID: 1} }

func (f *fakeReviewRepo) Create(_ context.Context, _ repositories.Querier, review *entities.Review) (uint64, error) {
	for _, row := range f.rows {
		if row.RequestKind == review.RequestKind && row.RequestID == review.RequestID {
			return 0, apperrors.ErrConflict
		}
	}
	id := f.nextID
	f.nextID++
	copied := *review
	copied.ID = id
	f.rows = append(f.rows, &copied)
	return id, nil
}

func (f *fakeReviewRepo) ListByPartner(_ context.Context, partnerID uint64, _, _ uint64) ([]entities.Review, uint64, error) {
	out := make([]entities.Review, 0)
	for _, row := range f.rows {
		if row.PartnerID == partnerID {
			out = append(out, *row)
		}
	}
	return out, uint64(len(out)), nil
}

var _ repositories.ReviewRepositoryInterface = (*fakeReviewRepo)(nil)

type fakePaymentRepo struct {
	rows   map[uint64]*entities.PaymentTransaction
	nextID uint64
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{rows: make(map[uint64]*entities.PaymentTransaction), nextID: 1}
}

func (f *fakePaymentRepo) Create(_ context.Context, txn *entities.PaymentTransaction) (uint64, error) {
	for _, row := range f.rows {
		if row.OrderCode == txn.OrderCode {
			return 0, apperrors.ErrConflict
		}
	}
	id := f.nextID
	f.nextID++
	copied := *txn
	copied.ID = id
	copied.CreatedAt = time.Now()
	f.rows[id] = &copied
	return id, nil
}

func (f *fakePaymentRepo) FindByOrderCode(_ context.Context, orderCode int64) (*entities.PaymentTransaction, error) {
	for _, row := range f.rows {
		if row.OrderCode == orderCode {
			copied := *row
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakePaymentRepo) MarkPaid(_ context.Context, _ repositories.Querier, id uint64, paidAt time.Time) error {
	row, ok := f.rows[id]
	if !ok || row.Status != entities.PaymentStatusPending {
		return apperrors.ErrNotFound
	}
	row.Status = entities.PaymentStatusPaid
	row.PaidAt = &paidAt
	return nil
}

func (f *fakePaymentRepo) Delete(_ context.Context, _ repositories.Querier, id uint64) error {
	row, ok := f.rows[id]
	if !ok || row.Status != entities.PaymentStatusPending {
		return apperrors.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakePaymentRepo) List(_ context.Context, _, _ uint64) ([]entities.PaymentTransaction, uint64, error) {
	out := make([]entities.PaymentTransaction, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, *row)
	}
	return out, uint64(len(out)), nil
}

var _ repositories.PaymentRepositoryInterface = (*fakePaymentRepo)(nil)

// --- внешние коллабораторы ---

type fakeProvider struct {
	lastRequest payment.CreateCheckoutRequest
	fail        bool
}

func (f *fakeProvider) CreateCheckout(_ context.Context, req payment.CreateCheckoutRequest) (*payment.CheckoutInfo, error) {
	f.lastRequest = req
	if f.fail {
		return nil, apperrors.ErrBadRequest
	}
	return &payment.CheckoutInfo{
		OrderCode:   req.OrderCode,
		CheckoutURL: "https://pay.example/checkout",
	}, nil
}

var _ payment.ProviderInterface = (*fakeProvider)(nil)

type fakeFileStorage struct {
	uploaded []string
	deleted  []string
}

func (f *fakeFileStorage) Upload(_ io.Reader, _ int64, originalFileName, folder string) (*filestorage.UploadResult, error) {
	f.uploaded = append(f.uploaded, originalFileName)
	return &filestorage.UploadResult{
		URL:      "https://cdn.example/" + folder + "/" + originalFileName,
		PublicID: folder + "/" + originalFileName,
	}, nil
}

func (f *fakeFileStorage) Delete(publicID string) error {
	f.deleted = append(f.deleted, publicID)
	return nil
}

var _ filestorage.FileStorageInterface = (*fakeFileStorage)(nil)
