package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	"marketplace-system/internal/events"
	"marketplace-system/internal/repositories"
	"marketplace-system/pkg/config"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/eventbus"
	"marketplace-system/pkg/payment"
)

const (
	titleCommissionPaid = "Hoa hồng đã thanh toán"

	// Замок на обработку callback'а: конкурентный дубликат с тем же
	// orderCode молча отбрасывается, пока замок жив.
	callbackLockKeyFormat = "payment:callback:%d"
	callbackLockTTL       = 30 * time.Second
)

type PaymentServiceInterface interface {
	CreateCheckout(ctx context.Context, kind entities.RequestKind, partnerID uint64, payload dto.CreateCheckoutDTO) (*dto.CheckoutInfoDTO, error)
	// HandleCallback обрабатывает webhook провайдера. Идемпотентен:
	// повтор по тому же orderCode и неизвестный orderCode - no-op без ошибки.
	HandleCallback(ctx context.Context, payload payment.CallbackPayload) error
	ListTransactions(ctx context.Context, limit, offset uint64) ([]entities.PaymentTransaction, uint64, error)
}

type paymentService struct {
	paymentRepo     repositories.PaymentRepositoryInterface
	contractorRepo  repositories.ContractorApplicationRepositoryInterface
	distributorRepo repositories.DistributorApplicationRepositoryInterface
	serviceRepo     repositories.ServiceRequestRepositoryInterface
	materialRepo    repositories.MaterialRequestRepositoryInterface
	userRepo        repositories.UserRepositoryInterface
	cache           repositories.CacheRepositoryInterface
	txManager       repositories.TxManagerInterface
	provider        payment.ProviderInterface
	notifications   NotificationServiceInterface
	bus             *eventbus.Bus
	cfg             config.PaymentConfig
	logger          *zap.Logger
}

func NewPaymentService(
	paymentRepo repositories.PaymentRepositoryInterface,
	contractorRepo repositories.ContractorApplicationRepositoryInterface,
	distributorRepo repositories.DistributorApplicationRepositoryInterface,
	serviceRepo repositories.ServiceRequestRepositoryInterface,
	materialRepo repositories.MaterialRequestRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	txManager repositories.TxManagerInterface,
	provider payment.ProviderInterface,
	notifications NotificationServiceInterface,
	bus *eventbus.Bus,
	cfg config.PaymentConfig,
	logger *zap.Logger,
) PaymentServiceInterface {
	return &paymentService{
		paymentRepo:     paymentRepo,
		contractorRepo:  contractorRepo,
		distributorRepo: distributorRepo,
		serviceRepo:     serviceRepo,
		materialRepo:    materialRepo,
		userRepo:        userRepo,
		cache:           cache,
		txManager:       txManager,
		provider:        provider,
		notifications:   notifications,
		bus:             bus,
		cfg:             cfg,
		logger:          logger.Named("payment_service"),
	}
}

// CreateCheckout запрашивает у провайдера ссылку на оплату комиссии и лишь
// после успешного ответа создает локальную Pending-запись. Отказ провайдера
// не оставляет следов в БД.
func (s *paymentService) CreateCheckout(ctx context.Context, kind entities.RequestKind, partnerID uint64, payload dto.CreateCheckoutDTO) (*dto.CheckoutInfoDTO, error) {
	app, err := s.findApplication(ctx, kind, payload.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.GetPartnerID() != partnerID {
		return nil, apperrors.ErrForbidden
	}
	if app.GetRequestID() != payload.RequestID {
		return nil, apperrors.ErrNotFound
	}
	if app.GetStatus() != entities.ApplicationStatusPendingCommission {
		return nil, apperrors.ErrInvalidState
	}

	orderCode := time.Now().UnixMilli()
	info, err := s.provider.CreateCheckout(ctx, payment.CreateCheckoutRequest{
		OrderCode:   orderCode,
		Amount:      payload.Amount,
		Description: payload.Description,
		Items: []payment.CheckoutItem{
			{Name: payload.Description, Quantity: 1, Price: payload.Amount},
		},
		CancelURL: s.cfg.CancelURL,
		ReturnURL: s.cfg.ReturnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания платежной ссылки: %w", err)
	}

	txn := &entities.PaymentTransaction{
		ApplicationID: payload.ApplicationID,
		RequestID:     payload.RequestID,
		Amount:        payload.Amount,
		Description:   payload.Description,
		OrderCode:     info.OrderCode,
		CheckoutURL:   info.CheckoutURL,
		Status:        entities.PaymentStatusPending,
	}
	if _, err := s.paymentRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("ошибка сохранения платежной записи: %w", err)
	}

	return &dto.CheckoutInfoDTO{OrderCode: info.OrderCode, CheckoutURL: info.CheckoutURL}, nil
}

func (s *paymentService) findApplication(ctx context.Context, kind entities.RequestKind, id uint64) (entities.Application, error) {
	switch kind {
	case entities.RequestKindService:
		return s.contractorRepo.FindByID(ctx, id)
	case entities.RequestKindMaterial:
		return s.distributorRepo.FindByID(ctx, id)
	default:
		return nil, apperrors.ErrBadRequest
	}
}

func (s *paymentService) HandleCallback(ctx context.Context, payload payment.CallbackPayload) error {
	lockKey := fmt.Sprintf(callbackLockKeyFormat, payload.OrderCode)
	acquired, err := s.cache.SetNX(ctx, lockKey, 1, callbackLockTTL)
	if err != nil {
		// Redis недоступен - полагаемся на идемпотентность на уровне БД.
		s.logger.Warn("Не удалось взять замок обработки callback'а", zap.Error(err))
	} else if !acquired {
		s.logger.Info("Дубликат callback'а отброшен", zap.Int64("orderCode", payload.OrderCode))
		return nil
	}

	txn, err := s.paymentRepo.FindByOrderCode(ctx, payload.OrderCode)
	if err != nil {
		// Неизвестный orderCode - молчаливый no-op: провайдер может
		// прислать callback по чужому или удаленному платежу.
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Callback по неизвестному orderCode", zap.Int64("orderCode", payload.OrderCode))
			return nil
		}
		return err
	}

	if payload.Code == payment.SuccessCode {
		return s.settleSuccess(ctx, txn, payload)
	}
	return s.settleFailure(ctx, txn)
}

// settleSuccess атомарно помечает платеж оплаченным и переводит отклик
// в Approved со сбросом срока комиссии.
func (s *paymentService) settleSuccess(ctx context.Context, txn *entities.PaymentTransaction, payload payment.CallbackPayload) error {
	kind, app, err := s.resolveApplication(ctx, txn)
	if err != nil {
		return err
	}

	paidAt := payment.ParseProviderTime(payload.TransactionDateTime)

	err = s.txManager.WithinTransaction(ctx, func(q repositories.Querier) error {
		if err := s.paymentRepo.MarkPaid(ctx, q, txn.ID, paidAt); err != nil {
			return err
		}
		if kind == entities.RequestKindService {
			return s.contractorRepo.UpdateStatus(ctx, q, app.GetID(), entities.ApplicationStatusApproved, nil)
		}
		return s.distributorRepo.UpdateStatus(ctx, q, app.GetID(), entities.ApplicationStatusApproved, nil)
	})
	if err != nil {
		// Запись уже не Pending - повторный callback, исход зафиксирован ранее.
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Info("Повторный callback по оплаченному платежу", zap.Int64("orderCode", txn.OrderCode))
			return nil
		}
		return err
	}

	customerID := s.requestOwner(ctx, kind, txn.RequestID)

	dataKey := fmt.Sprintf("payment:%d", txn.OrderCode)
	if notifyErr := s.notifications.NotifyUser(ctx, app.GetPartnerID(), entities.NotificationActionPaid, dataKey, titleCommissionPaid, titleCommissionPaid); notifyErr != nil {
		s.logger.Error("Не удалось уведомить партнера об оплате", zap.Error(notifyErr))
	}
	if customerID != 0 {
		if notifyErr := s.notifications.NotifyUser(ctx, customerID, entities.NotificationActionPaid, dataKey, titleCommissionPaid, titleCommissionPaid); notifyErr != nil {
			s.logger.Error("Не удалось уведомить заказчика об оплате", zap.Error(notifyErr))
		}
	}

	s.publishStatus(ctx, txn, app, customerID, string(entities.PaymentStatusPaid))
	return nil
}

// settleFailure удаляет платежную запись; отклик остается в PendingCommission
// и партнёр может запросить новую ссылку на оплату.
func (s *paymentService) settleFailure(ctx context.Context, txn *entities.PaymentTransaction) error {
	if err := s.paymentRepo.Delete(ctx, nil, txn.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	kind, app, err := s.resolveApplication(ctx, txn)
	if err != nil {
		s.logger.Warn("Платеж отклонен, но отклик не найден", zap.Int64("orderCode", txn.OrderCode), zap.Error(err))
		return nil
	}
	customerID := s.requestOwner(ctx, kind, txn.RequestID)
	s.publishStatus(ctx, txn, app, customerID, "Failed")
	return nil
}

// resolveApplication находит отклик по платежной записи. Вид отклика в записи
// не хранится, поэтому сперва ищем среди подрядчиков, затем среди поставщиков.
func (s *paymentService) resolveApplication(ctx context.Context, txn *entities.PaymentTransaction) (entities.RequestKind, entities.Application, error) {
	if app, err := s.contractorRepo.FindByID(ctx, txn.ApplicationID); err == nil && app.RequestID == txn.RequestID {
		return entities.RequestKindService, app, nil
	}
	app, err := s.distributorRepo.FindByID(ctx, txn.ApplicationID)
	if err != nil {
		return "", nil, err
	}
	return entities.RequestKindMaterial, app, nil
}

func (s *paymentService) requestOwner(ctx context.Context, kind entities.RequestKind, requestID uint64) uint64 {
	if kind == entities.RequestKindService {
		if req, err := s.serviceRepo.FindByID(ctx, requestID); err == nil {
			return req.CustomerID
		}
		return 0
	}
	if req, err := s.materialRepo.FindByID(ctx, requestID); err == nil {
		return req.CustomerID
	}
	return 0
}

func (s *paymentService) publishStatus(ctx context.Context, txn *entities.PaymentTransaction, app entities.Application, customerID uint64, status string) {
	event := events.PaymentStatusChanged{
		RequestID:     txn.RequestID,
		ApplicationID: txn.ApplicationID,
		CustomerID:    customerID,
		PartnerID:     app.GetPartnerID(),
		Status:        status,
		Amount:        txn.Amount,
	}
	if partner, err := s.userRepo.FindByID(ctx, app.GetPartnerID()); err == nil {
		event.PartnerEmail = partner.Email
	}
	s.bus.Publish(ctx, event)
}

func (s *paymentService) ListTransactions(ctx context.Context, limit, offset uint64) ([]entities.PaymentTransaction, uint64, error) {
	return s.paymentRepo.List(ctx, limit, offset)
}
