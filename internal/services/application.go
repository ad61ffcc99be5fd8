package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	"marketplace-system/internal/repositories"
	apperrors "marketplace-system/pkg/errors"
)

const (
	titleNewApplication = "Đơn đăng ký mới"
	titleAppRejected    = "Đơn đăng ký bị từ chối"
	titleAppWithdrawn   = "Đơn đăng ký đã rút"
)

type ApplicationServiceInterface interface {
	SubmitContractor(ctx context.Context, partnerID, requestID uint64, payload dto.CreateContractorApplicationDTO) (*entities.ContractorApplication, error)
	SubmitDistributor(ctx context.Context, partnerID, requestID uint64, payload dto.CreateDistributorApplicationDTO) (*entities.DistributorApplication, error)
	GetContractorApplication(ctx context.Context, id uint64) (*entities.ContractorApplication, error)
	GetDistributorApplication(ctx context.Context, id uint64) (*entities.DistributorApplication, error)
	ListByRequest(ctx context.Context, kind entities.RequestKind, requestID uint64) (interface{}, error)
	Reject(ctx context.Context, kind entities.RequestKind, applicationID, actorID uint64, isAdmin bool) error
	Delete(ctx context.Context, kind entities.RequestKind, applicationID, partnerID uint64) error
}

type applicationService struct {
	serviceRepo     repositories.ServiceRequestRepositoryInterface
	materialRepo    repositories.MaterialRequestRepositoryInterface
	contractorRepo  repositories.ContractorApplicationRepositoryInterface
	distributorRepo repositories.DistributorApplicationRepositoryInterface
	userRepo        repositories.UserRepositoryInterface
	notifications   NotificationServiceInterface
	logger          *zap.Logger
}

func NewApplicationService(
	serviceRepo repositories.ServiceRequestRepositoryInterface,
	materialRepo repositories.MaterialRequestRepositoryInterface,
	contractorRepo repositories.ContractorApplicationRepositoryInterface,
	distributorRepo repositories.DistributorApplicationRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	notifications NotificationServiceInterface,
	logger *zap.Logger,
) ApplicationServiceInterface {
	return &applicationService{
		serviceRepo:     serviceRepo,
		materialRepo:    materialRepo,
		contractorRepo:  contractorRepo,
		distributorRepo: distributorRepo,
		userRepo:        userRepo,
		notifications:   notifications,
		logger:          logger.Named("application_service"),
	}
}

func (s *applicationService) SubmitContractor(ctx context.Context, partnerID, requestID uint64, payload dto.CreateContractorApplicationDTO) (*entities.ContractorApplication, error) {
	req, err := s.serviceRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entities.RequestStatusOpening {
		return nil, apperrors.ErrApplicationNotOpen
	}

	app := &entities.ContractorApplication{
		PartnerID:     partnerID,
		RequestID:     requestID,
		Description:   payload.Description,
		EstimatePrice: payload.EstimatePrice,
		Status:        entities.ApplicationStatusPending,
	}
	id, err := s.contractorRepo.Create(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания отклика подрядчика: %w", err)
	}
	app.ID = id

	s.notifySubmitted(ctx, entities.RequestKindService, requestID, req.CustomerID, partnerID)
	return app, nil
}

// SubmitDistributor подает отклик поставщика. Когда заказчик запретил правку
// количеств, поданные значения перезаписываются из позиций заявки (по
// совпадению материала); позиции без совпадения уходят как поданы.
func (s *applicationService) SubmitDistributor(ctx context.Context, partnerID, requestID uint64, payload dto.CreateDistributorApplicationDTO) (*entities.DistributorApplication, error) {
	req, err := s.materialRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entities.RequestStatusOpening {
		return nil, apperrors.ErrApplicationNotOpen
	}

	requestedQty := make(map[uint64]int, len(req.Items))
	for _, item := range req.Items {
		requestedQty[item.MaterialID] = item.Quantity
	}

	items := make([]entities.DistributorApplicationItem, 0, len(payload.Items))
	var total int64
	for _, submitted := range payload.Items {
		quantity := submitted.Quantity
		if !req.AllowQuantityEdit {
			if fixed, ok := requestedQty[submitted.MaterialID]; ok {
				quantity = fixed
			}
		}
		items = append(items, entities.DistributorApplicationItem{
			MaterialID: submitted.MaterialID,
			Quantity:   quantity,
			UnitPrice:  submitted.UnitPrice,
		})
		total += int64(quantity) * submitted.UnitPrice
	}

	app := &entities.DistributorApplication{
		PartnerID:          partnerID,
		RequestID:          requestID,
		Description:        payload.Description,
		TotalEstimatePrice: total,
		Status:             entities.ApplicationStatusPending,
		Items:              items,
	}
	id, err := s.distributorRepo.Create(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания отклика поставщика: %w", err)
	}
	app.ID = id

	s.notifySubmitted(ctx, entities.RequestKindMaterial, requestID, req.CustomerID, partnerID)
	return app, nil
}

// notifySubmitted рассылает две копии уведомления о новом отклике:
// администраторам - с контактами партнера, владельцу заявки - без них
// (контакты открываются после оплаты комиссии).
func (s *applicationService) notifySubmitted(ctx context.Context, kind entities.RequestKind, requestID, customerID, partnerID uint64) {
	dataKey := fmt.Sprintf("request:%s:%d:applications", kind, requestID)

	adminMessage := titleNewApplication
	if partner, err := s.userRepo.FindByID(ctx, partnerID); err == nil {
		adminMessage = fmt.Sprintf("%s: %s (%s, %s)", titleNewApplication, partner.FullName, partner.Phone, partner.Email)
	} else {
		s.logger.Warn("Не удалось получить профиль партнера для уведомления",
			zap.Uint64("partnerID", partnerID), zap.Error(err))
	}

	if err := s.notifications.NotifySystem(ctx, entities.RoleAdmin, entities.NotificationActionApply, dataKey, titleNewApplication, adminMessage); err != nil {
		s.logger.Error("Не удалось уведомить администраторов о новом отклике", zap.Error(err))
	}
	if err := s.notifications.NotifyUser(ctx, customerID, entities.NotificationActionApply, dataKey, titleNewApplication, titleNewApplication); err != nil {
		s.logger.Error("Не удалось уведомить владельца заявки о новом отклике", zap.Error(err))
	}
}

func (s *applicationService) GetContractorApplication(ctx context.Context, id uint64) (*entities.ContractorApplication, error) {
	return s.contractorRepo.FindByID(ctx, id)
}

func (s *applicationService) GetDistributorApplication(ctx context.Context, id uint64) (*entities.DistributorApplication, error) {
	return s.distributorRepo.FindByID(ctx, id)
}

func (s *applicationService) ListByRequest(ctx context.Context, kind entities.RequestKind, requestID uint64) (interface{}, error) {
	switch kind {
	case entities.RequestKindService:
		return s.contractorRepo.ListByRequest(ctx, requestID)
	case entities.RequestKindMaterial:
		return s.distributorRepo.ListByRequest(ctx, requestID)
	default:
		return nil, apperrors.ErrBadRequest
	}
}

// Reject - терминальный отказ по отклику. Доступен владельцу заявки
// и администратору, и только пока отклик в Pending.
func (s *applicationService) Reject(ctx context.Context, kind entities.RequestKind, applicationID, actorID uint64, isAdmin bool) error {
	var partnerID, requestID uint64
	var status entities.ApplicationStatus

	switch kind {
	case entities.RequestKindService:
		app, err := s.contractorRepo.FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		partnerID, requestID, status = app.PartnerID, app.RequestID, app.Status
	case entities.RequestKindMaterial:
		app, err := s.distributorRepo.FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		partnerID, requestID, status = app.PartnerID, app.RequestID, app.Status
	default:
		return apperrors.ErrBadRequest
	}

	if !isAdmin {
		req, err := s.findParent(ctx, kind, requestID)
		if err != nil {
			return err
		}
		if req.GetCustomerID() != actorID {
			return apperrors.ErrForbidden
		}
	}
	if status != entities.ApplicationStatusPending {
		return apperrors.ErrInvalidState
	}

	var err error
	if kind == entities.RequestKindService {
		err = s.contractorRepo.UpdateStatus(ctx, nil, applicationID, entities.ApplicationStatusRejected, nil)
	} else {
		err = s.distributorRepo.UpdateStatus(ctx, nil, applicationID, entities.ApplicationStatusRejected, nil)
	}
	if err != nil {
		return err
	}

	dataKey := fmt.Sprintf("application:%d", applicationID)
	if notifyErr := s.notifications.NotifyUser(ctx, partnerID, entities.NotificationActionReject, dataKey, titleAppRejected, titleAppRejected); notifyErr != nil {
		s.logger.Error("Не удалось уведомить партнера об отказе", zap.Uint64("applicationID", applicationID), zap.Error(notifyErr))
	}
	return nil
}

func (s *applicationService) findParent(ctx context.Context, kind entities.RequestKind, requestID uint64) (entities.Request, error) {
	if kind == entities.RequestKindService {
		return s.serviceRepo.FindByID(ctx, requestID)
	}
	return s.materialRepo.FindByID(ctx, requestID)
}

// Delete - отзыв собственного отклика партнером, пока он не выбран.
// Владелец заявки и администраторы извещаются об отзыве.
func (s *applicationService) Delete(ctx context.Context, kind entities.RequestKind, applicationID, partnerID uint64) error {
	var requestID uint64

	switch kind {
	case entities.RequestKindService:
		app, err := s.contractorRepo.FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.PartnerID != partnerID {
			return apperrors.ErrForbidden
		}
		if app.Status != entities.ApplicationStatusPending {
			return apperrors.ErrInvalidState
		}
		if err := s.contractorRepo.Delete(ctx, applicationID); err != nil {
			return err
		}
		requestID = app.RequestID
	case entities.RequestKindMaterial:
		app, err := s.distributorRepo.FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.PartnerID != partnerID {
			return apperrors.ErrForbidden
		}
		if app.Status != entities.ApplicationStatusPending {
			return apperrors.ErrInvalidState
		}
		if err := s.distributorRepo.Delete(ctx, applicationID); err != nil {
			return err
		}
		requestID = app.RequestID
	default:
		return apperrors.ErrBadRequest
	}

	s.notifyWithdrawn(ctx, kind, requestID, applicationID)
	return nil
}

func (s *applicationService) notifyWithdrawn(ctx context.Context, kind entities.RequestKind, requestID, applicationID uint64) {
	dataKey := fmt.Sprintf("application:%d:withdrawn", applicationID)

	if err := s.notifications.NotifySystem(ctx, entities.RoleAdmin, entities.NotificationActionSend, dataKey, titleAppWithdrawn, titleAppWithdrawn); err != nil {
		s.logger.Error("Не удалось уведомить администраторов об отзыве отклика", zap.Error(err))
	}

	req, err := s.findParent(ctx, kind, requestID)
	if err != nil {
		s.logger.Warn("Заявка отозванного отклика не найдена", zap.Uint64("requestID", requestID), zap.Error(err))
		return
	}
	if err := s.notifications.NotifyUser(ctx, req.GetCustomerID(), entities.NotificationActionSend, dataKey, titleAppWithdrawn, titleAppWithdrawn); err != nil {
		s.logger.Error("Не удалось уведомить владельца заявки об отзыве отклика", zap.Error(err))
	}
}
