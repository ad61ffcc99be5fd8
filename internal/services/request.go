package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	"marketplace-system/internal/repositories"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/filestorage"
	"marketplace-system/pkg/validation"
)

// Срок оплаты комиссии подрядчиком после выбора его отклика.
const commissionDuePeriod = 48 * time.Hour

const (
	uploadContextRequestImage = "request_image"
	requestImagesFolder       = "requests"
)

// Заголовки уведомлений. Подставляются в агрегированный шаблон
// в нижнем регистре, поэтому формулировки существительные.
const (
	titleNewServiceRequest  = "Yêu cầu dịch vụ mới"
	titleNewMaterialRequest = "Yêu cầu vật tư mới"
	titleAppAccepted        = "Đơn đăng ký được chọn"
)

type RequestServiceInterface interface {
	CreateServiceRequest(ctx context.Context, customerID uint64, payload dto.CreateServiceRequestDTO, files []*multipart.FileHeader) (*entities.ServiceRequest, error)
	CreateMaterialRequest(ctx context.Context, customerID uint64, payload dto.CreateMaterialRequestDTO, files []*multipart.FileHeader) (*entities.MaterialRequest, error)
	GetServiceRequest(ctx context.Context, id uint64) (*entities.ServiceRequest, error)
	GetMaterialRequest(ctx context.Context, id uint64) (*entities.MaterialRequest, error)
	ListServiceRequests(ctx context.Context, customerID *uint64, limit, offset uint64) ([]entities.ServiceRequest, uint64, error)
	ListMaterialRequests(ctx context.Context, customerID *uint64, limit, offset uint64) ([]entities.MaterialRequest, uint64, error)
	Update(ctx context.Context, kind entities.RequestKind, id, customerID uint64, payload dto.UpdateRequestDTO) error
	Publish(ctx context.Context, kind entities.RequestKind, id, customerID uint64) error
	SelectApplication(ctx context.Context, kind entities.RequestKind, requestID, customerID, applicationID uint64) error
	Close(ctx context.Context, kind entities.RequestKind, id, customerID uint64) error
	Delete(ctx context.Context, kind entities.RequestKind, id, customerID uint64, isAdmin bool) error
}

type requestService struct {
	serviceRepo     repositories.ServiceRequestRepositoryInterface
	materialRepo    repositories.MaterialRequestRepositoryInterface
	contractorRepo  repositories.ContractorApplicationRepositoryInterface
	distributorRepo repositories.DistributorApplicationRepositoryInterface
	txManager       repositories.TxManagerInterface
	fileStorage     filestorage.FileStorageInterface
	notifications   NotificationServiceInterface
	logger          *zap.Logger
}

func NewRequestService(
	serviceRepo repositories.ServiceRequestRepositoryInterface,
	materialRepo repositories.MaterialRequestRepositoryInterface,
	contractorRepo repositories.ContractorApplicationRepositoryInterface,
	distributorRepo repositories.DistributorApplicationRepositoryInterface,
	txManager repositories.TxManagerInterface,
	fileStorage filestorage.FileStorageInterface,
	notifications NotificationServiceInterface,
	logger *zap.Logger,
) RequestServiceInterface {
	return &requestService{
		serviceRepo:     serviceRepo,
		materialRepo:    materialRepo,
		contractorRepo:  contractorRepo,
		distributorRepo: distributorRepo,
		txManager:       txManager,
		fileStorage:     fileStorage,
		notifications:   notifications,
		logger:          logger.Named("request_service"),
	}
}

func (s *requestService) CreateServiceRequest(ctx context.Context, customerID uint64, payload dto.CreateServiceRequestDTO, files []*multipart.FileHeader) (*entities.ServiceRequest, error) {
	// Файлы проверяются целиком до первой записи куда бы то ни было.
	if err := validation.ValidateFiles(files, uploadContextRequestImage); err != nil {
		return nil, err
	}

	req := &entities.ServiceRequest{
		CustomerID:  customerID,
		Description: payload.Description,
		Address:     payload.Address,
		Status:      entities.RequestStatusOpening,
	}
	id, err := s.serviceRepo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания заявки на работы: %w", err)
	}
	req.ID = id

	images, err := s.uploadImages(files)
	if err != nil {
		return nil, err
	}
	if len(images) > 0 {
		if err := s.serviceRepo.AddImages(ctx, id, images); err != nil {
			return nil, fmt.Errorf("ошибка привязки изображений: %w", err)
		}
		req.Images = images
	}

	s.notifyPublished(ctx, entities.RequestKindService, id)
	return req, nil
}

func (s *requestService) CreateMaterialRequest(ctx context.Context, customerID uint64, payload dto.CreateMaterialRequestDTO, files []*multipart.FileHeader) (*entities.MaterialRequest, error) {
	if err := validation.ValidateFiles(files, uploadContextRequestImage); err != nil {
		return nil, err
	}

	status := entities.RequestStatusOpening
	if payload.AsDraft {
		status = entities.RequestStatusDraft
	}

	req := &entities.MaterialRequest{
		CustomerID:        customerID,
		Description:       payload.Description,
		Address:           payload.Address,
		Status:            status,
		AllowQuantityEdit: payload.AllowQuantityEdit,
	}
	for _, item := range payload.Items {
		req.Items = append(req.Items, entities.MaterialRequestItem{
			MaterialID:   item.MaterialID,
			MaterialName: item.MaterialName,
			Quantity:     item.Quantity,
		})
	}

	id, err := s.materialRepo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания заявки на материалы: %w", err)
	}
	req.ID = id

	images, err := s.uploadImages(files)
	if err != nil {
		return nil, err
	}
	if len(images) > 0 {
		if err := s.materialRepo.AddImages(ctx, id, images); err != nil {
			return nil, fmt.Errorf("ошибка привязки изображений: %w", err)
		}
		req.Images = images
	}

	if status == entities.RequestStatusOpening {
		s.notifyPublished(ctx, entities.RequestKindMaterial, id)
	}
	return req, nil
}

func (s *requestService) uploadImages(files []*multipart.FileHeader) ([]entities.RequestImage, error) {
	images := make([]entities.RequestImage, 0, len(files))
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("ошибка открытия файла '%s': %w", fh.Filename, err)
		}
		result, err := s.fileStorage.Upload(file, fh.Size, fh.Filename, requestImagesFolder)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки файла '%s': %w", fh.Filename, err)
		}
		images = append(images, entities.RequestImage{URL: result.URL, PublicID: result.PublicID})
	}
	return images, nil
}

// notifyPublished извещает партнеров соответствующей роли о новой заявке.
func (s *requestService) notifyPublished(ctx context.Context, kind entities.RequestKind, id uint64) {
	role := entities.RoleContractor
	title := titleNewServiceRequest
	if kind == entities.RequestKindMaterial {
		role = entities.RoleDistributor
		title = titleNewMaterialRequest
	}
	dataKey := fmt.Sprintf("request:%s:new", kind)
	err := s.notifications.NotifySystem(ctx, role, entities.NotificationActionSend, dataKey, title, title)
	if err != nil {
		s.logger.Error("Не удалось разослать уведомление о новой заявке",
			zap.String("kind", string(kind)), zap.Uint64("requestID", id), zap.Error(err))
	}
}

func (s *requestService) GetServiceRequest(ctx context.Context, id uint64) (*entities.ServiceRequest, error) {
	req, err := s.serviceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	images, err := s.serviceRepo.GetImages(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Images = images
	return req, nil
}

func (s *requestService) GetMaterialRequest(ctx context.Context, id uint64) (*entities.MaterialRequest, error) {
	req, err := s.materialRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	images, err := s.materialRepo.GetImages(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Images = images
	return req, nil
}

func (s *requestService) ListServiceRequests(ctx context.Context, customerID *uint64, limit, offset uint64) ([]entities.ServiceRequest, uint64, error) {
	return s.serviceRepo.List(ctx, customerID, limit, offset)
}

func (s *requestService) ListMaterialRequests(ctx context.Context, customerID *uint64, limit, offset uint64) ([]entities.MaterialRequest, uint64, error) {
	return s.materialRepo.List(ctx, customerID, limit, offset)
}

// findRequest возвращает заявку любого вида под общим контрактом.
func (s *requestService) findRequest(ctx context.Context, kind entities.RequestKind, id uint64) (entities.Request, error) {
	switch kind {
	case entities.RequestKindService:
		return s.serviceRepo.FindByID(ctx, id)
	case entities.RequestKindMaterial:
		return s.materialRepo.FindByID(ctx, id)
	default:
		return nil, apperrors.ErrBadRequest
	}
}

// Update правит описание и адрес. Разрешено только владельцу и только
// пока заявка не заблокирована выбором отклика.
func (s *requestService) Update(ctx context.Context, kind entities.RequestKind, id, customerID uint64, payload dto.UpdateRequestDTO) error {
	req, err := s.findRequest(ctx, kind, id)
	if err != nil {
		return err
	}
	if req.GetCustomerID() != customerID {
		return apperrors.ErrForbidden
	}
	if req.GetStatus() != entities.RequestStatusDraft && req.GetStatus() != entities.RequestStatusOpening {
		return apperrors.ErrRequestLocked
	}

	var description, address *string
	if payload.Description.Valid {
		description = &payload.Description.String
	}
	if payload.Address.Valid {
		address = &payload.Address.String
	}
	if description == nil && address == nil {
		return nil
	}

	if kind == entities.RequestKindService {
		return s.serviceRepo.Update(ctx, id, description, address)
	}
	return s.materialRepo.Update(ctx, id, description, address)
}

// Publish переводит черновик в открытую заявку и извещает партнеров.
func (s *requestService) Publish(ctx context.Context, kind entities.RequestKind, id, customerID uint64) error {
	req, err := s.findRequest(ctx, kind, id)
	if err != nil {
		return err
	}
	if req.GetCustomerID() != customerID {
		return apperrors.ErrForbidden
	}
	if req.GetStatus() != entities.RequestStatusDraft {
		return apperrors.ErrInvalidState
	}

	if err := s.updateStatus(ctx, kind, id, entities.RequestStatusOpening); err != nil {
		return err
	}
	s.notifyPublished(ctx, kind, id)
	return nil
}

func (s *requestService) updateStatus(ctx context.Context, kind entities.RequestKind, id uint64, status entities.RequestStatus) error {
	if kind == entities.RequestKindService {
		return s.serviceRepo.UpdateStatus(ctx, nil, id, status)
	}
	return s.materialRepo.UpdateStatus(ctx, nil, id, status)
}

// SelectApplication фиксирует выбор отклика заказчиком: отклик переходит в
// PendingCommission, заявка блокируется. Подрядчику выставляется срок
// оплаты комиссии; поставщик идет на расчет без срока.
func (s *requestService) SelectApplication(ctx context.Context, kind entities.RequestKind, requestID, customerID, applicationID uint64) error {
	req, err := s.findRequest(ctx, kind, requestID)
	if err != nil {
		return err
	}
	if req.GetCustomerID() != customerID {
		return apperrors.ErrForbidden
	}
	// Повторный выбор по уже заблокированной заявке запрещен.
	if req.GetStatus() != entities.RequestStatusOpening || req.GetSelectedApplicationID() != nil {
		return apperrors.ErrRequestLocked
	}

	var partnerID uint64
	var due *time.Time

	switch kind {
	case entities.RequestKindService:
		app, err := s.contractorRepo.FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.RequestID != requestID {
			return apperrors.ErrNotFound
		}
		if app.Status != entities.ApplicationStatusPending {
			return apperrors.ErrInvalidState
		}
		partnerID = app.PartnerID
		deadline := time.Now().UTC().Add(commissionDuePeriod)
		due = &deadline

		err = s.txManager.WithinTransaction(ctx, func(q repositories.Querier) error {
			if err := s.contractorRepo.UpdateStatus(ctx, q, applicationID, entities.ApplicationStatusPendingCommission, due); err != nil {
				return err
			}
			return s.serviceRepo.SetSelectedApplication(ctx, q, requestID, applicationID)
		})
		if err != nil {
			return err
		}
	case entities.RequestKindMaterial:
		app, err := s.distributorRepo.FindByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.RequestID != requestID {
			return apperrors.ErrNotFound
		}
		if app.Status != entities.ApplicationStatusPending {
			return apperrors.ErrInvalidState
		}
		partnerID = app.PartnerID

		err = s.txManager.WithinTransaction(ctx, func(q repositories.Querier) error {
			if err := s.distributorRepo.UpdateStatus(ctx, q, applicationID, entities.ApplicationStatusPendingCommission, nil); err != nil {
				return err
			}
			return s.materialRepo.SetSelectedApplication(ctx, q, requestID, applicationID)
		})
		if err != nil {
			return err
		}
	default:
		return apperrors.ErrBadRequest
	}

	dataKey := fmt.Sprintf("application:%d", applicationID)
	if err := s.notifications.NotifyUser(ctx, partnerID, entities.NotificationActionAccept, dataKey, titleAppAccepted, titleAppAccepted); err != nil {
		s.logger.Error("Не удалось уведомить партнера о выборе отклика",
			zap.Uint64("applicationID", applicationID), zap.Error(err))
	}
	return nil
}

// Close закрывает заявку. Операция идемпотентна: закрытие закрытой - no-op.
func (s *requestService) Close(ctx context.Context, kind entities.RequestKind, id, customerID uint64) error {
	req, err := s.findRequest(ctx, kind, id)
	if err != nil {
		return err
	}
	if req.GetCustomerID() != customerID {
		return apperrors.ErrForbidden
	}
	if req.GetStatus() == entities.RequestStatusClosed {
		return nil
	}
	return s.updateStatus(ctx, kind, id, entities.RequestStatusClosed)
}

// Delete удаляет заявку со всем содержимым. Сначала чистится blob-хранилище,
// затем каскадно удаляются записи; осиротевшие объекты хуже осиротевших строк.
func (s *requestService) Delete(ctx context.Context, kind entities.RequestKind, id, customerID uint64, isAdmin bool) error {
	req, err := s.findRequest(ctx, kind, id)
	if err != nil {
		return err
	}
	if !isAdmin && req.GetCustomerID() != customerID {
		return apperrors.ErrForbidden
	}

	var images []entities.RequestImage
	if kind == entities.RequestKindService {
		images, err = s.serviceRepo.GetImages(ctx, id)
	} else {
		images, err = s.materialRepo.GetImages(ctx, id)
	}
	if err != nil {
		return err
	}

	for _, img := range images {
		if err := s.fileStorage.Delete(img.PublicID); err != nil {
			s.logger.Error("Не удалось удалить объект из blob-хранилища",
				zap.String("publicID", img.PublicID), zap.Error(err))
		}
	}

	if kind == entities.RequestKindService {
		return s.serviceRepo.Delete(ctx, id)
	}
	return s.materialRepo.Delete(ctx, id)
}
