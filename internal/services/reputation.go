package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	"marketplace-system/internal/repositories"
	apperrors "marketplace-system/pkg/errors"
)

// Порог стоимости проекта, ниже которого репутационные очки не начисляются.
const reputationValueThreshold = 10_000_000

const (
	reputationLockKeyFormat = "reputation:partner:%d"
	reputationLockTTL       = 10 * time.Second
)

// Множители по оценке: высокая оценка умножает базовые очки,
// низкая превращает их в штраф.
var ratingMultipliers = map[int]float64{
	5: 1.5,
	4: 1.0,
	3: 0.0,
	2: -1.0,
	1: -2.0,
}

type ReputationServiceInterface interface {
	// ApplyReview фиксирует отзыв заказчика и один раз вкатывает его
	// в агрегаты партнера (скользящее среднее + очки). Повторный отзыв
	// на ту же заявку отклоняется.
	ApplyReview(ctx context.Context, customerID uint64, payload dto.CreateReviewDTO) (*entities.Review, error)
	ListPartnerReviews(ctx context.Context, partnerID uint64, limit, offset uint64) ([]entities.Review, uint64, error)
}

type reputationService struct {
	reviewRepo      repositories.ReviewRepositoryInterface
	userRepo        repositories.UserRepositoryInterface
	serviceRepo     repositories.ServiceRequestRepositoryInterface
	materialRepo    repositories.MaterialRequestRepositoryInterface
	contractorRepo  repositories.ContractorApplicationRepositoryInterface
	distributorRepo repositories.DistributorApplicationRepositoryInterface
	cache           repositories.CacheRepositoryInterface
	txManager       repositories.TxManagerInterface
	logger          *zap.Logger
}

func NewReputationService(
	reviewRepo repositories.ReviewRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	serviceRepo repositories.ServiceRequestRepositoryInterface,
	materialRepo repositories.MaterialRequestRepositoryInterface,
	contractorRepo repositories.ContractorApplicationRepositoryInterface,
	distributorRepo repositories.DistributorApplicationRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	txManager repositories.TxManagerInterface,
	logger *zap.Logger,
) ReputationServiceInterface {
	return &reputationService{
		reviewRepo:      reviewRepo,
		userRepo:        userRepo,
		serviceRepo:     serviceRepo,
		materialRepo:    materialRepo,
		contractorRepo:  contractorRepo,
		distributorRepo: distributorRepo,
		cache:           cache,
		txManager:       txManager,
		logger:          logger.Named("reputation_service"),
	}
}

func (s *reputationService) ApplyReview(ctx context.Context, customerID uint64, payload dto.CreateReviewDTO) (*entities.Review, error) {
	kind := entities.RequestKind(payload.RequestKind)

	partnerID, projectValue, err := s.resolveSettlement(ctx, kind, payload.RequestID, customerID)
	if err != nil {
		return nil, err
	}

	// Замок на партнера: два параллельных отзыва не должны читать
	// одни и те же агрегаты.
	lockKey := fmt.Sprintf(reputationLockKeyFormat, partnerID)
	acquired, err := s.cache.SetNX(ctx, lockKey, 1, reputationLockTTL)
	if err != nil {
		s.logger.Warn("Не удалось взять замок репутации", zap.Error(err))
	} else if !acquired {
		return nil, apperrors.ErrConflict
	}
	defer func() {
		if err := s.cache.Del(context.Background(), lockKey); err != nil {
			s.logger.Warn("Не удалось снять замок репутации", zap.Error(err))
		}
	}()

	partner, err := s.userRepo.FindByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	newCount := partner.RatingCount + 1
	newAverage := (partner.AverageRating*float64(partner.RatingCount) + float64(payload.Rating)) / float64(newCount)
	newPoints := partner.ReputationPoints + ReputationDelta(projectValue, payload.Rating)

	review := &entities.Review{
		RequestID:   payload.RequestID,
		RequestKind: kind,
		PartnerID:   partnerID,
		CustomerID:  customerID,
		Rating:      payload.Rating,
		Comment:     payload.Comment,
	}

	err = s.txManager.WithinTransaction(ctx, func(q repositories.Querier) error {
		id, err := s.reviewRepo.Create(ctx, q, review)
		if err != nil {
			return err
		}
		review.ID = id
		return s.userRepo.UpdateReputation(ctx, q, partnerID, newAverage, newCount, newPoints)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// resolveSettlement находит расчетный отклик заявки: отзыв допустим только
// по своей заявке с выбранным и одобренным откликом. Возвращает партнера
// и денежную оценку проекта.
func (s *reputationService) resolveSettlement(ctx context.Context, kind entities.RequestKind, requestID, customerID uint64) (uint64, int64, error) {
	var req entities.Request
	var err error
	switch kind {
	case entities.RequestKindService:
		req, err = s.serviceRepo.FindByID(ctx, requestID)
	case entities.RequestKindMaterial:
		req, err = s.materialRepo.FindByID(ctx, requestID)
	default:
		return 0, 0, apperrors.ErrBadRequest
	}
	if err != nil {
		return 0, 0, err
	}
	if req.GetCustomerID() != customerID {
		return 0, 0, apperrors.ErrForbidden
	}
	selected := req.GetSelectedApplicationID()
	if selected == nil {
		return 0, 0, apperrors.ErrInvalidState
	}

	var app entities.Application
	if kind == entities.RequestKindService {
		app, err = s.contractorRepo.FindByID(ctx, *selected)
	} else {
		app, err = s.distributorRepo.FindByID(ctx, *selected)
	}
	if err != nil {
		// Выбранный отклик исчез - оцениваем партнера без стоимости проекта
		// нельзя, некого оценивать.
		return 0, 0, err
	}
	if app.GetStatus() != entities.ApplicationStatusApproved {
		return 0, 0, apperrors.ErrInvalidState
	}
	return app.GetPartnerID(), app.EstimateValue(), nil
}

func (s *reputationService) ListPartnerReviews(ctx context.Context, partnerID uint64, limit, offset uint64) ([]entities.Review, uint64, error) {
	return s.reviewRepo.ListByPartner(ctx, partnerID, limit, offset)
}

// ReputationDelta считает изменение очков за один отзыв.
// База растет логарифмически со стоимостью проекта (порядок величины минус
// семь, утроенный, в пределах [1..50]); проекты дешевле порога базы не дают.
// Оценка превращает базу в бонус или штраф через множитель.
func ReputationDelta(projectValue int64, rating int) int64 {
	if projectValue < reputationValueThreshold {
		return 0
	}
	base := math.Floor((math.Log10(float64(projectValue)) - 7) * 3)
	if base < 1 {
		base = 1
	}
	if base > 50 {
		base = 50
	}
	multiplier := ratingMultipliers[rating]
	return int64(math.Round(base * multiplier))
}
