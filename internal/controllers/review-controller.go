package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/services"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/utils"
)

type ReviewController struct {
	reputationService services.ReputationServiceInterface
	logger            *zap.Logger
}

func NewReviewController(reputationService services.ReputationServiceInterface, logger *zap.Logger) *ReviewController {
	return &ReviewController{
		reputationService: reputationService,
		logger:            logger.Named("review_controller"),
	}
}

func (ctrl *ReviewController) Create(c echo.Context) error {
	userID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	var payload dto.CreateReviewDTO
	if err := c.Bind(&payload); err != nil {
		return utils.ErrorResponse(c, apperrors.ErrBadRequest, ctrl.logger)
	}
	if err := c.Validate(&payload); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	review, err := ctrl.reputationService.ApplyReview(c.Request().Context(), userID, payload)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, review, "Отзыв сохранен", http.StatusCreated)
}

func (ctrl *ReviewController) ListByPartner(c echo.Context) error {
	partnerID, err := parseID(c, "partnerId")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	filter := utils.ParseFilterFromQuery(c.Request().URL.Query())
	list, total, err := ctrl.reputationService.ListPartnerReviews(c.Request().Context(), partnerID, uint64(filter.Limit), uint64(filter.Offset))
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, list, "OK", http.StatusOK, total)
}
