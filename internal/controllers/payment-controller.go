package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/services"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/payment"
	"marketplace-system/pkg/utils"
)

type PaymentController struct {
	paymentService services.PaymentServiceInterface
	logger         *zap.Logger
}

func NewPaymentController(paymentService services.PaymentServiceInterface, logger *zap.Logger) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         logger.Named("payment_controller"),
	}
}

func (ctrl *PaymentController) CreateCheckout(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	partnerID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	var payload dto.CreateCheckoutDTO
	if err := c.Bind(&payload); err != nil {
		return utils.ErrorResponse(c, apperrors.ErrBadRequest, ctrl.logger)
	}
	if err := c.Validate(&payload); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	info, err := ctrl.paymentService.CreateCheckout(c.Request().Context(), kind, partnerID, payload)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, info, "Платежная ссылка создана", http.StatusCreated)
}

// Callback - публичный webhook провайдера. Всегда отвечает 200:
// провайдер ретраит любой другой код, а обработчик и так идемпотентен.
func (ctrl *PaymentController) Callback(c echo.Context) error {
	var payload payment.CallbackPayload
	if err := c.Bind(&payload); err != nil {
		ctrl.logger.Warn("Неразборчивый callback провайдера", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
	}

	if err := ctrl.paymentService.HandleCallback(c.Request().Context(), payload); err != nil {
		ctrl.logger.Error("Ошибка обработки callback'а",
			zap.Int64("orderCode", payload.OrderCode), zap.Error(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (ctrl *PaymentController) List(c echo.Context) error {
	filter := utils.ParseFilterFromQuery(c.Request().URL.Query())
	list, total, err := ctrl.paymentService.ListTransactions(c.Request().Context(), uint64(filter.Limit), uint64(filter.Offset))
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, list, "OK", http.StatusOK, total)
}
