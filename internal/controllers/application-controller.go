package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	"marketplace-system/internal/services"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/utils"
)

type ApplicationController struct {
	applicationService services.ApplicationServiceInterface
	logger             *zap.Logger
}

func NewApplicationController(applicationService services.ApplicationServiceInterface, logger *zap.Logger) *ApplicationController {
	return &ApplicationController{
		applicationService: applicationService,
		logger:             logger.Named("application_controller"),
	}
}

// Submit подает отклик партнера на открытую заявку.
func (ctrl *ApplicationController) Submit(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	requestID, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	partnerID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	if kind == entities.RequestKindService {
		var payload dto.CreateContractorApplicationDTO
		if err := c.Bind(&payload); err != nil {
			return utils.ErrorResponse(c, apperrors.ErrBadRequest, ctrl.logger)
		}
		if err := c.Validate(&payload); err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
		app, err := ctrl.applicationService.SubmitContractor(c.Request().Context(), partnerID, requestID, payload)
		if err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
		return utils.SuccessResponse(c, app, "Отклик подан", http.StatusCreated)
	}

	var payload dto.CreateDistributorApplicationDTO
	if err := c.Bind(&payload); err != nil {
		return utils.ErrorResponse(c, apperrors.ErrBadRequest, ctrl.logger)
	}
	if err := c.Validate(&payload); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	app, err := ctrl.applicationService.SubmitDistributor(c.Request().Context(), partnerID, requestID, payload)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, app, "Отклик подан", http.StatusCreated)
}

func (ctrl *ApplicationController) ListByRequest(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	requestID, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	list, err := ctrl.applicationService.ListByRequest(c.Request().Context(), kind, requestID)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, list, "OK", http.StatusOK)
}

func (ctrl *ApplicationController) GetByID(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "applicationId")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	if kind == entities.RequestKindService {
		app, err := ctrl.applicationService.GetContractorApplication(c.Request().Context(), id)
		if err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
		return utils.SuccessResponse(c, app, "OK", http.StatusOK)
	}
	app, err := ctrl.applicationService.GetDistributorApplication(c.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, app, "OK", http.StatusOK)
}

func (ctrl *ApplicationController) Reject(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "applicationId")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	userID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	roles, err := utils.GetUserRolesFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	isAdmin := utils.RolesContain(roles, entities.RoleAdmin)

	if err := ctrl.applicationService.Reject(c.Request().Context(), kind, id, userID, isAdmin); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, nil, "Отклик отклонен", http.StatusOK)
}

func (ctrl *ApplicationController) Delete(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "applicationId")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	partnerID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	if err := ctrl.applicationService.Delete(c.Request().Context(), kind, id, partnerID); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, nil, "Отклик отозван", http.StatusOK)
}
