package controllers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	"marketplace-system/internal/services"
	apperrors "marketplace-system/pkg/errors"
	"marketplace-system/pkg/utils"
)

type RequestController struct {
	requestService services.RequestServiceInterface
	logger         *zap.Logger
}

func NewRequestController(requestService services.RequestServiceInterface, logger *zap.Logger) *RequestController {
	return &RequestController{
		requestService: requestService,
		logger:         logger.Named("request_controller"),
	}
}

func parseKind(c echo.Context) (entities.RequestKind, error) {
	kind := entities.RequestKind(c.Param("kind"))
	if kind != entities.RequestKindService && kind != entities.RequestKindMaterial {
		return "", apperrors.ErrBadRequest
	}
	return kind, nil
}

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.ErrBadRequest
	}
	return id, nil
}

func formFiles(c echo.Context, field string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}

// Create принимает multipart-форму: текстовые поля + до пяти изображений
// в поле images. Позиции материалов передаются JSON-строкой в поле items.
func (ctrl *RequestController) Create(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	userID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	files := formFiles(c, "images")

	if kind == entities.RequestKindService {
		payload := dto.CreateServiceRequestDTO{
			Description: c.FormValue("description"),
			Address:     c.FormValue("address"),
		}
		if err := c.Validate(&payload); err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
		req, err := ctrl.requestService.CreateServiceRequest(c.Request().Context(), userID, payload, files)
		if err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
		return utils.SuccessResponse(c, req, "Заявка создана", http.StatusCreated)
	}

	payload := dto.CreateMaterialRequestDTO{
		Description: c.FormValue("description"),
		Address:     c.FormValue("address"),
	}
	payload.AllowQuantityEdit, _ = strconv.ParseBool(c.FormValue("allowQuantityEdit"))
	payload.AsDraft, _ = strconv.ParseBool(c.FormValue("asDraft"))
	if rawItems := c.FormValue("items"); rawItems != "" {
		if err := json.Unmarshal([]byte(rawItems), &payload.Items); err != nil {
			return utils.ErrorResponse(c, apperrors.NewHttpError(http.StatusBadRequest, "Некорректный формат позиций", err), ctrl.logger)
		}
	}
	if err := c.Validate(&payload); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	req, err := ctrl.requestService.CreateMaterialRequest(c.Request().Context(), userID, payload, files)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, req, "Заявка создана", http.StatusCreated)
}

func (ctrl *RequestController) GetByID(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	if kind == entities.RequestKindService {
		req, err := ctrl.requestService.GetServiceRequest(c.Request().Context(), id)
		if err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
		return utils.SuccessResponse(c, req, "OK", http.StatusOK)
	}
	req, err := ctrl.requestService.GetMaterialRequest(c.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, req, "OK", http.StatusOK)
}

// List отдает заявки. mine=true ограничивает выборку заявками текущего
// пользователя.
func (ctrl *RequestController) List(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	filter := utils.ParseFilterFromQuery(c.Request().URL.Query())

	var customerID *uint64
	if mine, _ := strconv.ParseBool(c.QueryParam("mine")); mine {
		userID, err := utils.GetUserIDFromCtx(c.Request().Context())
		if err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
		customerID = &userID
	}

	if kind == entities.RequestKindService {
		list, total, err := ctrl.requestService.ListServiceRequests(c.Request().Context(), customerID, uint64(filter.Limit), uint64(filter.Offset))
		if err != nil {
			return utils.ErrorResponse(c, err, ctrl.logger)
		}
		return utils.SuccessResponse(c, list, "OK", http.StatusOK, total)
	}
	list, total, err := ctrl.requestService.ListMaterialRequests(c.Request().Context(), customerID, uint64(filter.Limit), uint64(filter.Offset))
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, list, "OK", http.StatusOK, total)
}

func (ctrl *RequestController) Update(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	userID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	var payload dto.UpdateRequestDTO
	if err := c.Bind(&payload); err != nil {
		return utils.ErrorResponse(c, apperrors.ErrBadRequest, ctrl.logger)
	}
	if err := ctrl.requestService.Update(c.Request().Context(), kind, id, userID, payload); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, nil, "Заявка обновлена", http.StatusOK)
}

func (ctrl *RequestController) Publish(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	userID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	if err := ctrl.requestService.Publish(c.Request().Context(), kind, id, userID); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, nil, "Заявка опубликована", http.StatusOK)
}

func (ctrl *RequestController) SelectApplication(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	userID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	var payload dto.SelectApplicationDTO
	if err := c.Bind(&payload); err != nil {
		return utils.ErrorResponse(c, apperrors.ErrBadRequest, ctrl.logger)
	}
	if err := c.Validate(&payload); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	if err := ctrl.requestService.SelectApplication(c.Request().Context(), kind, id, userID, payload.ApplicationID); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, nil, "Отклик выбран", http.StatusOK)
}

func (ctrl *RequestController) Close(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	userID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	if err := ctrl.requestService.Close(c.Request().Context(), kind, id, userID); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, nil, "Заявка закрыта", http.StatusOK)
}

func (ctrl *RequestController) Delete(c echo.Context) error {
	kind, err := parseKind(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	id, err := parseID(c, "id")
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

	if err := ctrl.requestService.Delete(c.Request().Context(), kind, id, userID, isAdmin); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, nil, "Заявка удалена", http.StatusOK)
}
