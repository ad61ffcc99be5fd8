package controllers

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"marketplace-system/pkg/utils"
	ws "marketplace-system/pkg/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin проверяется на уровне reverse-proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebsocketController struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func NewWebsocketController(hub *ws.Hub, logger *zap.Logger) *WebsocketController {
	return &WebsocketController{
		hub:    hub,
		logger: logger.Named("websocket_controller"),
	}
}

// Serve поднимает соединение до WebSocket и регистрирует клиента в хабе.
func (ctrl *WebsocketController) Serve(c echo.Context) error {
	userID, err := utils.GetUserIDFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	roles, err := utils.GetUserRolesFromCtx(c.Request().Context())
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		ctrl.logger.Error("Не удалось поднять WebSocket-соединение", zap.Error(err))
		return err
	}

	client := ws.NewClient(ctrl.hub, conn, userID, roles)
	ctrl.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
	return nil
}
