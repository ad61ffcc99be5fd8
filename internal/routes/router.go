package routes

import (
	"github.com/labstack/echo/v4"

	"marketplace-system/internal/controllers"
	"marketplace-system/internal/entities"
	"marketplace-system/pkg/middleware"
)

type Controllers struct {
	Auth         *controllers.AuthController
	Request      *controllers.RequestController
	Application  *controllers.ApplicationController
	Payment      *controllers.PaymentController
	Notification *controllers.NotificationController
	Review       *controllers.ReviewController
	Report       *controllers.ReportController
	Websocket    *controllers.WebsocketController
}

// Register собирает все маршруты API. Webhook провайдера - единственный
// маршрут без аутентификации, кроме логина.
func Register(e *echo.Echo, auth *middleware.AuthMiddleware, c Controllers) {
	api := e.Group("/api/v1")

	// Публичные маршруты.
	api.POST("/auth/login", c.Auth.Login)
	api.POST("/auth/refresh", c.Auth.Refresh)
	api.POST("/payments/callback", c.Payment.Callback)

	// Все остальное - под access-токеном.
	secured := api.Group("", auth.Auth)

	secured.GET("/auth/profile", c.Auth.Profile)
	secured.GET("/ws", c.Websocket.Serve)

	// Заявки. :kind - service | material.
	requests := secured.Group("/requests/:kind")
	requests.POST("", c.Request.Create, auth.RequireRole(entities.RoleCustomer))
	requests.GET("", c.Request.List)
	requests.GET("/:id", c.Request.GetByID)
	requests.PATCH("/:id", c.Request.Update, auth.RequireRole(entities.RoleCustomer))
	requests.POST("/:id/publish", c.Request.Publish, auth.RequireRole(entities.RoleCustomer))
	requests.POST("/:id/select", c.Request.SelectApplication, auth.RequireRole(entities.RoleCustomer))
	requests.POST("/:id/close", c.Request.Close, auth.RequireRole(entities.RoleCustomer))
	requests.DELETE("/:id", c.Request.Delete, auth.RequireRole(entities.RoleCustomer, entities.RoleAdmin))

	// Отклики партнеров.
	requests.POST("/:id/applications", c.Application.Submit,
		auth.RequireRole(entities.RoleContractor, entities.RoleDistributor))
	requests.GET("/:id/applications", c.Application.ListByRequest)

	applications := secured.Group("/applications/:kind")
	applications.GET("/:applicationId", c.Application.GetByID)
	applications.POST("/:applicationId/reject", c.Application.Reject,
		auth.RequireRole(entities.RoleCustomer, entities.RoleAdmin))
	applications.DELETE("/:applicationId", c.Application.Delete,
		auth.RequireRole(entities.RoleContractor, entities.RoleDistributor))

	// Оплата комиссии.
	secured.POST("/payments/:kind/checkout", c.Payment.CreateCheckout,
		auth.RequireRole(entities.RoleContractor, entities.RoleDistributor))
	secured.GET("/payments", c.Payment.List, auth.RequireRole(entities.RoleAdmin))

	// Уведомления.
	notifications := secured.Group("/notifications")
	notifications.GET("", c.Notification.List)
	notifications.GET("/unread-count", c.Notification.UnreadCount)
	notifications.PATCH("/:id/read", c.Notification.MarkRead)
	notifications.PATCH("/read-all", c.Notification.MarkAllRead)

	// Отзывы и репутация.
	secured.POST("/reviews", c.Review.Create, auth.RequireRole(entities.RoleCustomer))
	secured.GET("/partners/:partnerId/reviews", c.Review.ListByPartner)

	// Отчеты.
	secured.GET("/reports/payments", c.Report.PaymentLedger, auth.RequireRole(entities.RoleAdmin))
}
