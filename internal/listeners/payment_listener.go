package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"marketplace-system/internal/events"
	"marketplace-system/pkg/eventbus"
	"marketplace-system/pkg/mailer"
	"marketplace-system/pkg/websocket"
)

const paymentStatusEventName = "payment_status"

// PaymentListener рассылает побочные эффекты исхода оплаты комиссии:
// push заинтересованным сторонам и письмо партнеру. Основной сценарий
// обработчика callback'а от этих эффектов не зависит.
type PaymentListener struct {
	hub    *websocket.Hub
	mailer mailer.MailerInterface
	logger *zap.Logger
}

func NewPaymentListener(hub *websocket.Hub, m mailer.MailerInterface, logger *zap.Logger) *PaymentListener {
	return &PaymentListener{
		hub:    hub,
		mailer: m,
		logger: logger.Named("payment_listener"),
	}
}

func (l *PaymentListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.PaymentStatusChangedName, l.onPaymentStatusChanged)
}

func (l *PaymentListener) onPaymentStatusChanged(ctx context.Context, event eventbus.Event) error {
	payload, ok := event.(events.PaymentStatusChanged)
	if !ok {
		return fmt.Errorf("неожиданный тип события: %T", event)
	}

	statusPayload := websocket.PaymentStatusPayload{
		RequestID:     payload.RequestID,
		ApplicationID: payload.ApplicationID,
		Status:        payload.Status,
	}
	if err := l.hub.SendToUser(payload.PartnerID, paymentStatusEventName, statusPayload); err != nil {
		l.logger.Error("Не удалось отправить push партнеру", zap.Error(err))
	}
	if payload.CustomerID != 0 {
		if err := l.hub.SendToUser(payload.CustomerID, paymentStatusEventName, statusPayload); err != nil {
			l.logger.Error("Не удалось отправить push заказчику", zap.Error(err))
		}
	}

	if payload.PartnerEmail != "" {
		subject := "Kết quả thanh toán hoa hồng"
		body := fmt.Sprintf(
			"<p>Trạng thái thanh toán cho đơn đăng ký #%d: <b>%s</b>.</p><p>Số tiền: %d</p>",
			payload.ApplicationID, payload.Status, payload.Amount,
		)
		l.mailer.Queue(payload.PartnerEmail, subject, body)
	}
	return nil
}
