package entities

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// PaymentTransaction - запись об оплате комиссии за выбранный отклик.
// OrderCode уникален и служит единственным ключом корреляции callback'а
// провайдера. Запись мутируется callback-обработчиком ровно один раз:
// успех переводит в Paid, отказ удаляет строку.
type PaymentTransaction struct {
	ID            uint64        `json:"id"`
	ApplicationID uint64        `json:"applicationId"`
	RequestID     uint64        `json:"requestId"`
	Amount        int64         `json:"amount"`
	Description   string        `json:"description"`
	OrderCode     int64         `json:"orderCode"`
	CheckoutURL   string        `json:"checkoutUrl"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
}
