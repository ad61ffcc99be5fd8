package dto

type CreateCheckoutDTO struct {
	ApplicationID uint64 `json:"applicationId" validate:"required"`
	RequestID     uint64 `json:"requestId" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Description   string `json:"description" validate:"required"`
}

type CheckoutInfoDTO struct {
	OrderCode   int64  `json:"orderCode"`
	CheckoutURL string `json:"checkoutUrl"`
}

type PaymentTransactionDTO struct {
	ID            uint64 `json:"id"`
	ApplicationID uint64 `json:"applicationId"`
	RequestID     uint64 `json:"requestId"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	OrderCode     int64  `json:"orderCode"`
	CheckoutURL   string `json:"checkoutUrl"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	PaidAt        string `json:"paidAt,omitempty"`
}
