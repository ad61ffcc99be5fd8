package entities

import "time"

// Review - отзыв заказчика о завершенной заявке. На заявку допускается
// не более одного отзыва.
type Review struct {
	ID          uint64      `json:"id"`
	RequestID   uint64      `json:"requestId"`
	RequestKind RequestKind `json:"requestKind"`
	PartnerID   uint64      `json:"partnerId"`
	CustomerID  uint64      `json:"customerId"`
	Rating      int         `json:"rating"`
	Comment     string      `json:"comment"`
	CreatedAt   time.Time   `json:"created_at"`
}
