package dto

type CreateReviewDTO struct {
	RequestID   uint64 `json:"requestId" validate:"required"`
	RequestKind string `json:"requestKind" validate:"required,oneof=service material"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comment     string `json:"comment"`
}

type ReviewDTO struct {
	ID         uint64 `json:"id"`
	RequestID  uint64 `json:"requestId"`
	PartnerID  uint64 `json:"partnerId"`
	CustomerID uint64 `json:"customerId"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	CreatedAt  string `json:"created_at"`
}
