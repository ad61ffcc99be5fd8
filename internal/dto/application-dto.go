package dto

type CreateContractorApplicationDTO struct {
	Description   string `json:"description" validate:"required,min=10"`
	EstimatePrice int64  `json:"estimatePrice" validate:"required,gt=0"`
}

type DistributorApplicationItemDTO struct {
	MaterialID uint64 `json:"materialId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	UnitPrice  int64  `json:"unitPrice" validate:"required,gt=0"`
}

type CreateDistributorApplicationDTO struct {
	Description string                          `json:"description"`
	Items       []DistributorApplicationItemDTO `json:"items" validate:"required,min=1,dive"`
}

type ContractorApplicationDTO struct {
	ID                uint64 `json:"id"`
	PartnerID         uint64 `json:"partnerId"`
	RequestID         uint64 `json:"requestId"`
	Description       string `json:"description"`
	EstimatePrice     int64  `json:"estimatePrice"`
	Status            string `json:"status"`
	DueCommissionTime string `json:"dueCommissionTime,omitempty"`
	CreatedAt         string `json:"created_at"`
}

type DistributorApplicationDTO struct {
	ID                 uint64                          `json:"id"`
	PartnerID          uint64                          `json:"partnerId"`
	RequestID          uint64                          `json:"requestId"`
	Description        string                          `json:"description"`
	TotalEstimatePrice int64                           `json:"totalEstimatePrice"`
	Status             string                          `json:"status"`
	Items              []DistributorApplicationItemDTO `json:"items"`
	CreatedAt          string                          `json:"created_at"`
}

// ApplicationContactDTO - данные партнера в уведомлении о новом отклике.
// В копии для владельца заявки контакты затираются, в копии для
// администраторов остаются.
type ApplicationContactDTO struct {
	PartnerName  string `json:"partnerName"`
	PartnerPhone string `json:"partnerPhone,omitempty"`
	PartnerEmail string `json:"partnerEmail,omitempty"`
}
