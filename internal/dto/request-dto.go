package dto

import (
	"github.com/aarondl/null/v8"
)

type CreateServiceRequestDTO struct {
	Description string `json:"description" validate:"required,min=10"`
	Address     string `json:"address" validate:"required"`
}

type MaterialRequestItemDTO struct {
	MaterialID   uint64 `json:"materialId" validate:"required"`
	MaterialName string `json:"materialName" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

type CreateMaterialRequestDTO struct {
	Description       string                   `json:"description" validate:"required,min=10"`
	Address           string                   `json:"address" validate:"required"`
	AllowQuantityEdit bool                     `json:"allowQuantityEdit"`
	AsDraft           bool                     `json:"asDraft"`
	Items             []MaterialRequestItemDTO `json:"items" validate:"required,min=1,dive"`
}

// UpdateRequestDTO - частичное обновление заявки (только пока она Draft/Opening).
type UpdateRequestDTO struct {
	Description null.String `json:"description"`
	Address     null.String `json:"address"`
}

type SelectApplicationDTO struct {
	ApplicationID uint64 `json:"applicationId" validate:"required"`
}

type RequestImageDTO struct {
	ID  uint64 `json:"id"`
	URL string `json:"url"`
}

type ServiceRequestDTO struct {
	ID                    uint64            `json:"id"`
	CustomerID            uint64            `json:"customerId"`
	Description           string            `json:"description"`
	Address               string            `json:"address"`
	Status                string            `json:"status"`
	SelectedApplicationID *uint64           `json:"selectedApplicationId,omitempty"`
	Images                []RequestImageDTO `json:"images"`
	CreatedAt             string            `json:"created_at"`
}

type MaterialRequestDTO struct {
	ID                    uint64                   `json:"id"`
	CustomerID            uint64                   `json:"customerId"`
	Description           string                   `json:"description"`
	Address               string                   `json:"address"`
	Status                string                   `json:"status"`
	AllowQuantityEdit     bool                     `json:"allowQuantityEdit"`
	SelectedApplicationID *uint64                  `json:"selectedApplicationId,omitempty"`
	Items                 []MaterialRequestItemDTO `json:"items"`
	Images                []RequestImageDTO        `json:"images"`
	CreatedAt             string                   `json:"created_at"`
}
