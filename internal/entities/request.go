package entities

import "time"

type RequestStatus string

const (
	RequestStatusDraft   RequestStatus = "Draft"
	RequestStatusOpening RequestStatus = "Opening"
	RequestStatusPending RequestStatus = "Pending"
	RequestStatusClosed  RequestStatus = "Closed"
)

type RequestKind string

const (
	RequestKindService  RequestKind = "service"
	RequestKindMaterial RequestKind = "material"
)

// Request - общий контракт двух видов заявок (на работы и на материалы).
// Жизненный цикл у них один, различается только состав позиций.
type Request interface {
	GetID() uint64
	GetCustomerID() uint64
	GetStatus() RequestStatus
	GetSelectedApplicationID() *uint64
	Kind() RequestKind
}

// RequestImage - изображение, прикрепленное к заявке.
// PublicID хранится для удаления объекта из blob-хранилища
// перед каскадным удалением заявки.
type RequestImage struct {
	ID       uint64 `json:"id"`
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// ServiceRequest - заявка на строительные/ремонтные работы.
type ServiceRequest struct {
	ID                    uint64         `json:"id"`
	CustomerID            uint64         `json:"customerId"`
	Description           string         `json:"description"`
	Address               string         `json:"address"`
	Status                RequestStatus  `json:"status"`
	SelectedApplicationID *uint64        `json:"selectedApplicationId,omitempty"`
	Images                []RequestImage `json:"images,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             *time.Time     `json:"updated_at,omitempty"`
}

func (r *ServiceRequest) GetID() uint64                     { return r.ID }
func (r *ServiceRequest) GetCustomerID() uint64             { return r.CustomerID }
func (r *ServiceRequest) GetStatus() RequestStatus          { return r.Status }
func (r *ServiceRequest) GetSelectedApplicationID() *uint64 { return r.SelectedApplicationID }
func (r *ServiceRequest) Kind() RequestKind                 { return RequestKindService }

// MaterialRequestItem - позиция заявки на поставку: материал и количество.
type MaterialRequestItem struct {
	ID           uint64 `json:"id"`
	RequestID    uint64 `json:"requestId"`
	MaterialID   uint64 `json:"materialId"`
	MaterialName string `json:"materialName"`
	Quantity     int    `json:"quantity"`
}

// MaterialRequest - заявка на поставку материалов.
// AllowQuantityEdit управляет структурной развилкой при подаче откликов:
// либо поставщик задает количества сам, либо они копируются из заявки.
type MaterialRequest struct {
	ID                    uint64                `json:"id"`
	CustomerID            uint64                `json:"customerId"`
	Description           string                `json:"description"`
	Address               string                `json:"address"`
	Status                RequestStatus         `json:"status"`
	AllowQuantityEdit     bool                  `json:"allowQuantityEdit"`
	SelectedApplicationID *uint64               `json:"selectedApplicationId,omitempty"`
	Items                 []MaterialRequestItem `json:"items,omitempty"`
	Images                []RequestImage        `json:"images,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             *time.Time            `json:"updated_at,omitempty"`
}

func (r *MaterialRequest) GetID() uint64                     { return r.ID }
func (r *MaterialRequest) GetCustomerID() uint64             { return r.CustomerID }
func (r *MaterialRequest) GetStatus() RequestStatus          { return r.Status }
func (r *MaterialRequest) GetSelectedApplicationID() *uint64 { return r.SelectedApplicationID }
func (r *MaterialRequest) Kind() RequestKind                 { return RequestKindMaterial }
