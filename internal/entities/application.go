package entities

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending           ApplicationStatus = "Pending"
	ApplicationStatusPendingCommission ApplicationStatus = "PendingCommission"
	ApplicationStatusApproved          ApplicationStatus = "Approved"
	ApplicationStatusRejected          ApplicationStatus = "Rejected"
)

// Application - общий контракт откликов подрядчиков и поставщиков.
type Application interface {
	GetID() uint64
	GetPartnerID() uint64
	GetRequestID() uint64
	GetStatus() ApplicationStatus
	// EstimateValue - денежная оценка отклика, из неё считается
	// репутационная дельта после отзыва.
	EstimateValue() int64
}

// ContractorApplication - отклик подрядчика на заявку на работы.
// DueCommissionTime выставляется при переходе в PendingCommission
// и очищается при Approved.
type ContractorApplication struct {
	ID                uint64            `json:"id"`
	PartnerID         uint64            `json:"partnerId"`
	RequestID         uint64            `json:"requestId"`
	Description       string            `json:"description"`
	EstimatePrice     int64             `json:"estimatePrice"`
	Status            ApplicationStatus `json:"status"`
	DueCommissionTime *time.Time        `json:"dueCommissionTime,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (a *ContractorApplication) GetID() uint64                { return a.ID }
func (a *ContractorApplication) GetPartnerID() uint64         { return a.PartnerID }
func (a *ContractorApplication) GetRequestID() uint64         { return a.RequestID }
func (a *ContractorApplication) GetStatus() ApplicationStatus { return a.Status }
func (a *ContractorApplication) EstimateValue() int64         { return a.EstimatePrice }

// DistributorApplicationItem - позиция отклика поставщика.
type DistributorApplicationItem struct {
	ID            uint64 `json:"id"`
	ApplicationID uint64 `json:"applicationId"`
	MaterialID    uint64 `json:"materialId"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unitPrice"`
}

// DistributorApplication - отклик поставщика на заявку на материалы.
type DistributorApplication struct {
	ID                 uint64                       `json:"id"`
	PartnerID          uint64                       `json:"partnerId"`
	RequestID          uint64                       `json:"requestId"`
	Description        string                       `json:"description"`
	TotalEstimatePrice int64                        `json:"totalEstimatePrice"`
	Status             ApplicationStatus            `json:"status"`
	DueCommissionTime  *time.Time                   `json:"dueCommissionTime,omitempty"`
	Items              []DistributorApplicationItem `json:"items,omitempty"`
	CreatedAt          time.Time                    `json:"created_at"`
}

func (a *DistributorApplication) GetID() uint64                { return a.ID }
func (a *DistributorApplication) GetPartnerID() uint64         { return a.PartnerID }
func (a *DistributorApplication) GetRequestID() uint64         { return a.RequestID }
func (a *DistributorApplication) GetStatus() ApplicationStatus { return a.Status }
func (a *DistributorApplication) EstimateValue() int64         { return a.TotalEstimatePrice }
