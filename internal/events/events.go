package events

// Имена событий внутренней шины.
const (
	PaymentStatusChangedName = "payment.status_changed"
)

// PaymentStatusChanged публикуется обработчиком callback'а провайдера
// после фиксации исхода оплаты комиссии. Слушатели рассылают push и почту;
// основной сценарий от них не зависит.
type PaymentStatusChanged struct {
	RequestID     uint64
	ApplicationID uint64
	CustomerID    uint64
	PartnerID     uint64
	PartnerEmail  string
	Status        string
	Amount        int64
}

func (PaymentStatusChanged) Name() string { return PaymentStatusChangedName }
