package entities

import "time"

// Роли пользователей. Роль хранится в users.roles строкой с разделителем-запятой.
const (
	RoleAdmin       = "Admin"
	RoleCustomer    = "Customer"
	RoleContractor  = "Contractor"
	RoleDistributor = "Distributor"
)

// User - пользователь системы. Для партнеров (подрядчик/поставщик) профиль
// несет агрегаты репутации; их мутирует только ReputationService,
// по одному разу на отзыв, без пересчета истории.
type User struct {
	ID               uint64     `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	FullName         string     `json:"fullName"`
	Phone            string     `json:"phone"`
	Roles            string     `json:"roles"`
	AverageRating    float64    `json:"averageRating"`
	RatingCount      int        `json:"ratingCount"`
	ReputationPoints int64      `json:"reputationPoints"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}
