package dto

type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type TokenPairDTO struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ProfileDTO struct {
	ID               uint64  `json:"id"`
	Email            string  `json:"email"`
	FullName         string  `json:"fullName"`
	Phone            string  `json:"phone"`
	Roles            string  `json:"roles"`
	AverageRating    float64 `json:"averageRating"`
	RatingCount      int     `json:"ratingCount"`
	ReputationPoints int64   `json:"reputationPoints"`
}
