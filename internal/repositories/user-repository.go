package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace-system/internal/entities"
	apperrors "marketplace-system/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbUser struct {
	ID               uint64
	Email            string
	PasswordHash     string
	FullName         string
	Phone            sql.NullString
	Roles            string
	AverageRating    float64
	RatingCount      int
	ReputationPoints int64
	CreatedAt        time.Time
	UpdatedAt        sql.NullTime
}

func (db *dbUser) toEntity() *entities.User {
	u := &entities.User{
		ID:               db.ID,
		Email:            db.Email,
		PasswordHash:     db.PasswordHash,
		FullName:         db.FullName,
		Phone:            db.Phone.String,
		Roles:            db.Roles,
		AverageRating:    db.AverageRating,
		RatingCount:      db.RatingCount,
		ReputationPoints: db.ReputationPoints,
		CreatedAt:        db.CreatedAt,
	}
	if db.UpdatedAt.Valid {
		updated := db.UpdatedAt.Time
		u.UpdatedAt = &updated
	}
	return u
}

const (
	userTable  = "users"
	userFields = "id, email, password_hash, full_name, phone, roles, average_rating, rating_count, reputation_points, created_at, updated_at"
)

type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.User, error)
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	// UpdateReputation перезаписывает агрегаты репутации партнера.
	// Вызывается сервисом репутации под блокировкой на партнера.
	UpdateReputation(ctx context.Context, q Querier, id uint64, averageRating float64, ratingCount int, reputationPoints int64) error
}

type userRepository struct {
	storage *pgxpool.Pool
}

func NewUserRepository(storage *pgxpool.Pool) UserRepositoryInterface {
	return &userRepository{storage: storage}
}

func (r *userRepository) findOne(ctx context.Context, condition string, arg interface{}) (*entities.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", userFields, userTable, condition)
	var dbRow dbUser
	err := r.storage.QueryRow(ctx, query, arg).Scan(
		&dbRow.ID, &dbRow.Email, &dbRow.PasswordHash, &dbRow.FullName, &dbRow.Phone, &dbRow.Roles,
		&dbRow.AverageRating, &dbRow.RatingCount, &dbRow.ReputationPoints, &dbRow.CreatedAt, &dbRow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return dbRow.toEntity(), nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint64) (*entities.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *userRepository) UpdateReputation(ctx context.Context, q Querier, id uint64, averageRating float64, ratingCount int, reputationPoints int64) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf(`UPDATE %s SET average_rating = $1, rating_count = $2, reputation_points = $3, updated_at = NOW() WHERE id = $4`, userTable)
	result, err := q.Exec(ctx, query, averageRating, ratingCount, reputationPoints, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
