package repositories

import (
	"context"
	"errors"
	"fmt"

	"marketplace-system/internal/entities"
	apperrors "marketplace-system/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	reviewTable  = "reviews"
	reviewFields = "id, request_id, request_kind, partner_id, customer_id, rating, comment, created_at"
)

type ReviewRepositoryInterface interface {
	// Create падает с ErrConflict при повторном отзыве на ту же заявку
	// (уникальный индекс на (request_kind, request_id)).
	Create(ctx context.Context, q Querier, review *entities.Review) (uint64, error)
	ListByPartner(ctx context.Context, partnerID uint64, limit, offset uint64) ([]entities.Review, uint64, error)
}

type reviewRepository struct {
	storage *pgxpool.Pool
}

func NewReviewRepository(storage *pgxpool.Pool) ReviewRepositoryInterface {
	return &reviewRepository{storage: storage}
}

func (r *reviewRepository) Create(ctx context.Context, q Querier, review *entities.Review) (uint64, error) {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf(`INSERT INTO %s (request_id, request_kind, partner_id, customer_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, reviewTable)
	var id uint64
	err := q.QueryRow(ctx, query,
		review.RequestID, string(review.RequestKind), review.PartnerID, review.CustomerID, review.Rating, review.Comment,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, apperrors.ErrConflict
		}
		return 0, err
	}
	return id, nil
}

func (r *reviewRepository) ListByPartner(ctx context.Context, partnerID uint64, limit, offset uint64) ([]entities.Review, uint64, error) {
	var total uint64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE partner_id = $1", reviewTable)
	if err := r.storage.QueryRow(ctx, countQuery, partnerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Review{}, 0, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE partner_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3", reviewFields, reviewTable)
	rows, err := r.storage.Query(ctx, query, partnerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := make([]entities.Review, 0)
	for rows.Next() {
		var review entities.Review
		var kind string
		if err := rows.Scan(&review.ID, &review.RequestID, &kind, &review.PartnerID,
			&review.CustomerID, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, 0, err
		}
		review.RequestKind = entities.RequestKind(kind)
		reviews = append(reviews, review)
	}
	return reviews, total, rows.Err()
}
