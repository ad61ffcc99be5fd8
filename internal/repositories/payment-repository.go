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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbPaymentTransaction struct {
	ID            uint64
	ApplicationID uint64
	RequestID     uint64
	Amount        int64
	Description   string
	OrderCode     int64
	CheckoutURL   string
	Status        string
	CreatedAt     time.Time
	PaidAt        sql.NullTime
}

func (db *dbPaymentTransaction) toEntity() *entities.PaymentTransaction {
	txn := &entities.PaymentTransaction{
		ID:            db.ID,
		ApplicationID: db.ApplicationID,
		RequestID:     db.RequestID,
		Amount:        db.Amount,
		Description:   db.Description,
		OrderCode:     db.OrderCode,
		CheckoutURL:   db.CheckoutURL,
		Status:        entities.PaymentStatus(db.Status),
		CreatedAt:     db.CreatedAt,
	}
	if db.PaidAt.Valid {
		paidAt := db.PaidAt.Time
		txn.PaidAt = &paidAt
	}
	return txn
}

const (
	paymentTable  = "payment_transactions"
	paymentFields = "id, application_id, request_id, amount, description, order_code, checkout_url, status, created_at, paid_at"
)

type PaymentRepositoryInterface interface {
	Create(ctx context.Context, txn *entities.PaymentTransaction) (uint64, error)
	FindByOrderCode(ctx context.Context, orderCode int64) (*entities.PaymentTransaction, error)
	MarkPaid(ctx context.Context, q Querier, id uint64, paidAt time.Time) error
	Delete(ctx context.Context, q Querier, id uint64) error
	List(ctx context.Context, limit, offset uint64) ([]entities.PaymentTransaction, uint64, error)
}

type paymentRepository struct {
	storage *pgxpool.Pool
}

func NewPaymentRepository(storage *pgxpool.Pool) PaymentRepositoryInterface {
	return &paymentRepository{storage: storage}
}

func (r *paymentRepository) Create(ctx context.Context, txn *entities.PaymentTransaction) (uint64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (application_id, request_id, amount, description, order_code, checkout_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`, paymentTable)
	var id uint64
	err := r.storage.QueryRow(ctx, query,
		txn.ApplicationID, txn.RequestID, txn.Amount, txn.Description, txn.OrderCode, txn.CheckoutURL, string(txn.Status),
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

// FindByOrderCode - единственный ключ корреляции callback'а провайдера.
func (r *paymentRepository) FindByOrderCode(ctx context.Context, orderCode int64) (*entities.PaymentTransaction, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE order_code = $1", paymentFields, paymentTable)
	var dbRow dbPaymentTransaction
	err := r.storage.QueryRow(ctx, query, orderCode).Scan(
		&dbRow.ID, &dbRow.ApplicationID, &dbRow.RequestID, &dbRow.Amount, &dbRow.Description,
		&dbRow.OrderCode, &dbRow.CheckoutURL, &dbRow.Status, &dbRow.CreatedAt, &dbRow.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return dbRow.toEntity(), nil
}

func (r *paymentRepository) MarkPaid(ctx context.Context, q Querier, id uint64, paidAt time.Time) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf("UPDATE %s SET status = $1, paid_at = $2 WHERE id = $3 AND status = $4", paymentTable)
	result, err := q.Exec(ctx, query, string(entities.PaymentStatusPaid), paidAt, id, string(entities.PaymentStatusPending))
	if err != nil {
		return err
	}
	// Повторный callback по уже оплаченной записи ничего не меняет.
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete снимает только неоплаченную запись. Отказной callback, пришедший
// после успешного расчета, не должен стирать состоявшийся платеж.
func (r *paymentRepository) Delete(ctx context.Context, q Querier, id uint64) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND status = $2", paymentTable)
	result, err := q.Exec(ctx, query, id, string(entities.PaymentStatusPending))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, limit, offset uint64) ([]entities.PaymentTransaction, uint64, error) {
	var total uint64
	if err := r.storage.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", paymentTable)).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.PaymentTransaction{}, 0, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id DESC LIMIT $1 OFFSET $2", paymentFields, paymentTable)
	rows, err := r.storage.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	transactions := make([]entities.PaymentTransaction, 0)
	for rows.Next() {
		var dbRow dbPaymentTransaction
		if err := rows.Scan(&dbRow.ID, &dbRow.ApplicationID, &dbRow.RequestID, &dbRow.Amount, &dbRow.Description,
			&dbRow.OrderCode, &dbRow.CheckoutURL, &dbRow.Status, &dbRow.CreatedAt, &dbRow.PaidAt); err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, *dbRow.toEntity())
	}
	return transactions, total, rows.Err()
}
