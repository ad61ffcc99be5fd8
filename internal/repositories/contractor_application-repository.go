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

type dbContractorApplication struct {
	ID                uint64
	PartnerID         uint64
	RequestID         uint64
	Description       string
	EstimatePrice     int64
	Status            string
	DueCommissionTime sql.NullTime
	CreatedAt         time.Time
}

func (db *dbContractorApplication) toEntity() *entities.ContractorApplication {
	app := &entities.ContractorApplication{
		ID:            db.ID,
		PartnerID:     db.PartnerID,
		RequestID:     db.RequestID,
		Description:   db.Description,
		EstimatePrice: db.EstimatePrice,
		Status:        entities.ApplicationStatus(db.Status),
		CreatedAt:     db.CreatedAt,
	}
	if db.DueCommissionTime.Valid {
		due := db.DueCommissionTime.Time
		app.DueCommissionTime = &due
	}
	return app
}

const (
	contractorApplicationTable  = "contractor_applications"
	contractorApplicationFields = "id, partner_id, request_id, description, estimate_price, status, due_commission_time, created_at"
)

type ContractorApplicationRepositoryInterface interface {
	Create(ctx context.Context, app *entities.ContractorApplication) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.ContractorApplication, error)
	ListByRequest(ctx context.Context, requestID uint64) ([]entities.ContractorApplication, error)
	UpdateStatus(ctx context.Context, q Querier, id uint64, status entities.ApplicationStatus, dueCommissionTime *time.Time) error
	Delete(ctx context.Context, id uint64) error
}

type contractorApplicationRepository struct {
	storage *pgxpool.Pool
}

func NewContractorApplicationRepository(storage *pgxpool.Pool) ContractorApplicationRepositoryInterface {
	return &contractorApplicationRepository{storage: storage}
}

func (r *contractorApplicationRepository) Create(ctx context.Context, app *entities.ContractorApplication) (uint64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (partner_id, request_id, description, estimate_price, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, contractorApplicationTable)
	var id uint64
	err := r.storage.QueryRow(ctx, query, app.PartnerID, app.RequestID, app.Description, app.EstimatePrice, string(app.Status)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *contractorApplicationRepository) FindByID(ctx context.Context, id uint64) (*entities.ContractorApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", contractorApplicationFields, contractorApplicationTable)
	var dbRow dbContractorApplication
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&dbRow.ID, &dbRow.PartnerID, &dbRow.RequestID, &dbRow.Description,
		&dbRow.EstimatePrice, &dbRow.Status, &dbRow.DueCommissionTime, &dbRow.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return dbRow.toEntity(), nil
}

func (r *contractorApplicationRepository) ListByRequest(ctx context.Context, requestID uint64) ([]entities.ContractorApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE request_id = $1 ORDER BY id", contractorApplicationFields, contractorApplicationTable)
	rows, err := r.storage.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]entities.ContractorApplication, 0)
	for rows.Next() {
		var dbRow dbContractorApplication
		if err := rows.Scan(&dbRow.ID, &dbRow.PartnerID, &dbRow.RequestID, &dbRow.Description,
			&dbRow.EstimatePrice, &dbRow.Status, &dbRow.DueCommissionTime, &dbRow.CreatedAt); err != nil {
			return nil, err
		}
		apps = append(apps, *dbRow.toEntity())
	}
	return apps, rows.Err()
}

// UpdateStatus меняет статус отклика и срок оплаты комиссии.
// dueCommissionTime == nil записывает NULL (очистка срока при Approved).
func (r *contractorApplicationRepository) UpdateStatus(ctx context.Context, q Querier, id uint64, status entities.ApplicationStatus, dueCommissionTime *time.Time) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf("UPDATE %s SET status = $1, due_commission_time = $2 WHERE id = $3", contractorApplicationTable)
	result, err := q.Exec(ctx, query, string(status), dueCommissionTime, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *contractorApplicationRepository) Delete(ctx context.Context, id uint64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", contractorApplicationTable)
	result, err := r.storage.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
