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

type dbDistributorApplication struct {
	ID                 uint64
	PartnerID          uint64
	RequestID          uint64
	Description        string
	TotalEstimatePrice int64
	Status             string
	DueCommissionTime  sql.NullTime
	CreatedAt          time.Time
}

func (db *dbDistributorApplication) toEntity() *entities.DistributorApplication {
	app := &entities.DistributorApplication{
		ID:                 db.ID,
		PartnerID:          db.PartnerID,
		RequestID:          db.RequestID,
		Description:        db.Description,
		TotalEstimatePrice: db.TotalEstimatePrice,
		Status:             entities.ApplicationStatus(db.Status),
		CreatedAt:          db.CreatedAt,
	}
	if db.DueCommissionTime.Valid {
		due := db.DueCommissionTime.Time
		app.DueCommissionTime = &due
	}
	return app
}

const (
	distributorApplicationTable  = "distributor_applications"
	distributorApplicationFields = "id, partner_id, request_id, description, total_estimate_price, status, due_commission_time, created_at"
)

type DistributorApplicationRepositoryInterface interface {
	Create(ctx context.Context, app *entities.DistributorApplication) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.DistributorApplication, error)
	ListByRequest(ctx context.Context, requestID uint64) ([]entities.DistributorApplication, error)
	UpdateStatus(ctx context.Context, q Querier, id uint64, status entities.ApplicationStatus, dueCommissionTime *time.Time) error
	Delete(ctx context.Context, id uint64) error
}

type distributorApplicationRepository struct {
	storage *pgxpool.Pool
}

func NewDistributorApplicationRepository(storage *pgxpool.Pool) DistributorApplicationRepositoryInterface {
	return &distributorApplicationRepository{storage: storage}
}

// Create пишет отклик и его позиции одной транзакцией.
// Количества в позициях к этому моменту уже выровнены сервисным слоем
// (структурная развилка по allow_quantity_edit).
func (r *distributorApplicationRepository) Create(ctx context.Context, app *entities.DistributorApplication) (uint64, error) {
	tx, err := r.storage.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`INSERT INTO %s (partner_id, request_id, description, total_estimate_price, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, distributorApplicationTable)
	var id uint64
	if err := tx.QueryRow(ctx, query, app.PartnerID, app.RequestID, app.Description, app.TotalEstimatePrice, string(app.Status)).Scan(&id); err != nil {
		return 0, err
	}

	for _, item := range app.Items {
		itemQuery := `INSERT INTO distributor_application_items (application_id, material_id, quantity, unit_price) VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, itemQuery, id, item.MaterialID, item.Quantity, item.UnitPrice); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *distributorApplicationRepository) FindByID(ctx context.Context, id uint64) (*entities.DistributorApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", distributorApplicationFields, distributorApplicationTable)
	var dbRow dbDistributorApplication
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&dbRow.ID, &dbRow.PartnerID, &dbRow.RequestID, &dbRow.Description,
		&dbRow.TotalEstimatePrice, &dbRow.Status, &dbRow.DueCommissionTime, &dbRow.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	app := dbRow.toEntity()
	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	app.Items = items
	return app, nil
}

func (r *distributorApplicationRepository) getItems(ctx context.Context, applicationID uint64) ([]entities.DistributorApplicationItem, error) {
	query := `SELECT id, application_id, material_id, quantity, unit_price FROM distributor_application_items WHERE application_id = $1 ORDER BY id`
	rows, err := r.storage.Query(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]entities.DistributorApplicationItem, 0)
	for rows.Next() {
		var item entities.DistributorApplicationItem
		if err := rows.Scan(&item.ID, &item.ApplicationID, &item.MaterialID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *distributorApplicationRepository) ListByRequest(ctx context.Context, requestID uint64) ([]entities.DistributorApplication, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE request_id = $1 ORDER BY id", distributorApplicationFields, distributorApplicationTable)
	rows, err := r.storage.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]entities.DistributorApplication, 0)
	for rows.Next() {
		var dbRow dbDistributorApplication
		if err := rows.Scan(&dbRow.ID, &dbRow.PartnerID, &dbRow.RequestID, &dbRow.Description,
			&dbRow.TotalEstimatePrice, &dbRow.Status, &dbRow.DueCommissionTime, &dbRow.CreatedAt); err != nil {
			return nil, err
		}
		apps = append(apps, *dbRow.toEntity())
	}
	return apps, rows.Err()
}

func (r *distributorApplicationRepository) UpdateStatus(ctx context.Context, q Querier, id uint64, status entities.ApplicationStatus, dueCommissionTime *time.Time) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf("UPDATE %s SET status = $1, due_commission_time = $2 WHERE id = $3", distributorApplicationTable)
	result, err := q.Exec(ctx, query, string(status), dueCommissionTime, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *distributorApplicationRepository) Delete(ctx context.Context, id uint64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", distributorApplicationTable)
	result, err := r.storage.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
