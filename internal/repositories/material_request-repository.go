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

type dbMaterialRequest struct {
	ID                    uint64
	CustomerID            uint64
	Description           string
	Address               sql.NullString
	Status                string
	AllowQuantityEdit     bool
	SelectedApplicationID sql.NullInt64
	CreatedAt             time.Time
	UpdatedAt             sql.NullTime
}

func (db *dbMaterialRequest) toEntity() *entities.MaterialRequest {
	req := &entities.MaterialRequest{
		ID:                db.ID,
		CustomerID:        db.CustomerID,
		Description:       db.Description,
		Address:           db.Address.String,
		Status:            entities.RequestStatus(db.Status),
		AllowQuantityEdit: db.AllowQuantityEdit,
		CreatedAt:         db.CreatedAt,
	}
	if db.SelectedApplicationID.Valid {
		selected := uint64(db.SelectedApplicationID.Int64)
		req.SelectedApplicationID = &selected
	}
	if db.UpdatedAt.Valid {
		updated := db.UpdatedAt.Time
		req.UpdatedAt = &updated
	}
	return req
}

const (
	materialRequestTable  = "material_requests"
	materialRequestFields = "id, customer_id, description, address, status, allow_quantity_edit, selected_application_id, created_at, updated_at"
)

type MaterialRequestRepositoryInterface interface {
	Create(ctx context.Context, req *entities.MaterialRequest) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.MaterialRequest, error)
	List(ctx context.Context, customerID *uint64, limit, offset uint64) ([]entities.MaterialRequest, uint64, error)
	Update(ctx context.Context, id uint64, description, address *string) error
	UpdateStatus(ctx context.Context, q Querier, id uint64, status entities.RequestStatus) error
	SetSelectedApplication(ctx context.Context, q Querier, id, applicationID uint64) error
	AddImages(ctx context.Context, requestID uint64, images []entities.RequestImage) error
	GetImages(ctx context.Context, requestID uint64) ([]entities.RequestImage, error)
	Delete(ctx context.Context, id uint64) error
}

type materialRequestRepository struct {
	storage *pgxpool.Pool
}

func NewMaterialRequestRepository(storage *pgxpool.Pool) MaterialRequestRepositoryInterface {
	return &materialRequestRepository{storage: storage}
}

// Create пишет заявку и её позиции одной транзакцией.
func (r *materialRequestRepository) Create(ctx context.Context, req *entities.MaterialRequest) (uint64, error) {
	tx, err := r.storage.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`INSERT INTO %s (customer_id, description, address, status, allow_quantity_edit)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, materialRequestTable)
	var id uint64
	if err := tx.QueryRow(ctx, query, req.CustomerID, req.Description, req.Address, string(req.Status), req.AllowQuantityEdit).Scan(&id); err != nil {
		return 0, err
	}

	for _, item := range req.Items {
		itemQuery := `INSERT INTO material_request_items (request_id, material_id, material_name, quantity) VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, itemQuery, id, item.MaterialID, item.MaterialName, item.Quantity); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *materialRequestRepository) FindByID(ctx context.Context, id uint64) (*entities.MaterialRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", materialRequestFields, materialRequestTable)
	var dbRow dbMaterialRequest
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&dbRow.ID, &dbRow.CustomerID, &dbRow.Description, &dbRow.Address, &dbRow.Status,
		&dbRow.AllowQuantityEdit, &dbRow.SelectedApplicationID, &dbRow.CreatedAt, &dbRow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	req := dbRow.toEntity()
	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Items = items
	return req, nil
}

func (r *materialRequestRepository) getItems(ctx context.Context, requestID uint64) ([]entities.MaterialRequestItem, error) {
	query := `SELECT id, request_id, material_id, material_name, quantity FROM material_request_items WHERE request_id = $1 ORDER BY id`
	rows, err := r.storage.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]entities.MaterialRequestItem, 0)
	for rows.Next() {
		var item entities.MaterialRequestItem
		if err := rows.Scan(&item.ID, &item.RequestID, &item.MaterialID, &item.MaterialName, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *materialRequestRepository) List(ctx context.Context, customerID *uint64, limit, offset uint64) ([]entities.MaterialRequest, uint64, error) {
	var total uint64
	var args []interface{}
	whereClause := ""
	if customerID != nil {
		whereClause = "WHERE customer_id = $1"
		args = append(args, *customerID)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", materialRequestTable, whereClause)
	if err := r.storage.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.MaterialRequest{}, 0, nil
	}

	queryArgs := append(args, limit, offset)
	query := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY id DESC LIMIT $%d OFFSET $%d",
		materialRequestFields, materialRequestTable, whereClause, len(args)+1, len(args)+2)

	rows, err := r.storage.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := make([]entities.MaterialRequest, 0)
	for rows.Next() {
		var dbRow dbMaterialRequest
		if err := rows.Scan(&dbRow.ID, &dbRow.CustomerID, &dbRow.Description, &dbRow.Address, &dbRow.Status,
			&dbRow.AllowQuantityEdit, &dbRow.SelectedApplicationID, &dbRow.CreatedAt, &dbRow.UpdatedAt); err != nil {
			return nil, 0, err
		}
		requests = append(requests, *dbRow.toEntity())
	}
	return requests, total, rows.Err()
}

// Update - частичное обновление: nil-поле остается нетронутым (COALESCE).
func (r *materialRequestRepository) Update(ctx context.Context, id uint64, description, address *string) error {
	query := fmt.Sprintf(`UPDATE %s SET
		description = COALESCE($1, description),
		address     = COALESCE($2, address),
		updated_at  = NOW()
		WHERE id = $3`, materialRequestTable)
	result, err := r.storage.Exec(ctx, query, description, address, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *materialRequestRepository) UpdateStatus(ctx context.Context, q Querier, id uint64, status entities.RequestStatus) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = NOW() WHERE id = $2", materialRequestTable)
	result, err := q.Exec(ctx, query, string(status), id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *materialRequestRepository) SetSelectedApplication(ctx context.Context, q Querier, id, applicationID uint64) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf("UPDATE %s SET selected_application_id = $1, status = $2, updated_at = NOW() WHERE id = $3", materialRequestTable)
	result, err := q.Exec(ctx, query, applicationID, string(entities.RequestStatusPending), id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *materialRequestRepository) AddImages(ctx context.Context, requestID uint64, images []entities.RequestImage) error {
	for _, img := range images {
		query := `INSERT INTO request_images (request_kind, request_id, url, public_id) VALUES ($1, $2, $3, $4)`
		if _, err := r.storage.Exec(ctx, query, string(entities.RequestKindMaterial), requestID, img.URL, img.PublicID); err != nil {
			return err
		}
	}
	return nil
}

func (r *materialRequestRepository) GetImages(ctx context.Context, requestID uint64) ([]entities.RequestImage, error) {
	return getRequestImages(ctx, r.storage, entities.RequestKindMaterial, requestID)
}

func (r *materialRequestRepository) Delete(ctx context.Context, id uint64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", materialRequestTable)
	result, err := r.storage.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
