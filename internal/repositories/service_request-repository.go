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

type dbServiceRequest struct {
	ID                    uint64
	CustomerID            uint64
	Description           string
	Address               sql.NullString
	Status                string
	SelectedApplicationID sql.NullInt64
	CreatedAt             time.Time
	UpdatedAt             sql.NullTime
}

func (db *dbServiceRequest) toEntity() *entities.ServiceRequest {
	req := &entities.ServiceRequest{
		ID:          db.ID,
		CustomerID:  db.CustomerID,
		Description: db.Description,
		Address:     db.Address.String,
		Status:      entities.RequestStatus(db.Status),
		CreatedAt:   db.CreatedAt,
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
	serviceRequestTable  = "service_requests"
	serviceRequestFields = "id, customer_id, description, address, status, selected_application_id, created_at, updated_at"
)

type ServiceRequestRepositoryInterface interface {
	Create(ctx context.Context, req *entities.ServiceRequest) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.ServiceRequest, error)
	List(ctx context.Context, customerID *uint64, limit, offset uint64) ([]entities.ServiceRequest, uint64, error)
	Update(ctx context.Context, id uint64, description, address *string) error
	UpdateStatus(ctx context.Context, q Querier, id uint64, status entities.RequestStatus) error
	SetSelectedApplication(ctx context.Context, q Querier, id, applicationID uint64) error
	AddImages(ctx context.Context, requestID uint64, images []entities.RequestImage) error
	GetImages(ctx context.Context, requestID uint64) ([]entities.RequestImage, error)
	Delete(ctx context.Context, id uint64) error
}

type serviceRequestRepository struct {
	storage *pgxpool.Pool
}

func NewServiceRequestRepository(storage *pgxpool.Pool) ServiceRequestRepositoryInterface {
	return &serviceRequestRepository{storage: storage}
}

func (r *serviceRequestRepository) Create(ctx context.Context, req *entities.ServiceRequest) (uint64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (customer_id, description, address, status) VALUES ($1, $2, $3, $4) RETURNING id`, serviceRequestTable)
	var id uint64
	err := r.storage.QueryRow(ctx, query, req.CustomerID, req.Description, req.Address, string(req.Status)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *serviceRequestRepository) FindByID(ctx context.Context, id uint64) (*entities.ServiceRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", serviceRequestFields, serviceRequestTable)
	var dbRow dbServiceRequest
	err := r.storage.QueryRow(ctx, query, id).Scan(
		&dbRow.ID, &dbRow.CustomerID, &dbRow.Description, &dbRow.Address,
		&dbRow.Status, &dbRow.SelectedApplicationID, &dbRow.CreatedAt, &dbRow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return dbRow.toEntity(), nil
}

func (r *serviceRequestRepository) List(ctx context.Context, customerID *uint64, limit, offset uint64) ([]entities.ServiceRequest, uint64, error) {
	var total uint64
	var args []interface{}
	whereClause := ""
	if customerID != nil {
		whereClause = "WHERE customer_id = $1"
		args = append(args, *customerID)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", serviceRequestTable, whereClause)
	if err := r.storage.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.ServiceRequest{}, 0, nil
	}

	queryArgs := append(args, limit, offset)
	query := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY id DESC LIMIT $%d OFFSET $%d",
		serviceRequestFields, serviceRequestTable, whereClause, len(args)+1, len(args)+2)

	rows, err := r.storage.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := make([]entities.ServiceRequest, 0)
	for rows.Next() {
		var dbRow dbServiceRequest
		if err := rows.Scan(&dbRow.ID, &dbRow.CustomerID, &dbRow.Description, &dbRow.Address,
			&dbRow.Status, &dbRow.SelectedApplicationID, &dbRow.CreatedAt, &dbRow.UpdatedAt); err != nil {
			return nil, 0, err
		}
		requests = append(requests, *dbRow.toEntity())
	}
	return requests, total, rows.Err()
}

// Update - частичное обновление: nil-поле остается нетронутым (COALESCE).
func (r *serviceRequestRepository) Update(ctx context.Context, id uint64, description, address *string) error {
	query := fmt.Sprintf(`UPDATE %s SET
		description = COALESCE($1, description),
		address     = COALESCE($2, address),
		updated_at  = NOW()
		WHERE id = $3`, serviceRequestTable)
	result, err := r.storage.Exec(ctx, query, description, address, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *serviceRequestRepository) UpdateStatus(ctx context.Context, q Querier, id uint64, status entities.RequestStatus) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = NOW() WHERE id = $2", serviceRequestTable)
	result, err := q.Exec(ctx, query, string(status), id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetSelectedApplication фиксирует выбранный отклик и переводит заявку в Pending.
// Вызывается только внутри транзакции вместе со сменой статуса отклика.
func (r *serviceRequestRepository) SetSelectedApplication(ctx context.Context, q Querier, id, applicationID uint64) error {
	if q == nil {
		q = r.storage
	}
	query := fmt.Sprintf("UPDATE %s SET selected_application_id = $1, status = $2, updated_at = NOW() WHERE id = $3", serviceRequestTable)
	result, err := q.Exec(ctx, query, applicationID, string(entities.RequestStatusPending), id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *serviceRequestRepository) AddImages(ctx context.Context, requestID uint64, images []entities.RequestImage) error {
	for _, img := range images {
		query := `INSERT INTO request_images (request_kind, request_id, url, public_id) VALUES ($1, $2, $3, $4)`
		if _, err := r.storage.Exec(ctx, query, string(entities.RequestKindService), requestID, img.URL, img.PublicID); err != nil {
			return err
		}
	}
	return nil
}

func (r *serviceRequestRepository) GetImages(ctx context.Context, requestID uint64) ([]entities.RequestImage, error) {
	return getRequestImages(ctx, r.storage, entities.RequestKindService, requestID)
}

func (r *serviceRequestRepository) Delete(ctx context.Context, id uint64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", serviceRequestTable)
	result, err := r.storage.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// getRequestImages - общий для двух видов заявок выбор картинок.
func getRequestImages(ctx context.Context, q Querier, kind entities.RequestKind, requestID uint64) ([]entities.RequestImage, error) {
	query := `SELECT id, url, public_id FROM request_images WHERE request_kind = $1 AND request_id = $2 ORDER BY id`
	rows, err := q.Query(ctx, query, string(kind), requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]entities.RequestImage, 0)
	for rows.Next() {
		var img entities.RequestImage
		if err := rows.Scan(&img.ID, &img.URL, &img.PublicID); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
