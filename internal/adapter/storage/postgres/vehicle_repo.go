package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const vehicleColumns = `id, seller_id, brand, model, year, mileage, price, description, status,
		created_at, listed_at, sold_at, updated_at`

// VehicleRepo implements ports.VehicleRepository.
type VehicleRepo struct {
	pool Pool
}

// NewVehicleRepo creates a new VehicleRepo.
func NewVehicleRepo(pool Pool) *VehicleRepo {
	return &VehicleRepo{pool: pool}
}

// Create inserts a listing within a database transaction.
func (r *VehicleRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.SellerID, v.Brand, v.Model, v.Year, v.Mileage, v.Price, v.Description, v.Status,
		v.CreatedAt, v.ListedAt, v.SoldAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vehicle: %w", err)
	}
	return nil
}

// GetByID fetches a vehicle by UUID.
func (r *VehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	return scanVehicle(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a vehicle with pessimistic locking.
// This MUST be called within a transaction.
func (r *VehicleRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1 FOR UPDATE`
	v, err := scanVehicle(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapLockErr(err)
	}
	return v, nil
}

// UpdateStatus moves a locked vehicle to status, stamping listed_at or sold_at.
func (r *VehicleRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.VehicleStatus, at time.Time) error {
	query := `UPDATE vehicles SET status = $1,
		listed_at = CASE WHEN $1 = 'listed' THEN $2 ELSE listed_at END,
		sold_at = CASE WHEN $1 = 'sold' THEN $2 ELSE sold_at END,
		updated_at = $2
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, status, at, id)
	if err != nil {
		return fmt.Errorf("update vehicle status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle not found: %s", id)
	}
	return nil
}

// List fetches vehicles with filtering and pagination.
func (r *VehicleRepo) List(ctx context.Context, params ports.VehicleListParams) ([]domain.Vehicle, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.SellerID != nil {
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", argIdx))
		args = append(args, *params.SellerID)
		argIdx++
	}
	if params.Brand != "" {
		conditions = append(conditions, fmt.Sprintf("brand ILIKE $%d", argIdx))
		args = append(args, params.Brand)
		argIdx++
	}
	if params.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIdx))
		args = append(args, *params.MinPrice)
		argIdx++
	}
	if params.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIdx))
		args = append(args, *params.MaxPrice)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total
	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM vehicles "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM vehicles %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		vehicleColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate vehicle rows: %w", err)
	}
	return vehicles, total, nil
}

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	err := row.Scan(
		&v.ID, &v.SellerID, &v.Brand, &v.Model, &v.Year, &v.Mileage, &v.Price, &v.Description, &v.Status,
		&v.CreatedAt, &v.ListedAt, &v.SoldAt, &v.UpdatedAt,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan vehicle: %w", err)
	}
	return v, nil
}
