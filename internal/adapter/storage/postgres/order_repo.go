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

const orderColumns = `id, order_number, buyer_id, seller_id, vehicle_id, price, deposit, status,
		buyer_note, seller_note, buyer_phone, delivery_address, delivery_time, vehicle_color, vehicle_model_type,
		created_at, paid_at, completed_at, cancelled_at, updated_at`

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Create inserts an order within a database transaction. The partial unique
// index on vehicle_id rejects a second live order for the same vehicle.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := tx.Exec(ctx, query,
		o.ID, o.OrderNumber, o.BuyerID, o.SellerID, o.VehicleID, o.Price, o.Deposit, o.Status,
		o.BuyerNote, o.SellerNote, o.BuyerPhone, o.DeliveryAddress, o.DeliveryTime, o.VehicleColor, o.VehicleModelType,
		o.CreatedAt, o.PaidAt, o.CompletedAt, o.CancelledAt, o.UpdatedAt,
	)
	if err != nil {
		return mapInsertErr("insert order", err)
	}
	return nil
}

// GetByID fetches an order by UUID.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches an order with pessimistic locking.
// This MUST be called within a transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	o, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapLockErr(err)
	}
	return o, nil
}

// UpdateStatus writes the status, timestamps and seller note of a locked order.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	query := `UPDATE orders SET status = $1, seller_note = $2, paid_at = $3, completed_at = $4,
		cancelled_at = $5, updated_at = $6 WHERE id = $7`

	tag, err := tx.Exec(ctx, query, o.Status, o.SellerNote, o.PaidAt, o.CompletedAt, o.CancelledAt, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", o.ID)
	}
	return nil
}

// HasActiveForVehicle reports whether a non-terminal order exists for the vehicle.
func (r *OrderRepo) HasActiveForVehicle(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM orders WHERE vehicle_id = $1
		AND status IN ('pending_payment', 'paid', 'trading'))`

	var exists bool
	if err := tx.QueryRow(ctx, query, vehicleID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active order: %w", err)
	}
	return exists, nil
}

// List fetches an account's orders with filtering and pagination.
func (r *OrderRepo) List(ctx context.Context, params ports.OrderListParams) ([]domain.Order, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	switch {
	case params.Party != nil && *params.Party == domain.PartyBuyer:
		conditions = append(conditions, fmt.Sprintf("buyer_id = $%d", argIdx))
	case params.Party != nil && *params.Party == domain.PartySeller:
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", argIdx))
	default:
		conditions = append(conditions, fmt.Sprintf("(buyer_id = $%d OR seller_id = $%d)", argIdx, argIdx))
	}
	args = append(args, params.AccountID)
	argIdx++

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, total, nil
}

// GetSellerStats aggregates a seller's orders created since the given time.
func (r *OrderRepo) GetSellerStats(ctx context.Context, sellerID uuid.UUID, since *time.Time) (*ports.OrderStats, error) {
	args := []any{sellerID}
	condition := "seller_id = $1"
	if since != nil {
		condition += " AND created_at >= $2"
		args = append(args, *since)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'pending_payment') AS pending_payment,
		COUNT(*) FILTER (WHERE status = 'paid') AS paid,
		COUNT(*) FILTER (WHERE status = 'completed') AS completed,
		COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
		COALESCE(SUM(price) FILTER (WHERE status = 'completed'), 0) AS revenue
		FROM orders WHERE %s`, condition)

	stats := &ports.OrderStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalOrders, &stats.PendingPayment, &stats.Paid, &stats.Completed, &stats.Cancelled,
		&stats.TotalRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("get seller stats: %w", err)
	}
	return stats, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.BuyerID, &o.SellerID, &o.VehicleID, &o.Price, &o.Deposit, &o.Status,
		&o.BuyerNote, &o.SellerNote, &o.BuyerPhone, &o.DeliveryAddress, &o.DeliveryTime, &o.VehicleColor, &o.VehicleModelType,
		&o.CreatedAt, &o.PaidAt, &o.CompletedAt, &o.CancelledAt, &o.UpdatedAt,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return o, nil
}
