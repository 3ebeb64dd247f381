package postgres

import (
	"context"
	"testing"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderCols() []string {
	return []string{"id", "order_number", "buyer_id", "seller_id", "vehicle_id", "price", "deposit", "status",
		"buyer_note", "seller_note", "buyer_phone", "delivery_address", "delivery_time", "vehicle_color", "vehicle_model_type",
		"created_at", "paid_at", "completed_at", "cancelled_at", "updated_at"}
}

func newTestOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Order{
		ID: uuid.New(), OrderNumber: "ORD20260101120000ABCDEF", BuyerID: uuid.New(), SellerID: uuid.New(),
		VehicleID: uuid.New(), Price: decimal.RequireFromString("100.00"), Deposit: decimal.Zero,
		Status: domain.OrderStatusPaid, DeliveryAddress: "1 Main St", CreatedAt: now, PaidAt: &now, UpdatedAt: now,
	}
}

func orderRow(o *domain.Order) *pgxmock.Rows {
	return pgxmock.NewRows(orderCols()).AddRow(
		o.ID, o.OrderNumber, o.BuyerID, o.SellerID, o.VehicleID, o.Price.StringFixed(2), o.Deposit.StringFixed(2), o.Status,
		o.BuyerNote, o.SellerNote, o.BuyerPhone, o.DeliveryAddress, o.DeliveryTime, o.VehicleColor, o.VehicleModelType,
		o.CreatedAt, o.PaidAt, o.CompletedAt, o.CancelledAt, o.UpdatedAt,
	)
}

func TestOrderRepo_Create_DuplicateActiveOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.OrderNumber, o.BuyerID, o.SellerID, o.VehicleID, o.Price, o.Deposit, o.Status,
			o.BuyerNote, o.SellerNote, o.BuyerPhone, o.DeliveryAddress, o.DeliveryTime, o.VehicleColor, o.VehicleModelType,
			o.CreatedAt, o.PaidAt, o.CompletedAt, o.CancelledAt, o.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_orders_active_vehicle"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, o)
	assert.ErrorIs(t, err, ports.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs(o.ID).
		WillReturnRows(orderRow(o))

	result, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, o.OrderNumber, result.OrderNumber)
	assert.True(t, o.Price.Equal(result.Price))
	assert.NotNil(t, result.PaidAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder()
	now := time.Now().UTC()
	o.Status = domain.OrderStatusCancelled
	o.CancelledAt = &now
	o.SellerNote = "car damaged"

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(o.Status, o.SellerNote, o.PaidAt, o.CompletedAt, o.CancelledAt, o.UpdatedAt, o.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateStatus(context.Background(), tx, o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_HasActiveForVehicle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	vehicleID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(vehicleID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	active, err := repo.HasActiveForVehicle(context.Background(), tx, vehicleID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestOrderRepo_List(t *testing.T) {
	tests := []struct {
		name  string
		party *domain.Party
		where string
	}{
		{"buyer side", partyPtr(domain.PartyBuyer), "WHERE buyer_id = \\$1 AND status = \\$2"},
		{"seller side", partyPtr(domain.PartySeller), "WHERE seller_id = \\$1 AND status = \\$2"},
		{"either side", nil, "WHERE \\(buyer_id = \\$1 OR seller_id = \\$1\\) AND status = \\$2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewOrderRepo(mock)
			accountID := uuid.New()
			status := domain.OrderStatusPaid
			o := newTestOrder()

			mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM orders "+tt.where).
				WithArgs(accountID, status).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
			mock.ExpectQuery("SELECT .+ FROM orders "+tt.where+" ORDER BY created_at DESC LIMIT \\$3 OFFSET \\$4").
				WithArgs(accountID, status, 20, 0).
				WillReturnRows(orderRow(o))

			orders, total, err := repo.List(context.Background(), ports.OrderListParams{
				AccountID: accountID, Party: tt.party, Status: &status, Page: 1, PageSize: 20,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
			assert.Len(t, orders, 1)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func partyPtr(p domain.Party) *domain.Party { return &p }

func TestOrderRepo_GetSellerStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	sellerID := uuid.New()
	since := time.Now().UTC().AddDate(0, 0, -7)

	mock.ExpectQuery("SELECT .+ FROM orders WHERE seller_id = \\$1 AND created_at >= \\$2").
		WithArgs(sellerID, since).
		WillReturnRows(pgxmock.NewRows([]string{"total", "pending_payment", "paid", "completed", "cancelled", "revenue"}).
			AddRow(int64(5), int64(1), int64(1), int64(2), int64(1), "24000.00"))

	stats, err := repo.GetSellerStats(context.Background(), sellerID, &since)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, "24000.00", stats.TotalRevenue.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
