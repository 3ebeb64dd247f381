package postgres

import (
	"context"
	"testing"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vehicleCols() []string {
	return []string{"id", "seller_id", "brand", "model", "year", "mileage", "price", "description", "status",
		"created_at", "listed_at", "sold_at", "updated_at"}
}

func vehicleRow(v *domain.Vehicle) *pgxmock.Rows {
	return pgxmock.NewRows(vehicleCols()).AddRow(
		v.ID, v.SellerID, v.Brand, v.Model, v.Year, v.Mileage, v.Price.StringFixed(2), v.Description, v.Status,
		v.CreatedAt, v.ListedAt, v.SoldAt, v.UpdatedAt,
	)
}

func newTestVehicle() *domain.Vehicle {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Vehicle{
		ID: uuid.New(), SellerID: uuid.New(), Brand: "Honda", Model: "Civic", Year: 2019, Mileage: 30000,
		Price: decimal.RequireFromString("12000.00"), Status: domain.VehicleStatusListed,
		CreatedAt: now, ListedAt: &now, UpdatedAt: now,
	}
}

func TestVehicleRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVehicleRepo(mock)
	v := newTestVehicle()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM vehicles WHERE id = \\$1 FOR UPDATE").
		WithArgs(v.ID).
		WillReturnRows(vehicleRow(v))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Honda Civic", result.DisplayName())
	assert.True(t, v.Price.Equal(result.Price))
	assert.True(t, result.IsPurchasable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVehicleRepo(mock)
	mock.ExpectQuery("SELECT .+ FROM vehicles WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(vehicleCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestVehicleRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVehicleRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vehicles SET status").
		WithArgs(domain.VehicleStatusSold, at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateStatus(context.Background(), tx, id, domain.VehicleStatusSold, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepo_List_WithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVehicleRepo(mock)
	listed := domain.VehicleStatusListed
	lo, hi := decimal.RequireFromString("1000"), decimal.RequireFromString("20000")
	v := newTestVehicle()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM vehicles WHERE status = \\$1 AND brand ILIKE \\$2 AND price >= \\$3 AND price <= \\$4").
		WithArgs(listed, "honda", lo, hi).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM vehicles WHERE .+ LIMIT \\$5 OFFSET \\$6").
		WithArgs(listed, "honda", lo, hi, 10, 0).
		WillReturnRows(vehicleRow(v))

	vehicles, total, err := repo.List(context.Background(), ports.VehicleListParams{
		Status: &listed, Brand: "honda", MinPrice: &lo, MaxPrice: &hi, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, vehicles, 1)
	assert.Equal(t, v.ID, vehicles[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
