package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "usedcar-market/internal/adapter/http/handler"
	redisStorage "usedcar-market/internal/adapter/storage/redis"
	"usedcar-market/internal/core/ports"
	"usedcar-market/internal/service"
	"usedcar-market/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testPassword      = "StrongPass123!"
	testPayPassword   = "123456"
)

// testApp builds the full application stack: real HTTP layer, middleware,
// handlers and services, Redis stores on miniredis, and the in-memory
// repositories from inmemory_store_test.go.
type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	store  *memStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.New("error", false)
	store := newMemStore()

	accountRepo := memAccountRepo{store}
	ledgerRepo := memLedgerRepo{store}
	vehicleRepo := memVehicleRepo{store}
	orderRepo := memOrderRepo{store}
	reviewRepo := memReviewRepo{store}
	feedbackRepo := memFeedbackRepo{store}
	idempotencyRepo := memIdempotencyRepo{store}
	transactor := memTransactor{store}

	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	requestLock := redisStorage.NewRequestLock(rdb)
	attempts := redisStorage.NewCredentialAttempts(rdb)

	encSvc, err := service.NewAESEncryptionService(testEncryptionKey)
	require.NoError(t, err)
	// Cheap Argon2 parameters keep the concurrent tests fast.
	hashSvc := service.NewArgon2HashServiceWithParams(service.Argon2Params{
		Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "test-issuer")

	idemCfg := service.IdempotencyConfig{TTL: time.Hour, LockTTL: 30 * time.Second}
	ledger := service.NewWalletLedger(accountRepo, ledgerRepo, log)
	guard := service.NewPaymentPasswordGuard(accountRepo, hashSvc, attempts, transactor,
		service.GuardConfig{MaxAttempts: 5, LockoutWindow: 15 * time.Minute}, log)
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc, log)
	walletSvc := service.NewWalletService(accountRepo, ledger, guard, idempotencyRepo, idempotencyCache,
		requestLock, transactor, idemCfg, decimal.RequireFromString("1000000"), log)
	orderSvc := service.NewOrderService(orderRepo, vehicleRepo, ledger, guard, idempotencyRepo, idempotencyCache,
		requestLock, transactor, idemCfg, true, log)

	require.NoError(t, authSvc.EnsureAdmin(context.Background(), "admin", testPassword))

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		Guard:          guard,
		OrderSvc:       orderSvc,
		FeedbackSvc:    service.NewFeedbackService(orderRepo, feedbackRepo, log),
		ListingSvc:     service.NewListingService(accountRepo, vehicleRepo, reviewRepo, transactor, log),
		ReviewSvc:      service.NewReviewService(accountRepo, vehicleRepo, reviewRepo, encSvc, transactor, log),
		ReportingSvc:   service.NewReportingService(orderRepo),
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       service.NewAuditService(memAuditRepo{store}, log),
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, redis: mr, store: store}
}

// envelope is the union of the success and error response bodies.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
}

// call performs one request. It never calls t.FailNow so goroutines may use it.
func (a *testApp) call(method, path, token string, body any, headers map[string]string) (int, envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, envelope{}, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		return 0, envelope{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, envelope{}, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, env, nil
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	status, env, err := a.call(method, path, token, body, nil)
	require.NoError(t, err)
	return status, env
}

// mustDo performs a request, requires wantStatus and decodes data into out.
func (a *testApp) mustDo(t *testing.T, method, path, token string, body any, wantStatus int, out any) {
	t.Helper()
	status, env := a.do(t, method, path, token, body)
	require.Equal(t, wantStatus, status, "%s %s: %s %s", method, path, env.ErrorCode, env.Message)
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

type user struct {
	ID    uuid.UUID
	Token string
}

func (a *testApp) login(t *testing.T, username string) string {
	t.Helper()
	var res struct {
		Token string `json:"token"`
	}
	a.mustDo(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": testPassword,
	}, http.StatusOK, &res)
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (a *testApp) register(t *testing.T, username, role string) user {
	t.Helper()
	var account struct {
		ID string `json:"id"`
	}
	a.mustDo(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username, "password": testPassword, "role": role,
	}, http.StatusCreated, &account)
	return user{ID: uuid.MustParse(account.ID), Token: a.login(t, username)}
}

// buyerWithBalance registers a buyer, sets the payment password and recharges amount.
func (a *testApp) buyerWithBalance(t *testing.T, username, amount string) user {
	t.Helper()
	u := a.register(t, username, "buyer")
	a.mustDo(t, http.MethodPost, "/api/v1/wallet/payment-password", u.Token, map[string]string{
		"password": testPayPassword, "confirm_password": testPayPassword,
	}, http.StatusOK, nil)
	if amount != "" {
		a.mustDo(t, http.MethodPost, "/api/v1/wallet/recharge", u.Token, map[string]string{
			"amount": amount, "payment_method": "alipay", "payment_password": testPayPassword,
		}, http.StatusOK, nil)
	}
	return u
}

// listVehicle creates a listing as seller and approves it as admin.
func (a *testApp) listVehicle(t *testing.T, seller user, brand, price string) uuid.UUID {
	t.Helper()
	var vehicle struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	a.mustDo(t, http.MethodPost, "/api/v1/vehicles", seller.Token, map[string]any{
		"brand": brand, "model": "Sedan", "year": 2019, "mileage": 42000, "price": price,
	}, http.StatusCreated, &vehicle)
	require.Equal(t, "pending_review", vehicle.Status)

	adminToken := a.login(t, "admin")
	var page struct {
		Results []struct {
			ID        string `json:"id"`
			VehicleID string `json:"vehicle_id"`
		} `json:"results"`
	}
	a.mustDo(t, http.MethodGet, "/api/v1/admin/vehicle-reviews?status=pending&page_size=100", adminToken, nil, http.StatusOK, &page)

	var reviewID string
	for _, r := range page.Results {
		if r.VehicleID == vehicle.ID {
			reviewID = r.ID
		}
	}
	require.NotEmpty(t, reviewID, "no pending review for vehicle %s", vehicle.ID)
	a.mustDo(t, http.MethodPost, "/api/v1/admin/vehicle-reviews/"+reviewID+"/decision", adminToken,
		map[string]any{"approve": true}, http.StatusOK, nil)

	return uuid.MustParse(vehicle.ID)
}

func orderBody(vehicleID uuid.UUID, price, payPassword string) map[string]string {
	return map[string]string{
		"vehicle_id":       vehicleID.String(),
		"price":            price,
		"payment_password": payPassword,
	}
}

type orderView struct {
	ID                string `json:"id"`
	OrderNumber       string `json:"order_number"`
	Status            string `json:"status"`
	Price             string `json:"price"`
	SellerNote        string `json:"seller_note"`
	CanCancel         bool   `json:"can_cancel"`
	CanConfirmReceipt bool   `json:"can_confirm_receipt"`
	CanReview         bool   `json:"can_review"`
}

func (a *testApp) walletBalance(t *testing.T, token string) string {
	t.Helper()
	var w struct {
		Balance string `json:"balance"`
	}
	a.mustDo(t, http.MethodGet, "/api/v1/wallet", token, nil, http.StatusOK, &w)
	return w.Balance
}
