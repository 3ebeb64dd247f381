package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// OrderServiceImpl implements ports.OrderService.
//
// Lock order: vehicle then account when buying, order then account when
// refunding, order then vehicle when completing. The account row is always
// taken last.
type OrderServiceImpl struct {
	orderRepo            ports.OrderRepository
	vehicleRepo          ports.VehicleRepository
	ledger               ports.WalletLedger
	guard                ports.PaymentPasswordGuard
	transactor           ports.DBTransactor
	idem                 *idempotencyGate
	refundOnSellerCancel bool
	log                  zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(
	orderRepo ports.OrderRepository,
	vehicleRepo ports.VehicleRepository,
	ledger ports.WalletLedger,
	guard ports.PaymentPasswordGuard,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	reqLock ports.RequestLock,
	transactor ports.DBTransactor,
	idemCfg IdempotencyConfig,
	refundOnSellerCancel bool,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderRepo:   orderRepo,
		vehicleRepo: vehicleRepo,
		ledger:      ledger,
		guard:       guard,
		transactor:  transactor,
		idem: &idempotencyGate{
			repo: idempRepo, cache: idempCache, lock: reqLock, cfg: idemCfg, log: log,
		},
		refundOnSellerCancel: refundOnSellerCancel,
		log:                  log,
	}
}

// CreateOrder buys a listed vehicle. Credential check, debit and order insert
// share one transaction; any failure leaves wallet and orders untouched.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
	if err := domain.ValidateAmount(req.Price); err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey(req.BuyerID, domain.IdempotencyOpCreateOrder, req.IdempotencyKey)
		replay, release, err := s.idem.enter(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		defer release()
		if replay != nil {
			var order domain.Order
			if err := decodeReplay(replay, &order); err != nil {
				return nil, err
			}
			return &order, nil
		}
	}

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & check vehicle
	vehicle, err := s.vehicleRepo.GetByIDForUpdate(ctx, dbTx, req.VehicleID)
	if err != nil {
		return nil, lockFailure("vehicle", err)
	}
	if vehicle == nil {
		return nil, apperror.ErrNotFound("Vehicle")
	}
	if !vehicle.IsPurchasable() {
		return nil, apperror.ErrVehicleUnavailable()
	}
	if vehicle.SellerID == req.BuyerID {
		return nil, apperror.ErrOwnVehicle()
	}
	if !req.Price.Equal(vehicle.Price) {
		return nil, apperror.ErrPriceMismatch()
	}
	active, err := s.orderRepo.HasActiveForVehicle(ctx, dbTx, vehicle.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check active orders: %w", err))
	}
	if active {
		return nil, apperror.ErrVehicleUnavailable()
	}

	// Credential gate
	if err := s.guard.Verify(ctx, dbTx, req.BuyerID, req.PaymentPassword); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	orderNumber := domain.NewOrderNumber(now)

	// Debit (locks the buyer's account last)
	if _, err := s.ledger.Debit(ctx, dbTx, ports.LedgerEntry{
		AccountID:   req.BuyerID,
		Amount:      vehicle.Price,
		Kind:        domain.LedgerKindPurchase,
		Method:      domain.PaymentMethodWallet,
		Description: "Purchase vehicle: " + vehicle.DisplayName(),
		OrderNumber: &orderNumber,
	}); err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:               uuid.New(),
		OrderNumber:      orderNumber,
		BuyerID:          req.BuyerID,
		SellerID:         vehicle.SellerID,
		VehicleID:        vehicle.ID,
		Price:            vehicle.Price,
		Status:           domain.OrderStatusPaid,
		BuyerNote:        req.BuyerNote,
		BuyerPhone:       req.BuyerPhone,
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryTime:     req.DeliveryTime,
		VehicleColor:     req.VehicleColor,
		VehicleModelType: req.VehicleModelType,
		CreatedAt:        now,
		PaidAt:           &now,
		UpdatedAt:        now,
	}
	if err := s.orderRepo.Create(ctx, dbTx, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(order)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		if err := s.idem.record(ctx, dbTx, idempKey, req.BuyerID, order.ID, respJSON); err != nil {
			return nil, err
		}
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" {
		s.idem.remember(ctx, idempKey, respJSON)
	}

	s.log.Info().
		Str("order_number", order.OrderNumber).
		Str("buyer_id", order.BuyerID.String()).
		Str("vehicle_id", order.VehicleID.String()).
		Str("price", domain.FormatAmount(order.Price)).
		Msg("order created")

	return order, nil
}

// Transition applies one action from the order transition table.
func (s *OrderServiceImpl) Transition(ctx context.Context, req ports.TransitionRequest) (*domain.Order, error) {
	transition, ok := domain.LookupTransition(req.Action)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown order action %q", req.Action))
	}

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order, err := s.orderRepo.GetByIDForUpdate(ctx, dbTx, req.OrderID)
	if err != nil {
		return nil, lockFailure("order", err)
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	from := order.Status
	now := time.Now().UTC()
	if err := order.Apply(req.Action, req.ActorID, now); err != nil {
		return nil, transitionError(err)
	}
	if req.Action == domain.ActionSellerCancel && req.Reason != "" {
		order.SellerNote = req.Reason
	}

	switch transition.To {
	case domain.OrderStatusCompleted:
		if err := s.markVehicleSold(ctx, dbTx, order.VehicleID, now); err != nil {
			return nil, err
		}
	case domain.OrderStatusCancelled:
		if from == domain.OrderStatusPaid && s.refundOnSellerCancel {
			if _, err := s.ledger.Credit(ctx, dbTx, ports.LedgerEntry{
				AccountID:   order.BuyerID,
				Amount:      order.Price,
				Kind:        domain.LedgerKindRefund,
				Method:      domain.PaymentMethodWallet,
				Description: "Refund for cancelled order " + order.OrderNumber,
				OrderNumber: &order.OrderNumber,
			}); err != nil {
				return nil, err
			}
		}
	}

	if err := s.orderRepo.UpdateStatus(ctx, dbTx, order); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update order: %w", err))
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("order_number", order.OrderNumber).
		Str("action", string(req.Action)).
		Str("from", string(from)).
		Str("to", string(order.Status)).
		Str("actor_id", req.ActorID.String()).
		Msg("order transitioned")

	return order, nil
}

func (s *OrderServiceImpl) markVehicleSold(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, now time.Time) error {
	vehicle, err := s.vehicleRepo.GetByIDForUpdate(ctx, tx, vehicleID)
	if err != nil {
		return lockFailure("vehicle", err)
	}
	if vehicle == nil {
		return apperror.ErrNotFound("Vehicle")
	}
	if err := s.vehicleRepo.UpdateStatus(ctx, tx, vehicle.ID, domain.VehicleStatusSold, now); err != nil {
		return apperror.InternalError(fmt.Errorf("mark vehicle sold: %w", err))
	}
	return nil
}

// transitionError maps domain transition errors onto the API taxonomy.
func transitionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return apperror.ErrInvalidOrderState(detail(err, domain.ErrInvalidTransition))
	case errors.Is(err, domain.ErrActorNotAllowed):
		return apperror.ErrForbidden(detail(err, domain.ErrActorNotAllowed))
	case errors.Is(err, domain.ErrUnknownAction):
		return apperror.Validation(err.Error())
	}
	return apperror.InternalError(err)
}

// detail strips the sentinel prefix from a wrapped domain error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// GetOrder returns an order visible to one of its two participants.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderID, actorID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find order: %w", err))
	}
	if order == nil || !order.IsParticipant(actorID) {
		return nil, apperror.ErrOrderNotFound()
	}
	return order, nil
}

// ListOrders returns the actor's orders, as buyer, seller or both.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, params ports.OrderListParams) ([]domain.Order, int64, error) {
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	orders, total, err := s.orderRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list orders: %w", err))
	}
	return orders, total, nil
}
