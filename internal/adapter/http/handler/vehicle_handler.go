package handler

import (
	"usedcar-market/internal/adapter/http/dto"
	"usedcar-market/internal/adapter/http/middleware"
	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"
	"usedcar-market/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VehicleHandler handles listing endpoints.
type VehicleHandler struct {
	listingSvc ports.ListingService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(listingSvc ports.ListingService) *VehicleHandler {
	return &VehicleHandler{listingSvc: listingSvc}
}

// CreateVehicle handles POST /api/v1/vehicles. The listing waits for admin review.
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	sellerID, ok := currentAccount(c)
	if !ok {
		return
	}

	var req dto.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	price, err := domain.ParseAmount(req.Price)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	vehicle, err := h.listingSvc.CreateVehicle(c.Request.Context(), ports.CreateVehicleRequest{
		SellerID:    sellerID,
		Brand:       req.Brand,
		Model:       req.Model,
		Year:        req.Year,
		Mileage:     req.Mileage,
		Price:       price,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, vehicle.ID.String())
	response.Created(c, dto.ToVehicleResponse(vehicle))
}

// GetVehicle handles GET /api/v1/vehicles/:id.
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	vehicle, err := h.listingSvc.GetVehicle(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToVehicleResponse(vehicle))
}

// ListVehicles handles GET /api/v1/vehicles?brand=&min_price=&max_price=&seller_id=.
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	page, pageSize := pagination(c)
	params := ports.VehicleListParams{
		Brand:    c.Query("brand"),
		Page:     page,
		PageSize: pageSize,
	}

	if s := c.Query("seller_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.Error(c, apperror.Validation("invalid seller_id"))
			return
		}
		params.SellerID = &id
		// Other sellers' drafts stay hidden.
		listed := domain.VehicleStatusListed
		params.Status = &listed
	}
	for name, dst := range map[string]**decimal.Decimal{"min_price": &params.MinPrice, "max_price": &params.MaxPrice} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			response.Error(c, apperror.Validation("invalid "+name))
			return
		}
		*dst = &d
	}

	vehicles, total, err := h.listingSvc.ListVehicles(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		items = append(items, dto.ToVehicleResponse(&vehicles[i]))
	}
	response.Page(c, items, total, page, pageSize)
}
