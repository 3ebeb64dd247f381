package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxAuditResourceID lets a handler name the resource it created.
const CtxAuditResourceID = "audit_resource_id"

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
}

// auditRoutes maps "METHOD route-pattern" to the audited action.
var auditRoutes = map[string]auditRoute{
	"POST /api/v1/auth/register":                           {domain.AuditActionRegister, "account"},
	"POST /api/v1/auth/login":                              {domain.AuditActionLogin, "session"},
	"POST /api/v1/accounts/me/verification":                {domain.AuditActionSubmitVerification, "verification_review"},
	"POST /api/v1/wallet/recharge":                         {domain.AuditActionRecharge, "wallet"},
	"POST /api/v1/wallet/payment-password":                 {domain.AuditActionSetPaymentPassword, "account"},
	"PUT /api/v1/wallet/payment-password":                  {domain.AuditActionChangePaymentPassword, "account"},
	"POST /api/v1/vehicles":                                {domain.AuditActionCreateListing, "vehicle"},
	"POST /api/v1/orders":                                  {domain.AuditActionPurchase, "order"},
	"POST /api/v1/orders/:id/confirm_payment":              {domain.AuditActionOrderTransition, "order"},
	"POST /api/v1/orders/:id/confirm_receipt":              {domain.AuditActionOrderTransition, "order"},
	"POST /api/v1/orders/:id/cancel":                       {domain.AuditActionOrderTransition, "order"},
	"POST /api/v1/orders/:id/seller_confirm":               {domain.AuditActionOrderTransition, "order"},
	"POST /api/v1/orders/:id/seller_cancel":                {domain.AuditActionOrderTransition, "order"},
	"POST /api/v1/orders/:id/complete":                     {domain.AuditActionOrderTransition, "order"},
	"POST /api/v1/orders/:id/messages":                     {domain.AuditActionOrderMessage, "order"},
	"POST /api/v1/orders/:id/reviews":                      {domain.AuditActionOrderReview, "order"},
	"POST /api/v1/admin/vehicle-reviews/:id/decision":      {domain.AuditActionReviewDecision, "vehicle_review"},
	"POST /api/v1/admin/verification-reviews/:id/decision": {domain.AuditActionReviewDecision, "verification_review"},
}

// AuditLog creates an audit middleware that logs successful write operations.
// Routes are matched on their registered pattern, not the raw path.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		route, ok := mapRouteToAction(c.Request.Method, c.FullPath())
		if !ok {
			return
		}

		var actorID *uuid.UUID
		if id, ok := AccountID(c); ok {
			actorID = &id
		}

		resourceID := c.Param("id")
		if v := c.GetString(CtxAuditResourceID); v != "" {
			resourceID = v
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       route.action,
			ResourceType: route.resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(method, fullPath string) (auditRoute, bool) {
	r, ok := auditRoutes[method+" "+fullPath]
	return r, ok
}
