package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/service"
	"github.com/utafrali/InventoryGo/pkg/httputil"
	"github.com/utafrali/InventoryGo/pkg/logger"
	"github.com/utafrali/InventoryGo/pkg/retry"
)

// maxBodyBytes limits every JSON request body.
const maxBodyBytes = 1 << 20

// Services are the operations exposed over HTTP.
type Services struct {
	Ledger         *service.LedgerService
	Transfers      *service.TransferService
	Adjustments    *service.AdjustmentService
	PurchaseOrders *service.PurchaseOrderService
	SalesOrders    *service.SalesOrderService
	Shipments      *service.ShipmentService
	Billing        *service.BillingService
	Payments       *service.PaymentService
	Catalog        *service.CatalogService
	Categories     *service.CategoryService
}

// base carries what every handler needs. State-changing calls run through
// retry.OnConflict with policy; the services themselves never retry a lost
// optimistic race.
type base struct {
	policy retry.Policy
	logger *slog.Logger
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err, b.logger)
}

// reply writes v with status, or the error when err is set.
func (b base) reply(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		b.fail(w, r, err)
		return
	}
	httputil.WriteData(w, status, v)
}

func badParam(w http.ResponseWriter, msg string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: msg},
	})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	return httputil.ParseUUID(w, chi.URLParam(r, name))
}

// queryID parses an optional UUID query parameter. It returns nil when the
// parameter is absent and false after writing a 400 when it is malformed.
func queryID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	id, ok := httputil.ParseUUID(w, v)
	if !ok {
		return nil, false
	}
	return &id, true
}

func queryBool(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		badParam(w, name+" must be a boolean")
		return false, false
	}
	return b, true
}

func queryTime(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Now().UTC(), true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		badParam(w, name+" must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return t.UTC(), true
}

// actor returns explicit when set, otherwise the acting user named by the
// X-Actor-ID header, if it is a UUID.
func actor(r *http.Request, explicit *uuid.UUID) *uuid.UUID {
	if explicit != nil {
		return explicit
	}
	id, err := uuid.Parse(logger.ActorIDFromContext(r.Context()))
	if err != nil {
		return nil
	}
	return &id
}

// reasonRequest is the body of the endpoints that only take a reason.
type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// decodeOptional decodes a body that may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return httputil.DecodeBody(w, r, dst, maxBodyBytes)
}
