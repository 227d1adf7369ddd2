package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Generic sentinel errors.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Ledger and state machine sentinel errors. Every business-rule failure
// returned by the core unwraps to exactly one of these.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrOrderNotEditable       = errors.New("order not editable")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidTransfer        = errors.New("invalid transfer")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrPendingApproval        = errors.New("pending approval")

	ErrInvoiceAlreadyExists         = errors.New("invoice already exists")
	ErrInvoiceAlreadyCancelled      = errors.New("invoice already cancelled")
	ErrInvoiceAlreadyPaid           = errors.New("invoice already paid")
	ErrInvoicePaymentExceedsBalance = errors.New("invoice payment exceeds balance")
	ErrPaymentNotRefundable         = errors.New("payment not refundable")
	ErrPaymentAlreadyRefunded       = errors.New("payment already refunded")
	ErrRefundAmountExceedsPayment   = errors.New("refund amount exceeds payment")

	ErrSalesOrderNotFulfilled         = errors.New("sales order not fulfilled")
	ErrShipmentAlreadyTerminated      = errors.New("shipment already terminated")
	ErrShipmentNotEligibleForDelivery = errors.New("shipment not eligible for delivery")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code string, status int, sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Status:  status,
		Err:     sentinel,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newAppError("NOT_FOUND", http.StatusNotFound, ErrNotFound, "%s with id %s not found", resource, id)
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return newAppError("ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists, "%s with %s %q already exists", resource, field, value)
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput, "%s", message)
}

// Conflict creates a generic 409 error.
func Conflict(message string) *AppError {
	return newAppError("CONFLICT", http.StatusConflict, ErrConflict, "%s", message)
}

// Internal creates a 500 error. The wrapped error is never exposed to clients.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// ServiceUnavailable creates a 503 error for an unreachable collaborator.
func ServiceUnavailable(service string, err error) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: fmt.Sprintf("%s is unavailable", service),
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrServiceUnavail, err),
	}
}

// InvalidAmount reports a non-positive quantity or money amount.
func InvalidAmount(field string, value any) *AppError {
	return newAppError("INVALID_AMOUNT", http.StatusBadRequest, ErrInvalidAmount, "%s must be positive, got %v", field, value)
}

// InvalidTransition reports a status change not permitted from the current state.
func InvalidTransition(resource, from, to string) *AppError {
	return newAppError("INVALID_TRANSITION", http.StatusConflict, ErrInvalidTransition, "%s cannot transition from %s to %s", resource, from, to)
}

// OrderNotEditable reports a mutation of an order whose status forbids edits.
func OrderNotEditable(resource, status string) *AppError {
	return newAppError("ORDER_NOT_EDITABLE", http.StatusConflict, ErrOrderNotEditable, "%s in status %s cannot be edited", resource, status)
}

// InsufficientStock reports a removal larger than the available quantity.
func InsufficientStock(productID string, available, requested int) *AppError {
	return newAppError("INSUFFICIENT_STOCK", http.StatusConflict, ErrInsufficientStock,
		"insufficient stock for product %s: available %d, requested %d", productID, available, requested)
}

// InvalidTransfer reports a malformed transfer request.
func InvalidTransfer(message string) *AppError {
	return newAppError("INVALID_TRANSFER", http.StatusBadRequest, ErrInvalidTransfer, "%s", message)
}

// ConcurrentModification reports an optimistic version mismatch. It is the
// only error kind a caller may retry unchanged.
func ConcurrentModification(resource, id string) *AppError {
	return newAppError("CONCURRENT_MODIFICATION", http.StatusConflict, ErrConcurrentModification,
		"%s %s was modified concurrently", resource, id)
}

// PendingApproval reports use of a record that has not been approved yet.
func PendingApproval(resource, id string) *AppError {
	return newAppError("PENDING_APPROVAL", http.StatusConflict, ErrPendingApproval, "%s %s is pending approval", resource, id)
}

func InvoiceAlreadyExists(salesOrderID string) *AppError {
	return newAppError("INVOICE_ALREADY_EXISTS", http.StatusConflict, ErrInvoiceAlreadyExists,
		"sales order %s already has an invoice", salesOrderID)
}

func InvoiceAlreadyCancelled(invoiceID string) *AppError {
	return newAppError("INVOICE_ALREADY_CANCELLED", http.StatusConflict, ErrInvoiceAlreadyCancelled, "invoice %s is cancelled", invoiceID)
}

func InvoiceAlreadyPaid(invoiceID string) *AppError {
	return newAppError("INVOICE_ALREADY_PAID", http.StatusConflict, ErrInvoiceAlreadyPaid, "invoice %s is already paid", invoiceID)
}

func InvoicePaymentExceedsBalance(amount, balance string) *AppError {
	return newAppError("INVOICE_PAYMENT_EXCEEDS_BALANCE", http.StatusUnprocessableEntity, ErrInvoicePaymentExceedsBalance,
		"payment amount %s exceeds balance due %s", amount, balance)
}

func PaymentNotRefundable(paymentID, status string) *AppError {
	return newAppError("PAYMENT_NOT_REFUNDABLE", http.StatusConflict, ErrPaymentNotRefundable,
		"payment %s in status %s cannot be refunded", paymentID, status)
}

func PaymentAlreadyRefunded(paymentID string) *AppError {
	return newAppError("PAYMENT_ALREADY_REFUNDED", http.StatusConflict, ErrPaymentAlreadyRefunded, "payment %s is already refunded", paymentID)
}

func RefundAmountExceedsPayment(refund, amount string) *AppError {
	return newAppError("REFUND_AMOUNT_EXCEEDS_PAYMENT", http.StatusUnprocessableEntity, ErrRefundAmountExceedsPayment,
		"refund amount %s exceeds payment amount %s", refund, amount)
}

func SalesOrderNotFulfilled(salesOrderID, status string) *AppError {
	return newAppError("SALES_ORDER_NOT_FULFILLED", http.StatusConflict, ErrSalesOrderNotFulfilled,
		"sales order %s is %s, shipments require FULFILLED", salesOrderID, status)
}

func ShipmentAlreadyTerminated(shipmentID, status string) *AppError {
	return newAppError("SHIPMENT_ALREADY_TERMINATED", http.StatusConflict, ErrShipmentAlreadyTerminated,
		"shipment %s is already %s", shipmentID, status)
}

func ShipmentNotEligibleForDelivery(shipmentID, status string) *AppError {
	return newAppError("SHIPMENT_NOT_ELIGIBLE_FOR_DELIVERY", http.StatusConflict, ErrShipmentNotEligibleForDelivery,
		"shipment %s in status %s cannot be delivered", shipmentID, status)
}

// IsRetryable reports whether the caller may retry the failed operation
// without changing its input.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// statusBySentinel maps sentinels to HTTP statuses for errors that were
// wrapped without an AppError.
var statusBySentinel = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidAmount, http.StatusBadRequest},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrInvalidTransfer, http.StatusBadRequest},
	{ErrInvalidTransition, http.StatusConflict},
	{ErrOrderNotEditable, http.StatusConflict},
	{ErrInsufficientStock, http.StatusConflict},
	{ErrConcurrentModification, http.StatusConflict},
	{ErrPendingApproval, http.StatusConflict},
	{ErrInvoiceAlreadyExists, http.StatusConflict},
	{ErrInvoiceAlreadyCancelled, http.StatusConflict},
	{ErrInvoiceAlreadyPaid, http.StatusConflict},
	{ErrInvoicePaymentExceedsBalance, http.StatusUnprocessableEntity},
	{ErrPaymentNotRefundable, http.StatusConflict},
	{ErrPaymentAlreadyRefunded, http.StatusConflict},
	{ErrRefundAmountExceedsPayment, http.StatusUnprocessableEntity},
	{ErrSalesOrderNotFulfilled, http.StatusConflict},
	{ErrShipmentAlreadyTerminated, http.StatusConflict},
	{ErrShipmentNotEligibleForDelivery, http.StatusConflict},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
