package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
	"github.com/xenking/combo-store/internal/domain/pos"
	"github.com/xenking/combo-store/internal/domain/staff"
)

// badRequestError reports a malformed request body or parameter.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// apiError is the mapped form of a domain error.
type apiError struct {
	status  int
	code    string
	message string
	fields  map[string]string
}

// mapError converts domain errors to API errors. Unknown errors map to 500.
func mapError(err error) apiError {
	var (
		badReq      *badRequestError
		validation  *order.ValidationError
		product     *catalog.InvalidProductError
		member      *staff.InvalidMemberError
		outOfStock  *cart.OutOfStockError
		persistence *order.PersistenceError
		tooLarge    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &badReq):
		return apiError{status: http.StatusBadRequest, code: "bad_request", message: badReq.msg}
	case errors.Is(err, order.ErrEmptyCart):
		return apiError{status: http.StatusBadRequest, code: "empty_cart", message: err.Error()}
	case errors.Is(err, cart.ErrInvalidQuantity):
		return apiError{status: http.StatusBadRequest, code: "invalid_quantity", message: err.Error()}
	case errors.Is(err, catalog.ErrUnsupportedImage):
		return apiError{status: http.StatusBadRequest, code: "unsupported_image", message: err.Error()}
	case errors.As(err, &tooLarge):
		return apiError{
			status:  http.StatusRequestEntityTooLarge,
			code:    "too_large",
			message: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
		}
	case errors.Is(err, staff.ErrUnauthorized):
		return apiError{status: http.StatusUnauthorized, code: "unauthorized", message: "missing or invalid api_key"}
	case errors.Is(err, staff.ErrForbidden):
		return apiError{status: http.StatusForbidden, code: "forbidden", message: "insufficient role"}
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, order.ErrNotFound), errors.Is(err, staff.ErrNotFound):
		return apiError{status: http.StatusNotFound, code: "not_found", message: err.Error()}
	case errors.As(err, &outOfStock):
		return apiError{
			status:  http.StatusConflict,
			code:    "out_of_stock",
			message: err.Error(),
			fields: map[string]string{
				"productId": outOfStock.ProductID,
				"size":      string(outOfStock.Size),
				"available": fmt.Sprint(outOfStock.Available),
				"inCart":    fmt.Sprint(outOfStock.InCart),
			},
		}
	case errors.Is(err, order.ErrInvalidTransition):
		return apiError{status: http.StatusConflict, code: "invalid_transition", message: err.Error()}
	case errors.Is(err, order.ErrStatusConflict):
		return apiError{status: http.StatusConflict, code: "status_conflict", message: err.Error()}
	case errors.Is(err, pos.ErrInvalidState):
		return apiError{status: http.StatusConflict, code: "invalid_state", message: err.Error()}
	case errors.Is(err, staff.ErrDuplicateEmail):
		return apiError{status: http.StatusConflict, code: "duplicate_email", message: err.Error()}
	case errors.As(err, &validation):
		return apiError{
			status:  http.StatusUnprocessableEntity,
			code:    "validation_failed",
			message: "invalid customer info",
			fields:  validation.Fields,
		}
	case errors.As(err, &product):
		return apiError{
			status:  http.StatusUnprocessableEntity,
			code:    "validation_failed",
			message: "invalid product",
			fields:  map[string]string{product.Field: product.Reason},
		}
	case errors.As(err, &member):
		return apiError{
			status:  http.StatusUnprocessableEntity,
			code:    "validation_failed",
			message: "invalid staff member",
			fields:  map[string]string{member.Field: member.Reason},
		}
	case errors.As(err, &persistence):
		msg := "could not save, please retry"
		if persistence.Partial {
			msg = "order may have been saved, check the order list before retrying"
		}
		return apiError{status: http.StatusServiceUnavailable, code: "persistence_failed", message: msg}
	}
	return apiError{status: http.StatusInternalServerError, code: "internal", message: "internal server error"}
}

// fail logs err and writes its mapped response.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	e := mapError(err)
	lg := zctx.From(r.Context())
	if e.status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Error(err), zap.String("code", e.code))
	}
	writeError(w, e.status, e.code, e.message, e.fields)
}

func writeError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Str(code)
	e.FieldStart("message")
	e.Str(message)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		e.FieldStart("fields")
		e.ObjStart()
		for _, k := range keys {
			e.FieldStart(k)
			e.Str(fields[k])
		}
		e.ObjEnd()
	}
	e.ObjEnd()
	writeJSON(w, status, &e)
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
