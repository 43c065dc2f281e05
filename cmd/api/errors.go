package main

import (
	"errors"
	"net/http"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/pricing"
	"bloom/internal/sales"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusNotFound, err.Error())
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusConflict, err.Error())
}

func (app *application) unprocessableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unprocessable", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path)
	writeJSONError(w, http.StatusForbidden, "forbidden")
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter string) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Retry-After", retryAfter)
	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter)
}

// salesErrorResponse maps errors from the sales service onto responses.
// Availability problems are 409 so clients can show the item name.
func (app *application) salesErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sales.ErrForbidden):
		app.forbiddenResponse(w, r)
	case errors.Is(err, sales.ErrOrderNotFound), errors.Is(err, sales.ErrItemNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, sales.ErrProductUnavailable),
		errors.Is(err, sales.ErrWrapperUnavailable),
		errors.Is(err, sales.ErrAddonUnavailable),
		errors.Is(err, sales.ErrInsufficientStockOnReinstate),
		errors.Is(err, sales.ErrConcurrentUpdate):
		app.conflictResponse(w, r, err)
	case errors.Is(err, sales.ErrVariantUnavailable),
		errors.Is(err, sales.ErrInvalidTransition),
		errors.Is(err, sales.ErrInvalidQuantity),
		errors.Is(err, sales.ErrNoCartOwner),
		errors.Is(err, pricing.ErrKindMismatch),
		errors.Is(err, carts.ErrInvalidItemType):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, sales.ErrEmptyCart):
		app.unprocessableResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
