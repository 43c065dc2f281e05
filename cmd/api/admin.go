package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"bloom/internal/params"
)

// adminListOrdersHandler godoc
//
//	@Summary		List orders (admin)
//	@Description	Lists every order, newest first. Supports an optional status filter and pagination.
//	@Tags			Admin
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(pending,inProgress,completed,cancelled)
//	@Param			page	query		int		false	"Page number (default: 1)"
//	@Param			limit	query		int		false	"Items per page (default: 20, max: 100)"
//	@Success		200		{object}	OrderListResponse
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		403		{object}	error	"Forbidden"
//	@Router			/admin/orders [get]
//	@Security		ApiKeyAuth
func (app *application) adminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.sales.ListOrders(ctx, getIdentityFromContext(r), status, p.Limit, p.Offset)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": p,
		"status":     status,
	})
}

// GET /v1/admin/carts?page=&limit=
func (app *application) adminListCartsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())
	list, total, err := app.sales.ListCarts(ctx, getIdentityFromContext(r), p.Limit, p.Offset)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"carts":      list,
		"pagination": p,
	})
}

// POST /v1/admin/maintenance/purge-carts
func (app *application) purgeGuestCartsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	n, err := app.sales.PurgeExpiredGuestCarts(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]int64{"purged": n})
}

// POST /v1/admin/maintenance/deactivate-sold-out
func (app *application) deactivateSoldOutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	n, err := app.sales.DeactivateSoldOut(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]int64{"deactivated": n})
}
