package main

import (
	"context"
	"net/http"
	"time"

	"bloom/internal/domain/catalog"
	"bloom/internal/params"
)

type ProductListResponse struct {
	Products   []*catalog.Product `json:"products"`
	Pagination params.Pagination  `json:"pagination"`
}

// listProductsHandler godoc
//
//	@Summary	List products
//	@Tags		Catalog
//	@Produce	json
//	@Param		page	query		int	false	"Page number (default: 1)"
//	@Param		limit	query		int	false	"Items per page (default: 20, max: 100)"
//	@Success	200		{object}	ProductListResponse
//	@Router		/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())
	list, total, err := app.sales.ListProducts(ctx, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, ProductListResponse{Products: list, Pagination: p})
}
