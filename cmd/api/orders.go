package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bloom/internal/domain/orders"
	"bloom/internal/params"

	"github.com/go-chi/chi/v5"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending inProgress completed cancelled" example:"inProgress"`
}

type UpdateOrderItemRequest struct {
	Quantity int `json:"quantity" validate:"lte=1000" example:"2"`
}

// OrderListResponse is the payload inside { "data": ... }.
type OrderListResponse struct {
	Orders     []*orders.Order   `json:"orders"`
	Pagination params.Pagination `json:"pagination"`
}

func orderIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid orderID")
	}
	return id, nil
}

func itemIndexParam(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 {
		return 0, errors.New("invalid item index")
	}
	return idx, nil
}

// placeOrderHandler godoc
//
//	@Summary		Place an order
//	@Description	Turns the caller's cart into a pending order. Stock is taken atomically; if any line is short nothing is taken and the cart is kept.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		orders.Delivery	true	"Delivery details"
//	@Success		201		{object}	orders.Order
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		409		{object}	error	"An item is unavailable"
//	@Failure		422		{object}	error	"Cart is empty"
//	@Router			/orders [post]
func (app *application) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var in orders.Delivery
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	o, err := app.sales.PlaceOrder(ctx, getIdentityFromContext(r), in)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusCreated, o)
}

// GET /v1/orders?page=&limit=
func (app *application) listMyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p := params.ParsePagination(r.URL.Query())
	list, total, err := app.sales.ListMyOrders(ctx, getIdentityFromContext(r), p.Limit, p.Offset)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	p.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, OrderListResponse{Orders: list, Pagination: p})
}

// GET /v1/orders/{orderID}
func (app *application) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := orderIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	o, err := app.sales.GetOrder(ctx, getIdentityFromContext(r), id)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, o)
}

// updateOrderStatusHandler godoc
//
//	@Summary		Change order status (admin)
//	@Description	Cancelling returns the order's stock; leaving cancelled takes it again or fails with 409.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			orderID	path		int64						true	"Order ID"
//	@Param			body	body		UpdateOrderStatusRequest	true	"New status"
//	@Success		200		{object}	orders.Order
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		404		{object}	error	"Order not found"
//	@Failure		409		{object}	error	"Insufficient stock to reinstate"
//	@Router			/orders/{orderID}/status [put]
//	@Security		ApiKeyAuth
func (app *application) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	id, err := orderIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var in UpdateOrderStatusRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	o, err := app.sales.UpdateOrderStatus(ctx, getIdentityFromContext(r), id, in.Status)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, o)
}

// PUT /v1/orders/{orderID}/items/{index}
func (app *application) updateOrderItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	id, err := orderIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	idx, err := itemIndexParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var in UpdateOrderItemRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	o, err := app.sales.UpdateOrderItemQuantity(ctx, getIdentityFromContext(r), id, idx, in.Quantity)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.orderCorrected(w, o)
}

// DELETE /v1/orders/{orderID}/items/{index}
func (app *application) removeOrderItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	id, err := orderIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	idx, err := itemIndexParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	o, err := app.sales.RemoveOrderItem(ctx, getIdentityFromContext(r), id, idx)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.orderCorrected(w, o)
}

// orderCorrected answers an item correction; a nil order means the last
// line went and the order was deleted.
func (app *application) orderCorrected(w http.ResponseWriter, o *orders.Order) {
	if o == nil {
		app.jsonResponse(w, http.StatusOK, map[string]any{
			"message": "order had no items left and was deleted",
			"deleted": true,
		})
		return
	}
	app.jsonResponse(w, http.StatusOK, o)
}

// DELETE /v1/orders/{orderID}
func (app *application) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	id, err := orderIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.sales.DeleteOrder(ctx, getIdentityFromContext(r), id); err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, map[string]string{"message": "order deleted"})
}
