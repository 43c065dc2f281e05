package main

import (
	"context"
	"net/http"
	"time"

	"bloom/internal/domain/carts"
	"bloom/internal/domain/catalog"
	"bloom/internal/sales"
)

type AddFlowerRequest struct {
	ProductID          int64   `json:"product_id" validate:"required,gt=0"`
	Quantity           int     `json:"quantity" validate:"required,gt=0,lte=1000"`
	FlowerType         string  `json:"flower_type" validate:"omitempty,oneof=single bouquet"`
	SelectedColor      *string `json:"selected_color,omitempty" validate:"omitempty,max=60"`
	SelectedStemLength *string `json:"selected_stem_length,omitempty" validate:"omitempty,max=20"`
	WrapperID          *int64  `json:"wrapper_id,omitempty" validate:"omitempty,gt=0"`
}

type AddAddonRequest struct {
	AddonID  int64 `json:"addon_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0,lte=1000"`
}

// UpdateItemRequest sets a line quantity; zero or less removes the line.
type UpdateItemRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	ItemType string `json:"item_type" validate:"required,oneof=flower addon"`
	Quantity int    `json:"quantity" validate:"lte=1000"`
}

type RemoveItemRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	ItemType string `json:"item_type" validate:"required,oneof=flower addon"`
}

// UpdateWrapperRequest with a null wrapper_id removes the wrapper.
type UpdateWrapperRequest struct {
	ItemID    string `json:"item_id" validate:"required"`
	WrapperID *int64 `json:"wrapper_id" validate:"omitempty,gt=0"`
}

type UpdateVariantRequest struct {
	ItemID             string  `json:"item_id" validate:"required"`
	SelectedColor      *string `json:"selected_color" validate:"omitempty,max=60"`
	SelectedStemLength *string `json:"selected_stem_length" validate:"omitempty,max=20"`
}

// getCartHandler godoc
//
//	@Summary		Get the caller's cart
//	@Description	Returns the cart keyed by the caller's user id or X-Session-ID. Callers without a cart get an empty one.
//	@Tags			Cart
//	@Produce		json
//	@Success		200	{object}	carts.Cart
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Router			/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := app.sales.GetCart(ctx, getIdentityFromContext(r))
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, c)
}

// addFlowerHandler godoc
//
//	@Summary		Add a flower line
//	@Description	Adds a flower line at the current price. Stock is checked but not reserved.
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddFlowerRequest	true	"Flower line"
//	@Success		200		{object}	carts.Cart
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		409		{object}	error	"Product, variant or wrapper unavailable"
//	@Router			/cart/flower [post]
func (app *application) addFlowerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in AddFlowerRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.sales.AddFlowerItem(ctx, getIdentityFromContext(r), sales.AddFlowerInput{
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		Kind:       catalog.FlowerKind(in.FlowerType),
		Color:      in.SelectedColor,
		StemLength: in.SelectedStemLength,
		WrapperID:  in.WrapperID,
	})
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, c)
}

// addAddonHandler godoc
//
//	@Summary	Add an addon line
//	@Tags		Cart
//	@Accept		json
//	@Produce	json
//	@Param		body	body		AddAddonRequest	true	"Addon line"
//	@Success	200		{object}	carts.Cart
//	@Failure	409		{object}	error	"Addon unavailable"
//	@Router		/cart/addon [post]
func (app *application) addAddonHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in AddAddonRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.sales.AddAddonItem(ctx, getIdentityFromContext(r), sales.AddAddonInput{
		AddonID:  in.AddonID,
		Quantity: in.Quantity,
	})
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, c)
}

// PUT /v1/cart/item
func (app *application) updateItemQuantityHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in UpdateItemRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	typ, err := carts.ParseItemType(in.ItemType)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.sales.UpdateItemQuantity(ctx, getIdentityFromContext(r), in.ItemID, typ, in.Quantity)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, c)
}

// DELETE /v1/cart/item
func (app *application) removeItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in RemoveItemRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	typ, err := carts.ParseItemType(in.ItemType)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.sales.RemoveItem(ctx, getIdentityFromContext(r), in.ItemID, typ)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, c)
}

// PUT /v1/cart/wrapper
func (app *application) updateWrapperHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in UpdateWrapperRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.sales.UpdateWrapper(ctx, getIdentityFromContext(r), in.ItemID, in.WrapperID)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, c)
}

// PUT /v1/cart/variant
func (app *application) updateVariantHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var in UpdateVariantRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.sales.UpdateVariant(ctx, getIdentityFromContext(r), in.ItemID, in.SelectedColor, in.SelectedStemLength)
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, c)
}

// DELETE /v1/cart
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := app.sales.ClearCart(ctx, getIdentityFromContext(r))
	if err != nil {
		app.salesErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, c)
}
