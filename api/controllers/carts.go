package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/deepstorefront/storefront/api/resources"
	"github.com/deepstorefront/storefront/api/responses"
	"github.com/deepstorefront/storefront/api/validators"
	"github.com/deepstorefront/storefront/internal/carts"
	"github.com/deepstorefront/storefront/pkg/logger"
)

// CartViewSet serves /cart/. Carts have no writable fields, so PUT and
// PATCH are rejected with 405.
type CartViewSet struct {
	base
	svc carts.Service
}

func NewCartViewSet(svc carts.Service, logg *logger.Logger) *CartViewSet {
	return &CartViewSet{base: base{logg: logg}, svc: svc}
}

func (v *CartViewSet) Name() string { return "cart" }

func (v *CartViewSet) List(w http.ResponseWriter, r *http.Request) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	list, total, err := v.svc.ListCarts(r.Context(), params)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	writePage(w, r, list, total, params)
}

// Create ignores any request body; the identifier is always server-assigned.
func (v *CartViewSet) Create(w http.ResponseWriter, r *http.Request) {
	cart, err := v.svc.CreateCart(r.Context())
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, cart)
}

func (v *CartViewSet) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathUUID(r, resources.IDParam, "cart")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	cart, err := v.svc.GetCart(r.Context(), id)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, cart)
}

func (v *CartViewSet) Update(w http.ResponseWriter, r *http.Request) {
	v.methodNotAllowed(w, r)
}

func (v *CartViewSet) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	v.methodNotAllowed(w, r)
}

func (v *CartViewSet) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathUUID(r, resources.IDParam, "cart")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if err := v.svc.DeleteCart(r.Context(), id); err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteNoContent(w)
}

// CartItemViewSet serves items nested under a cart.
type CartItemViewSet struct {
	base
	svc    carts.Service
	parent string
}

func NewCartItemViewSet(svc carts.Service, lookup string, logg *logger.Logger) *CartItemViewSet {
	return &CartItemViewSet{base: base{logg: logg}, svc: svc, parent: resources.ParentParam(lookup)}
}

func (v *CartItemViewSet) Name() string { return "item" }

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=32767"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=32767"`
}

func (v *CartItemViewSet) cartID(r *http.Request) (uuid.UUID, error) {
	return validators.PathUUID(r, v.parent, "cart")
}

func (v *CartItemViewSet) List(w http.ResponseWriter, r *http.Request) {
	cartID, err := v.cartID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	items, err := v.svc.ListItems(r.Context(), cartID)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, items)
}

func (v *CartItemViewSet) Create(w http.ResponseWriter, r *http.Request) {
	cartID, err := v.cartID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	var payload addCartItemRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	item, err := v.svc.AddItem(r.Context(), cartID, carts.AddItemInput{ProductID: payload.ProductID, Quantity: payload.Quantity})
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, item)
}

func (v *CartItemViewSet) Retrieve(w http.ResponseWriter, r *http.Request) {
	cartID, err := v.cartID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	id, err := validators.PathInt64(r, resources.IDParam, "cart item")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	item, err := v.svc.GetItem(r.Context(), cartID, id)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, item)
}

// Update and PartialUpdate both set the quantity, the only writable field.
func (v *CartItemViewSet) Update(w http.ResponseWriter, r *http.Request) {
	v.setQuantity(w, r)
}

func (v *CartItemViewSet) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	v.setQuantity(w, r)
}

func (v *CartItemViewSet) setQuantity(w http.ResponseWriter, r *http.Request) {
	cartID, err := v.cartID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	id, err := validators.PathInt64(r, resources.IDParam, "cart item")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	var payload updateCartItemRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	item, err := v.svc.UpdateItem(r.Context(), cartID, id, payload.Quantity)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, item)
}

func (v *CartItemViewSet) Destroy(w http.ResponseWriter, r *http.Request) {
	cartID, err := v.cartID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	id, err := validators.PathInt64(r, resources.IDParam, "cart item")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if err := v.svc.DeleteItem(r.Context(), cartID, id); err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteNoContent(w)
}
