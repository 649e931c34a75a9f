package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/deepstorefront/storefront/api/resources"
	"github.com/deepstorefront/storefront/api/responses"
	"github.com/deepstorefront/storefront/api/validators"
	"github.com/deepstorefront/storefront/internal/orders"
	"github.com/deepstorefront/storefront/pkg/enums"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
)

// OrderViewSet serves /orders/. Orders are created from a cart; only the
// payment status can change afterwards.
type OrderViewSet struct {
	base
	svc orders.Service
}

func NewOrderViewSet(svc orders.Service, logg *logger.Logger) *OrderViewSet {
	return &OrderViewSet{base: base{logg: logg}, svc: svc}
}

func (v *OrderViewSet) Name() string { return "order" }

type placeOrderRequest struct {
	CartID     string `json:"cart_id" validate:"required,uuid"`
	CustomerID int64  `json:"customer_id" validate:"required,min=1"`
}

type updateOrderRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=P C F"`
}

func (v *OrderViewSet) List(w http.ResponseWriter, r *http.Request) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	var filter orders.Filter
	if filter.CustomerID, err = validators.ParseQueryInt64(r, "customer_id"); err != nil {
		v.fail(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("payment_status"); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			v.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status filter"))
			return
		}
		filter.PaymentStatus = &status
	}
	list, total, err := v.svc.List(r.Context(), params, filter)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	writePage(w, r, list, total, params)
}

func (v *OrderViewSet) Create(w http.ResponseWriter, r *http.Request) {
	var payload placeOrderRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	cartID, err := uuid.Parse(payload.CartID)
	if err != nil {
		v.fail(w, r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart_id"))
		return
	}
	order, err := v.svc.PlaceOrder(r.Context(), orders.PlaceOrderInput{CartID: cartID, CustomerID: payload.CustomerID})
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, order)
}

func (v *OrderViewSet) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "order")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	order, err := v.svc.Get(r.Context(), id)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func (v *OrderViewSet) Update(w http.ResponseWriter, r *http.Request) {
	v.setPaymentStatus(w, r)
}

func (v *OrderViewSet) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	v.setPaymentStatus(w, r)
}

func (v *OrderViewSet) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "order")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	var payload updateOrderRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	order, err := v.svc.UpdatePaymentStatus(r.Context(), id, enums.PaymentStatus(payload.PaymentStatus))
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func (v *OrderViewSet) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "order")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if err := v.svc.Delete(r.Context(), id); err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteNoContent(w)
}
