package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/deepstorefront/storefront/api/middleware"
	"github.com/deepstorefront/storefront/api/resources"
	"github.com/deepstorefront/storefront/api/responses"
	"github.com/deepstorefront/storefront/api/validators"
	"github.com/deepstorefront/storefront/internal/customers"
	"github.com/deepstorefront/storefront/internal/orders"
	"github.com/deepstorefront/storefront/pkg/enums"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

// OrderHistory lists the orders behind /customers/{id}/history/.
type OrderHistory interface {
	List(ctx context.Context, params pagination.Params, filter orders.Filter) ([]orders.OrderDTO, int64, error)
}

// CustomerViewSet serves /customers/, plus /customers/me/ for the
// authenticated customer and /customers/{id}/history/ for past orders.
type CustomerViewSet struct {
	base
	svc     customers.Service
	history OrderHistory
}

func NewCustomerViewSet(svc customers.Service, history OrderHistory, logg *logger.Logger) *CustomerViewSet {
	return &CustomerViewSet{base: base{logg: logg}, svc: svc, history: history}
}

func (v *CustomerViewSet) Name() string { return "customer" }

func (v *CustomerViewSet) Extras() []resources.Extra {
	return []resources.Extra{
		{Method: http.MethodGet, Segment: "me", Handler: v.Me},
		{Method: http.MethodPut, Segment: "me", Handler: v.UpdateMe},
		{Method: http.MethodGet, Segment: "history", Detail: true, Handler: v.History},
	}
}

type customerRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,max=255"`
	LastName   *string `json:"last_name" validate:"omitempty,max=255"`
	Email      *string `json:"email" validate:"omitempty,email,max=255"`
	Phone      *string `json:"phone" validate:"omitempty,max=255"`
	BirthDate  *string `json:"birth_date"`
	Membership *string `json:"membership" validate:"omitempty,oneof=B S G"`
}

func (p customerRequest) input() (customers.Input, error) {
	in := customers.Input{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
	}
	if p.BirthDate != nil && strings.TrimSpace(*p.BirthDate) != "" {
		bd, err := time.Parse(customers.DateLayout, strings.TrimSpace(*p.BirthDate))
		if err != nil {
			return in, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"birth_date": "must be formatted YYYY-MM-DD"})
		}
		in.BirthDate = &bd
	}
	if p.Membership != nil {
		m, err := enums.ParseMembership(*p.Membership)
		if err != nil {
			return in, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").
				WithDetails(map[string]string{"membership": "must be one of B, S, G"})
		}
		in.Membership = &m
	}
	return in, nil
}

func (v *CustomerViewSet) List(w http.ResponseWriter, r *http.Request) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	list, total, err := v.svc.List(r.Context(), params)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	writePage(w, r, list, total, params)
}

func (v *CustomerViewSet) Create(w http.ResponseWriter, r *http.Request) {
	input, err := v.decode(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	customer, err := v.svc.Create(r.Context(), input)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, customer)
}

func (v *CustomerViewSet) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "customer")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	customer, err := v.svc.Get(r.Context(), id)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, customer)
}

func (v *CustomerViewSet) Update(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, false)
}

func (v *CustomerViewSet) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, true)
}

func (v *CustomerViewSet) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, err := validators.PathInt64(r, resources.IDParam, "customer")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	input, err := v.decode(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	customer, err := v.svc.Update(r.Context(), id, input, partial)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, customer)
}

func (v *CustomerViewSet) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "customer")
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

func (v *CustomerViewSet) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.CustomerIDFromContext(r.Context())
	if !ok {
		v.fail(w, r, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	customer, err := v.svc.Get(r.Context(), id)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, customer)
}

func (v *CustomerViewSet) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.CustomerIDFromContext(r.Context())
	if !ok {
		v.fail(w, r, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	input, err := v.decode(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	customer, err := v.svc.Update(r.Context(), id, input, false)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, customer)
}

// History pages the customer's orders, newest first.
func (v *CustomerViewSet) History(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "customer")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	params, err := validators.ParsePagination(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if _, err := v.svc.Get(r.Context(), id); err != nil {
		v.fail(w, r, err)
		return
	}
	list, total, err := v.history.List(r.Context(), params, orders.Filter{CustomerID: &id})
	if err != nil {
		v.fail(w, r, err)
		return
	}
	writePage(w, r, list, total, params)
}

func (v *CustomerViewSet) decode(r *http.Request) (customers.Input, error) {
	var payload customerRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return customers.Input{}, err
	}
	return payload.input()
}
