package controllers

import (
	"net/http"

	"github.com/deepstorefront/storefront/api/resources"
	"github.com/deepstorefront/storefront/api/responses"
	"github.com/deepstorefront/storefront/api/validators"
	"github.com/deepstorefront/storefront/internal/catalog"
	"github.com/deepstorefront/storefront/pkg/logger"
)

// ReviewViewSet serves reviews nested under a product.
type ReviewViewSet struct {
	base
	svc    catalog.Service
	parent string
}

// NewReviewViewSet reads the owning product from the "<lookup>_pk" parameter.
func NewReviewViewSet(svc catalog.Service, lookup string, logg *logger.Logger) *ReviewViewSet {
	return &ReviewViewSet{base: base{logg: logg}, svc: svc, parent: resources.ParentParam(lookup)}
}

func (v *ReviewViewSet) Name() string { return "review" }

type reviewRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description"`
}

func (p reviewRequest) input() catalog.ReviewInput {
	return catalog.ReviewInput{Name: p.Name, Description: p.Description}
}

func (v *ReviewViewSet) productID(r *http.Request) (int64, error) {
	return validators.PathInt64(r, v.parent, "product")
}

func (v *ReviewViewSet) List(w http.ResponseWriter, r *http.Request) {
	productID, err := v.productID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	reviews, err := v.svc.ListReviews(r.Context(), productID)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, reviews)
}

func (v *ReviewViewSet) Create(w http.ResponseWriter, r *http.Request) {
	productID, err := v.productID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	var payload reviewRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	review, err := v.svc.CreateReview(r.Context(), productID, payload.input())
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, review)
}

func (v *ReviewViewSet) Retrieve(w http.ResponseWriter, r *http.Request) {
	productID, err := v.productID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	id, err := validators.PathInt64(r, resources.IDParam, "review")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	review, err := v.svc.GetReview(r.Context(), productID, id)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, review)
}

func (v *ReviewViewSet) Update(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, false)
}

func (v *ReviewViewSet) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, true)
}

func (v *ReviewViewSet) update(w http.ResponseWriter, r *http.Request, partial bool) {
	productID, err := v.productID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	id, err := validators.PathInt64(r, resources.IDParam, "review")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	var payload reviewRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	review, err := v.svc.UpdateReview(r.Context(), productID, id, payload.input(), partial)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, review)
}

func (v *ReviewViewSet) Destroy(w http.ResponseWriter, r *http.Request) {
	productID, err := v.productID(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	id, err := validators.PathInt64(r, resources.IDParam, "review")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if err := v.svc.DeleteReview(r.Context(), productID, id); err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteNoContent(w)
}
