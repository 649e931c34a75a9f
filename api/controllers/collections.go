package controllers

import (
	"net/http"

	"github.com/deepstorefront/storefront/api/resources"
	"github.com/deepstorefront/storefront/api/responses"
	"github.com/deepstorefront/storefront/api/validators"
	"github.com/deepstorefront/storefront/internal/catalog"
	"github.com/deepstorefront/storefront/pkg/logger"
)

// CollectionViewSet serves /collections/. The list is small and cached, so
// it is returned unpaged.
type CollectionViewSet struct {
	base
	svc catalog.Service
}

func NewCollectionViewSet(svc catalog.Service, logg *logger.Logger) *CollectionViewSet {
	return &CollectionViewSet{base: base{logg: logg}, svc: svc}
}

func (v *CollectionViewSet) Name() string { return "collection" }

type collectionRequest struct {
	Title             *string `json:"title" validate:"omitempty,max=255"`
	FeaturedProductID *int64  `json:"featured_product" validate:"omitempty,min=1"`
}

func (v *CollectionViewSet) List(w http.ResponseWriter, r *http.Request) {
	collections, err := v.svc.ListCollections(r.Context())
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, collections)
}

func (v *CollectionViewSet) Create(w http.ResponseWriter, r *http.Request) {
	var payload collectionRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	collection, err := v.svc.CreateCollection(r.Context(), catalog.CollectionInput{
		Title:             payload.Title,
		FeaturedProductID: payload.FeaturedProductID,
	})
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, collection)
}

func (v *CollectionViewSet) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "collection")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	collection, err := v.svc.GetCollection(r.Context(), id)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, collection)
}

func (v *CollectionViewSet) Update(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, false)
}

func (v *CollectionViewSet) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, true)
}

func (v *CollectionViewSet) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, err := validators.PathInt64(r, resources.IDParam, "collection")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	var payload collectionRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	collection, err := v.svc.UpdateCollection(r.Context(), id, catalog.CollectionInput{
		Title:             payload.Title,
		FeaturedProductID: payload.FeaturedProductID,
	}, partial)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, collection)
}

func (v *CollectionViewSet) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "collection")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if err := v.svc.DeleteCollection(r.Context(), id); err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteNoContent(w)
}
