package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/deepstorefront/storefront/api/resources"
	"github.com/deepstorefront/storefront/api/responses"
	"github.com/deepstorefront/storefront/api/validators"
	"github.com/deepstorefront/storefront/internal/catalog"
	"github.com/deepstorefront/storefront/pkg/logger"
)

const maxSearchLength = 255

// ProductViewSet serves /products/.
type ProductViewSet struct {
	base
	svc catalog.Service
}

func NewProductViewSet(svc catalog.Service, logg *logger.Logger) *ProductViewSet {
	return &ProductViewSet{base: base{logg: logg}, svc: svc}
}

func (v *ProductViewSet) Name() string { return "product" }

type productRequest struct {
	Title        *string          `json:"title" validate:"omitempty,max=255"`
	Slug         *string          `json:"slug" validate:"omitempty,max=255"`
	Description  *string          `json:"description"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	CollectionID *int64           `json:"collection" validate:"omitempty,min=1"`
}

func (p productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		Title:        p.Title,
		Slug:         p.Slug,
		Description:  p.Description,
		UnitPrice:    p.UnitPrice,
		CollectionID: p.CollectionID,
	}
}

func (v *ProductViewSet) List(w http.ResponseWriter, r *http.Request) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	filter, err := parseProductFilter(r)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	products, total, err := v.svc.ListProducts(r.Context(), filter, params)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	writePage(w, r, products, total, params)
}

func parseProductFilter(r *http.Request) (catalog.ProductFilter, error) {
	var filter catalog.ProductFilter
	var err error
	if filter.CollectionID, err = validators.ParseQueryInt64(r, "collection_id"); err != nil {
		return filter, err
	}
	if filter.MinPrice, err = validators.ParseQueryDecimal(r, "unit_price__gt"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = validators.ParseQueryDecimal(r, "unit_price__lt"); err != nil {
		return filter, err
	}
	q := r.URL.Query()
	filter.Search = validators.SanitizeString(q.Get("search"), maxSearchLength)
	filter.Ordering = validators.SanitizeString(q.Get("ordering"), 32)
	return filter, nil
}

func (v *ProductViewSet) Create(w http.ResponseWriter, r *http.Request) {
	var payload productRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	product, err := v.svc.CreateProduct(r.Context(), payload.input())
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, product)
}

func (v *ProductViewSet) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "product")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	product, err := v.svc.GetProduct(r.Context(), id)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, product)
}

func (v *ProductViewSet) Update(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, false)
}

func (v *ProductViewSet) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	v.update(w, r, true)
}

func (v *ProductViewSet) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, err := validators.PathInt64(r, resources.IDParam, "product")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	var payload productRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		v.fail(w, r, err)
		return
	}
	product, err := v.svc.UpdateProduct(r.Context(), id, payload.input(), partial)
	if err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteSuccess(w, product)
}

func (v *ProductViewSet) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := validators.PathInt64(r, resources.IDParam, "product")
	if err != nil {
		v.fail(w, r, err)
		return
	}
	if err := v.svc.DeleteProduct(r.Context(), id); err != nil {
		v.fail(w, r, err)
		return
	}
	responses.WriteNoContent(w)
}
