package controllers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/deepstorefront/storefront/api/responses"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/pagination"
)

// base carries what every view set needs to answer a request.
type base struct {
	logg *logger.Logger
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	responses.WriteError(r.Context(), b.logg, w, err)
}

// methodNotAllowed answers actions a resource does not support.
func (b base) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	b.fail(w, r, pkgerrors.New(pkgerrors.CodeMethod, fmt.Sprintf("method %q not allowed", r.Method)))
}

func writePage[T any](w http.ResponseWriter, r *http.Request, results []T, total int64, params pagination.Params) {
	responses.WriteSuccess(w, pagination.NewPage(results, total, params, requestURL(r)))
}

// requestURL rebuilds the absolute URL the client used, for page links.
func requestURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	u := *r.URL
	u.Scheme = scheme
	u.Host = r.Host
	return &u
}
