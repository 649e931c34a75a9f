package validators

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
)

// PathInt64 parses a positive integer URL parameter. Malformed values are
// reported as not found, matching a lookup that cannot succeed.
func PathInt64(r *http.Request, name, resource string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.NotFound(resource, raw)
	}
	return id, nil
}

// PathUUID parses a UUID URL parameter.
func PathUUID(r *http.Request, name, resource string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.NotFound(resource, raw)
	}
	return id, nil
}
