package middleware

import (
	"net/http"
	"strings"

	"github.com/deepstorefront/storefront/api/responses"
	"github.com/deepstorefront/storefront/pkg/auth"
	"github.com/deepstorefront/storefront/pkg/config"
	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
	"github.com/deepstorefront/storefront/pkg/logger"
)

// tokenSchemes are the accepted Authorization prefixes.
var tokenSchemes = []string{"jwt ", "bearer "}

// Identity authenticates an optional access token. Requests without an
// Authorization header stay anonymous; a header that does not verify is
// rejected with 401. With verification disabled the header is ignored.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := ""
			for _, scheme := range tokenSchemes {
				if len(raw) > len(scheme) && strings.EqualFold(raw[:len(scheme)], scheme) {
					token = strings.TrimSpace(raw[len(scheme):])
					break
				}
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unsupported authorization scheme"))
				return
			}

			claims, err := auth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithCustomerID(r.Context(), claims.CustomerID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, claims.CustomerID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
