package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/deepstorefront/storefront/pkg/errors"
)

type cartItemPayload struct {
	ProductID int64 `json:"product_id" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=32767"`
}

type orderPayload struct {
	CartID        string `json:"cart_id" validate:"required,uuid"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=P C F"`
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/store/cart/items/", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsCartItem(t *testing.T) {
	var payload cartItemPayload
	require.NoError(t, DecodeJSONBody(postJSON(`{"product_id": 3, "quantity": 2}`+"\n"), &payload))
	assert.Equal(t, cartItemPayload{ProductID: 3, Quantity: 2}, payload)
}

func TestDecodeJSONBodyRejectsMalformedBodies(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"empty":          {body: "", message: "request body is required"},
		"unknown field":  {body: `{"product_id": 3, "quantity": 1, "price": "1.00"}`, message: "invalid request body"},
		"trailing json":  {body: `{"product_id": 3, "quantity": 1}{"product_id": 4}`, message: "invalid request body"},
		"wrong type":     {body: `{"product_id": "three", "quantity": 1}`, message: "invalid request body"},
		"oversized body": {body: `{"product_id": 3, "quantity": 1, "pad": "` + strings.Repeat("x", int(MaxBodyBytes)) + `"}`, message: "request body too large"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var payload cartItemPayload
			err := DecodeJSONBody(postJSON(tc.body), &payload)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Equal(t, tc.message, typed.Message())
		})
	}
}

func TestDecodeJSONBodyReportsFieldErrorsByJSONName(t *testing.T) {
	var item cartItemPayload
	err := DecodeJSONBody(postJSON(`{"product_id": 3, "quantity": 40000}`), &item)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"quantity": "must be at most 32767"}, pkgerrors.As(err).Details())

	var order orderPayload
	err = DecodeJSONBody(postJSON(`{"cart_id": "not-a-uuid", "payment_status": "X"}`), &order)
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"cart_id":        "must be a valid UUID",
		"payment_status": "must be one of P, C, F",
	}, pkgerrors.As(err).Details())
}
