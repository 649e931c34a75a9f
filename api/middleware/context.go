package middleware

import "context"

type contextKey string

const ctxCustomerID contextKey = "customer_id"

// CustomerIDFromContext returns the customer authenticated by Identity.
func CustomerIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(ctxCustomerID).(int64)
	return id, ok && id > 0
}

// WithCustomerID marks ctx as authenticated for customerID.
func WithCustomerID(ctx context.Context, customerID int64) context.Context {
	return context.WithValue(ctx, ctxCustomerID, customerID)
}
