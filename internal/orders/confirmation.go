package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/deepstorefront/storefront/internal/tasks"
	"github.com/deepstorefront/storefront/pkg/db/models"
	"github.com/deepstorefront/storefront/pkg/logger"
	"github.com/deepstorefront/storefront/pkg/mail"
)

// ConfirmationHandler emails the customer a summary of a placed order.
type ConfirmationHandler struct {
	repo   Repository
	sender mail.Sender
	logg   *logger.Logger
}

// NewConfirmationHandler builds the orders.confirmation task handler.
func NewConfirmationHandler(repo Repository, sender mail.Sender, logg *logger.Logger) (*ConfirmationHandler, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ConfirmationHandler{repo: repo, sender: sender, logg: logg}, nil
}

func (h *ConfirmationHandler) Name() string {
	return tasks.OrderConfirmation
}

func (h *ConfirmationHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	var body ConfirmationPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return tasks.Permanent(fmt.Errorf("decode confirmation payload: %w", err))
	}
	if body.OrderID <= 0 {
		return tasks.Permanent(fmt.Errorf("confirmation payload has no order id"))
	}

	order, err := h.repo.FindWithCustomer(ctx, body.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tasks.Permanent(fmt.Errorf("order %d not found", body.OrderID))
	}
	if err != nil {
		return fmt.Errorf("load order %d: %w", body.OrderID, err)
	}
	if order.Customer == nil {
		return tasks.Permanent(fmt.Errorf("order %d has no customer", body.OrderID))
	}

	msg := mail.Message{
		To:      []string{order.Customer.Email},
		Subject: fmt.Sprintf("Your order #%d is confirmed", order.ID),
		Body:    renderConfirmation(order),
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		return err
	}
	h.logg.Info(h.logg.WithCustomerID(ctx, order.CustomerID), "order confirmation sent")
	return nil
}

func renderConfirmation(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", order.Customer.FullName())
	fmt.Fprintf(&b, "Thanks for your order #%d.\n\n", order.ID)
	for _, item := range order.Items {
		title := fmt.Sprintf("product %d", item.ProductID)
		if item.Product != nil {
			title = item.Product.Title
		}
		fmt.Fprintf(&b, "  %d x %s @ %s\n", item.Quantity, title, item.UnitPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", order.Total().StringFixed(2))
	return b.String()
}
