package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"restaurant-chatbot/models"

	"go.uber.org/zap"
)

var scheduleRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)

const scheduleLayout = "2006-01-02 15:04"

// Chat interprets each incoming message against per-device session state,
// mutates the device's current order, and produces a text reply. Validation
// failures are answered in plain language; storage and gateway failures are
// logged and answered with a generic apology.
type Chat struct {
	menu     MenuStore
	orders   OrderStore
	sessions SessionStore
	gateway  PaymentGateway
	logger   *zap.Logger
}

func NewChat(menu MenuStore, orders OrderStore, sessions SessionStore, gateway PaymentGateway, logger *zap.Logger) *Chat {
	return &Chat{
		menu:     menu,
		orders:   orders,
		sessions: sessions,
		gateway:  gateway,
		logger:   logger,
	}
}

// session returns the device's session, creating it on first contact. A
// persisted current order survives process restarts; the conversation mode
// does not.
func (c *Chat) session(ctx context.Context, deviceID string) *Session {
	if s, ok := c.sessions.Get(deviceID); ok {
		return s
	}
	s := &Session{Mode: ModeIdle}
	order, err := c.orders.CurrentByDevice(ctx, deviceID)
	if err != nil {
		c.logger.Error("load current order", zap.String("device_id", deviceID), zap.Error(err))
	} else {
		s.Order = order
	}
	c.sessions.Put(deviceID, s)
	return s
}

// ProcessMessage is the single entry point for user text. "pay" and "cancel"
// are recognized case-insensitively in any mode; everything else goes through
// the mode dispatch.
func (c *Chat) ProcessMessage(ctx context.Context, deviceID, text string) string {
	sess := c.session(ctx, deviceID)

	switch strings.ToLower(strings.TrimSpace(text)) {
	case "pay":
		init := c.InitializePayment(ctx, deviceID)
		if init.Success {
			return "Redirecting you to complete your payment: " + init.AuthorizationURL
		}
		return init.Message
	case "cancel":
		// Backs out of the payment prompt only; the order itself is kept.
		// "0" is the command that actually cancels.
		return WelcomeMessage
	}

	switch sess.Mode {
	case ModeAwaitingSchedule:
		return c.handleScheduleInput(ctx, sess, text)
	case ModeAwaitingSelection:
		return c.handleMenuSelection(ctx, deviceID, sess, text)
	}

	switch strings.TrimSpace(text) {
	case "1":
		return c.showMenu(ctx, sess)
	case "99":
		return c.checkout(sess)
	case "98":
		return c.orderHistory(ctx, deviceID)
	case "97":
		return c.currentOrder(ctx, sess)
	case "0":
		return c.cancelOrder(ctx, sess)
	default:
		return WelcomeMessage
	}
}

func (c *Chat) showMenu(ctx context.Context, sess *Session) string {
	items, err := c.menu.ListAvailable(ctx)
	if err != nil {
		c.logger.Error("list menu", zap.Error(err))
		return errMenu
	}
	if len(items) == 0 {
		return emptyMenu
	}
	sess.Mode = ModeAwaitingSelection

	var b strings.Builder
	b.WriteString("Please select an item by number:\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "%d. %s - %s\n   %s\n\n", it.ID, it.Name, models.FormatPrice(it.PriceCents), it.Description)
	}
	return b.String()
}

func (c *Chat) handleMenuSelection(ctx context.Context, deviceID string, sess *Session, text string) string {
	sess.Mode = ModeIdle

	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return "Invalid selection. " + WelcomeMessage
	}

	item, err := c.menu.Get(ctx, id)
	if err != nil {
		c.logger.Error("get menu item", zap.Int64("item_id", id), zap.Error(err))
		return errSelection
	}
	if item == nil {
		return "Item not found. " + WelcomeMessage
	}

	if sess.Order == nil {
		order := &models.Order{
			DeviceID:   deviceID,
			Items:      []models.OrderItem{{MenuItemID: item.ID, Name: item.Name, PriceCents: item.PriceCents, Quantity: 1}},
			TotalCents: item.PriceCents,
			Status:     models.OrderStatusCurrent,
		}
		if err := c.orders.Create(ctx, order); err != nil {
			c.logger.Error("create order", zap.String("device_id", deviceID), zap.Error(err))
			return errSelection
		}
		sess.Order = order
	} else {
		sess.Order.AddItem(*item)
		if err := c.orders.Update(ctx, sess.Order); err != nil {
			c.logger.Error("update order", zap.Int64("order_id", sess.Order.ID), zap.Error(err))
			return errSelection
		}
	}

	return fmt.Sprintf("Added %s to your order. %s", item.Name, addedSuffix)
}

func (c *Chat) checkout(sess *Session) string {
	if sess.Order == nil || len(sess.Order.Items) == 0 {
		return noOrderToPlace
	}
	sess.Mode = ModeAwaitingSchedule
	return schedulePrompt
}

func (c *Chat) handleScheduleInput(ctx context.Context, sess *Session, text string) string {
	sess.Mode = ModeIdle

	if sess.Order == nil {
		return noOrderToPlace
	}

	// Anything that is not a well-formed date, including "no", means
	// process immediately.
	if !scheduleRe.MatchString(text) {
		return "Invalid date format. Please use YYYY-MM-DD HH:MM format.\nYour order will be processed immediately.\n" + paymentOptions
	}
	when, err := time.Parse(scheduleLayout, text)
	if err != nil {
		return "Invalid date. Please use YYYY-MM-DD HH:MM format.\nYour order will be processed immediately.\n" + paymentOptions
	}

	sess.Order.ScheduledFor = &when
	if err := c.orders.Update(ctx, sess.Order); err != nil {
		c.logger.Error("schedule order", zap.Int64("order_id", sess.Order.ID), zap.Error(err))
		return errSchedule
	}
	return fmt.Sprintf("Your order has been scheduled for %s.\n%s", text, paymentOptions)
}

func (c *Chat) orderHistory(ctx context.Context, deviceID string) string {
	orders, err := c.orders.HistoryByDevice(ctx, deviceID)
	if err != nil {
		c.logger.Error("order history", zap.String("device_id", deviceID), zap.Error(err))
		return errHistory
	}
	if len(orders) == 0 {
		return noOrderHistory
	}

	var b strings.Builder
	b.WriteString("Your order history:\n\n")
	for i, o := range orders {
		fmt.Fprintf(&b, "Order #%d (%s):\n", i+1, o.Status)
		for _, it := range o.Items {
			fmt.Fprintf(&b, "- %dx %s: %s\n", it.Quantity, it.Name, models.FormatPrice(it.SubtotalCents()))
		}
		fmt.Fprintf(&b, "Total: %s\n", models.FormatPrice(o.TotalCents))
		if o.ScheduledFor != nil {
			fmt.Fprintf(&b, "Scheduled for: %s\n", o.ScheduledFor.Format(scheduleLayout))
		}
		b.WriteString("\n")
	}
	b.WriteString(WelcomeMessage)
	return b.String()
}

func (c *Chat) currentOrder(ctx context.Context, sess *Session) string {
	if sess.Order == nil || len(sess.Order.Items) == 0 {
		return noCurrentOrder
	}

	// Re-read from storage so the view reflects what is actually persisted.
	order, err := c.orders.GetByID(ctx, sess.Order.ID)
	if err != nil || order == nil {
		c.logger.Error("get current order", zap.Int64("order_id", sess.Order.ID), zap.Error(err))
		return errCurrent
	}

	var b strings.Builder
	b.WriteString("Your current order:\n\n")
	for _, it := range order.Items {
		fmt.Fprintf(&b, "- %dx %s: %s\n", it.Quantity, it.Name, models.FormatPrice(it.SubtotalCents()))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\n", models.FormatPrice(order.TotalCents))
	if order.ScheduledFor != nil {
		fmt.Fprintf(&b, "Scheduled for: %s\n\n", order.ScheduledFor.Format(scheduleLayout))
	}
	b.WriteString(WelcomeMessage)
	return b.String()
}

func (c *Chat) cancelOrder(ctx context.Context, sess *Session) string {
	if sess.Order == nil {
		return noOrderToCancel
	}

	sess.Order.Status = models.OrderStatusCancelled
	if err := c.orders.Update(ctx, sess.Order); err != nil {
		c.logger.Error("cancel order", zap.Int64("order_id", sess.Order.ID), zap.Error(err))
		return errCancel
	}
	sess.Order = nil
	return "Your order has been cancelled. " + WelcomeMessage
}

// PaymentInit is the outcome of asking the gateway for a hosted-checkout
// session. Failures carry a user-facing message; no error escapes.
type PaymentInit struct {
	Success          bool
	AuthorizationURL string
	Reference        string
	Message          string
}

// InitializePayment creates a gateway transaction for the device's current
// order. The reference embeds the order id so the verify webhook can find the
// order again.
func (c *Chat) InitializePayment(ctx context.Context, deviceID string) PaymentInit {
	sess := c.session(ctx, deviceID)
	if sess.Order == nil {
		return PaymentInit{Success: false, Message: "No order to pay for"}
	}

	reference := fmt.Sprintf("order_%d_%d", sess.Order.ID, time.Now().UnixMilli())
	email := customerEmail(deviceID)

	c.logger.Info("initializing payment",
		zap.Int64("amount", sess.Order.TotalCents),
		zap.String("reference", reference),
		zap.String("email", email),
	)

	authURL, err := c.gateway.Initialize(ctx, PaymentRequest{
		AmountCents: sess.Order.TotalCents,
		Reference:   reference,
		Email:       email,
		OrderID:     sess.Order.ID,
		DeviceID:    deviceID,
	})
	if err != nil {
		c.logger.Error("initialize payment", zap.String("device_id", deviceID), zap.Error(err))
		return PaymentInit{Success: false, Message: "Error initializing payment"}
	}
	return PaymentInit{Success: true, AuthorizationURL: authURL, Reference: reference}
}

// ProcessPayment marks the device's current order paid. Both the
// client-reported success and the gateway verification path land here, so a
// second confirmation for an already-paid order is a no-op.
func (c *Chat) ProcessPayment(ctx context.Context, deviceID, reference string) string {
	sess := c.session(ctx, deviceID)
	if sess.Order == nil {
		return noOrderToPayFor
	}

	if sess.Order.Status == models.OrderStatusPaid {
		sess.Order = nil
		return paymentConfirmed
	}

	sess.Order.Status = models.OrderStatusPaid
	sess.Order.PaymentReference = reference
	if err := c.orders.Update(ctx, sess.Order); err != nil {
		c.logger.Error("mark order paid", zap.Int64("order_id", sess.Order.ID), zap.Error(err))
		return errPayment
	}
	sess.Order = nil
	return paymentConfirmed
}

// customerEmail synthesizes a gateway customer email from the device id.
func customerEmail(deviceID string) string {
	short := deviceID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("customer-%s@restaurant-chatbot.dev", short)
}
