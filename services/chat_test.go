package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"restaurant-chatbot/models"

	"go.uber.org/zap"
)

// In-memory stores so the conversation engine can be exercised without a
// database or a live gateway.

type fakeMenuStore struct {
	items []models.MenuItem
	err   error
}

func (f *fakeMenuStore) ListAvailable(ctx context.Context) ([]models.MenuItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.MenuItem
	for _, it := range f.items {
		if it.Available {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMenuStore) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, it := range f.items {
		if it.ID == id {
			found := it
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeMenuStore) Seed(ctx context.Context, items []models.MenuItem) error {
	if f.err != nil {
		return f.err
	}
	f.items = append([]models.MenuItem(nil), items...)
	return nil
}

type fakeOrderStore struct {
	orders  map[int64]*models.Order
	nextID  int64
	updates int
	err     error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[int64]*models.Order), nextID: 1}
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	return &c
}

func (f *fakeOrderStore) Create(ctx context.Context, o *models.Order) error {
	if f.err != nil {
		return f.err
	}
	o.ID = f.nextID
	f.nextID++
	o.CreatedAt = time.Now()
	f.orders[o.ID] = cloneOrder(o)
	return nil
}

func (f *fakeOrderStore) Update(ctx context.Context, o *models.Order) error {
	if f.err != nil {
		return f.err
	}
	f.updates++
	f.orders[o.ID] = cloneOrder(o)
	return nil
}

func (f *fakeOrderStore) CurrentByDevice(ctx context.Context, deviceID string) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, o := range f.orders {
		if o.DeviceID == deviceID && o.Status == models.OrderStatusCurrent {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

func (f *fakeOrderStore) HistoryByDevice(ctx context.Context, deviceID string) ([]models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Order
	for _, o := range f.orders {
		if o.DeviceID == deviceID && (o.Status == models.OrderStatusPlaced || o.Status == models.OrderStatusPaid) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeOrderStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

type fakeGateway struct {
	lastRequest *PaymentRequest
	authURL     string
	err         error
}

func (f *fakeGateway) Initialize(ctx context.Context, req PaymentRequest) (string, error) {
	f.lastRequest = &req
	if f.err != nil {
		return "", f.err
	}
	return f.authURL, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*PaymentVerification, error) {
	return &PaymentVerification{Status: "success"}, nil
}

func newTestChat() (*Chat, *fakeOrderStore, *fakeGateway) {
	menu := &fakeMenuStore{items: SampleMenu()}
	orders := newFakeOrderStore()
	gateway := &fakeGateway{authURL: "https://checkout.example/abc"}
	sessions := NewMemorySessionStore(time.Hour)
	chat := NewChat(menu, orders, sessions, gateway, zap.NewNop())
	return chat, orders, gateway
}

const testDevice = "device-1234"

func TestShowMenuListsItemsSortedByID(t *testing.T) {
	chat, _, _ := newTestChat()
	ctx := context.Background()

	reply := chat.ProcessMessage(ctx, testDevice, "1")
	if !strings.HasPrefix(reply, "Please select an item by number:") {
		t.Fatalf("unexpected menu reply: %q", reply)
	}
	if !strings.Contains(reply, "1. Chicken Burger - $8.99\n   Juicy chicken patty with lettuce and special sauce") {
		t.Errorf("menu entry not rendered as expected:\n%s", reply)
	}
	// Sorted by catalog id.
	if strings.Index(reply, "1. Chicken Burger") > strings.Index(reply, "8. Lemonade") {
		t.Errorf("menu not sorted by id:\n%s", reply)
	}
}

func TestSelectionCreatesOrderWithCorrectTotal(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	reply := chat.ProcessMessage(ctx, testDevice, "1") // item id 1, $8.99
	if !strings.Contains(reply, "Added Chicken Burger to your order.") {
		t.Fatalf("unexpected selection reply: %q", reply)
	}

	o, err := orders.CurrentByDevice(ctx, testDevice)
	if err != nil || o == nil {
		t.Fatalf("current order not persisted: %v", err)
	}
	if o.TotalCents != 899 {
		t.Errorf("total = %d, want 899", o.TotalCents)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 1 {
		t.Errorf("items = %+v, want single line with qty 1", o.Items)
	}
}

func TestSelectingSameItemTwiceBumpsQuantity(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "2") // Vegetable Salad, $5.99
	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "2")

	o, _ := orders.CurrentByDevice(ctx, testDevice)
	if o == nil {
		t.Fatal("no current order")
	}
	if len(o.Items) != 1 {
		t.Fatalf("items = %d lines, want 1", len(o.Items))
	}
	if o.Items[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", o.Items[0].Quantity)
	}
	if o.TotalCents != 1198 {
		t.Errorf("total = %d, want 1198", o.TotalCents)
	}
}

func TestTotalMatchesLineItemsAfterEachMutation(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	selections := []string{"1", "3", "1", "5", "3", "3"}
	for _, sel := range selections {
		chat.ProcessMessage(ctx, testDevice, "1")
		chat.ProcessMessage(ctx, testDevice, sel)

		o, _ := orders.CurrentByDevice(ctx, testDevice)
		if o == nil {
			t.Fatal("no current order")
		}
		var sum int64
		for _, it := range o.Items {
			sum += it.SubtotalCents()
		}
		if o.TotalCents != sum {
			t.Fatalf("after selecting %s: total = %d, line sum = %d", sel, o.TotalCents, sum)
		}
	}
}

func TestInvalidAndUnknownSelection(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	reply := chat.ProcessMessage(ctx, testDevice, "bogus")
	if !strings.HasPrefix(reply, "Invalid selection.") {
		t.Errorf("non-numeric selection reply: %q", reply)
	}

	chat.ProcessMessage(ctx, testDevice, "1")
	reply = chat.ProcessMessage(ctx, testDevice, "42")
	if !strings.HasPrefix(reply, "Item not found.") {
		t.Errorf("unknown id reply: %q", reply)
	}

	// Neither path may create an order, and both return to idle.
	if o, _ := orders.CurrentByDevice(ctx, testDevice); o != nil {
		t.Errorf("order created from invalid selection: %+v", o)
	}
	reply = chat.ProcessMessage(ctx, testDevice, "hello")
	if reply != WelcomeMessage {
		t.Errorf("expected welcome after returning to idle, got %q", reply)
	}
}

func TestCheckoutOnEmptyOrder(t *testing.T) {
	chat, _, _ := newTestChat()
	ctx := context.Background()

	reply := chat.ProcessMessage(ctx, testDevice, "99")
	if reply != "No order to place. Select 1 to place an order." {
		t.Fatalf("empty checkout reply: %q", reply)
	}
	// Still in idle mode: arbitrary text yields the welcome menu, not a
	// schedule response.
	reply = chat.ProcessMessage(ctx, testDevice, "whatever")
	if reply != WelcomeMessage {
		t.Errorf("mode changed on empty checkout: %q", reply)
	}
}

func TestScheduleFallbackOnInvalidFormat(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")
	reply := chat.ProcessMessage(ctx, testDevice, "99")
	if !strings.HasPrefix(reply, "Do you want to schedule this order") {
		t.Fatalf("checkout reply: %q", reply)
	}

	reply = chat.ProcessMessage(ctx, testDevice, "no date")
	if !strings.Contains(reply, "Your order will be processed immediately.") {
		t.Errorf("fallback message missing: %q", reply)
	}
	if !strings.Contains(reply, "Type 'pay' to proceed with payment") {
		t.Errorf("payment options missing: %q", reply)
	}

	o, _ := orders.CurrentByDevice(ctx, testDevice)
	if o.ScheduledFor != nil {
		t.Errorf("scheduled_for persisted on invalid input: %v", o.ScheduledFor)
	}
	if o.TotalCents != 899 {
		t.Errorf("total = %d, want 899", o.TotalCents)
	}
}

func TestScheduleValidDatePersisted(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "6")
	chat.ProcessMessage(ctx, testDevice, "99")
	reply := chat.ProcessMessage(ctx, testDevice, "2026-10-01 18:30")
	if !strings.Contains(reply, "Your order has been scheduled for 2026-10-01 18:30.") {
		t.Fatalf("schedule confirmation missing: %q", reply)
	}

	o, _ := orders.CurrentByDevice(ctx, testDevice)
	if o.ScheduledFor == nil {
		t.Fatal("scheduled_for not persisted")
	}
	want := time.Date(2026, 10, 1, 18, 30, 0, 0, time.UTC)
	if !o.ScheduledFor.Equal(want) {
		t.Errorf("scheduled_for = %v, want %v", o.ScheduledFor, want)
	}
}

func TestScheduleWellFormedButImpossibleDate(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "99")
	reply := chat.ProcessMessage(ctx, testDevice, "2026-13-45 27:99")
	if !strings.Contains(reply, "Your order will be processed immediately.") {
		t.Errorf("unparsable date should fall back: %q", reply)
	}
	o, _ := orders.CurrentByDevice(ctx, testDevice)
	if o.ScheduledFor != nil {
		t.Errorf("scheduled_for persisted for impossible date: %v", o.ScheduledFor)
	}
}

func TestCancelZeroClearsOrder(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")

	reply := chat.ProcessMessage(ctx, testDevice, "0")
	if !strings.HasPrefix(reply, "Your order has been cancelled.") {
		t.Fatalf("cancel reply: %q", reply)
	}

	var cancelled *models.Order
	for _, o := range orders.orders {
		if o.Status == models.OrderStatusCancelled {
			cancelled = o
		}
	}
	if cancelled == nil {
		t.Error("no order transitioned to cancelled")
	}

	reply = chat.ProcessMessage(ctx, testDevice, "97")
	if reply != noCurrentOrder {
		t.Errorf("post-cancel current order view: %q", reply)
	}
}

func TestCancelZeroWithNoOrder(t *testing.T) {
	chat, _, _ := newTestChat()
	reply := chat.ProcessMessage(context.Background(), testDevice, "0")
	if reply != noOrderToCancel {
		t.Errorf("cancel with no order: %q", reply)
	}
}

func TestCancelWordKeepsOrder(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")

	// The word "cancel" only backs out of the payment prompt; it must not
	// touch the order.
	reply := chat.ProcessMessage(ctx, testDevice, "CANCEL")
	if reply != WelcomeMessage {
		t.Fatalf("cancel word reply: %q", reply)
	}
	o, _ := orders.CurrentByDevice(ctx, testDevice)
	if o == nil || o.Status != models.OrderStatusCurrent {
		t.Errorf("order lost after 'cancel' word: %+v", o)
	}
}

func TestCurrentOrderView(t *testing.T) {
	chat, _, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")

	reply := chat.ProcessMessage(ctx, testDevice, "97")
	if !strings.Contains(reply, "- 2x Chicken Burger: $17.98") {
		t.Errorf("line item missing: %q", reply)
	}
	if !strings.Contains(reply, "Total: $17.98") {
		t.Errorf("total missing: %q", reply)
	}
}

func TestOrderHistory(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	reply := chat.ProcessMessage(ctx, testDevice, "98")
	if reply != noOrderHistory {
		t.Fatalf("empty history reply: %q", reply)
	}

	older := &models.Order{
		DeviceID:   testDevice,
		Items:      []models.OrderItem{{MenuItemID: 5, Name: "Soda", PriceCents: 199, Quantity: 1}},
		TotalCents: 199,
		Status:     models.OrderStatusPlaced,
	}
	_ = orders.Create(ctx, older)
	orders.orders[older.ID].CreatedAt = time.Now().Add(-time.Hour)

	newer := &models.Order{
		DeviceID:   testDevice,
		Items:      []models.OrderItem{{MenuItemID: 6, Name: "Pizza", PriceCents: 1099, Quantity: 2}},
		TotalCents: 2198,
		Status:     models.OrderStatusPaid,
	}
	_ = orders.Create(ctx, newer)

	reply = chat.ProcessMessage(ctx, testDevice, "98")
	if !strings.Contains(reply, "Order #1 (paid):") {
		t.Errorf("most recent order should come first:\n%s", reply)
	}
	if !strings.Contains(reply, "- 2x Pizza: $21.98") {
		t.Errorf("line subtotal missing:\n%s", reply)
	}
	if !strings.Contains(reply, "Order #2 (placed):") {
		t.Errorf("older order missing:\n%s", reply)
	}
}

func TestInitializePaymentMinorUnits(t *testing.T) {
	chat, _, gateway := newTestChat()
	ctx := context.Background()

	// Full spec scenario: menu, select item 1 ($8.99), checkout, skip
	// schedule, then pay.
	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "99")
	chat.ProcessMessage(ctx, testDevice, "no date")

	reply := chat.ProcessMessage(ctx, testDevice, "pay")
	if !strings.Contains(reply, "https://checkout.example/abc") {
		t.Fatalf("pay reply should carry redirect URL: %q", reply)
	}

	if gateway.lastRequest == nil {
		t.Fatal("gateway not called")
	}
	if gateway.lastRequest.AmountCents != 899 {
		t.Errorf("amount = %d minor units, want 899", gateway.lastRequest.AmountCents)
	}
	if !strings.HasPrefix(gateway.lastRequest.Reference, "order_1_") {
		t.Errorf("reference = %q, want order_<id>_<ts>", gateway.lastRequest.Reference)
	}
	if !strings.Contains(gateway.lastRequest.Email, "device-12") {
		t.Errorf("email should derive from device id: %q", gateway.lastRequest.Email)
	}
}

func TestInitializePaymentWithoutOrder(t *testing.T) {
	chat, _, gateway := newTestChat()
	init := chat.InitializePayment(context.Background(), testDevice)
	if init.Success {
		t.Fatal("init should fail with no current order")
	}
	if init.Message != "No order to pay for" {
		t.Errorf("message = %q", init.Message)
	}
	if gateway.lastRequest != nil {
		t.Error("gateway called with no order")
	}
}

func TestInitializePaymentGatewayFailure(t *testing.T) {
	chat, _, gateway := newTestChat()
	gateway.err = errors.New("declined")
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")

	reply := chat.ProcessMessage(ctx, testDevice, "pay")
	if reply != "Error initializing payment" {
		t.Errorf("gateway failure reply: %q", reply)
	}
}

func TestProcessPayment(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")

	reply := chat.ProcessPayment(ctx, testDevice, "order_1_12345")
	if !strings.HasPrefix(reply, "Payment successful!") {
		t.Fatalf("payment reply: %q", reply)
	}

	o, _ := orders.GetByID(ctx, 1)
	if o.Status != models.OrderStatusPaid {
		t.Errorf("status = %q, want paid", o.Status)
	}
	if o.PaymentReference != "order_1_12345" {
		t.Errorf("payment reference = %q", o.PaymentReference)
	}

	// Session reference cleared.
	if reply := chat.ProcessMessage(ctx, testDevice, "97"); reply != noCurrentOrder {
		t.Errorf("current order should be cleared after payment: %q", reply)
	}
}

func TestProcessPaymentWithoutOrder(t *testing.T) {
	chat, orders, _ := newTestChat()
	reply := chat.ProcessPayment(context.Background(), testDevice, "order_9_1")
	if reply != noOrderToPayFor {
		t.Fatalf("reply = %q", reply)
	}
	if orders.updates != 0 {
		t.Errorf("persistence performed with no order: %d updates", orders.updates)
	}
}

func TestProcessPaymentAlreadyPaidIsNoOp(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessPayment(ctx, testDevice, "order_1_1")

	// Simulate the second confirmation path racing in while the session
	// still points at the paid order.
	sess, _ := chat.sessions.Get(testDevice)
	paid, _ := orders.GetByID(ctx, 1)
	sess.Order = paid

	before := orders.updates
	reply := chat.ProcessPayment(ctx, testDevice, "order_1_2")
	if !strings.HasPrefix(reply, "Payment successful!") {
		t.Errorf("second confirmation reply: %q", reply)
	}
	if orders.updates != before {
		t.Error("already-paid order was persisted again")
	}
	o, _ := orders.GetByID(ctx, 1)
	if o.PaymentReference != "order_1_1" {
		t.Errorf("reference overwritten: %q", o.PaymentReference)
	}
}

func TestSessionRecoversPersistedOrder(t *testing.T) {
	chat, orders, _ := newTestChat()
	ctx := context.Background()

	chat.ProcessMessage(ctx, testDevice, "1")
	chat.ProcessMessage(ctx, testDevice, "1")

	// New engine over the same store stands in for a process restart.
	sessions := NewMemorySessionStore(time.Hour)
	fresh := NewChat(&fakeMenuStore{items: SampleMenu()}, orders, sessions, &fakeGateway{}, zap.NewNop())

	reply := fresh.ProcessMessage(ctx, testDevice, "97")
	if !strings.Contains(reply, "- 1x Chicken Burger: $8.99") {
		t.Errorf("persisted order not recovered: %q", reply)
	}
}

func TestUnknownInputShowsWelcome(t *testing.T) {
	chat, _, _ := newTestChat()
	reply := chat.ProcessMessage(context.Background(), testDevice, "help me")
	if reply != WelcomeMessage {
		t.Errorf("reply = %q, want welcome menu", reply)
	}
}
