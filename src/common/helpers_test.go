package common

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mazza/src/db"
	"mazza/src/lib"
	"mazza/src/models"
	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu         sync.Mutex
	captures   map[string]int
	refunds    int
	declineAs  string
	refundFail string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{captures: map[string]int{}}
}

func (g *fakeGateway) CapturePayment(_ context.Context, req lib.CaptureRequest) lib.CaptureResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captures[req.IdempotencyKey]++
	if g.declineAs != "" {
		return lib.CaptureResult{Error: g.declineAs}
	}
	return lib.CaptureResult{Success: true, TransactionID: "pi_" + uuid.NewString()[:8], Last4: "4242", Brand: "visa"}
}

func (g *fakeGateway) RefundPayment(_ context.Context, _ string, _ *decimal.Decimal) lib.RefundResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds++
	if g.refundFail != "" {
		return lib.RefundResult{Error: g.refundFail}
	}
	return lib.RefundResult{Success: true, RefundID: "re_test"}
}

func (g *fakeGateway) Charges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.captures {
		total += n
	}
	return total
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []lib.NotificationMessage
}

func (r *recordingNotifier) Send(_ context.Context, msg lib.NotificationMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingNotifier) OfType(kind types.NotificationType) []lib.NotificationMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []lib.NotificationMessage
	for _, m := range r.messages {
		if m.Type == kind {
			out = append(out, m)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []lib.BookingEvent
}

func (r *recordingPublisher) Publish(_ context.Context, e lib.BookingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) Types() []types.BookingEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.BookingEventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	gormDB, err := db.Open("sqlite", filepath.Join(t.TempDir(), "bookings.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db.NewRepository(gormDB)
}

func seedStore(t *testing.T, repo *db.Repository) *models.Store {
	t.Helper()
	s := &models.Store{OwnerID: uuid.New(), Name: "Corner Bakery"}
	require.NoError(t, repo.CreateStore(context.Background(), s))
	return s
}

func seedProduct(t *testing.T, repo *db.Repository, store *models.Store, total int, opts ...func(*models.Product)) *models.Product {
	t.Helper()
	now := time.Now()
	p := &models.Product{
		StoreID:         store.ID,
		Name:            "Surprise bag",
		QuantityTotal:   total,
		OriginalPrice:   decimal.RequireFromString("12.00"),
		DiscountedPrice: decimal.RequireFromString("3.99"),
		Currency:        "eur",
		PickupStart:     now,
		PickupEnd:       now.Add(3 * time.Hour),
		ExpiresAt:       now.Add(3 * time.Hour),
		Status:          types.PRODUCT_ACTIVE,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, repo.CreateProduct(context.Background(), p))
	return p
}

func reloadProduct(t *testing.T, repo *db.Repository, id uuid.UUID) *models.Product {
	t.Helper()
	p, err := repo.FindProduct(context.Background(), id)
	require.NoError(t, err)
	return p
}

type harness struct {
	repo     *db.Repository
	cache    *lib.MemoryCache
	gateway  *fakeGateway
	notifier *recordingNotifier
	events   *recordingPublisher
	svc      *BookingService
	store    *models.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     newTestRepo(t),
		cache:    lib.NewMemoryCache(),
		gateway:  newFakeGateway(),
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
	}
	h.store = seedStore(t, h.repo)
	h.svc = NewBookingService(h.repo, h.gateway, h.notifier, h.events, NewOrderNumberAllocator(h.cache, nil), BookingOptions{Currency: "eur"})
	return h
}

func (h *harness) book(t *testing.T, p *models.Product, userID uuid.UUID, qty int) *models.Booking {
	t.Helper()
	res, err := h.svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:          userID,
		ProductID:       p.ID,
		Quantity:        qty,
		PaymentMethodID: "pm_card_visa",
		IdempotencyKey:  uuid.NewString(),
	})
	require.NoError(t, err)
	return res.Booking
}
