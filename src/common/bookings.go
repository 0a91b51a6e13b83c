package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mazza/src/db"
	"mazza/src/lib"
	"mazza/src/models"
	"mazza/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	bookingSavepoint      = "booking_insert"
	orderNumberRetries    = 3
	orderNumberBackoff    = 25 * time.Millisecond
	defaultPaymentTimeout = 15 * time.Second
)

type BookingOptions struct {
	Currency       string
	PaymentTimeout time.Duration
	Now            func() time.Time
}

// BookingService runs the booking lifecycle: reservation, payment capture,
// cancellation, pickup and seller-side stock changes.
type BookingService struct {
	repo     *db.Repository
	gateway  lib.PaymentGateway
	notifier lib.Notifier
	events   lib.EventPublisher
	orders   *OrderNumberAllocator

	currency       string
	paymentTimeout time.Duration
	now            func() time.Time
}

func NewBookingService(repo *db.Repository, gateway lib.PaymentGateway, notifier lib.Notifier, events lib.EventPublisher, orders *OrderNumberAllocator, opts BookingOptions) *BookingService {
	s := &BookingService{
		repo:           repo,
		gateway:        gateway,
		notifier:       notifier,
		events:         events,
		orders:         orders,
		currency:       opts.Currency,
		paymentTimeout: opts.PaymentTimeout,
		now:            opts.Now,
	}
	if s.notifier == nil {
		s.notifier = lib.LogNotifier{}
	}
	if s.events == nil {
		s.events = lib.NoopPublisher{}
	}
	if s.paymentTimeout <= 0 {
		s.paymentTimeout = defaultPaymentTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type CreateBookingInput struct {
	UserID          uuid.UUID
	ProductID       uuid.UUID
	Quantity        int
	PaymentMethodID string
	IdempotencyKey  string
}

type BookingResult struct {
	Booking  *models.Booking
	Replayed bool
}

// Idempotency keys are scoped to the buyer so two users can never collide.
func bookingKey(userID uuid.UUID, key string) string {
	return userID.String() + ":" + key
}

func paymentKey(bookingKey string) string {
	return "booking:" + bookingKey
}

func replay(b *models.Booking) (*BookingResult, error) {
	if b.Status == types.BOOKING_FAILED {
		return nil, types.ErrDuplicateBooking
	}
	return &BookingResult{Booking: b, Replayed: true}, nil
}

// CreateBooking reserves stock and captures payment. A key that was already
// used returns the original booking without charging again.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*BookingResult, error) {
	if in.Quantity <= 0 {
		return nil, types.ErrInvalidQuantity
	}
	key := bookingKey(in.UserID, in.IdempotencyKey)
	existing, err := s.repo.LookupBookingByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return replay(existing)
	}

	var (
		booking *models.Booking
		payment *models.Payment
		prior   *models.Booking
		failure *types.PaymentFailedError
	)
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		product, err := tx.LockProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		// a request with the same key may have committed while we waited on the lock
		prior, err = tx.LookupBookingByIdempotencyKey(ctx, key)
		if err != nil || prior != nil {
			return err
		}
		if product.IsExpired(s.now()) {
			return types.ErrProductExpired
		}
		if err := product.Reserve(in.Quantity); err != nil {
			return err
		}
		if err := tx.SaveProduct(ctx, product); err != nil {
			return err
		}

		booking = models.NewBooking(in.UserID, product, in.Quantity, key)
		if booking.Currency == "" {
			booking.Currency = s.currency
		}
		if err := s.insertBooking(ctx, tx, booking); err != nil {
			return err
		}
		payment = models.NewPayment(booking, in.PaymentMethodID, paymentKey(key))
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		result := s.capture(ctx, booking, payment)
		now := s.now()
		if !result.Success {
			product.ReleaseStock(in.Quantity)
			if err := tx.SaveProduct(ctx, product); err != nil {
				return err
			}
			if err := booking.Fail(result.Error, now); err != nil {
				return err
			}
			if err := payment.MarkFailed(result.Error, now); err != nil {
				return err
			}
			if err := tx.SaveBooking(ctx, booking); err != nil {
				return err
			}
			if err := tx.SavePayment(ctx, payment); err != nil {
				return err
			}
			failure = &types.PaymentFailedError{Reason: result.Error, BookingID: booking.ID.String(), OrderNumber: booking.OrderNumber}
			return nil
		}

		if err := payment.MarkCaptured(result.TransactionID, result.Last4, result.Brand, now); err != nil {
			return err
		}
		if err := booking.Confirm(now); err != nil {
			return err
		}
		booking.QRCodeData = EncodeQRPayload(booking.OrderNumber, booking.ID)
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}
		return tx.SaveBooking(ctx, booking)
	})
	if err != nil {
		if db.IsDuplicateIdempotencyKey(err) {
			if b, lookupErr := s.repo.LookupBookingByIdempotencyKey(ctx, key); lookupErr == nil && b != nil {
				return replay(b)
			}
		}
		return nil, err
	}
	if prior != nil {
		return replay(prior)
	}

	booking.Payment = payment
	if failure != nil {
		log.Printf("[Bookings] payment failed for %s: %s\n", booking.OrderNumber, failure.Reason)
		s.publish(ctx, types.EVENT_BOOKING_FAILED, booking, failure.Reason)
		s.notify(ctx, booking.UserID, types.NOTIFICATION_PAYMENT_FAILED, "Payment failed",
			fmt.Sprintf("We could not charge your card for order %s. Nothing was reserved.", booking.OrderNumber), booking)
		return nil, failure
	}

	s.publish(ctx, types.EVENT_BOOKING_CONFIRMED, booking, "")
	s.notify(ctx, booking.UserID, types.NOTIFICATION_BOOKING_CONFIRMED, "Booking confirmed",
		fmt.Sprintf("Order %s is confirmed. Pick it up before %s.", booking.OrderNumber, booking.PickupEnd.Format("15:04")), booking)
	s.notifyStore(ctx, booking, types.NOTIFICATION_NEW_ORDER, "New order",
		fmt.Sprintf("Order %s: %d item(s)", booking.OrderNumber, booking.Quantity))
	return &BookingResult{Booking: booking}, nil
}

// insertBooking persists b inside a savepoint, retrying with a suffixed
// order number when the counter handed out a number that already exists.
func (s *BookingService) insertBooking(ctx context.Context, tx *db.Repository, b *models.Booking) error {
	b.OrderNumber = s.orders.Next(ctx)
	for attempt := 0; ; attempt++ {
		if err := tx.SavePoint(bookingSavepoint); err != nil {
			return err
		}
		err := tx.CreateBooking(ctx, b)
		if err == nil {
			return nil
		}
		if !db.IsDuplicateOrderNumber(err) {
			return err
		}
		if err := tx.RollbackTo(bookingSavepoint); err != nil {
			return err
		}
		if attempt == orderNumberRetries {
			log.Printf("[Bookings] giving up on order number after %d retries\n", orderNumberRetries)
			return types.ErrOrderNumberExhausted
		}
		log.Printf("[Bookings] order number %s taken, retrying\n", b.OrderNumber)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(orderNumberBackoff * time.Duration(attempt+1)):
		}
		b.OrderNumber = WithSuffix(b.OrderNumber)
	}
}

func (s *BookingService) capture(ctx context.Context, b *models.Booking, p *models.Payment) lib.CaptureResult {
	cctx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()
	res := s.gateway.CapturePayment(cctx, lib.CaptureRequest{
		Amount:          p.Amount,
		Currency:        p.Currency,
		PaymentMethodID: p.PaymentMethod,
		IdempotencyKey:  p.IdempotencyKey,
		Metadata: map[string]string{
			"bookingId":   b.ID.String(),
			"orderNumber": b.OrderNumber,
			"userId":      b.UserID.String(),
		},
	})
	if res.Success {
		return res
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		res.Error = "payment gateway timed out"
	}
	if res.Error == "" {
		res.Error = "payment declined"
	}
	return res
}

// authorize allows the buyer and, when allowSeller is set, the owner of the
// booking's store.
func (s *BookingService) authorize(ctx context.Context, repo *db.Repository, b *models.Booking, actorID uuid.UUID, allowSeller bool) error {
	if b.UserID == actorID {
		return nil
	}
	if !allowSeller {
		return types.ErrUnauthorizedAccess
	}
	return s.authorizeSeller(ctx, repo, b.StoreID, actorID)
}

func (s *BookingService) authorizeSeller(ctx context.Context, repo *db.Repository, storeID, actorID uuid.UUID) error {
	store, err := repo.FindStore(ctx, storeID)
	if err != nil {
		return err
	}
	if !store.OwnedBy(actorID) {
		return types.ErrUnauthorizedAccess
	}
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error) {
	b, err := s.repo.FindBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, s.repo, b, actorID, true); err != nil {
		return nil, err
	}
	return b, nil
}

type RefundSummary struct {
	Status   types.PaymentStatus `json:"status"`
	Amount   decimal.Decimal     `json:"amount"`
	RefundID string              `json:"refundId,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type CancelResult struct {
	Booking *models.Booking `json:"booking"`
	Refund  *RefundSummary  `json:"refund,omitempty"`
}

// Cancel releases the booking's stock and refunds a captured payment. A refund
// the gateway rejects is logged and left CAPTURED for manual reconciliation.
func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*CancelResult, error) {
	var (
		booking *models.Booking
		payment *models.Payment
	)
	err := s.repo.Transaction(ctx, func(tx *db.Repository) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, b, actorID, true); err != nil {
			return err
		}
		now := s.now()
		if err := b.Cancel(reason, actorID, now); err != nil {
			return err
		}
		product, err := tx.LockProduct(ctx, b.ProductID)
		if err != nil {
			return err
		}
		product.ReleaseStock(b.Quantity)
		if err := tx.SaveProduct(ctx, product); err != nil {
			return err
		}
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}

		p, err := tx.FindPaymentByBooking(ctx, b.ID)
		var nf *types.NotFoundError
		if errors.As(err, &nf) {
			booking = b
			return nil
		}
		if err != nil {
			return err
		}
		if p.Status == types.PAYMENT_PENDING {
			if err := p.MarkFailed("booking cancelled", now); err != nil {
				return err
			}
			if err := tx.SavePayment(ctx, p); err != nil {
				return err
			}
		}
		booking, payment = b, p
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CancelResult{Booking: booking}
	if payment != nil {
		result.Refund = s.refund(ctx, booking, payment)
		booking.Payment = payment
	}

	s.publish(ctx, types.EVENT_BOOKING_CANCELLED, booking, reason)
	s.notify(ctx, booking.UserID, types.NOTIFICATION_BOOKING_CANCELLED, "Booking cancelled",
		fmt.Sprintf("Order %s was cancelled.", booking.OrderNumber), booking)
	if actorID == booking.UserID {
		s.notifyStore(ctx, booking, types.NOTIFICATION_BOOKING_CANCELLED, "Order cancelled",
			fmt.Sprintf("Order %s was cancelled by the buyer.", booking.OrderNumber))
	}
	return result, nil
}

func (s *BookingService) refund(ctx context.Context, b *models.Booking, p *models.Payment) *RefundSummary {
	if p.Status != types.PAYMENT_CAPTURED || p.ProviderTxID == nil {
		return &RefundSummary{Status: p.Status, Amount: p.RefundedAmount}
	}
	amount := p.Refundable()
	res := s.gateway.RefundPayment(ctx, *p.ProviderTxID, nil)
	if !res.Success {
		log.Printf("[Bookings] refund failed for %s, needs manual reconciliation: %s\n", b.OrderNumber, res.Error)
		return &RefundSummary{Status: p.Status, Amount: decimal.Zero, Error: res.Error}
	}
	if err := p.MarkRefunded(amount, res.RefundID, s.now()); err != nil {
		log.Printf("[Bookings] error recording refund for %s: %s\n", b.OrderNumber, err.Error())
		return &RefundSummary{Status: p.Status, Amount: decimal.Zero, RefundID: res.RefundID}
	}
	if err := s.repo.SavePayment(ctx, p); err != nil {
		log.Printf("[Bookings] error saving refund %s for %s: %s\n", res.RefundID, b.OrderNumber, err.Error())
	}
	return &RefundSummary{Status: p.Status, Amount: amount, RefundID: res.RefundID}
}

// Complete hands the order over at pickup. qrData must name bookingID.
func (s *BookingService) Complete(ctx context.Context, bookingID, actorID uuid.UUID, qrData string) (*models.Booking, error) {
	payload, err := ParseQRPayload(qrData)
	if err != nil {
		return nil, err
	}
	if payload.BookingID != bookingID {
		return nil, types.ErrInvalidQRCode
	}

	var booking *models.Booking
	err = s.repo.Transaction(ctx, func(tx *db.Repository) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if payload.OrderNumber != "" && payload.OrderNumber != b.OrderNumber {
			return types.ErrInvalidQRCode
		}
		if err := s.authorizeSeller(ctx, tx, b.StoreID, actorID); err != nil {
			return err
		}
		if err := b.Complete(s.now()); err != nil {
			return err
		}
		product, err := tx.LockProduct(ctx, b.ProductID)
		if err != nil {
			return err
		}
		product.ConfirmSale(b.Quantity)
		if err := tx.SaveProduct(ctx, product); err != nil {
			return err
		}
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.RecordImpact(ctx, b.UserID, b.StoreID, models.NewImpactDelta(b, product)); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, types.EVENT_BOOKING_COMPLETED, booking, "")
	s.notify(ctx, booking.UserID, types.NOTIFICATION_ORDER_COMPLETED, "Enjoy your meal",
		fmt.Sprintf("Order %s was picked up. Thanks for saving food!", booking.OrderNumber), booking)
	return booking, nil
}

func (s *BookingService) MarkReady(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := s.repo.Transaction(ctx, func(tx *db.Repository) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.authorizeSeller(ctx, tx, b.StoreID, actorID); err != nil {
			return err
		}
		if err := b.MarkReady(s.now()); err != nil {
			return err
		}
		booking = b
		return tx.SaveBooking(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, types.EVENT_BOOKING_READY, booking, "")
	s.notify(ctx, booking.UserID, types.NOTIFICATION_ORDER_READY, "Order ready",
		fmt.Sprintf("Order %s is packed and waiting for you.", booking.OrderNumber), booking)
	return booking, nil
}

func (s *BookingService) Restock(ctx context.Context, productID, actorID uuid.UUID, qty int) (*models.Product, error) {
	var product *models.Product
	err := s.repo.Transaction(ctx, func(tx *db.Repository) error {
		p, err := tx.LockProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.authorizeSeller(ctx, tx, p.StoreID, actorID); err != nil {
			return err
		}
		if err := p.Restock(qty); err != nil {
			return err
		}
		product = p
		return tx.SaveProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Impact returns the buyer's accumulated statistics, zero when they have not
// completed a pickup yet.
func (s *BookingService) Impact(ctx context.Context, userID uuid.UUID) (*models.UserImpact, error) {
	impact, err := s.repo.FindUserImpact(ctx, userID)
	var nf *types.NotFoundError
	if errors.As(err, &nf) {
		return &models.UserImpact{UserID: userID}, nil
	}
	return impact, err
}

func (s *BookingService) Notifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, userID, 50)
}

func (s *BookingService) notify(ctx context.Context, userID uuid.UUID, kind types.NotificationType, title, body string, b *models.Booking) {
	s.notifier.Send(ctx, lib.NotificationMessage{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Data:   bookingData(b),
	})
}

func (s *BookingService) notifyStore(ctx context.Context, b *models.Booking, kind types.NotificationType, title, body string) {
	store, err := s.repo.FindStore(ctx, b.StoreID)
	if err != nil {
		log.Printf("[Bookings] no store to notify for %s: %s\n", b.OrderNumber, err.Error())
		return
	}
	s.notify(ctx, store.OwnerID, kind, title, body, b)
}

func (s *BookingService) publish(ctx context.Context, kind types.BookingEventType, b *models.Booking, reason string) {
	s.events.Publish(ctx, newBookingEvent(kind, b, reason, s.now()))
}

func bookingData(b *models.Booking) map[string]string {
	return map[string]string{
		"bookingId":   b.ID.String(),
		"orderNumber": b.OrderNumber,
		"status":      string(b.Status),
	}
}

func newBookingEvent(kind types.BookingEventType, b *models.Booking, reason string, at time.Time) lib.BookingEvent {
	return lib.BookingEvent{
		Type:        kind,
		BookingID:   b.ID.String(),
		OrderNumber: b.OrderNumber,
		UserID:      b.UserID.String(),
		StoreID:     b.StoreID.String(),
		ProductID:   b.ProductID.String(),
		Status:      string(b.Status),
		Quantity:    b.Quantity,
		TotalPrice:  b.TotalPrice.StringFixed(2),
		Currency:    b.Currency,
		Reason:      reason,
		OccurredAt:  at,
	}
}
