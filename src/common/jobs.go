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
)

const (
	ExpirationJob = "booking-expiration"
	ReminderJob   = "pickup-reminder"

	ExpirationInterval = time.Minute
	ReminderInterval   = 30 * time.Minute

	defaultJobLockTTL   = 120 * time.Second
	defaultSweepBatch   = 500
	reminderWindowStart = 30 * time.Minute
	reminderWindowEnd   = 60 * time.Minute
	abandonedReason     = "reservation abandoned before payment completed"
)

type SweeperOptions struct {
	InstanceID string
	LockTTL    time.Duration
	BatchSize  int
	Now        func() time.Time
}

// Sweeper runs the periodic booking jobs. Every instance schedules them; a
// lock in the shared cache lets only one instance work a given tick.
type Sweeper struct {
	repo      *db.Repository
	cache     lib.Cache
	notifier  lib.Notifier
	events    lib.EventPublisher
	readiness *db.Readiness

	instanceID string
	lockTTL    time.Duration
	batchSize  int
	now        func() time.Time
}

type SweepReport struct {
	Processed int
	Failed    int
}

func NewSweeper(repo *db.Repository, cache lib.Cache, notifier lib.Notifier, events lib.EventPublisher, readiness *db.Readiness, opts SweeperOptions) *Sweeper {
	s := &Sweeper{
		repo:       repo,
		cache:      cache,
		notifier:   notifier,
		events:     events,
		readiness:  readiness,
		instanceID: opts.InstanceID,
		lockTTL:    opts.LockTTL,
		batchSize:  opts.BatchSize,
		now:        opts.Now,
	}
	if s.notifier == nil {
		s.notifier = lib.LogNotifier{}
	}
	if s.events == nil {
		s.events = lib.NoopPublisher{}
	}
	if s.instanceID == "" {
		s.instanceID = uuid.NewString()
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultJobLockTTL
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultSweepBatch
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func jobLockKey(name string) string {
	return fmt.Sprintf("lock:job:%s", name)
}

// RunExclusive runs fn while holding the cluster-wide lock for name. It
// reports false without running fn when another instance holds the lock or
// the schema is not ready yet.
func (s *Sweeper) RunExclusive(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	if s.readiness != nil && !s.readiness.Ready() {
		log.Printf("[Scheduler] %s: database not ready, skipping\n", name)
		return false, nil
	}
	key := jobLockKey(name)
	owner := s.instanceID + ":" + uuid.NewString()
	acquired, err := s.cache.SetIfNotExists(ctx, key, owner, s.lockTTL)
	if err != nil {
		log.Printf("[Scheduler] %s: error acquiring lock: %s\n", name, err.Error())
		return false, err
	}
	if !acquired {
		log.Printf("[Scheduler] %s: lock held by another instance, skipping tick\n", name)
		return false, nil
	}
	defer func() {
		released, err := s.cache.CompareAndDelete(context.WithoutCancel(ctx), key, owner)
		if err != nil {
			log.Printf("[Scheduler] %s: error releasing lock: %s\n", name, err.Error())
			return
		}
		if !released {
			log.Printf("[Scheduler] %s: lock expired before the job finished\n", name)
		}
	}()
	return true, fn(ctx)
}

func (s *Sweeper) Jobs() []lib.PeriodicJob {
	return []lib.PeriodicJob{
		{Name: ExpirationJob, Interval: ExpirationInterval, Run: s.ExpirationTick},
		{Name: ReminderJob, Interval: ReminderInterval, Run: s.ReminderTick},
	}
}

func (s *Sweeper) ExpirationTick(ctx context.Context) {
	s.tick(ctx, ExpirationJob, s.ExpireOverdueBookings)
}

func (s *Sweeper) ReminderTick(ctx context.Context) {
	s.tick(ctx, ReminderJob, s.SendPickupReminders)
}

func (s *Sweeper) tick(ctx context.Context, name string, sweep func(ctx context.Context) (SweepReport, error)) {
	var report SweepReport
	ran, err := s.RunExclusive(ctx, name, func(ctx context.Context) error {
		var err error
		report, err = sweep(ctx)
		return err
	})
	if err != nil {
		log.Printf("[Scheduler] %s failed: %s\n", name, err.Error())
		return
	}
	if ran && (report.Processed > 0 || report.Failed > 0) {
		log.Printf("[Scheduler] %s: processed %d, failed %d\n", name, report.Processed, report.Failed)
	}
}

// ExpireOverdueBookings expires held bookings whose pickup window has closed,
// fails abandoned PENDING bookings and expires lapsed products. A failing
// booking is logged and skipped.
func (s *Sweeper) ExpireOverdueBookings(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.now()

	due, err := s.repo.ListBookingsDueForExpiration(ctx, now, s.batchSize)
	if err != nil {
		return report, err
	}
	for i := range due {
		b, err := s.expireBooking(ctx, due[i].ID, now)
		if err != nil {
			log.Printf("[Scheduler] error expiring %s: %s\n", due[i].OrderNumber, err.Error())
			report.Failed++
			continue
		}
		if b == nil {
			continue
		}
		report.Processed++
		s.events.Publish(ctx, newBookingEvent(types.EVENT_BOOKING_EXPIRED, b, "pickup window ended", now))
		s.notifier.Send(ctx, lib.NotificationMessage{
			UserID: b.UserID,
			Type:   types.NOTIFICATION_BOOKING_EXPIRED,
			Title:  "Booking expired",
			Body:   fmt.Sprintf("The pickup window for order %s has ended.", b.OrderNumber),
			Data:   bookingData(b),
		})
	}

	stale, err := s.repo.ListStalePendingBookings(ctx, now, s.batchSize)
	if err != nil {
		return report, err
	}
	for i := range stale {
		b, err := s.failAbandonedBooking(ctx, stale[i].ID, now)
		if err != nil {
			log.Printf("[Scheduler] error failing abandoned %s: %s\n", stale[i].OrderNumber, err.Error())
			report.Failed++
			continue
		}
		if b == nil {
			continue
		}
		report.Processed++
		s.events.Publish(ctx, newBookingEvent(types.EVENT_BOOKING_FAILED, b, abandonedReason, now))
	}

	if n, err := s.repo.ExpireProducts(ctx, now); err != nil {
		log.Printf("[Scheduler] error expiring products: %s\n", err.Error())
	} else if n > 0 {
		log.Printf("[Scheduler] expired %d products\n", n)
	}
	return report, nil
}

// expireBooking returns nil when the booking left CONFIRMED/READY after it was listed.
func (s *Sweeper) expireBooking(ctx context.Context, id uuid.UUID, now time.Time) (*models.Booking, error) {
	var expired *models.Booking
	err := s.repo.Transaction(ctx, func(tx *db.Repository) error {
		b, err := tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != types.BOOKING_CONFIRMED && b.Status != types.BOOKING_READY {
			return nil
		}
		if err := b.MarkExpired(now); err != nil {
			return err
		}
		if err := s.releaseStock(ctx, tx, b); err != nil {
			return err
		}
		expired = b
		return tx.SaveBooking(ctx, b)
	})
	return expired, err
}

func (s *Sweeper) failAbandonedBooking(ctx context.Context, id uuid.UUID, now time.Time) (*models.Booking, error) {
	var failed *models.Booking
	err := s.repo.Transaction(ctx, func(tx *db.Repository) error {
		b, err := tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != types.BOOKING_PENDING {
			return nil
		}
		if err := b.Fail(abandonedReason, now); err != nil {
			return err
		}
		if err := s.releaseStock(ctx, tx, b); err != nil {
			return err
		}
		p, err := tx.FindPaymentByBooking(ctx, b.ID)
		var nf *types.NotFoundError
		switch {
		case errors.As(err, &nf):
		case err != nil:
			return err
		case p.Status == types.PAYMENT_PENDING:
			if err := p.MarkFailed(abandonedReason, now); err != nil {
				return err
			}
			if err := tx.SavePayment(ctx, p); err != nil {
				return err
			}
		}
		failed = b
		return tx.SaveBooking(ctx, b)
	})
	return failed, err
}

func (s *Sweeper) releaseStock(ctx context.Context, tx *db.Repository, b *models.Booking) error {
	product, err := tx.LockProduct(ctx, b.ProductID)
	if err != nil {
		return err
	}
	product.ReleaseStock(b.Quantity)
	return tx.SaveProduct(ctx, product)
}

// SendPickupReminders reminds buyers whose pickup window closes in 30 to 60
// minutes. Each booking is claimed before sending so it is reminded once.
func (s *Sweeper) SendPickupReminders(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.now()
	due, err := s.repo.ListBookingsDueForReminder(ctx, now.Add(reminderWindowStart), now.Add(reminderWindowEnd))
	if err != nil {
		return report, err
	}
	for i := range due {
		b := &due[i]
		claimed, err := s.repo.ClaimReminder(ctx, b.ID, now)
		if err != nil {
			log.Printf("[Scheduler] error claiming reminder for %s: %s\n", b.OrderNumber, err.Error())
			report.Failed++
			continue
		}
		if !claimed {
			continue
		}
		minutes := int(b.PickupEnd.Sub(now).Minutes())
		s.notifier.Send(ctx, lib.NotificationMessage{
			UserID: b.UserID,
			Type:   types.NOTIFICATION_PICKUP_REMINDER,
			Title:  "Pickup closes soon",
			Body:   fmt.Sprintf("Order %s can be collected for another %d minutes.", b.OrderNumber, minutes),
			Data:   bookingData(b),
		})
		report.Processed++
	}
	return report, nil
}
