package db

import (
	"context"
	"time"

	"mazza/src/models"
	"mazza/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var heldStatuses = []string{string(types.BOOKING_CONFIRMED), string(types.BOOKING_READY)}

// Repository is the persistence boundary for the booking engine. Inside
// Transaction every method runs on the same database transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *gorm.DB {
	return r.db
}

func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) SavePoint(name string) error {
	return r.db.SavePoint(name).Error
}

func (r *Repository) RollbackTo(name string) error {
	return r.db.RollbackTo(name).Error
}

func (r *Repository) CreateStore(ctx context.Context, s *models.Store) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repository) FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var s models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound("store", id.String(), err)
	}
	return &s, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound("product", id.String(), err)
	}
	return &p, nil
}

// LockProduct loads the product with SELECT ... FOR UPDATE. Concurrent
// reservers of the same product queue behind the lock until commit.
func (r *Repository) LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).
		Error
	if err != nil {
		return nil, notFound("product", id.String(), err)
	}
	return &p, nil
}

func (r *Repository) SaveProduct(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (r *Repository) ExpireProducts(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("status IN ?", []string{string(types.PRODUCT_ACTIVE), string(types.PRODUCT_SOLD_OUT)}).
		Where("(expires_at <= ? OR pickup_end <= ?)", now, now).
		Update("status", types.PRODUCT_EXPIRED)
	return res.RowsAffected, res.Error
}

func (r *Repository) CreateBooking(ctx context.Context, b *models.Booking) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error
}

func (r *Repository) SaveBooking(ctx context.Context, b *models.Booking) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(b).Error
}

func (r *Repository) FindBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).Preload("Payment").Where("id = ?", id).First(&b).Error; err != nil {
		return nil, notFound("booking", id.String(), err)
	}
	return &b, nil
}

func (r *Repository) LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&b).
		Error
	if err != nil {
		return nil, notFound("booking", id.String(), err)
	}
	return &b, nil
}

// LookupBookingByIdempotencyKey returns nil when no booking carries key.
func (r *Repository) LookupBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	var b models.Booking
	res := r.db.WithContext(ctx).Preload("Payment").Where("idempotency_key = ?", key).Limit(1).Find(&b)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *Repository) ListBookingsDueForExpiration(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status IN ?", heldStatuses).
		Where("pickup_end < ?", now).
		Order("pickup_end asc").
		Limit(limit).
		Find(&bookings).
		Error
	return bookings, err
}

// ListStalePendingBookings finds PENDING bookings left behind by an interrupted
// reservation whose pickup window has already closed.
func (r *Repository) ListStalePendingBookings(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", types.BOOKING_PENDING).
		Where("pickup_end < ?", now).
		Order("pickup_end asc").
		Limit(limit).
		Find(&bookings).
		Error
	return bookings, err
}

func (r *Repository) ListBookingsDueForReminder(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status IN ?", heldStatuses).
		Where("pickup_end > ? AND pickup_end < ?", from, to).
		Where("reminder_sent_at IS NULL").
		Order("pickup_end asc").
		Find(&bookings).
		Error
	return bookings, err
}

// ClaimReminder marks the reminder as sent. It reports false when another
// instance claimed it first.
func (r *Repository) ClaimReminder(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) SavePayment(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repository) FindPaymentByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&p).Error; err != nil {
		return nil, notFound("payment", bookingID.String(), err)
	}
	return &p, nil
}

// RecordImpact adds a completed pickup to the buyer's and the store's statistics.
func (r *Repository) RecordImpact(ctx context.Context, userID, storeID uuid.UUID, d models.ImpactDelta) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserImpact{UserID: userID}).Error; err != nil {
		return err
	}
	err := tx.Model(&models.UserImpact{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"meals_saved":   gorm.Expr("meals_saved + ?", d.Meals),
			"money_spent":   gorm.Expr("money_spent + ?", d.Revenue),
			"money_saved":   gorm.Expr("money_saved + ?", d.Saved),
			"food_saved_kg": gorm.Expr("food_saved_kg + ?", d.FoodKg),
		}).
		Error
	if err != nil {
		return err
	}
	return tx.Model(&models.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]any{
			"meals_saved":   gorm.Expr("meals_saved + ?", d.Meals),
			"revenue":       gorm.Expr("revenue + ?", d.Revenue),
			"food_saved_kg": gorm.Expr("food_saved_kg + ?", d.FoodKg),
		}).
		Error
}

func (r *Repository) FindUserImpact(ctx context.Context, userID uuid.UUID) (*models.UserImpact, error) {
	var impact models.UserImpact
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&impact).Error; err != nil {
		return nil, notFound("impact", userID.String(), err)
	}
	return &impact, nil
}

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&notifications).
		Error
	return notifications, err
}
