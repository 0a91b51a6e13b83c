package db

import (
	"log"
	"strings"
	"sync/atomic"

	"mazza/src/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		dialector = postgres.Open(dsn)
	}
	_db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Printf("Error connecting to database: %s\n", err.Error())
		return nil, err
	}
	sqlDB, err := _db.DB()
	if err != nil {
		log.Printf("Error establishing connection to database: %s\n", err.Error())
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	return _db, nil
}

// sqliteDSN opens writers with BEGIN IMMEDIATE so that concurrent transactions
// serialise on the database lock, standing in for row locks.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") || dsn == ":memory:" {
		return dsn
	}
	return "file:" + dsn + "?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL"
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Store{},
		&models.Product{},
		&models.Booking{},
		&models.Payment{},
		&models.UserImpact{},
		&models.Notification{},
	)
}

// Readiness flips once the schema has been migrated. Background jobs check it
// before touching any table.
type Readiness struct {
	ready atomic.Bool
}

func (r *Readiness) MarkReady() {
	r.ready.Store(true)
}

func (r *Readiness) Ready() bool {
	return r.ready.Load()
}
