package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/Leganyst/consulting-platform/internal/db"
	"github.com/Leganyst/consulting-platform/internal/domain"
)

// Store собирает все репозитории поверх одного *gorm.DB.
// Внутри транзакции используется Store, построенный на tx.
type Store struct {
	db *gorm.DB

	Users     UserRepository
	Clients   ClientRepository
	Providers ProviderRepository
	Windows   AvailabilityRepository
	Bookings  BookingRepository
	Tiers     ServiceTierRepository
	Projects  ProjectRepository
	Payments  PaymentRepository
	Ratings   RatingRepository
	Resources ResourceRepository
	Events    EventRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Users:     NewGormUserRepository(db),
		Clients:   NewGormClientRepository(db),
		Providers: NewGormProviderRepository(db),
		Windows:   NewGormAvailabilityRepository(db),
		Bookings:  NewGormBookingRepository(db),
		Tiers:     NewGormServiceTierRepository(db),
		Projects:  NewGormProjectRepository(db),
		Payments:  NewGormPaymentRepository(db),
		Ratings:   NewGormRatingRepository(db),
		Resources: NewGormResourceRepository(db),
		Events:    NewGormEventRepository(db),
	}
}

// DB отдаёт нижележащий *gorm.DB (в транзакции — сам tx).
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction выполняет fn в транзакции уровня по умолчанию.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Serializable выполняет fn в SERIALIZABLE-транзакции (на postgres) и повторяет её
// до retries раз при serialization failure.
func (s *Store) Serializable(ctx context.Context, retries int, fn func(tx *Store) error) error {
	var opts []*sql.TxOptions
	if db.IsPostgres(s.db) {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}

	for attempt := 0; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(NewStore(tx))
		}, opts...)
		if err == nil || !IsSerializationFailure(err) {
			return err
		}
		if attempt >= retries {
			return &domain.Error{
				Kind:   domain.KindConflict,
				Reason: "concurrent update, retry the request",
				Err:    err,
			}
		}
	}
}
