package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrStaleWrite is returned by conditional updates whose expected status no longer holds.
	ErrStaleWrite = errors.New("stale write: status changed concurrently")
	// ErrConflict is returned when a write would break a uniqueness rule, such as a
	// second SENT offer for one application.
	ErrConflict = errors.New("unique constraint violated")
)

// Store bundles every repository with the transaction manager that spans them.
// Both the Postgres and the in-memory implementations are exposed through it.
type Store struct {
	Tx               TransactionManager
	Users            UserRepository
	Applications     ApplicationRepository
	Offers           OfferRepository
	Contracts        ContractRepository
	Messages         MessageRepository
	Notifications    NotificationRepository
	ContractRequests ContractRequestRepository
	Audit            AuditRepository
	Statistics       StatisticsRepository
}

// NewGormStore wires the gorm-backed repositories.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Tx:               NewTransactionManager(db),
		Users:            NewUserRepository(db),
		Applications:     NewApplicationRepository(db),
		Offers:           NewOfferRepository(db),
		Contracts:        NewContractRepository(db),
		Messages:         NewMessageRepository(db),
		Notifications:    NewNotificationRepository(db),
		ContractRequests: NewContractRequestRepository(db),
		Audit:            NewAuditRepository(db),
		Statistics:       NewStatisticsRepository(db),
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

// conditionalUpdate applies cols to the row with the given id only while its
// status column still equals expected. A miss is ErrNotFound when the row does
// not exist and ErrStaleWrite otherwise.
func conditionalUpdate(db *gorm.DB, table interface{}, id interface{}, expected string, cols map[string]interface{}) error {
	res := db.Model(table).Where("id = ? AND status = ?", id, expected).Updates(cols)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrStaleWrite
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return page, limit
}
