package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/crms-ng/crms-backend/internal/models"
)

// ErrNotFound is returned by lookups that match no record. Both store
// implementations map their own miss conditions onto it so callers can
// distinguish "no record" from a real storage failure.
var ErrNotFound = errors.New("record not found")

var (
	storeInstance Store
	storeMu       sync.RWMutex
)

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeMu.Lock()
	defer storeMu.Unlock()
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return storeInstance
}

// Store defines the interface for storage operations
type Store interface {
	// Officer directory
	CreateOfficer(officer *models.Officer) (*models.Officer, error)
	GetOfficerByID(id uint) (*models.Officer, error)
	GetOfficerByUSSDPhone(phone string) (*models.Officer, error)

	// Person lookups
	CreatePerson(person *models.Person) (*models.Person, error)
	GetPersonByNIN(nin string) (*models.Person, error)
	CreateWantedRecord(record *models.WantedRecord) (*models.WantedRecord, error)
	GetActiveWantedRecord(personID uint) (*models.WantedRecord, error)
	CreateMissingAlert(alert *models.MissingAlert) (*models.MissingAlert, error)
	GetActiveMissingAlert(personID uint) (*models.MissingAlert, error)
	CreateCriminalRecord(record *models.CriminalRecord) (*models.CriminalRecord, error)
	RunBackgroundCheck(personID uint) (*models.BackgroundSummary, error)

	// Vehicle lookups
	CreateVehicle(vehicle *models.Vehicle) (*models.Vehicle, error)
	GetVehicleByPlate(plate string) (*models.Vehicle, error)

	// Query audit log (append-only)
	CreateQueryLog(entry *models.QueryLog) (*models.QueryLog, error)
	CountQueryLogs(officerID uint) (int64, error)
	CountQueryLogsSince(officerID uint, since time.Time) (int64, error)
	CountQueryLogsByType(officerID uint) (map[string]int64, error)
	GetQueryLogsSince(officerID uint, since time.Time) ([]*models.QueryLog, error)
	GetLastQueryTime(officerID uint) (*time.Time, error)
	GetRecentOfficerIDs(since time.Time) ([]uint, error)
}
