package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crms-ng/crms-backend/internal/models"
)

// MemoryStore holds all data in memory. Used for tests and local
// development (USE_MEMORY_STORE=true).
type MemoryStore struct {
	officers  map[uint]*models.Officer
	persons   map[uint]*models.Person
	wanted    map[uint][]*models.WantedRecord   // keyed by person ID
	missing   map[uint][]*models.MissingAlert   // keyed by person ID
	criminal  map[uint][]*models.CriminalRecord // keyed by person ID
	vehicles  map[string]*models.Vehicle        // keyed by normalized plate
	queryLogs []*models.QueryLog

	// Mutexes for thread safety
	officerMu sync.RWMutex
	personMu  sync.RWMutex
	vehicleMu sync.RWMutex
	logMu     sync.RWMutex

	// Counters for ID generation
	officerCounter uint
	personCounter  uint
	recordCounter  uint
	vehicleCounter uint
	logCounter     uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		officers: make(map[uint]*models.Officer),
		persons:  make(map[uint]*models.Person),
		wanted:   make(map[uint][]*models.WantedRecord),
		missing:  make(map[uint][]*models.MissingAlert),
		criminal: make(map[uint][]*models.CriminalRecord),
		vehicles: make(map[string]*models.Vehicle),
	}
}

// Officer operations

func (m *MemoryStore) CreateOfficer(officer *models.Officer) (*models.Officer, error) {
	m.officerMu.Lock()
	defer m.officerMu.Unlock()

	for _, o := range m.officers {
		if o.USSDPhone == officer.USSDPhone {
			return nil, fmt.Errorf("phone number already registered")
		}
		if o.BadgeNumber == officer.BadgeNumber {
			return nil, fmt.Errorf("badge number already registered")
		}
	}

	m.officerCounter++
	officer.ID = m.officerCounter
	officer.CreatedAt = time.Now()
	officer.UpdatedAt = time.Now()
	if officer.DailyLimit <= 0 {
		officer.DailyLimit = models.DefaultDailyLimit
	}

	m.officers[officer.ID] = officer
	return officer, nil
}

func (m *MemoryStore) GetOfficerByID(id uint) (*models.Officer, error) {
	m.officerMu.RLock()
	defer m.officerMu.RUnlock()

	officer, exists := m.officers[id]
	if !exists {
		return nil, ErrNotFound
	}
	return officer, nil
}

func (m *MemoryStore) GetOfficerByUSSDPhone(phone string) (*models.Officer, error) {
	m.officerMu.RLock()
	defer m.officerMu.RUnlock()

	for _, officer := range m.officers {
		if officer.USSDPhone == phone {
			return officer, nil
		}
	}
	return nil, ErrNotFound
}

// Person operations

func (m *MemoryStore) CreatePerson(person *models.Person) (*models.Person, error) {
	m.personMu.Lock()
	defer m.personMu.Unlock()

	for _, p := range m.persons {
		if p.NIN == person.NIN {
			return nil, fmt.Errorf("NIN already registered")
		}
	}

	m.personCounter++
	person.ID = m.personCounter
	person.CreatedAt = time.Now()
	person.UpdatedAt = time.Now()

	m.persons[person.ID] = person
	return person, nil
}

func (m *MemoryStore) GetPersonByNIN(nin string) (*models.Person, error) {
	m.personMu.RLock()
	defer m.personMu.RUnlock()

	for _, person := range m.persons {
		if person.NIN == nin {
			return person, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateWantedRecord(record *models.WantedRecord) (*models.WantedRecord, error) {
	m.personMu.Lock()
	defer m.personMu.Unlock()

	m.recordCounter++
	record.ID = m.recordCounter
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	m.wanted[record.PersonID] = append(m.wanted[record.PersonID], record)
	return record, nil
}

func (m *MemoryStore) GetActiveWantedRecord(personID uint) (*models.WantedRecord, error) {
	m.personMu.RLock()
	defer m.personMu.RUnlock()

	for _, record := range m.wanted[personID] {
		if record.IsActive {
			return record, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateMissingAlert(alert *models.MissingAlert) (*models.MissingAlert, error) {
	m.personMu.Lock()
	defer m.personMu.Unlock()

	m.recordCounter++
	alert.ID = m.recordCounter
	alert.CreatedAt = time.Now()
	alert.UpdatedAt = time.Now()

	m.missing[alert.PersonID] = append(m.missing[alert.PersonID], alert)
	return alert, nil
}

func (m *MemoryStore) GetActiveMissingAlert(personID uint) (*models.MissingAlert, error) {
	m.personMu.RLock()
	defer m.personMu.RUnlock()

	for _, alert := range m.missing[personID] {
		if alert.IsActive {
			return alert, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateCriminalRecord(record *models.CriminalRecord) (*models.CriminalRecord, error) {
	m.personMu.Lock()
	defer m.personMu.Unlock()

	m.recordCounter++
	record.ID = m.recordCounter
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()

	m.criminal[record.PersonID] = append(m.criminal[record.PersonID], record)
	return record, nil
}

func (m *MemoryStore) RunBackgroundCheck(personID uint) (*models.BackgroundSummary, error) {
	m.personMu.RLock()
	defer m.personMu.RUnlock()

	if _, exists := m.persons[personID]; !exists {
		return nil, ErrNotFound
	}

	count := len(m.criminal[personID])
	wanted := false
	for _, record := range m.wanted[personID] {
		if record.IsActive {
			wanted = true
			break
		}
	}

	return buildBackgroundSummary(count, wanted), nil
}

// buildBackgroundSummary classifies a background check. Shared by both
// store implementations so the classification can never drift.
func buildBackgroundSummary(recordCount int, wanted bool) *models.BackgroundSummary {
	summary := &models.BackgroundSummary{RecordCount: recordCount}
	switch {
	case wanted:
		summary.Status = "WANTED"
		summary.RiskLevel = "HIGH"
	case recordCount >= 3:
		summary.Status = "RECORDS FOUND"
		summary.RiskLevel = "HIGH"
	case recordCount > 0:
		summary.Status = "RECORDS FOUND"
		summary.RiskLevel = "MEDIUM"
	default:
		summary.Status = "CLEAR"
		summary.RiskLevel = "LOW"
	}
	return summary
}

// Vehicle operations

func (m *MemoryStore) CreateVehicle(vehicle *models.Vehicle) (*models.Vehicle, error) {
	m.vehicleMu.Lock()
	defer m.vehicleMu.Unlock()

	if _, exists := m.vehicles[vehicle.PlateNumber]; exists {
		return nil, fmt.Errorf("plate already registered")
	}

	m.vehicleCounter++
	vehicle.ID = m.vehicleCounter
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = time.Now()
	if vehicle.Status == "" {
		vehicle.Status = models.VehicleStatusClean
	}

	m.vehicles[vehicle.PlateNumber] = vehicle
	return vehicle, nil
}

func (m *MemoryStore) GetVehicleByPlate(plate string) (*models.Vehicle, error) {
	m.vehicleMu.RLock()
	defer m.vehicleMu.RUnlock()

	vehicle, exists := m.vehicles[plate]
	if !exists {
		return nil, ErrNotFound
	}
	return vehicle, nil
}

// Query log operations

func (m *MemoryStore) CreateQueryLog(entry *models.QueryLog) (*models.QueryLog, error) {
	m.logMu.Lock()
	defer m.logMu.Unlock()

	m.logCounter++
	entry.ID = m.logCounter
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.UpdatedAt = entry.CreatedAt

	m.queryLogs = append(m.queryLogs, entry)
	return entry, nil
}

func (m *MemoryStore) CountQueryLogs(officerID uint) (int64, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	var count int64
	for _, entry := range m.queryLogs {
		if entry.OfficerID == officerID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountQueryLogsSince(officerID uint, since time.Time) (int64, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	var count int64
	for _, entry := range m.queryLogs {
		if entry.OfficerID == officerID && !entry.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountQueryLogsByType(officerID uint) (map[string]int64, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	counts := make(map[string]int64)
	for _, entry := range m.queryLogs {
		if entry.OfficerID == officerID {
			counts[entry.QueryType]++
		}
	}
	return counts, nil
}

// GetQueryLogsSince returns matching entries newest first.
func (m *MemoryStore) GetQueryLogsSince(officerID uint, since time.Time) ([]*models.QueryLog, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	var entries []*models.QueryLog
	for _, entry := range m.queryLogs {
		if entry.OfficerID == officerID && !entry.CreatedAt.Before(since) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (m *MemoryStore) GetLastQueryTime(officerID uint) (*time.Time, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	var last *time.Time
	for _, entry := range m.queryLogs {
		if entry.OfficerID != officerID {
			continue
		}
		if last == nil || entry.CreatedAt.After(*last) {
			t := entry.CreatedAt
			last = &t
		}
	}
	return last, nil
}

func (m *MemoryStore) GetRecentOfficerIDs(since time.Time) ([]uint, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	seen := make(map[uint]bool)
	var ids []uint
	for _, entry := range m.queryLogs {
		if entry.OfficerID == 0 || entry.CreatedAt.Before(since) {
			continue
		}
		if !seen[entry.OfficerID] {
			seen[entry.OfficerID] = true
			ids = append(ids, entry.OfficerID)
		}
	}
	return ids, nil
}
