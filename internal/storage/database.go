package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/crms-ng/crms-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Officer operations

func (s *DatabaseStore) CreateOfficer(officer *models.Officer) (*models.Officer, error) {
	if officer.DailyLimit <= 0 {
		officer.DailyLimit = models.DefaultDailyLimit
	}
	if err := s.db.Create(officer).Error; err != nil {
		return nil, err
	}
	return officer, nil
}

func (s *DatabaseStore) GetOfficerByID(id uint) (*models.Officer, error) {
	var officer models.Officer
	if err := s.db.First(&officer, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &officer, nil
}

func (s *DatabaseStore) GetOfficerByUSSDPhone(phone string) (*models.Officer, error) {
	var officer models.Officer
	if err := s.db.Where("ussd_phone = ?", phone).First(&officer).Error; err != nil {
		return nil, notFound(err)
	}
	return &officer, nil
}

// Person operations

func (s *DatabaseStore) CreatePerson(person *models.Person) (*models.Person, error) {
	if err := s.db.Create(person).Error; err != nil {
		return nil, err
	}
	return person, nil
}

func (s *DatabaseStore) GetPersonByNIN(nin string) (*models.Person, error) {
	var person models.Person
	if err := s.db.Where("nin = ?", nin).First(&person).Error; err != nil {
		return nil, notFound(err)
	}
	return &person, nil
}

func (s *DatabaseStore) CreateWantedRecord(record *models.WantedRecord) (*models.WantedRecord, error) {
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *DatabaseStore) GetActiveWantedRecord(personID uint) (*models.WantedRecord, error) {
	var record models.WantedRecord
	err := s.db.Where("person_id = ? AND is_active = ?", personID, true).
		Order("created_at DESC").First(&record).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

func (s *DatabaseStore) CreateMissingAlert(alert *models.MissingAlert) (*models.MissingAlert, error) {
	if err := s.db.Create(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *DatabaseStore) GetActiveMissingAlert(personID uint) (*models.MissingAlert, error) {
	var alert models.MissingAlert
	err := s.db.Where("person_id = ? AND is_active = ?", personID, true).
		Order("created_at DESC").First(&alert).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &alert, nil
}

func (s *DatabaseStore) CreateCriminalRecord(record *models.CriminalRecord) (*models.CriminalRecord, error) {
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *DatabaseStore) RunBackgroundCheck(personID uint) (*models.BackgroundSummary, error) {
	var person models.Person
	if err := s.db.First(&person, personID).Error; err != nil {
		return nil, notFound(err)
	}

	var recordCount int64
	err := s.db.Model(&models.CriminalRecord{}).
		Where("person_id = ?", personID).Count(&recordCount).Error
	if err != nil {
		return nil, err
	}

	var wantedCount int64
	err = s.db.Model(&models.WantedRecord{}).
		Where("person_id = ? AND is_active = ?", personID, true).Count(&wantedCount).Error
	if err != nil {
		return nil, err
	}

	return buildBackgroundSummary(int(recordCount), wantedCount > 0), nil
}

// Vehicle operations

func (s *DatabaseStore) CreateVehicle(vehicle *models.Vehicle) (*models.Vehicle, error) {
	if vehicle.Status == "" {
		vehicle.Status = models.VehicleStatusClean
	}
	if err := s.db.Create(vehicle).Error; err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *DatabaseStore) GetVehicleByPlate(plate string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.db.Where("plate_number = ?", plate).First(&vehicle).Error; err != nil {
		return nil, notFound(err)
	}
	return &vehicle, nil
}

// Query log operations

func (s *DatabaseStore) CreateQueryLog(entry *models.QueryLog) (*models.QueryLog, error) {
	if err := s.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *DatabaseStore) CountQueryLogs(officerID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.QueryLog{}).
		Where("officer_id = ?", officerID).Count(&count).Error
	return count, err
}

func (s *DatabaseStore) CountQueryLogsSince(officerID uint, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.QueryLog{}).
		Where("officer_id = ? AND created_at >= ?", officerID, since).Count(&count).Error
	return count, err
}

func (s *DatabaseStore) CountQueryLogsByType(officerID uint) (map[string]int64, error) {
	var rows []struct {
		QueryType string
		Count     int64
	}
	err := s.db.Model(&models.QueryLog{}).
		Select("query_type, count(*) as count").
		Where("officer_id = ?", officerID).
		Group("query_type").Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.QueryType] = row.Count
	}
	return counts, nil
}

func (s *DatabaseStore) GetQueryLogsSince(officerID uint, since time.Time) ([]*models.QueryLog, error) {
	var entries []*models.QueryLog
	err := s.db.Where("officer_id = ? AND created_at >= ?", officerID, since).
		Order("created_at DESC").Find(&entries).Error
	return entries, err
}

func (s *DatabaseStore) GetLastQueryTime(officerID uint) (*time.Time, error) {
	var entry models.QueryLog
	err := s.db.Where("officer_id = ?", officerID).
		Order("created_at DESC").First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry.CreatedAt, nil
}

func (s *DatabaseStore) GetRecentOfficerIDs(since time.Time) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.QueryLog{}).
		Where("officer_id > 0 AND created_at >= ?", since).
		Distinct("officer_id").Pluck("officer_id", &ids).Error
	return ids, err
}
