package models

import (
	"gorm.io/gorm"
)

// DefaultDailyLimit is the per-officer USSD query quota applied when an
// officer record has no explicit limit configured.
const DefaultDailyLimit = 50

// Officer is a registered law-enforcement officer allowed to query the
// USSD channel with their registered handset and Quick PIN.
type Officer struct {
	gorm.Model
	BadgeNumber string `json:"badge_number" gorm:"uniqueIndex;not null"`
	Name        string `json:"name" gorm:"not null"`
	USSDPhone   string `json:"ussd_phone" gorm:"uniqueIndex;not null"` // E.164, the only handset allowed to authenticate
	PINHash     string `json:"-" gorm:"not null"`                      // bcrypt hash of the 4-digit Quick PIN
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	StationCode string `json:"station_code"`
	DailyLimit  int    `json:"daily_limit" gorm:"default:50"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}

// OfficerSnapshot is the slice of officer data cached inside a USSD session
// after authentication, so later turns never re-query the directory.
type OfficerSnapshot struct {
	OfficerID   uint   `json:"officer_id"`
	BadgeNumber string `json:"badge_number"`
	Name        string `json:"name"`
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	StationCode string `json:"station_code"`
	DailyLimit  int    `json:"daily_limit"`
}

// Snapshot builds the session-cached view of the officer.
func (o *Officer) Snapshot() OfficerSnapshot {
	limit := o.DailyLimit
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return OfficerSnapshot{
		OfficerID:   o.ID,
		BadgeNumber: o.BadgeNumber,
		Name:        o.Name,
		StationID:   o.StationID,
		StationName: o.StationName,
		StationCode: o.StationCode,
		DailyLimit:  limit,
	}
}
