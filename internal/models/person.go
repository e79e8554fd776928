package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Person is the minimal identity record the USSD channel is allowed to see.
type Person struct {
	gorm.Model
	NIN       string `json:"nin" gorm:"uniqueIndex;type:varchar(11);not null"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsWanted  bool   `json:"is_wanted" gorm:"default:false"`
}

func (p *Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// WantedRecord holds the active-warrant details for a wanted person.
type WantedRecord struct {
	gorm.Model
	PersonID      uint   `json:"person_id" gorm:"index;not null"`
	Charges       string `json:"charges"` // semicolon-separated list
	DangerLevel   string `json:"danger_level"`
	WarrantNumber string `json:"warrant_number"`
	IsActive      bool   `json:"is_active" gorm:"default:true"`
}

// ChargeList splits the stored charges into individual entries.
func (w *WantedRecord) ChargeList() []string {
	var charges []string
	for _, c := range strings.Split(w.Charges, ";") {
		if c = strings.TrimSpace(c); c != "" {
			charges = append(charges, c)
		}
	}
	return charges
}

// MissingAlert is an active missing-person alert.
type MissingAlert struct {
	gorm.Model
	PersonID         uint      `json:"person_id" gorm:"index;not null"`
	LastSeenLocation string    `json:"last_seen_location"`
	LastSeenDate     time.Time `json:"last_seen_date"`
	ContactPhone     string    `json:"contact_phone"`
	IsActive         bool      `json:"is_active" gorm:"default:true"`
}

// CriminalRecord is one conviction entry counted by background checks.
// The offense text itself never goes out over USSD.
type CriminalRecord struct {
	gorm.Model
	PersonID       uint      `json:"person_id" gorm:"index;not null"`
	Offense        string    `json:"offense"`
	ConvictionDate time.Time `json:"conviction_date"`
}

// BackgroundSummary is the curated result of a background check: a coarse
// status, a risk classification and a record count. No record details.
type BackgroundSummary struct {
	Status      string `json:"status"` // CLEAR, RECORDS FOUND or WANTED
	RiskLevel   string `json:"risk_level"`
	RecordCount int    `json:"record_count"`
}
