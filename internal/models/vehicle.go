package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Vehicle statuses returned over the USSD channel.
const (
	VehicleStatusClean     = "CLEAN"
	VehicleStatusStolen    = "STOLEN"
	VehicleStatusFlagged   = "FLAGGED"
	VehicleStatusImpounded = "IMPOUNDED"
)

// Vehicle is a registered vehicle record. PlateNumber is stored normalized
// (uppercase, no separators) so lookups match handset input directly.
type Vehicle struct {
	gorm.Model
	PlateNumber  string `json:"plate_number" gorm:"uniqueIndex;not null"`
	Make         string `json:"make"`
	VehicleModel string `json:"model"`
	Color        string `json:"color"`
	Status       string `json:"status" gorm:"default:CLEAN"`
	OwnerName    string `json:"owner_name"`
}

// ShortSummary is the pre-formatted curated text sent to the handset.
func (v *Vehicle) ShortSummary() string {
	return fmt.Sprintf("%s %s %s\nPlate: %s\nStatus: %s",
		v.Color, v.Make, v.VehicleModel, v.PlateNumber, v.Status)
}
