package models

import (
	"gorm.io/gorm"
)

// Query types recorded in the audit log.
const (
	QueryTypeWanted     = "wanted"
	QueryTypeMissing    = "missing"
	QueryTypeBackground = "background"
	QueryTypeVehicle    = "vehicle"
	QueryTypeStats      = "stats"
	QueryTypeMenu       = "menu" // terminal turns rejected before a feature was known
)

// Result summaries are a closed, PII-free vocabulary used for statistics
// and abuse detection. Search terms are retained raw for accountability.
const (
	ResultWanted         = "WANTED"
	ResultNotWanted      = "NOT_WANTED"
	ResultMissing        = "MISSING"
	ResultNotMissing     = "NOT_MISSING"
	ResultNotFound       = "NOT_FOUND"
	ResultStats          = "STATS"
	ResultError          = "ERROR"
	ResultInvalidNIN     = "INVALID_NIN"
	ResultInvalidPlate   = "INVALID_PLATE"
	ResultInvalidPIN     = "INVALID_PIN"
	ResultAuthFailed     = "AUTH_FAILED"
	ResultLockedOut      = "LOCKED_OUT"
	ResultRateLimited    = "RATE_LIMITED"
	ResultInvalidOption  = "INVALID_OPTION"
	ResultInvalidRequest = "INVALID_REQUEST"
)

// QueryLog is one immutable audit entry per resolved USSD query attempt.
// Rows are append-only; CreatedAt is the attempt timestamp.
type QueryLog struct {
	gorm.Model
	OfficerID     uint   `json:"officer_id" gorm:"index"` // 0 when the turn failed before authentication
	PhoneNumber   string `json:"phone_number" gorm:"index;type:varchar(20)"`
	QueryType     string `json:"query_type" gorm:"index;type:varchar(20)"`
	SearchTerm    string `json:"search_term" gorm:"type:varchar(100)"`
	ResultSummary string `json:"result_summary" gorm:"type:varchar(30)"`
	Success       bool   `json:"success"`
	ErrorMessage  string `json:"error_message" gorm:"type:varchar(500)"`
	SessionID     string `json:"session_id" gorm:"type:varchar(100)"`
}
