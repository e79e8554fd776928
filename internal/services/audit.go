package services

import (
	"log"
	"time"

	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/storage"
)

// AuditLogger appends query attempts to the durable audit log. Writes are
// best-effort: the handset response must never fail because the log write
// did, so failures are logged server-side and swallowed.
type AuditLogger struct {
	store storage.Store
}

// NewAuditLogger creates an audit logger over the store.
func NewAuditLogger(store storage.Store) *AuditLogger {
	return &AuditLogger{store: store}
}

// Record appends one audit entry, swallowing storage errors.
func (a *AuditLogger) Record(entry *models.QueryLog) {
	if _, err := a.store.CreateQueryLog(entry); err != nil {
		log.Printf("❌ Failed to write query log (officer=%d type=%s summary=%s): %v",
			entry.OfficerID, entry.QueryType, entry.ResultSummary, err)
	}
}

// OfficerStatistics summarizes an officer's query history.
type OfficerStatistics struct {
	Today     int64            `json:"today"`
	ThisWeek  int64            `json:"this_week"`
	ThisMonth int64            `json:"this_month"`
	AllTime   int64            `json:"all_time"`
	ByType    map[string]int64 `json:"by_type"`
	LastQuery *time.Time       `json:"last_query"`
}

// Statistics computes time-boundary counts for one officer: today since
// local midnight, week as a rolling 7 days, month since the first of the
// current calendar month.
func (a *AuditLogger) Statistics(officerID uint) (*OfficerStatistics, error) {
	now := time.Now()
	midnight := localMidnight(now)
	weekStart := now.AddDate(0, 0, -7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	today, err := a.store.CountQueryLogsSince(officerID, midnight)
	if err != nil {
		return nil, err
	}
	week, err := a.store.CountQueryLogsSince(officerID, weekStart)
	if err != nil {
		return nil, err
	}
	month, err := a.store.CountQueryLogsSince(officerID, monthStart)
	if err != nil {
		return nil, err
	}
	allTime, err := a.store.CountQueryLogs(officerID)
	if err != nil {
		return nil, err
	}
	byType, err := a.store.CountQueryLogsByType(officerID)
	if err != nil {
		return nil, err
	}
	lastQuery, err := a.store.GetLastQueryTime(officerID)
	if err != nil {
		return nil, err
	}

	return &OfficerStatistics{
		Today:     today,
		ThisWeek:  week,
		ThisMonth: month,
		AllTime:   allTime,
		ByType:    byType,
		LastQuery: lastQuery,
	}, nil
}
