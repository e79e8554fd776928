package services

import (
	"fmt"
	"time"

	"github.com/crms-ng/crms-backend/internal/storage"
)

const (
	abuseWindow        = time.Hour
	abuseRecentSample  = 10
	abuseMinSample     = 5
	abuseFailureRatio  = 0.5
	abuseRepeatTermMin = 5
	abuseVolumeCeiling = 20
)

// AbuseDetector runs on-demand heuristic scans over an officer's last hour
// of audit entries. Findings are informational; nothing here enforces.
type AbuseDetector struct {
	store storage.Store
}

// NewAbuseDetector creates a detector over the audit log.
func NewAbuseDetector(store storage.Store) *AbuseDetector {
	return &AbuseDetector{store: store}
}

// Scan returns free-text findings for the officer's trailing hour.
func (d *AbuseDetector) Scan(officerID uint) ([]string, error) {
	entries, err := d.store.GetQueryLogsSince(officerID, time.Now().Add(-abuseWindow))
	if err != nil {
		return nil, fmt.Errorf("load recent query logs: %w", err)
	}

	var findings []string

	// High failure rate among the most recent entries. Entries arrive
	// newest first, so the sample is a prefix.
	sample := entries
	if len(sample) > abuseRecentSample {
		sample = sample[:abuseRecentSample]
	}
	if len(sample) >= abuseMinSample {
		failures := 0
		for _, entry := range sample {
			if !entry.Success {
				failures++
			}
		}
		if float64(failures)/float64(len(sample)) > abuseFailureRatio {
			findings = append(findings,
				fmt.Sprintf("High failure rate: %d of last %d queries failed", failures, len(sample)))
		}
	}

	// Same search term hammered repeatedly.
	termCounts := make(map[string]int)
	for _, entry := range entries {
		termCounts[entry.SearchTerm]++
	}
	for term, count := range termCounts {
		if count >= abuseRepeatTermMin {
			findings = append(findings,
				fmt.Sprintf("Repeated search term %q queried %d times in the last hour", term, count))
		}
	}

	// Raw volume spike.
	if len(entries) > abuseVolumeCeiling {
		findings = append(findings,
			fmt.Sprintf("Volume spike: %d queries in the last hour", len(entries)))
	}

	return findings, nil
}
