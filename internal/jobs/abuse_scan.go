package jobs

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/crms-ng/crms-backend/internal/services"
	"github.com/crms-ng/crms-backend/internal/storage"
)

// AbuseScanJob periodically sweeps recently-active officers through the
// abuse detector and alerts a supervisor phone via SMS. Findings are
// informational only - the job never locks anyone out.
type AbuseScanJob struct {
	store      storage.Store
	detector   *services.AbuseDetector
	twilio     *services.TwilioService // nil when Twilio is not configured
	alertPhone string
	isRunning  bool
	stop       chan struct{}
}

// NewAbuseScanJob creates the scheduled abuse sweep.
func NewAbuseScanJob(store storage.Store, detector *services.AbuseDetector, twilio *services.TwilioService) *AbuseScanJob {
	return &AbuseScanJob{
		store:      store,
		detector:   detector,
		twilio:     twilio,
		alertPhone: os.Getenv("ABUSE_ALERT_PHONE"),
		stop:       make(chan struct{}),
	}
}

// Start begins the hourly sweep.
func (j *AbuseScanJob) Start() {
	if j.isRunning {
		log.Println("Abuse scan job already running")
		return
	}
	j.isRunning = true
	log.Println("Starting abuse scan job (hourly)")
	go j.run()
}

// Stop halts the sweep.
func (j *AbuseScanJob) Stop() {
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stop)
	log.Println("Stopping abuse scan job...")
}

func (j *AbuseScanJob) run() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

// sweep scans every officer who queried in the trailing hour.
func (j *AbuseScanJob) sweep() {
	officerIDs, err := j.store.GetRecentOfficerIDs(time.Now().Add(-time.Hour))
	if err != nil {
		log.Printf("Error listing recently active officers: %v", err)
		return
	}

	flagged := 0
	for _, officerID := range officerIDs {
		findings, err := j.detector.Scan(officerID)
		if err != nil {
			log.Printf("Abuse scan failed for officer %d: %v", officerID, err)
			continue
		}
		if len(findings) == 0 {
			continue
		}

		flagged++
		officer, err := j.store.GetOfficerByID(officerID)
		badge := fmt.Sprintf("#%d", officerID)
		if err == nil {
			badge = officer.BadgeNumber
		}
		log.Printf("🚩 Abuse findings for officer %s: %s", badge, strings.Join(findings, "; "))

		j.alert(badge, findings)
	}

	log.Printf("Abuse sweep done: %d officers scanned, %d flagged", len(officerIDs), flagged)
}

func (j *AbuseScanJob) alert(badge string, findings []string) {
	if j.twilio == nil || j.alertPhone == "" {
		return
	}

	message := fmt.Sprintf("CRMS USSD alert - officer %s:\n%s", badge, strings.Join(findings, "\n"))
	if err := j.twilio.SendSMS(j.alertPhone, message); err != nil {
		log.Printf("Failed to send abuse alert SMS: %v", err)
	}
}
