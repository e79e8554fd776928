package services

import (
	"fmt"
	"strings"

	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/storage"
	"github.com/crms-ng/crms-backend/internal/utils"
)

// maxScreenChars is the hard ceiling for one USSD screen. Anything longer
// risks being truncated mid-word by the gateway, so we truncate ourselves.
const maxScreenChars = 182

// maxListItems caps enumerations (charges) before the "+N more" suffix.
const maxListItems = 2

const (
	errorReply           = "END Service error. Please try again later."
	personNotFoundReply  = "END No person found for this NIN."
	vehicleNotFoundReply = "END No vehicle found for this plate."
	invalidNINReply      = "END Invalid NIN. Enter exactly 11 digits."
	invalidPlateReply    = "END Invalid license plate format."
)

// FeatureSet holds the five feature handlers. Every handler follows one
// contract: validate the input shape, run the narrow domain lookup,
// classify the outcome into the closed resultSummary vocabulary, and
// format a reply that fits a single screen. Only curated fields ever reach
// the handset; full histories, addresses and other PII stay off the
// channel no matter who is asking.
type FeatureSet struct {
	store storage.Store
	audit *AuditLogger
}

// NewFeatureSet creates the feature handlers.
func NewFeatureSet(store storage.Store, audit *AuditLogger) *FeatureSet {
	return &FeatureSet{store: store, audit: audit}
}

// Handle dispatches an authenticated query to its feature handler. Every
// path through here yields a terminal reply and exactly one audit entry.
func (f *FeatureSet) Handle(session *models.USSDSession, term string) *turnResult {
	officer := session.Officer

	var result *turnResult
	switch session.SelectedFeature {
	case models.QueryTypeWanted:
		result = f.handleWanted(term)
	case models.QueryTypeMissing:
		result = f.handleMissing(term)
	case models.QueryTypeBackground:
		result = f.handleBackground(term)
	case models.QueryTypeVehicle:
		result = f.handleVehicle(term)
	case models.QueryTypeStats:
		result = f.handleStats(officer)
	default:
		result = &turnResult{
			reply: invalidRequestReply,
			entry: &models.QueryLog{
				SearchTerm:    term,
				ResultSummary: models.ResultInvalidRequest,
				Success:       false,
			},
		}
	}

	result.reply = fitScreen(result.reply)
	result.entry.OfficerID = officer.OfficerID
	if result.entry.QueryType == "" {
		result.entry.QueryType = session.SelectedFeature
	}
	return result
}

func (f *FeatureSet) handleWanted(nin string) *turnResult {
	if !utils.IsValidNIN(nin) {
		return invalidInput(nin, models.ResultInvalidNIN, invalidNINReply)
	}

	person, err := f.store.GetPersonByNIN(nin)
	if err == storage.ErrNotFound {
		return domainResult(nin, models.ResultNotFound, personNotFoundReply)
	}
	if err != nil {
		return domainError(nin, err)
	}

	record, err := f.store.GetActiveWantedRecord(person.ID)
	if err == storage.ErrNotFound {
		reply := fmt.Sprintf("END %s\nStatus: NOT WANTED\nNo active warrants on record.", person.FullName())
		return domainResult(nin, models.ResultNotWanted, reply)
	}
	if err != nil {
		return domainError(nin, err)
	}

	reply := fmt.Sprintf("END %s\nStatus: WANTED\nCharges: %s\nDanger: %s\nWarrant: %s\nDo not approach. Call for backup.",
		person.FullName(),
		truncateList(record.ChargeList()),
		strings.ToUpper(record.DangerLevel),
		record.WarrantNumber)
	return domainResult(nin, models.ResultWanted, reply)
}

func (f *FeatureSet) handleMissing(nin string) *turnResult {
	if !utils.IsValidNIN(nin) {
		return invalidInput(nin, models.ResultInvalidNIN, invalidNINReply)
	}

	person, err := f.store.GetPersonByNIN(nin)
	if err == storage.ErrNotFound {
		return domainResult(nin, models.ResultNotFound, personNotFoundReply)
	}
	if err != nil {
		return domainError(nin, err)
	}

	alert, err := f.store.GetActiveMissingAlert(person.ID)
	if err == storage.ErrNotFound {
		reply := fmt.Sprintf("END %s\nStatus: NOT MISSING\nNo active alert.", person.FullName())
		return domainResult(nin, models.ResultNotMissing, reply)
	}
	if err != nil {
		return domainError(nin, err)
	}

	reply := fmt.Sprintf("END %s\nStatus: MISSING\nLast seen: %s, %s\nContact: %s",
		person.FullName(),
		alert.LastSeenLocation,
		alert.LastSeenDate.Format("02 Jan 2006"),
		alert.ContactPhone)
	return domainResult(nin, models.ResultMissing, reply)
}

func (f *FeatureSet) handleBackground(nin string) *turnResult {
	if !utils.IsValidNIN(nin) {
		return invalidInput(nin, models.ResultInvalidNIN, invalidNINReply)
	}

	person, err := f.store.GetPersonByNIN(nin)
	if err == storage.ErrNotFound {
		return domainResult(nin, models.ResultNotFound, personNotFoundReply)
	}
	if err != nil {
		return domainError(nin, err)
	}

	summary, err := f.store.RunBackgroundCheck(person.ID)
	if err != nil {
		return domainError(nin, err)
	}

	reply := fmt.Sprintf("END %s\nBackground: %s\nRecords: %d\nRisk: %s",
		person.FullName(), summary.Status, summary.RecordCount, summary.RiskLevel)
	return domainResult(nin, strings.ToUpper(summary.Status), reply)
}

func (f *FeatureSet) handleVehicle(rawPlate string) *turnResult {
	plate := utils.NormalizeLicensePlate(rawPlate)
	if !utils.IsValidPlate(plate) {
		return invalidInput(rawPlate, models.ResultInvalidPlate, invalidPlateReply)
	}

	vehicle, err := f.store.GetVehicleByPlate(plate)
	if err == storage.ErrNotFound {
		return domainResult(plate, models.ResultNotFound, vehicleNotFoundReply)
	}
	if err != nil {
		return domainError(plate, err)
	}

	return domainResult(plate, vehicle.Status, "END "+vehicle.ShortSummary())
}

func (f *FeatureSet) handleStats(officer *models.OfficerSnapshot) *turnResult {
	stats, err := f.audit.Statistics(officer.OfficerID)
	if err != nil {
		return domainError("self", err)
	}

	lastQuery := "never"
	if stats.LastQuery != nil {
		lastQuery = stats.LastQuery.Format("02 Jan 15:04")
	}

	reply := fmt.Sprintf("END Officer %s\nToday: %d/%d\nWeek: %d\nMonth: %d\nAll time: %d\nLast: %s",
		officer.BadgeNumber,
		stats.Today, officer.DailyLimit,
		stats.ThisWeek, stats.ThisMonth, stats.AllTime,
		lastQuery)
	return domainResult("self", models.ResultStats, reply)
}

func invalidInput(term, summary, reply string) *turnResult {
	return &turnResult{
		reply: reply,
		entry: &models.QueryLog{
			SearchTerm:    term,
			ResultSummary: summary,
			Success:       false,
		},
	}
}

func domainResult(term, summary, reply string) *turnResult {
	return &turnResult{
		reply: reply,
		entry: &models.QueryLog{
			SearchTerm:    term,
			ResultSummary: summary,
			Success:       true,
		},
	}
}

// domainError converts a downstream failure into the generic retry reply.
// The real error goes into the audit log, never to the handset.
func domainError(term string, err error) *turnResult {
	return &turnResult{
		reply: errorReply,
		entry: &models.QueryLog{
			SearchTerm:    term,
			ResultSummary: models.ResultError,
			Success:       false,
			ErrorMessage:  err.Error(),
		},
	}
}

// truncateList renders at most maxListItems entries with a "+N more"
// suffix for the rest.
func truncateList(items []string) string {
	if len(items) <= maxListItems {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s +%d more",
		strings.Join(items[:maxListItems], ", "), len(items)-maxListItems)
}

// fitScreen enforces the single-screen budget.
func fitScreen(reply string) string {
	runes := []rune(reply)
	if len(runes) <= maxScreenChars {
		return reply
	}
	return string(runes[:maxScreenChars])
}
