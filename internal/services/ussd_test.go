package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/storage"
)

const (
	testPhone = "+2348012345678"
	testPIN   = "4821"
)

type testEnv struct {
	store    *storage.MemoryStore
	sessions *SessionStore
	service  *USSDService
	officer  *models.Officer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvTTL(t, time.Minute)
}

func newTestEnvTTL(t *testing.T, ttl time.Duration) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	require.NoError(t, err)

	officer, err := store.CreateOfficer(&models.Officer{
		BadgeNumber: "B-1024",
		Name:        "Adaeze Okon",
		USSDPhone:   testPhone,
		PINHash:     string(hash),
		StationName: "Ikeja Division",
		IsActive:    true,
	})
	require.NoError(t, err)

	sessions := NewSessionStore(ttl)
	t.Cleanup(sessions.Stop)

	audit := NewAuditLogger(store)
	service := NewUSSDService(store, sessions, NewAuthGate(store), NewRateLimiter(store, true), audit)

	return &testEnv{store: store, sessions: sessions, service: service, officer: officer}
}

func (e *testEnv) seedWantedPerson(t *testing.T) *models.Person {
	t.Helper()

	person, err := e.store.CreatePerson(&models.Person{
		NIN:       "12345678901",
		FirstName: "Musa",
		LastName:  "Ibrahim",
		IsWanted:  true,
	})
	require.NoError(t, err)

	_, err = e.store.CreateWantedRecord(&models.WantedRecord{
		PersonID:      person.ID,
		Charges:       "Armed robbery; Kidnapping; Escape from custody",
		DangerLevel:   "high",
		WarrantNumber: "W-2231",
		IsActive:      true,
	})
	require.NoError(t, err)
	return person
}

func TestMainMenuOnEmptyInput(t *testing.T) {
	env := newTestEnv(t)

	reply := env.service.HandleRequest("sess-1", testPhone, "")
	assert.Equal(t, "CON CRMS Officer Portal\n1. Wanted Person Check\n2. Missing Person Check\n3. Background Summary\n4. Vehicle Check\n5. My Stats", reply)

	// A menu render is not a resolved attempt, so nothing is logged.
	count, err := env.store.CountQueryLogs(0)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFeatureSelectPromptsForPIN(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", testPhone, "")
	reply := env.service.HandleRequest("sess-1", testPhone, "1")
	assert.Equal(t, "CON Enter 4-digit Quick PIN:", reply)

	session := env.sessions.Get("sess-1")
	require.NotNil(t, session)
	assert.Equal(t, models.QueryTypeWanted, session.SelectedFeature)
	assert.False(t, session.Authenticated())
}

func TestInvalidMenuOption(t *testing.T) {
	env := newTestEnv(t)

	reply := env.service.HandleRequest("sess-1", testPhone, "9")
	assert.Equal(t, "END Invalid option.", reply)

	// The terminal turn both logs and kills the session.
	assert.Nil(t, env.sessions.Get("sess-1"))
	logs, err := env.store.GetQueryLogsSince(0, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.QueryTypeMenu, logs[0].QueryType)
	assert.Equal(t, models.ResultInvalidOption, logs[0].ResultSummary)
	assert.Equal(t, "9", logs[0].SearchTerm)
	assert.Equal(t, testPhone, logs[0].PhoneNumber)
	assert.False(t, logs[0].Success)
}

func TestAuthenticationBindsOfficer(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", testPhone, "1")
	reply := env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN)
	assert.Equal(t, "CON Enter NIN (11 digits):", reply)

	session := env.sessions.Get("sess-1")
	require.NotNil(t, session)
	require.True(t, session.Authenticated())
	assert.Equal(t, env.officer.ID, session.Officer.OfficerID)
	assert.Equal(t, "B-1024", session.Officer.BadgeNumber)

	// Successful PIN turns are not terminal and write no audit entry.
	count, err := env.store.CountQueryLogs(env.officer.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAuthenticationWrongPIN(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", testPhone, "1")
	reply := env.service.HandleRequest("sess-1", testPhone, "1*9999")
	assert.Equal(t, "END Authentication failed. Check your phone number and PIN.", reply)
	assert.Nil(t, env.sessions.Get("sess-1"))

	logs, err := env.store.GetQueryLogsSince(0, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultAuthFailed, logs[0].ResultSummary)
	assert.Equal(t, models.QueryTypeWanted, logs[0].QueryType)
	assert.Zero(t, logs[0].OfficerID)
}

func TestAuthenticationUnknownPhoneSameReply(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", "+2348099999999", "1")
	reply := env.service.HandleRequest("sess-1", "+2348099999999", "1*"+testPIN)

	// Unknown phone and wrong PIN are indistinguishable on the wire.
	assert.Equal(t, "END Authentication failed. Check your phone number and PIN.", reply)
}

func TestAuthenticationBadPINFormat(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", testPhone, "2")
	reply := env.service.HandleRequest("sess-1", testPhone, "2*12")
	assert.Equal(t, "END Invalid PIN format. Dial again to retry.", reply)

	logs, err := env.store.GetQueryLogsSince(0, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultInvalidPIN, logs[0].ResultSummary)
}

func TestWantedHit(t *testing.T) {
	env := newTestEnv(t)
	person := env.seedWantedPerson(t)

	env.service.HandleRequest("sess-1", testPhone, "1")
	env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN)
	reply := env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN+"*"+person.NIN)

	assert.Equal(t, "END Musa Ibrahim\nStatus: WANTED\nCharges: Armed robbery, Kidnapping +1 more\nDanger: HIGH\nWarrant: W-2231\nDo not approach. Call for backup.", reply)
	assert.LessOrEqual(t, len([]rune(reply)), 182)

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultWanted, logs[0].ResultSummary)
	assert.Equal(t, models.QueryTypeWanted, logs[0].QueryType)
	assert.Equal(t, person.NIN, logs[0].SearchTerm)
	assert.Equal(t, "sess-1", logs[0].SessionID)
	assert.True(t, logs[0].Success)
}

func TestWantedPersonNotFound(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", testPhone, "1")
	env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN)
	reply := env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN+"*99999999999")

	assert.Equal(t, "END No person found for this NIN.", reply)

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultNotFound, logs[0].ResultSummary)
	assert.True(t, logs[0].Success, "a clean miss is a successful query")
}

func TestWantedPersonClean(t *testing.T) {
	env := newTestEnv(t)
	person, err := env.store.CreatePerson(&models.Person{
		NIN:       "22222222222",
		FirstName: "Ngozi",
		LastName:  "Eze",
	})
	require.NoError(t, err)

	env.service.HandleRequest("sess-1", testPhone, "1")
	env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN)
	reply := env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN+"*"+person.NIN)

	assert.Equal(t, "END Ngozi Eze\nStatus: NOT WANTED\nNo active warrants on record.", reply)
}

func TestWantedInvalidNIN(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", testPhone, "1")
	env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN)
	reply := env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN+"*123")

	assert.Equal(t, "END Invalid NIN. Enter exactly 11 digits.", reply)

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultInvalidNIN, logs[0].ResultSummary)
	assert.False(t, logs[0].Success)
}

func TestMissingPersonAlert(t *testing.T) {
	env := newTestEnv(t)
	person, err := env.store.CreatePerson(&models.Person{
		NIN:       "33333333333",
		FirstName: "Chiamaka",
		LastName:  "Obi",
	})
	require.NoError(t, err)
	_, err = env.store.CreateMissingAlert(&models.MissingAlert{
		PersonID:         person.ID,
		LastSeenLocation: "Yaba, Lagos",
		LastSeenDate:     time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
		ContactPhone:     "+2347001112222",
		IsActive:         true,
	})
	require.NoError(t, err)

	env.service.HandleRequest("sess-1", testPhone, "2")
	env.service.HandleRequest("sess-1", testPhone, "2*"+testPIN)
	reply := env.service.HandleRequest("sess-1", testPhone, "2*"+testPIN+"*"+person.NIN)

	assert.Equal(t, "END Chiamaka Obi\nStatus: MISSING\nLast seen: Yaba, Lagos, 14 Aug 2026\nContact: +2347001112222", reply)

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultMissing, logs[0].ResultSummary)
	assert.Equal(t, models.QueryTypeMissing, logs[0].QueryType)
}

func TestBackgroundSummaryCuratesRecords(t *testing.T) {
	env := newTestEnv(t)
	person, err := env.store.CreatePerson(&models.Person{
		NIN:       "44444444444",
		FirstName: "Tunde",
		LastName:  "Bakare",
	})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = env.store.CreateCriminalRecord(&models.CriminalRecord{
			PersonID: person.ID,
			Offense:  "Theft",
		})
		require.NoError(t, err)
	}

	env.service.HandleRequest("sess-1", testPhone, "3")
	env.service.HandleRequest("sess-1", testPhone, "3*"+testPIN)
	reply := env.service.HandleRequest("sess-1", testPhone, "3*"+testPIN+"*"+person.NIN)

	// Counts and classification only - never the offenses themselves.
	assert.Equal(t, "END Tunde Bakare\nBackground: RECORDS FOUND\nRecords: 2\nRisk: MEDIUM", reply)

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "RECORDS FOUND", logs[0].ResultSummary)
}

func TestVehicleLookupNormalizesPlate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.CreateVehicle(&models.Vehicle{
		PlateNumber:  "KAA123B",
		Make:         "Toyota",
		VehicleModel: "Corolla",
		Color:        "Blue",
		Status:       models.VehicleStatusStolen,
	})
	require.NoError(t, err)

	env.service.HandleRequest("sess-1", testPhone, "4")
	reply := env.service.HandleRequest("sess-1", testPhone, "4*"+testPIN)
	assert.Equal(t, "CON Enter License Plate:", reply)

	reply = env.service.HandleRequest("sess-1", testPhone, "4*"+testPIN+"*kaa 123b")
	assert.Equal(t, "END Blue Toyota Corolla\nPlate: KAA123B\nStatus: STOLEN", reply)

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "KAA123B", logs[0].SearchTerm, "audit keeps the normalized plate")
	assert.Equal(t, models.VehicleStatusStolen, logs[0].ResultSummary)
}

func TestVehicleRejectsMalformedPlate(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", testPhone, "4")
	env.service.HandleRequest("sess-1", testPhone, "4*"+testPIN)
	reply := env.service.HandleRequest("sess-1", testPhone, "4*"+testPIN+"*AB1234Z!")

	// Normalization strips separators only, so the "!" survives to fail
	// validation instead of silently matching a real plate.
	assert.Equal(t, "END Invalid license plate format.", reply)

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultInvalidPlate, logs[0].ResultSummary)
	assert.False(t, logs[0].Success)
}

func TestStatsResolvesInAuthTurn(t *testing.T) {
	env := newTestEnv(t)

	env.service.HandleRequest("sess-1", testPhone, "5")
	reply := env.service.HandleRequest("sess-1", testPhone, "5*"+testPIN)

	// No extra prompt: the PIN turn itself is terminal for stats.
	assert.Equal(t, "END Officer B-1024\nToday: 0/50\nWeek: 0\nMonth: 0\nAll time: 0\nLast: never", reply)
	assert.Nil(t, env.sessions.Get("sess-1"))

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultStats, logs[0].ResultSummary)
	assert.Equal(t, "self", logs[0].SearchTerm)
}

func TestQuotaExhaustedAfterValidPIN(t *testing.T) {
	env := newTestEnv(t)
	env.officer.DailyLimit = 2
	for i := 0; i < 2; i++ {
		_, err := env.store.CreateQueryLog(&models.QueryLog{
			OfficerID:     env.officer.ID,
			QueryType:     models.QueryTypeWanted,
			ResultSummary: models.ResultNotFound,
			Success:       true,
		})
		require.NoError(t, err)
	}

	env.service.HandleRequest("sess-1", testPhone, "1")
	reply := env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN)

	// The PIN was correct, but the quota check runs before binding: the
	// turn terminates and the session never carries an officer.
	assert.Equal(t, "END Daily query limit reached. Quota resets at midnight.", reply)
	assert.Nil(t, env.sessions.Get("sess-1"))

	logs, err := env.store.GetQueryLogsSince(env.officer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, models.ResultRateLimited, logs[0].ResultSummary)
	assert.False(t, logs[0].Success)
}

func TestExpiredSessionMidConversation(t *testing.T) {
	env := newTestEnvTTL(t, 30*time.Millisecond)

	env.service.HandleRequest("sess-1", testPhone, "1")
	time.Sleep(60 * time.Millisecond)

	// The gateway re-sends the accumulated input, but the recreated
	// session has no selected feature to match it against.
	reply := env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN)
	assert.Equal(t, "END Invalid request.", reply)

	logs, err := env.store.GetQueryLogsSince(0, time.Time{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ResultInvalidRequest, logs[0].ResultSummary)
}

func TestOverlongInputRejected(t *testing.T) {
	env := newTestEnv(t)

	reply := env.service.HandleRequest("sess-1", testPhone, "1*2*3*4")
	assert.Equal(t, "END Invalid request.", reply)
}

func TestRepeatedQueriesAreDeterministic(t *testing.T) {
	env := newTestEnv(t)
	person := env.seedWantedPerson(t)

	run := func(sessionID string) string {
		env.service.HandleRequest(sessionID, testPhone, "1")
		env.service.HandleRequest(sessionID, testPhone, "1*"+testPIN)
		return env.service.HandleRequest(sessionID, testPhone, "1*"+testPIN+"*"+person.NIN)
	}

	assert.Equal(t, run("sess-1"), run("sess-2"))
}

func TestIntermediateTurnsWriteNoAuditEntries(t *testing.T) {
	env := newTestEnv(t)
	person := env.seedWantedPerson(t)

	env.service.HandleRequest("sess-1", testPhone, "")
	env.service.HandleRequest("sess-1", testPhone, "1")
	env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN)

	officerCount, err := env.store.CountQueryLogs(env.officer.ID)
	require.NoError(t, err)
	anonCount, err := env.store.CountQueryLogs(0)
	require.NoError(t, err)
	assert.Zero(t, officerCount+anonCount, "CON turns must not log")

	env.service.HandleRequest("sess-1", testPhone, "1*"+testPIN+"*"+person.NIN)
	officerCount, err = env.store.CountQueryLogs(env.officer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), officerCount, "the terminal turn logs exactly once")
}
