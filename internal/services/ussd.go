package services

import (
	"log"
	"strings"

	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/storage"
)

// Wire literals. The gateway contract is byte-exact: every reply starts
// with "CON " (expect another turn) or "END " (terminate).
const (
	mainMenuText = "CON CRMS Officer Portal\n1. Wanted Person Check\n2. Missing Person Check\n3. Background Summary\n4. Vehicle Check\n5. My Stats"
	pinPrompt    = "CON Enter 4-digit Quick PIN:"
	ninPrompt    = "CON Enter NIN (11 digits):"
	platePrompt  = "CON Enter License Plate:"

	invalidOptionReply  = "END Invalid option."
	invalidRequestReply = "END Invalid request."
	invalidPINReply     = "END Invalid PIN format. Dial again to retry."
	lockedOutReply      = "END Too many failed attempts. Try again later."
	authFailedReply     = "END Authentication failed. Check your phone number and PIN."
	quotaReply          = "END Daily query limit reached. Quota resets at midnight."
)

// ConversationState is the explicit state of one USSD turn, derived from
// the accumulated input tokens and the session.
type ConversationState int

const (
	StateMainMenu ConversationState = iota
	StateFeatureSelect
	StateAuthenticating
	StateAuthenticated
	StateInvalid
)

// splitInput breaks the gateway's accumulated text into ordered tokens.
// The gateway re-sends the whole history each turn, so the token count is
// the conversation level.
func splitInput(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "*")
}

// resolveState is the pure transition function from (tokens, session) to a
// conversation state.
func resolveState(tokens []string, session *models.USSDSession) ConversationState {
	switch {
	case len(tokens) == 0:
		return StateMainMenu
	case session.Authenticated():
		return StateAuthenticated
	case len(tokens) == 1:
		return StateFeatureSelect
	case len(tokens) == 2:
		return StateAuthenticating
	default:
		return StateInvalid
	}
}

// featureForOption maps a main-menu selection to a query type.
func featureForOption(option string) (string, bool) {
	switch option {
	case "1":
		return models.QueryTypeWanted, true
	case "2":
		return models.QueryTypeMissing, true
	case "3":
		return models.QueryTypeBackground, true
	case "4":
		return models.QueryTypeVehicle, true
	case "5":
		return models.QueryTypeStats, true
	default:
		return "", false
	}
}

// turnResult is what every routed turn produces: the wire reply and, for
// resolved attempts, exactly one audit entry. The engine is the only place
// that writes to the audit log, so the one-entry-per-attempt invariant is
// structural rather than a per-handler convention.
type turnResult struct {
	reply string
	entry *models.QueryLog
}

// USSDService drives the gateway conversation: it resolves the state of
// each turn, authenticates officers, enforces quotas and dispatches to the
// feature handlers.
type USSDService struct {
	store    storage.Store
	sessions *SessionStore
	auth     *AuthGate
	limiter  *RateLimiter
	audit    *AuditLogger
	features *FeatureSet
}

// NewUSSDService wires the USSD engine together.
func NewUSSDService(store storage.Store, sessions *SessionStore, auth *AuthGate, limiter *RateLimiter, audit *AuditLogger) *USSDService {
	return &USSDService{
		store:    store,
		sessions: sessions,
		auth:     auth,
		limiter:  limiter,
		audit:    audit,
		features: NewFeatureSet(store, audit),
	}
}

// Sessions exposes the session store (for monitoring).
func (s *USSDService) Sessions() *SessionStore {
	return s.sessions
}

// HandleRequest processes one gateway turn and returns the full wire
// reply. It never returns an error: anything unexpected becomes a generic
// END message.
func (s *USSDService) HandleRequest(sessionID, phoneNumber, text string) string {
	session := s.sessions.Get(sessionID)
	if session == nil {
		session = s.sessions.Create(sessionID, phoneNumber)
	}

	tokens := splitInput(text)
	result := s.route(session, tokens)

	if result.entry != nil {
		result.entry.PhoneNumber = phoneNumber
		result.entry.SessionID = sessionID
		s.audit.Record(result.entry)
	}

	// A session dies the instant a reply terminates the conversation.
	if strings.HasPrefix(result.reply, "END") {
		s.sessions.Clear(sessionID)
	} else {
		s.sessions.Update(sessionID, func(*models.USSDSession) {})
	}

	return result.reply
}

func (s *USSDService) route(session *models.USSDSession, tokens []string) *turnResult {
	switch resolveState(tokens, session) {
	case StateMainMenu:
		return &turnResult{reply: mainMenuText}

	case StateFeatureSelect:
		feature, ok := featureForOption(tokens[0])
		if !ok {
			return &turnResult{
				reply: invalidOptionReply,
				entry: menuRejection(models.ResultInvalidOption, tokens[0]),
			}
		}
		s.sessions.Update(session.SessionID, func(ss *models.USSDSession) {
			ss.SelectedFeature = feature
		})
		return &turnResult{reply: pinPrompt}

	case StateAuthenticating:
		return s.authenticate(session, tokens[1])

	case StateAuthenticated:
		return s.features.Handle(session, tokens[len(tokens)-1])

	default:
		return &turnResult{
			reply: invalidRequestReply,
			entry: menuRejection(models.ResultInvalidRequest, strings.Join(tokens, "*")),
		}
	}
}

// authenticate runs the gate and, on success, the quota check. The officer
// binds into the session only when both pass; a quota-exhausted turn still
// validated the PIN but terminates without binding.
func (s *USSDService) authenticate(session *models.USSDSession, pin string) *turnResult {
	if session.SelectedFeature == "" {
		// Session was recreated mid-conversation (TTL expiry); the
		// accumulated input no longer matches any known state.
		return &turnResult{
			reply: invalidRequestReply,
			entry: menuRejection(models.ResultInvalidRequest, "pin"),
		}
	}

	officer, err := s.auth.VerifyPIN(session.PhoneNumber, pin)
	if err != nil {
		return authRejection(session.SelectedFeature, err)
	}

	quota := s.limiter.Check(officer.ID, officer.DailyLimit)
	if !quota.Allowed {
		log.Printf("Officer %s hit daily quota (%d)", officer.BadgeNumber, quota.Limit)
		return &turnResult{
			reply: quotaReply,
			entry: &models.QueryLog{
				OfficerID:     officer.ID,
				QueryType:     session.SelectedFeature,
				SearchTerm:    "pin",
				ResultSummary: models.ResultRateLimited,
				Success:       false,
			},
		}
	}

	snapshot := officer.Snapshot()
	bound := s.sessions.Update(session.SessionID, func(ss *models.USSDSession) {
		ss.Officer = &snapshot
	})
	if bound == nil {
		return &turnResult{
			reply: invalidRequestReply,
			entry: menuRejection(models.ResultInvalidRequest, "pin"),
		}
	}

	// "My Stats" needs no search term: it resolves in the same turn that
	// granted authentication. Every other feature prompts once more.
	switch bound.SelectedFeature {
	case models.QueryTypeStats:
		return s.features.Handle(bound, "self")
	case models.QueryTypeVehicle:
		return &turnResult{reply: platePrompt}
	default:
		return &turnResult{reply: ninPrompt}
	}
}

func authRejection(feature string, err error) *turnResult {
	entry := &models.QueryLog{
		QueryType:  feature,
		SearchTerm: "pin",
		Success:    false,
	}
	var reply string
	switch err {
	case ErrInvalidPINFormat:
		reply = invalidPINReply
		entry.ResultSummary = models.ResultInvalidPIN
	case ErrPhoneLocked:
		reply = lockedOutReply
		entry.ResultSummary = models.ResultLockedOut
	default:
		reply = authFailedReply
		entry.ResultSummary = models.ResultAuthFailed
	}
	return &turnResult{reply: reply, entry: entry}
}

// menuRejection builds the audit entry for a turn rejected before any
// officer identity was established.
func menuRejection(summary, term string) *models.QueryLog {
	return &models.QueryLog{
		QueryType:     models.QueryTypeMenu,
		SearchTerm:    term,
		ResultSummary: summary,
		Success:       false,
	}
}
