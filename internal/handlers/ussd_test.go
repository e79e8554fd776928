package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/services"
	"github.com/crms-ng/crms-backend/internal/storage"
)

const (
	testPhone = "+2348012345678"
	testPIN   = "4821"
)

func newWebhookApp(t *testing.T) (*fiber.App, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPIN), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.CreateOfficer(&models.Officer{
		BadgeNumber: "B-1024",
		Name:        "Adaeze Okon",
		USSDPhone:   testPhone,
		PINHash:     string(hash),
		IsActive:    true,
	})
	require.NoError(t, err)

	sessions := services.NewSessionStore(time.Minute)
	t.Cleanup(sessions.Stop)
	audit := services.NewAuditLogger(store)
	service := services.NewUSSDService(store, sessions,
		services.NewAuthGate(store), services.NewRateLimiter(store, true), audit)

	app := fiber.New()
	handler := NewUSSDHandler(service)
	app.Post("/webhook/ussd", handler.HandleWebhook)
	app.Post("/test/ussd", handler.HandleTestWebhook)

	return app, store
}

func postGatewayTurn(t *testing.T, app *fiber.App, sessionID, phone, text string) *http.Response {
	t.Helper()

	form := url.Values{}
	form.Set("sessionId", sessionID)
	form.Set("serviceCode", "*347*46#")
	form.Set("phoneNumber", phone)
	form.Set("text", text)

	req := httptest.NewRequest(http.MethodPost, "/webhook/ussd", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestWebhookServesMainMenu(t *testing.T) {
	app, _ := newWebhookApp(t)

	resp := postGatewayTurn(t, app, "sess-1", testPhone, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/plain")

	body := readBody(t, resp)
	assert.True(t, strings.HasPrefix(body, "CON "), "menu reply must carry continue framing")
	assert.Contains(t, body, "CRMS Officer Portal")
}

func TestWebhookConversationFlow(t *testing.T) {
	app, _ := newWebhookApp(t)

	resp := postGatewayTurn(t, app, "sess-1", testPhone, "1")
	assert.Equal(t, "CON Enter 4-digit Quick PIN:", readBody(t, resp))

	resp = postGatewayTurn(t, app, "sess-1", testPhone, "1*"+testPIN)
	assert.Equal(t, "CON Enter NIN (11 digits):", readBody(t, resp))

	resp = postGatewayTurn(t, app, "sess-1", testPhone, "1*"+testPIN+"*99999999999")
	body := readBody(t, resp)
	assert.True(t, strings.HasPrefix(body, "END "), "terminal reply must carry end framing")
	assert.Equal(t, "END No person found for this NIN.", body)
}

func TestWebhookMalformedBody(t *testing.T) {
	app, store := newWebhookApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/ussd", strings.NewReader("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "END Service unavailable. Please try again later.", readBody(t, resp))

	// Nothing parsed, so nothing could be audited.
	count, err := store.CountQueryLogs(0)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestWebhookMissingSessionID(t *testing.T) {
	app, _ := newWebhookApp(t)

	form := url.Values{}
	form.Set("phoneNumber", testPhone)
	form.Set("text", "")

	req := httptest.NewRequest(http.MethodPost, "/webhook/ussd", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "END Service unavailable. Please try again later.", readBody(t, resp))
}

func TestTestWebhookReturnsJSON(t *testing.T) {
	app, _ := newWebhookApp(t)

	payload := `{"session_id":"sess-1","phone_number":"` + testPhone + `","text":""}`
	req := httptest.NewRequest(http.MethodPost, "/test/ussd", strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "application/json")
	assert.Contains(t, readBody(t, resp), "CRMS Officer Portal")
}
