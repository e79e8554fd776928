package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/crms-ng/crms-backend/internal/services"
)

// unavailableReply terminates the session when the request itself could
// not be understood. No audit entry is possible here: the body never
// parsed, so no officer identity is known. That blind spot is deliberate
// and worth watching in the request logs.
const unavailableReply = "END Service unavailable. Please try again later."

// USSDHandler is the single HTTP entry point for the gateway.
type USSDHandler struct {
	ussd *services.USSDService
}

// NewUSSDHandler creates the webhook handler.
func NewUSSDHandler(ussd *services.USSDService) *USSDHandler {
	return &USSDHandler{ussd: ussd}
}

// GatewayPayload is the form body the USSD gateway POSTs on every turn.
// Text is the entire accumulated input for the session, not just the last
// keystroke.
type GatewayPayload struct {
	SessionID   string `form:"sessionId"`
	ServiceCode string `form:"serviceCode"`
	PhoneNumber string `form:"phoneNumber"`
	Text        string `form:"text"`
}

// HandleWebhook processes one gateway turn. The reply is text/plain and
// begins with "CON " or "END " - the framing the gateway switches on.
func (h *USSDHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload GatewayPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("⚠️  Malformed USSD webhook body: %v", err)
		return sendPlain(c, unavailableReply)
	}
	if payload.SessionID == "" || payload.PhoneNumber == "" {
		log.Printf("⚠️  USSD webhook missing sessionId or phoneNumber")
		return sendPlain(c, unavailableReply)
	}

	reply := h.ussd.HandleRequest(payload.SessionID, payload.PhoneNumber, payload.Text)
	return sendPlain(c, reply)
}

// TestPayload mirrors the gateway body as JSON for development testing.
type TestPayload struct {
	SessionID   string `json:"session_id"`
	PhoneNumber string `json:"phone_number"`
	Text        string `json:"text"`
}

// HandleTestWebhook processes simulated gateway turns (for development).
func (h *USSDHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test USSD turn from %s: %q", payload.PhoneNumber, payload.Text)
	reply := h.ussd.HandleRequest(payload.SessionID, payload.PhoneNumber, payload.Text)

	return c.JSON(fiber.Map{
		"success":  true,
		"response": reply,
	})
}

func sendPlain(c *fiber.Ctx, body string) error {
	c.Set(fiber.HeaderContentType, "text/plain")
	return c.SendString(body)
}
