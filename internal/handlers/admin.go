package handlers

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/crms-ng/crms-backend/internal/models"
	"github.com/crms-ng/crms-backend/internal/services"
	"github.com/crms-ng/crms-backend/internal/storage"
	"github.com/crms-ng/crms-backend/internal/utils"
)

// AdminHandler serves the operator surface: officer provisioning, audit
// statistics and on-demand abuse scans. This is deliberately thin - the
// full records web app lives elsewhere.
type AdminHandler struct {
	store    storage.Store
	audit    *services.AuditLogger
	detector *services.AbuseDetector
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(store storage.Store, audit *services.AuditLogger, detector *services.AbuseDetector) *AdminHandler {
	return &AdminHandler{store: store, audit: audit, detector: detector}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges the configured admin credential for a bearer token.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid login payload",
		})
	}

	adminUser := os.Getenv("ADMIN_USERNAME")
	adminPass := os.Getenv("ADMIN_PASSWORD")
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if adminUser == "" || adminPass == "" || secret == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Admin access not configured",
		})
	}

	if req.Username != adminUser || req.Password != adminPass {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	claims := jwt.MapClaims{
		"sub": req.Username,
		"jti": uuid.NewString(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(12 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue token",
		})
	}

	return c.JSON(fiber.Map{"token": token})
}

type createOfficerRequest struct {
	BadgeNumber string `json:"badge_number"`
	Name        string `json:"name"`
	USSDPhone   string `json:"ussd_phone"`
	PIN         string `json:"pin"`
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	StationCode string `json:"station_code"`
	DailyLimit  int    `json:"daily_limit"`
}

// CreateOfficer provisions an officer for the USSD channel.
func (h *AdminHandler) CreateOfficer(c *fiber.Ctx) error {
	var req createOfficerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid officer payload",
		})
	}

	if req.BadgeNumber == "" || req.Name == "" || req.USSDPhone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "badge_number, name and ussd_phone are required",
		})
	}
	if !utils.IsValidPIN(req.PIN) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "PIN must be exactly 4 digits",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash PIN",
		})
	}

	officer, err := h.store.CreateOfficer(&models.Officer{
		BadgeNumber: req.BadgeNumber,
		Name:        req.Name,
		USSDPhone:   req.USSDPhone,
		PINHash:     string(hash),
		StationID:   req.StationID,
		StationName: req.StationName,
		StationCode: req.StationCode,
		DailyLimit:  req.DailyLimit,
		IsActive:    true,
	})
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(officer)
}

// OfficerStats returns audit-log statistics for one officer.
func (h *AdminHandler) OfficerStats(c *fiber.Ctx) error {
	id, err := officerIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid officer id",
		})
	}

	if _, err := h.store.GetOfficerByID(id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Officer not found",
		})
	}

	stats, err := h.audit.Statistics(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute statistics",
		})
	}
	return c.JSON(stats)
}

// OfficerAbuseScan runs the abuse detector for one officer on demand.
func (h *AdminHandler) OfficerAbuseScan(c *fiber.Ctx) error {
	id, err := officerIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid officer id",
		})
	}

	findings, err := h.detector.Scan(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Abuse scan failed",
		})
	}
	if findings == nil {
		findings = []string{}
	}
	return c.JSON(fiber.Map{
		"officer_id": id,
		"findings":   findings,
	})
}

func officerIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
