package api

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/gmsas95/healthrisk/internal/ai"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
	"github.com/gmsas95/healthrisk/internal/store"
)

// PredictionResponse is the body returned by the prediction routes
type PredictionResponse struct {
	PatientID    string                  `json:"patient_id,omitempty"`
	Source       string                  `json:"source"`
	FallbackCode string                  `json:"fallback_code,omitempty"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Bundle       health.PredictionBundle `json:"bundle"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "healthy",
		"version":    s.version,
		"ai_enabled": s.orchestrator.Enabled(),
		"timestamp":  s.now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	expected := s.config.Security.AdminPassword
	if expected == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(expected)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	ttl := time.Duration(s.config.Security.TokenTTL) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString, "expires_at": now.Add(ttl).Unix()})
}

// handlePredict scores the records in the request body. ?mode=rules skips
// the model path.
func (s *Server) handlePredict(c *fiber.Ctx) error {
	var records health.Records
	if err := c.BodyParser(&records); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	now := s.now()
	profile := health.Build(records, now)

	var res ai.Result
	if rulesOnly(c) {
		res = s.orchestrator.PredictRules(profile)
	} else {
		res = s.orchestrator.Predict(c.UserContext(), profile)
	}

	resp := PredictionResponse{
		PatientID:   records.Patient.ID,
		Source:      string(res.Source),
		GeneratedAt: now.UTC(),
		Bundle:      res.Bundle,
	}
	if res.FallbackReason != nil {
		resp.FallbackCode = apperrors.GetCode(res.FallbackReason)
	}
	return c.JSON(resp)
}

func (s *Server) handleImportPatient(c *fiber.Ctx) error {
	if s.store == nil {
		return storeUnavailable(c)
	}

	var req store.Import
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	id, err := s.store.ImportPatient(c.UserContext(), req)
	if err != nil {
		s.logger.Error("Failed to import patient", zap.Error(err))
		return s.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// handlePatientPredictions loads a stored patient, predicts and refreshes the cache
func (s *Server) handlePatientPredictions(c *fiber.Ctx) error {
	if s.store == nil {
		return storeUnavailable(c)
	}

	entry, err := s.refresher.RefreshPatient(c.UserContext(), c.Params("id"), rulesOnly(c))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(PredictionResponse{
		PatientID:   entry.PatientID,
		Source:      entry.Source,
		GeneratedAt: entry.GeneratedAt,
		Bundle:      entry.Bundle,
	})
}

func (s *Server) handleLatestPrediction(c *fiber.Ctx) error {
	if s.store == nil {
		return storeUnavailable(c)
	}

	entry, err := s.store.CachedPrediction(c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(PredictionResponse{
		PatientID:   entry.PatientID,
		Source:      entry.Source,
		GeneratedAt: entry.GeneratedAt,
		Bundle:      entry.Bundle,
	})
}

func rulesOnly(c *fiber.Ctx) bool {
	return c.Query("mode") == "rules"
}

func storeUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "record store is not configured"})
}

// writeError maps an application error to an HTTP status
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	code := apperrors.GetCode(err)
	status := fiber.StatusInternalServerError
	switch {
	case apperrors.Is(err, apperrors.ErrRecordNotFound), apperrors.Is(err, apperrors.ErrNotFound):
		status = fiber.StatusNotFound
	case apperrors.Is(err, apperrors.ErrBadRequest):
		status = fiber.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	}

	message := "internal error"
	if status != fiber.StatusInternalServerError {
		message = err.Error()
	} else {
		s.logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": message, "code": code})
}
