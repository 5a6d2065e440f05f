// Package httpapi exposes the HTTP submission API: endpoints that
// enqueue calculation jobs onto the broker for workerpool workers to
// pick up, plus a JWT-gated admin endpoint reporting the queue depth and
// the endpoints that mint and refresh that JWT.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ecohealth/airflow/internal/cache"
	"github.com/ecohealth/airflow/internal/jobs"
	"github.com/ecohealth/airflow/internal/queue"
	"github.com/ecohealth/airflow/internal/workerpool"
	"github.com/ecohealth/airflow/pkg/auth"
)

const dateLayout = "2006-01-02"

// CalculateFlowsRequest is the POST body for /v1/airports/:origin/flows.
type CalculateFlowsRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	SimGroup  string `json:"sim_group"`
}

// SimulatePassengersRequest is the POST body for /v1/simulations.
type SimulatePassengersRequest struct {
	Origin      string `json:"origin"`
	N           int    `json:"n"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	NotifyEmail string `json:"notify_email,omitempty"`
}

// MintAdminTokenRequest is the POST body for /v1/admin/token.
type MintAdminTokenRequest struct {
	Secret string `json:"secret"`
}

// ValidationError is a single field-level submission error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// API holds everything the HTTP handlers need to validate requests and
// enqueue jobs.
type API struct {
	Broker      *queue.Broker
	JWTManager  *auth.JWTManager
	RateLimiter *cache.CacheManager
	RateLimit   int64
	RateWindow  time.Duration
	AdminSecret string
}

// New builds an API. limit/window configure the per-client-IP rate
// limit applied to submission endpoints, enforced against the same
// Redis instance backing the broker. adminSecret gates the token-mint
// endpoint that issues the JWTs requireAdmin checks.
func New(broker *queue.Broker, jwtManager *auth.JWTManager, rateLimiter *cache.CacheManager, limit int64, window time.Duration, adminSecret string) *API {
	return &API{
		Broker:      broker,
		JWTManager:  jwtManager,
		RateLimiter: rateLimiter,
		RateLimit:   limit,
		RateWindow:  window,
		AdminSecret: adminSecret,
	}
}

// Mount registers routes onto a Fiber app.
func (a *API) Mount(app *fiber.App) {
	app.Get("/health", a.handleHealth)

	v1 := app.Group("/v1", a.rateLimit)
	v1.Post("/airports/:origin/flows", a.handleCalculateFlows)
	v1.Post("/simulations", a.handleSimulatePassengers)
	v1.Post("/admin/token", a.handleMintAdminToken)
	v1.Post("/admin/token/refresh", a.handleRefreshAdminToken)

	admin := app.Group("/v1/admin", a.requireAdmin)
	admin.Get("/queue", a.handleQueueDepth)
}

func (a *API) handleHealth(c *fiber.Ctx) error {
	if err := a.RateLimiter.HealthCheck(c.Context()); err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, "redis unavailable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (a *API) handleCalculateFlows(c *fiber.Ctx) error {
	origin := c.Params("origin")
	var req CalculateFlowsRequest
	if err := c.BodyParser(&req); err != nil {
		return unprocessable(c, ValidationError{Field: "body", Message: "malformed JSON"})
	}

	start, errs := parseDate("start_date", req.StartDate)
	end, endErrs := parseDate("end_date", req.EndDate)
	errs = append(errs, endErrs...)
	if origin == "" {
		errs = append(errs, ValidationError{Field: "origin", Message: "required"})
	}
	if req.SimGroup == "" {
		errs = append(errs, ValidationError{Field: "sim_group", Message: "required"})
	}
	if len(errs) > 0 {
		return unprocessable(c, errs...)
	}

	task := jobs.CalculateFlowsForAirportTask{
		Origin:    origin,
		StartDate: start,
		EndDate:   end,
		SimGroup:  req.SimGroup,
	}
	if err := a.Broker.Enqueue(c.Context(), workerpool.TypeCalculateFlowsForAirport, task); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "queued"})
}

func (a *API) handleSimulatePassengers(c *fiber.Ctx) error {
	var req SimulatePassengersRequest
	if err := c.BodyParser(&req); err != nil {
		return unprocessable(c, ValidationError{Field: "body", Message: "malformed JSON"})
	}

	start, errs := parseDate("start_date", req.StartDate)
	end, endErrs := parseDate("end_date", req.EndDate)
	errs = append(errs, endErrs...)
	if req.Origin == "" {
		errs = append(errs, ValidationError{Field: "origin", Message: "required"})
	}
	if req.N <= 0 {
		errs = append(errs, ValidationError{Field: "n", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return unprocessable(c, errs...)
	}

	simulationID := newSimulationID()
	task := jobs.SimulatePassengersTask{
		SimulationID: simulationID,
		Origin:       req.Origin,
		N:            req.N,
		StartDate:    start,
		EndDate:      end,
		NotifyEmail:  req.NotifyEmail,
	}
	if err := a.Broker.Enqueue(c.Context(), workerpool.TypeSimulatePassengers, task); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "queued", "simulation_id": simulationID})
}

// handleMintAdminToken issues the admin JWT that requireAdmin checks,
// to operators holding the shared admin secret rather than a per-user
// login flow.
func (a *API) handleMintAdminToken(c *fiber.Ctx) error {
	var req MintAdminTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return unprocessable(c, ValidationError{Field: "body", Message: "malformed JSON"})
	}
	if req.Secret == "" || req.Secret != a.AdminSecret {
		return fiber.NewError(http.StatusUnauthorized, "invalid admin secret")
	}

	token, err := a.JWTManager.GenerateToken(0, "admin", "admin")
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"token": token})
}

// handleRefreshAdminToken mints a new admin token from one nearing
// expiry, so a long-running operator session doesn't have to resend
// the admin secret on every renewal.
func (a *API) handleRefreshAdminToken(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}

	token, err := a.JWTManager.RefreshToken(header[len(prefix):])
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.JSON(fiber.Map{"token": token})
}

func (a *API) handleQueueDepth(c *fiber.Ctx) error {
	n, err := a.Broker.Len(c.Context())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"depth": n})
}

func (a *API) requireAdmin(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}

	claims, err := a.JWTManager.ValidateToken(header[len(prefix):])
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	}
	if claims.Role != "admin" {
		return fiber.NewError(http.StatusForbidden, "admin role required")
	}
	return c.Next()
}

func (a *API) rateLimit(c *fiber.Ctx) error {
	allowed, err := a.RateLimiter.RateLimitCheck(c.Context(), c.IP(), a.RateLimit, a.RateWindow)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if !allowed {
		return fiber.NewError(http.StatusTooManyRequests, "rate limit exceeded")
	}
	return c.Next()
}

func unprocessable(c *fiber.Ctx, errs ...ValidationError) error {
	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"errors": errs})
}

func parseDate(field, value string) (time.Time, []ValidationError) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, []ValidationError{{Field: field, Message: "must be YYYY-MM-DD"}}
	}
	return t, nil
}

func newSimulationID() string {
	return uuid.NewString()
}
