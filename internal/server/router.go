package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/daytally/backend/internal/auth"
	"github.com/daytally/backend/internal/country"
	"github.com/daytally/backend/internal/dates"
	"github.com/daytally/backend/internal/trips"
)

const userIDContextKey = "daytally_user_id"

// maxImportBytes bounds a CSV upload; a lifetime of travel rows fits with
// room to spare.
const maxImportBytes = 1 << 20

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingIdentityResolver = errors.New("identity resolver dependency required")
	errMissingTripsService     = errors.New("trips service dependency required")
)

// SessionAuthenticator validates provider-issued session tokens.
type SessionAuthenticator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
	ValidateToken(token string) (auth.SessionClaims, error)
}

// IdentityResolver maps validated session claims to a canonical user id.
type IdentityResolver interface {
	ResolveCanonicalUserID(claims auth.SessionClaims) (string, error)
}

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	Sessions     SessionAuthenticator
	Identities   IdentityResolver
	TripsService *trips.Service
	Realtime     *RealtimeDispatcher
	Logger       *zap.Logger
}

// NewHTTPHandler wires the gin router for the daytally API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessionValidator
	}
	if deps.Identities == nil {
		return nil, errMissingIdentityResolver
	}
	if deps.TripsService == nil {
		return nil, errMissingTripsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Realtime
	if dispatcher == nil {
		dispatcher = NewRealtimeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		sessions:     deps.Sessions,
		identities:   deps.Identities,
		tripsService: deps.TripsService,
		realtime:     dispatcher,
		logger:       logger,
	}

	router.GET("/healthz", handleHealthz)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/trips", handler.handleListTrips)
	protected.POST("/trips", handler.handleCreateTrip)
	protected.PATCH("/trips/:id", handler.handleUpdateTrip)
	protected.DELETE("/trips/:id", handler.handleDeleteTrip)
	protected.DELETE("/trips", handler.handleDeleteTrips)
	protected.POST("/trips/import", handler.handleImport)
	protected.GET("/trips/export", handler.handleExport)
	protected.GET("/trips/stream", handler.handleStream)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return origin != "" },
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch,
			http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

type httpHandler struct {
	sessions     SessionAuthenticator
	identities   IdentityResolver
	tripsService *trips.Service
	realtime     *RealtimeDispatcher
	logger       *zap.Logger
}

func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// authorizeRequest resolves the authenticated user or aborts with 401.
// The session cookie is authoritative; bearer headers and, for EventSource
// clients that cannot set headers, an access_token query parameter are
// accepted as fallbacks.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if token := strings.TrimSpace(c.Query("access_token")); token != "" {
			claims, err = h.sessions.ValidateToken(token)
		}
	}
	if err != nil {
		h.logger.Warn("session validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userID, err := h.identities.ResolveCanonicalUserID(claims)
	if err != nil {
		h.logger.Warn("identity resolution failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Set(userIDContextKey, userID)
	c.Next()
}

func (h *httpHandler) userID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

type tripPayload struct {
	ID          string    `json:"id"`
	CountryCode string    `json:"country_code"`
	DateFrom    string    `json:"date_from"`
	DateTo      string    `json:"date_to"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type tripMetricsPayload struct {
	tripPayload
	DaysInclusive        int    `json:"days_inclusive"`
	GapToNextTrip        int    `json:"gap_to_next_trip"`
	HasGap               bool   `json:"has_gap"`
	TotalForLocationYTD  int    `json:"total_for_location_ytd"`
	SixMonthBackDate     string `json:"six_month_back_date"`
	TrackedLast2Quarters *int   `json:"tracked_last_2_quarters"`
}

func toTripPayload(trip trips.Trip) tripPayload {
	return tripPayload{
		ID:          trip.ID,
		CountryCode: trip.CountryCode,
		DateFrom:    dates.FormatISO(trip.DateFrom),
		DateTo:      dates.FormatISO(trip.DateTo),
		Notes:       trip.Notes,
		CreatedAt:   trip.CreatedAt,
	}
}

func (h *httpHandler) handleListTrips(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	withMetrics, err := h.tripsService.ListMetrics(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}

	payload := make([]tripMetricsPayload, 0, len(withMetrics))
	for _, item := range withMetrics {
		payload = append(payload, tripMetricsPayload{
			tripPayload:          toTripPayload(item.Trip),
			DaysInclusive:        item.Metric.DaysInclusive,
			GapToNextTrip:        item.Metric.GapToNextTrip,
			HasGap:               item.Metric.HasGap,
			TotalForLocationYTD:  item.Metric.TotalForLocationYTD,
			SixMonthBackDate:     dates.FormatISO(item.Metric.SixMonthBackDate),
			TrackedLast2Quarters: item.Metric.TrackedLast2Quarters,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trips": payload})
}

type tripRequestPayload struct {
	CountryCode string `json:"country_code"`
	DateFrom    string `json:"date_from"`
	DateTo      string `json:"date_to"`
	Notes       string `json:"notes"`
}

func (p tripRequestPayload) toInput() trips.TripInput {
	return trips.TripInput{
		Country:  p.CountryCode,
		DateFrom: p.DateFrom,
		DateTo:   p.DateTo,
		Notes:    p.Notes,
	}
}

func (h *httpHandler) handleCreateTrip(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var request tripRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.tripsService.Create(c.Request.Context(), userID, request.toInput())
	if err != nil {
		h.respondMutationError(c, err)
		return
	}

	h.publishTripChange(userID, created.ID)
	c.JSON(http.StatusCreated, toTripPayload(created))
}

func (h *httpHandler) handleUpdateTrip(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	tripID := c.Param("id")

	var request tripRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.tripsService.Update(c.Request.Context(), userID, tripID, request.toInput())
	if err != nil {
		h.respondMutationError(c, err)
		return
	}

	h.publishTripChange(userID, updated.ID)
	c.JSON(http.StatusOK, toTripPayload(updated))
}

func (h *httpHandler) handleDeleteTrip(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	tripID := c.Param("id")

	if err := h.tripsService.Delete(c.Request.Context(), userID, tripID); err != nil {
		h.respondMutationError(c, err)
		return
	}

	h.publishTripChange(userID, tripID)
	c.Status(http.StatusNoContent)
}

type deleteTripsPayload struct {
	IDs []string `json:"ids"`
}

func (h *httpHandler) handleDeleteTrips(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var request deleteTripsPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.tripsService.DeleteMany(c.Request.Context(), userID, request.IDs); err != nil {
		h.respondMutationError(c, err)
		return
	}

	h.publishTripChange(userID, request.IDs...)
	c.Status(http.StatusNoContent)
}

// handleImport accepts the CSV either as a multipart "file" field or as the
// raw request body, validates the batch, and commits all rows or none.
func (h *httpHandler) handleImport(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	reader, err := importBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}

	rows, err := trips.ParseCSV(io.LimitReader(reader, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable csv"})
		return
	}

	created, rowErrors, err := h.tripsService.Import(c.Request.Context(), userID, rows)
	if err != nil {
		h.respondMutationError(c, err)
		return
	}
	if len(rowErrors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid CSV", "errors": rowErrors})
		return
	}

	ids := make([]string, 0, len(created))
	for _, trip := range created {
		ids = append(ids, trip.ID)
	}
	h.publishTripChange(userID, ids...)
	c.JSON(http.StatusCreated, gin.H{"imported": len(created)})
}

func importBody(c *gin.Context) (io.Reader, error) {
	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		return fileHeader.Open()
	}
	return c.Request.Body, nil
}

func (h *httpHandler) handleExport(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	payload, err := h.tripsService.ExportCSV(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to export trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename=trips.csv`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// handleStream serves an SSE stream of trip-change events for the user.
// Heartbeats keep intermediaries from closing the idle connection.
func (h *httpHandler) handleStream(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming_unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream, cleanup := h.realtime.Subscribe(c.Request.Context(), userID)
	defer cleanup()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"ts": time.Now().UTC().Unix()})
			flusher.Flush()
		case message, open := <-stream:
			if !open {
				return
			}
			c.SSEvent(message.EventType, gin.H{"tripIds": message.TripIDs})
			flusher.Flush()
		}
	}
}

func (h *httpHandler) publishTripChange(userID string, tripIDs ...string) {
	h.realtime.Publish(RealtimeMessage{
		UserID:    userID,
		EventType: RealtimeEventTripChanged,
		TripIDs:   tripIDs,
		Timestamp: time.Now().UTC(),
	})
}

// respondMutationError maps service failures onto the API's error contract:
// validation problems are 400 with the user-facing message, overlap
// conflicts are 409, unowned targets are 404, anything else is a 500.
func (h *httpHandler) respondMutationError(c *gin.Context, err error) {
	var conflict *trips.ConflictError
	switch {
	case errors.Is(err, trips.ErrTripNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.Is(err, country.ErrCountryNotRecognized):
		c.JSON(http.StatusBadRequest, gin.H{"error": "country code missing/invalid (expect 2-letter ISO, e.g. IL, BE)"})
	case errors.Is(err, dates.ErrUnparsableDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date (use YYYY-MM-DD)"})
	case errors.Is(err, trips.ErrDateOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": "dateFrom is after dateTo"})
	default:
		h.logger.Error("trip mutation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
