package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lpr-service/internal/config"
	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/pipeline"
	"lpr-service/internal/service"
)

type DetectionService interface {
	ListDetections(ctx context.Context, q service.DetectionQuery) ([]anpr.Access, int64, error)
	GetDetection(ctx context.Context, id int64) (*anpr.Access, error)
	UpdateDetection(ctx context.Context, id int64, u anpr.AccessUpdate) (*anpr.Access, error)
	DeleteDetection(ctx context.Context, id int64) error
	DeleteDetectionsByPlate(ctx context.Context, plate string) (int64, error)
	DeleteDetectionsByDate(ctx context.Context, day string) (int64, error)
	TodayStats(ctx context.Context) (*anpr.TodayStats, error)
	Report(ctx context.Context, day string) (*anpr.DailyReport, error)
}

type RegistryService interface {
	CreateOwner(ctx context.Context, in service.OwnerInput) (*anpr.Owner, error)
	GetOwner(ctx context.Context, id int64) (*anpr.Owner, error)
	ListOwners(ctx context.Context, limit, offset int) ([]anpr.Owner, error)
	UpdateOwner(ctx context.Context, id int64, in service.OwnerInput) (*anpr.Owner, error)
	DeleteOwner(ctx context.Context, id int64) error

	CreateVehicle(ctx context.Context, in service.VehicleInput) (*anpr.VehicleRecord, error)
	GetVehicle(ctx context.Context, id int64) (*anpr.VehicleRecord, error)
	GetVehicleByPlate(ctx context.Context, plate string) (*anpr.VehicleRecord, error)
	ListVehicles(ctx context.Context, ownerID *int64, limit, offset int) ([]anpr.VehicleRecord, error)
	UpdateVehicle(ctx context.Context, id int64, in service.VehicleInput) (*anpr.VehicleRecord, error)
	DeleteVehicle(ctx context.Context, id int64) error
	FlagVehicle(ctx context.Context, plate, reason string) (*anpr.Alert, error)

	ListAlerts(ctx context.Context, onlyOpen bool, limit int) ([]anpr.Alert, error)
	ResolveAlert(ctx context.Context, id int64) error
}

type AuthService interface {
	TokenValidator
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

type Handler struct {
	detections DetectionService
	registry   RegistryService
	auth       AuthService
	live       *pipeline.LiveState
	hub        *Hub
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewHandler wires the API. live and hub may be nil when no camera runs.
func NewHandler(
	detections DetectionService,
	registry RegistryService,
	auth AuthService,
	live *pipeline.LiveState,
	hub *Hub,
	cfg config.HTTPConfig,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		detections: detections,
		registry:   registry,
		auth:       auth,
		live:       live,
		hub:        hub,
		upgrader:   newUpgrader(cfg.AllowedOrigins),
		log:        log.With().Str("component", "http").Logger(),
	}
}

func (h *Handler) Register(r *gin.Engine, auth *AuthMiddleware) {
	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.GET("/health", h.health)
		public.POST("/auth/login", h.login)
		public.GET("/live/status", h.liveStatus)
		public.GET("/live/feed", h.liveFeed)
		public.GET("/ws", h.serveWS)
	}

	protected := r.Group("/api/v1")
	protected.Use(auth.Authenticate())
	{
		protected.GET("/detections", h.listDetections)
		protected.GET("/detections/:id", h.getDetection)
		protected.GET("/detections/:id/image", h.detectionImage)
		protected.GET("/stats/today", h.todayStats)
		protected.GET("/reports/daily", h.dailyReport)

		protected.GET("/owners", h.listOwners)
		protected.GET("/owners/:id", h.getOwner)
		protected.GET("/vehicles", h.listVehicles)
		protected.GET("/vehicles/:id", h.getVehicle)
		protected.GET("/plates/:plate", h.getVehicleByPlate)
		protected.GET("/alerts", h.listAlerts)
	}

	writers := protected.Group("")
	writers.Use(auth.AuthorizeRole(anpr.RoleAdmin, anpr.RoleOperator))
	{
		writers.PUT("/detections/:id", h.updateDetection)
		writers.DELETE("/detections/:id", h.deleteDetection)
		writers.DELETE("/detections", h.deleteDetections)

		writers.POST("/owners", h.createOwner)
		writers.PUT("/owners/:id", h.updateOwner)
		writers.DELETE("/owners/:id", h.deleteOwner)

		writers.POST("/vehicles", h.createVehicle)
		writers.PUT("/vehicles/:id", h.updateVehicle)
		writers.DELETE("/vehicles/:id", h.deleteVehicle)
		writers.POST("/plates/:plate/flag", h.flagVehicle)

		writers.POST("/alerts/:id/resolve", h.resolveAlert)
	}
}

func (h *Handler) health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if h.live != nil {
		status["camera_running"] = h.live.Status().Running
	}
	if h.hub != nil {
		status["ws_clients"] = h.hub.Clients()
	}
	c.JSON(http.StatusOK, status)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

// Detections

func (h *Handler) listDetections(c *gin.Context) {
	limit, offset := pagination(c)
	q := service.DetectionQuery{
		Plate:    strings.TrimSpace(c.Query("plate")),
		Category: strings.TrimSpace(c.Query("category")),
		From:     strings.TrimSpace(c.Query("from")),
		To:       strings.TrimSpace(c.Query("to")),
		Limit:    limit,
		Offset:   offset,
	}

	items, total, err := h.detections.ListDetections(c.Request.Context(), q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": total,
	})
}

func (h *Handler) getDetection(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	access, err := h.detections.GetDetection(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(access))
}

// detectionImage serves the plate crop saved with the detection.
func (h *Handler) detectionImage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	access, err := h.detections.GetDetection(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if access.ImagePath == "" {
		c.JSON(http.StatusNotFound, errorResponse("detection has no saved image"))
		return
	}
	info, err := os.Stat(access.ImagePath)
	if err != nil || info.IsDir() {
		h.log.Warn().Err(err).Int64("access_id", id).Str("path", access.ImagePath).Msg("saved image missing")
		c.JSON(http.StatusNotFound, errorResponse("saved image not found"))
		return
	}
	c.File(access.ImagePath)
}

func (h *Handler) updateDetection(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var u anpr.AccessUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	access, err := h.detections.UpdateDetection(c.Request.Context(), id, u)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.log.Info().Int64("access_id", id).Str("by", c.GetString(ctxUsername)).Msg("detection edited")
	c.JSON(http.StatusOK, successResponse(access))
}

func (h *Handler) deleteDetection(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.detections.DeleteDetection(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteDetections removes every detection of ?plate= or of ?day=.
func (h *Handler) deleteDetections(c *gin.Context) {
	plate := strings.TrimSpace(c.Query("plate"))
	day := strings.TrimSpace(c.Query("day"))
	if (plate == "") == (day == "") {
		c.JSON(http.StatusBadRequest, errorResponse("exactly one of plate or day is required"))
		return
	}

	var (
		n   int64
		err error
	)
	if plate != "" {
		n, err = h.detections.DeleteDetectionsByPlate(c.Request.Context(), plate)
	} else {
		n, err = h.detections.DeleteDetectionsByDate(c.Request.Context(), day)
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"deleted": n}))
}

func (h *Handler) todayStats(c *gin.Context) {
	stats, err := h.detections.TodayStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) dailyReport(c *gin.Context) {
	report, err := h.detections.Report(c.Request.Context(), strings.TrimSpace(c.Query("day")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(report))
}

// Owners

func (h *Handler) listOwners(c *gin.Context) {
	limit, offset := pagination(c)
	owners, err := h.registry.ListOwners(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(owners))
}

func (h *Handler) getOwner(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	owner, err := h.registry.GetOwner(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(owner))
}

func (h *Handler) createOwner(c *gin.Context) {
	var in service.OwnerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	owner, err := h.registry.CreateOwner(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(owner))
}

func (h *Handler) updateOwner(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in service.OwnerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	owner, err := h.registry.UpdateOwner(c.Request.Context(), id, in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(owner))
}

func (h *Handler) deleteOwner(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteOwner(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Vehicles

func (h *Handler) listVehicles(c *gin.Context) {
	limit, offset := pagination(c)

	var ownerID *int64
	if raw := c.Query("owner_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid owner_id"))
			return
		}
		ownerID = &id
	}

	vehicles, err := h.registry.ListVehicles(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(vehicles))
}

func (h *Handler) getVehicle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rec, err := h.registry.GetVehicle(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rec))
}

func (h *Handler) getVehicleByPlate(c *gin.Context) {
	rec, err := h.registry.GetVehicleByPlate(c.Request.Context(), c.Param("plate"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rec))
}

func (h *Handler) createVehicle(c *gin.Context) {
	var in service.VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	rec, err := h.registry.CreateVehicle(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(rec))
}

func (h *Handler) updateVehicle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in service.VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	rec, err := h.registry.UpdateVehicle(c.Request.Context(), id, in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rec))
}

func (h *Handler) deleteVehicle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteVehicle(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type flagRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) flagVehicle(c *gin.Context) {
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	alert, err := h.registry.FlagVehicle(c.Request.Context(), c.Param("plate"), req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(alert))
}

// Alerts

func (h *Handler) listAlerts(c *gin.Context) {
	limit, _ := pagination(c)
	onlyOpen := c.DefaultQuery("open", "true") != "false"

	alerts, err := h.registry.ListAlerts(c.Request.Context(), onlyOpen, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(alerts))
}

func (h *Handler) resolveAlert(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.registry.ResolveAlert(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"id": id, "resolved": true}))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("invalid id %q", c.Param("id"))))
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
