package handler

import (
	"context"
	"net/http"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/ingestion"
	"fleetpulse/internal/usecase/fleet"
	"fleetpulse/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Ingestor is the write side of the pipeline the handlers call into.
type Ingestor interface {
	Ingest(ctx context.Context, payload *ingestion.ReadingPayload) (*ingestion.Result, error)
	RegisterDevice(ctx context.Context, req *ingestion.RegisterDeviceRequest) (*telemetry.Device, error)
	Metrics() ingestion.IngestMetrics
}

type TelemetryHandler struct {
	ingestor Ingestor
	service  *fleet.Service
}

func NewTelemetryHandler(ingestor Ingestor, service *fleet.Service) *TelemetryHandler {
	return &TelemetryHandler{ingestor: ingestor, service: service}
}

func (h *TelemetryHandler) RegisterRoutes(router *gin.RouterGroup) {
	telemetryRoutes := router.Group("/telemetry")
	{
		telemetryRoutes.POST("", h.Ingest)
		telemetryRoutes.GET("/history", h.History)
		telemetryRoutes.GET("/latest", h.Latest)
	}
	router.GET("/ingestion/stats", h.Stats)
}

func (h *TelemetryHandler) Ingest(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	payload, err := ingestion.ParseReading(body)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Telemetry ingested", result)
}

func (h *TelemetryHandler) History(c *gin.Context) {
	var req fleet.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	history, err := h.service.History(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Telemetry history retrieved", history)
}

func (h *TelemetryHandler) Latest(c *gin.Context) {
	readings, err := h.service.LatestReadings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Latest telemetry retrieved", readings)
}

func (h *TelemetryHandler) Stats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Ingestion stats retrieved", h.ingestor.Metrics())
}
