package fleet

import (
	"fleetpulse/internal/domain/telemetry"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
	DefaultAlertLimit   = 100
	MaxAlertLimit       = 500
)

// ActionResolve is the only action accepted on the alerts collection.
const ActionResolve = "resolve"

type HistoryRequest struct {
	DeviceID  string `form:"deviceId" validate:"required,max=128"`
	Limit     int    `form:"limit" validate:"omitempty,min=1"`
	StartTime *int64 `form:"startTime" validate:"omitempty,min=0"`
	EndTime   *int64 `form:"endTime" validate:"omitempty,min=0"`
}

type AlertFilterRequest struct {
	DeviceID string `form:"deviceId" validate:"omitempty,max=128"`
	IsActive *bool  `form:"isActive"`
	Limit    int    `form:"limit" validate:"omitempty,min=1"`
}

type AlertActionRequest struct {
	Action  string `json:"action" validate:"required"`
	AlertID string `json:"alertId" validate:"required"`
}

type HistoryResponse struct {
	DeviceID string               `json:"deviceId"`
	Readings []*telemetry.Reading `json:"readings"`
	Count    int                  `json:"count"`
}

type AlertListResponse struct {
	Alerts []*telemetry.Alert `json:"alerts"`
	Count  int                `json:"count"`
}

type DeviceListResponse struct {
	Devices []*telemetry.Device `json:"devices"`
	Count   int                 `json:"count"`
}

// ToHistoryQuery applies the limit default and cap.
func (r *HistoryRequest) ToHistoryQuery() *telemetry.HistoryQuery {
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return &telemetry.HistoryQuery{
		DeviceID:  r.DeviceID,
		Limit:     limit,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

func (r *AlertFilterRequest) ToAlertFilter() *telemetry.AlertFilter {
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	if limit > MaxAlertLimit {
		limit = MaxAlertLimit
	}
	f := &telemetry.AlertFilter{IsActive: r.IsActive, Limit: limit}
	if r.DeviceID != "" {
		id := r.DeviceID
		f.DeviceID = &id
	}
	return f
}
