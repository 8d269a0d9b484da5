package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type ParkRequest struct {
	Plate string `json:"plate"`
}

type OccupancyResponse struct {
	SpotIndex int    `json:"spot_index"`
	Plate     string `json:"plate"`
	EntryTime string `json:"entry_time"`
}

type TransactionResponse struct {
	SpotIndex       int           `json:"spot_index"`
	Plate           string        `json:"plate"`
	DurationMinutes int           `json:"duration_minutes"`
	Fee             parking.Money `json:"fee"`
	Currency        string        `json:"currency"`
	ExitTime        string        `json:"exit_time"`
}

type StatusResponse struct {
	Capacity  int                `json:"capacity"`
	Occupied  int                `json:"occupied"`
	Available int                `json:"available"`
	Spots     []parking.SpotView `json:"spots"`
}

func newOccupancyResponse(o parking.Occupancy) OccupancyResponse {
	return OccupancyResponse{
		SpotIndex: o.SpotIndex,
		Plate:     o.Plate,
		EntryTime: o.EntryTime.Format(time.RFC3339),
	}
}

func newTransactionResponse(tx parking.Transaction, currency string) TransactionResponse {
	return TransactionResponse{
		SpotIndex:       tx.SpotIndex,
		Plate:           tx.Plate,
		DurationMinutes: tx.DurationMinutes,
		Fee:             tx.Fee,
		Currency:        currency,
		ExitTime:        tx.ExitTime.Local().Format(parking.ExitTimeLayout),
	}
}

func newStatusResponse(snap parking.Snapshot) StatusResponse {
	return StatusResponse{
		Capacity:  snap.Capacity,
		Occupied:  snap.OccupiedCount,
		Available: snap.Available(),
		Spots:     snap.Spots,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
