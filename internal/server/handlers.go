package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eneskucukk/ParkingLotApp/internal/logging"
	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

type Handler struct {
	ledger      parking.Ledger
	serviceName string
	currency    string
}

func NewHandler(ledger parking.Ledger, serviceName, currency string) *Handler {
	return &Handler{
		ledger:      ledger,
		serviceName: serviceName,
		currency:    currency,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := h.ledger.Snapshot(ctx)
	WriteSuccess(ctx, w, "Status retrieved successfully", newStatusResponse(snap))
}

func (h *Handler) Park(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := spotIndexParam(w, r)
	if !ok {
		return
	}

	var req ParkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	occupancy, err := h.ledger.Park(ctx, index, req.Plate)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", newOccupancyResponse(occupancy))
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := spotIndexParam(w, r)
	if !ok {
		return
	}

	tx, err := h.ledger.Release(ctx, index)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Spot released successfully", newTransactionResponse(tx, h.currency))
}

func (h *Handler) FindByPlate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plate := chi.URLParam(r, "plate")
	if plate == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Plate is required")
		return
	}

	view, err := h.ledger.FindByPlate(ctx, plate)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", view)
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, parking.ErrInvalidSpotIndex), errors.Is(err, parking.ErrInvalidPlate):
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, parking.ErrSpotOccupied), errors.Is(err, parking.ErrSpotEmpty):
		WriteError(ctx, w, http.StatusConflict, err.Error())
	case errors.Is(err, parking.ErrVehicleNotFound):
		WriteError(ctx, w, http.StatusNotFound, "Vehicle not found")
	case errors.Is(err, parking.ErrIOFailure):
		logging.Error(ctx, "transaction could not be recorded", "error", err)
		WriteError(ctx, w, http.StatusServiceUnavailable, "Transaction could not be recorded, retry the release")
	default:
		logging.Error(ctx, "unexpected ledger error", "error", err)
		WriteError(ctx, w, http.StatusInternalServerError, "Internal server error")
	}
}

func spotIndexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		WriteError(r.Context(), w, http.StatusBadRequest, "Spot index must be an integer")
		return 0, false
	}
	return index, true
}
