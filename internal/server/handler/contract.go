package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

// ContractService defines the methods the contract handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type ContractService interface {
	Create(ctx context.Context, typ domain.ContractType, p domain.Params) (string, error)
	ApplyTick(ctx context.Context, id string, price float64, ts time.Time) (domain.Result, error)
	GetState(ctx context.Context, id string) (domain.Result, error)
	Delete(ctx context.Context, id string) error
}

// ContractHandler serves the contract lifecycle endpoints.
type ContractHandler struct {
	contracts ContractService
	logger    *slog.Logger
}

// NewContractHandler creates a ContractHandler with the given service and logger.
func NewContractHandler(contracts ContractService, logger *slog.Logger) *ContractHandler {
	return &ContractHandler{
		contracts: contracts,
		logger:    logger,
	}
}

// createContractRequest is the body of POST /api/contracts.
type createContractRequest struct {
	ContractType domain.ContractType `json:"contract_type"`
	Parameters   domain.Params       `json:"parameters"`
}

// priceUpdateRequest is the body of POST /api/contracts/{id}/price-update.
// Timestamp, if supplied, is echoed back in the result; it never feeds
// expiry arithmetic.
type priceUpdateRequest struct {
	Price     *float64   `json:"price"`
	Timestamp *time.Time `json:"timestamp"`
}

// CreateContract creates and starts a new contract.
// POST /api/contracts
func (h *ContractHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req createContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.ContractType == "" {
		writeError(w, http.StatusBadRequest, "contract_type is required")
		return
	}

	id, err := h.contracts.Create(r.Context(), req.ContractType, req.Parameters)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create contract failed",
			slog.String("type", string(req.ContractType)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create contract")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"contract_id": id,
	})
}

// PriceUpdate applies one price tick to a contract.
// POST /api/contracts/{id}/price-update
func (h *ContractHandler) PriceUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing contract id")
		return
	}

	var req priceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Price == nil {
		writeError(w, http.StatusBadRequest, "price is required")
		return
	}

	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	result, err := h.contracts.ApplyTick(r.Context(), id, *req.Price, ts)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contract not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: price update failed",
			slog.String("contract_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to process price update")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetState returns the contract's last processed result, or its basic state
// when no tick has been processed yet.
// GET /api/contracts/{id}/price-update and GET /api/contracts/{id}/state
func (h *ContractHandler) GetState(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing contract id")
		return
	}

	result, err := h.contracts.GetState(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contract not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get state failed",
			slog.String("contract_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get contract state")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteContract removes a contract from the cache and the durable store.
// DELETE /api/contracts/{id}
func (h *ContractHandler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing contract id")
		return
	}

	if err := h.contracts.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contract not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: delete contract failed",
			slog.String("contract_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete contract")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
