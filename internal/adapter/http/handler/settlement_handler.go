package handler

import (
	"context"
	"net/http"

	"github.com/iho/coster/internal/adapter/http/dto"
	"github.com/iho/coster/internal/domain"
)

// SettlementService defines the behavior needed by SettlementHandler.
type SettlementService interface {
	Settle(ctx context.Context, id domain.TabID) ([]domain.Settlement, error)
	Balances(ctx context.Context, id domain.TabID) ([]domain.UserDifference, error)
}

// SettlementHandler handles settlement requests.
type SettlementHandler struct {
	settlementUC SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementUC SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementUC: settlementUC}
}

// Settle returns the payments that settle a tab.
func (h *SettlementHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id := tabIDParam(r)

	settlements, err := h.settlementUC.Settle(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to settle tab", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementsFromDomain(id, settlements))
}

// Balances returns each user's difference from their fair share.
func (h *SettlementHandler) Balances(w http.ResponseWriter, r *http.Request) {
	id := tabIDParam(r)

	balances, err := h.settlementUC.Balances(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to compute balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromDomain(id, balances))
}
