package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"imagejobs/internal/adapter/repo"
	"imagejobs/internal/lightx"
)

const maxListLimit = 200

// GetOrder queries the current status of an order once. The operation comes
// from ?operation= or, when a ledger is configured, from the recorded order.
func (a *App) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, op, ok := a.resolveOrder(w, r)
	if !ok {
		return
	}
	status, err := a.Runner.Status(r.Context(), op, orderID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, runResponse{Operation: op.Name, JobStatus: status})
}

// WaitOrder resumes polling an order with a fresh retry budget.
func (a *App) WaitOrder(w http.ResponseWriter, r *http.Request) {
	orderID, op, ok := a.resolveOrder(w, r)
	if !ok {
		return
	}
	status, err := a.Runner.Resume(r.Context(), op, orderID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, runResponse{Operation: op.Name, JobStatus: status})
}

// ListOrders serves recent ledger rows, optionally filtered by ?status=.
func (a *App) ListOrders(w http.ResponseWriter, r *http.Request) {
	if a.Orders == nil {
		a.error(w, http.StatusNotImplemented, "ledger_disabled", "order ledger is not configured")
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	switch status {
	case "", repo.StatusPending, repo.StatusActive, repo.StatusFailed, repo.StatusError:
	default:
		a.error(w, http.StatusBadRequest, "invalid_params", "unknown status filter "+strconv.Quote(status))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			a.error(w, http.StatusBadRequest, "invalid_params", "limit must be between 1 and "+strconv.Itoa(maxListLimit))
			return
		}
		limit = n
	}
	orders, err := a.Orders.ListRecent(r.Context(), status, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []repo.OrderRecord{}
	}
	a.json(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *App) resolveOrder(w http.ResponseWriter, r *http.Request) (string, lightx.Operation, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	name := strings.TrimSpace(r.URL.Query().Get("operation"))
	if name == "" && a.Orders != nil {
		rec, err := a.Orders.GetByOrderID(r.Context(), orderID)
		switch {
		case errors.Is(err, repo.ErrOrderNotFound):
			a.error(w, http.StatusNotFound, "not_found", "order "+orderID+" is not in the ledger")
			return "", lightx.Operation{}, false
		case err != nil:
			a.fail(w, r, err)
			return "", lightx.Operation{}, false
		}
		name = rec.Operation
	}
	if name == "" {
		a.error(w, http.StatusBadRequest, "invalid_params", "operation query parameter is required")
		return "", lightx.Operation{}, false
	}
	op, err := a.Catalog.Lookup(name)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_params", err.Error())
		return "", lightx.Operation{}, false
	}
	return orderID, op, true
}
