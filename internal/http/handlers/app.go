package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"imagejobs/internal/adapter/repo"
	"imagejobs/internal/catalog"
	"imagejobs/internal/lightx"
)

// Runner is the workflow surface the handlers drive. *lightx.Workflow
// satisfies it.
type Runner interface {
	Run(ctx context.Context, op lightx.Operation, inputs map[string]lightx.Asset, params lightx.Params) (*lightx.JobStatus, error)
	Resume(ctx context.Context, op lightx.Operation, orderID string) (*lightx.JobStatus, error)
	Status(ctx context.Context, op lightx.Operation, orderID string) (*lightx.JobStatus, error)
}

// OrderLedger is the read side of the order ledger. It is optional.
type OrderLedger interface {
	GetByOrderID(ctx context.Context, orderID string) (*repo.OrderRecord, error)
	ListRecent(ctx context.Context, status string, limit int) ([]repo.OrderRecord, error)
}

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Runner         Runner
	Catalog        *catalog.Catalog
	Orders         OrderLedger
	MaxUploadBytes int64
}

// NewApp wires the handlers. orders may be nil when no database is configured.
func NewApp(runner Runner, cat *catalog.Catalog, orders OrderLedger, maxUploadBytes int64) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = lightx.DefaultMaxUploadBytes
	}
	return &App{Runner: runner, Catalog: cat, Orders: orders, MaxUploadBytes: maxUploadBytes}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, errorResponse{Error: kind, Message: message})
}

// fail maps a workflow error onto an HTTP response and logs it.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	resp := errorResponse{Error: lightx.KindName(err), Message: err.Error()}
	if code == http.StatusNotFound {
		resp.Error = "not_found"
	}
	var lerr *lightx.Error
	if errors.As(err, &lerr) {
		resp.OrderID = lerr.OrderID
	}
	event := zerolog.Ctx(r.Context()).Warn()
	if code >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).Str("kind", resp.Error).Int("status", code).Msg("lightx request failed")
	a.json(w, code, resp)
}
