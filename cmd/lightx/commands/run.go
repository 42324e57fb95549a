package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"imagejobs/internal/adapter/repo"
	"imagejobs/internal/lightx"
	"imagejobs/internal/storage"
)

// result is the printed form of a resolved order.
type result struct {
	Name       string       `json:"name,omitempty"`
	Operation  string       `json:"operation"`
	OrderID    string       `json:"order_id,omitempty"`
	State      lightx.State `json:"state,omitempty"`
	RawStatus  string       `json:"raw_status,omitempty"`
	OutputURL  string       `json:"output_url,omitempty"`
	MaskURL    string       `json:"mask_url,omitempty"`
	OutputPath string       `json:"output_path,omitempty"`
	MaskPath   string       `json:"mask_path,omitempty"`
	Error      string       `json:"error,omitempty"`
	Kind       string       `json:"kind,omitempty"`
}

func newResult(operation string, status *lightx.JobStatus, err error) result {
	r := result{Operation: operation}
	if status != nil {
		r.OrderID = status.OrderID
		r.State = status.State
		r.RawStatus = status.RawStatus
		r.OutputURL = status.OutputURL
		r.MaskURL = status.MaskURL
	}
	if err != nil {
		r.Error = err.Error()
		r.Kind = lightx.KindName(err)
		var lerr *lightx.Error
		if errors.As(err, &lerr) && r.OrderID == "" {
			r.OrderID = lerr.OrderID
		}
	}
	return r
}

// RunAction uploads the inputs, submits the operation and waits for the result.
func RunAction(ctx context.Context, cmd *cli.Command) error {
	inputs, err := parseAssignments("input", cmd.StringSlice("input"))
	if err != nil {
		return err
	}
	params, err := parseAssignments("param", cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	op, err := app.Catalog.Lookup(cmd.String("operation"))
	if err != nil {
		return err
	}
	assets := make(map[string]lightx.Asset, len(inputs))
	for slot, path := range inputs {
		assets[slot] = lightx.FromFile(path, "")
	}

	status, runErr := app.Workflow.Run(ctx, op, assets, lightx.Params(params))
	res := newResult(op.Name, status, runErr)
	if dir := app.outputDir(cmd); runErr == nil && dir != "" {
		if err := app.saveOutputs(ctx, dir, &res); err != nil {
			return err
		}
	}
	if err := writeJSON(app.Out, res); err != nil {
		return err
	}
	return runErr
}

// StatusAction queries an order once.
func StatusAction(ctx context.Context, cmd *cli.Command) error {
	return orderAction(ctx, cmd, false)
}

// WaitAction resumes polling an order with a fresh retry budget.
func WaitAction(ctx context.Context, cmd *cli.Command) error {
	return orderAction(ctx, cmd, true)
}

func orderAction(ctx context.Context, cmd *cli.Command, wait bool) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	orderID := cmd.String("order-id")
	op, err := app.operationFor(ctx, orderID, cmd.String("operation"))
	if err != nil {
		return err
	}

	var status *lightx.JobStatus
	if wait {
		status, err = app.Workflow.Resume(ctx, op, orderID)
	} else {
		status, err = app.Workflow.Status(ctx, op, orderID)
	}
	res := newResult(op.Name, status, err)
	if dir := app.outputDir(cmd); err == nil && wait && dir != "" {
		if saveErr := app.saveOutputs(ctx, dir, &res); saveErr != nil {
			return saveErr
		}
	}
	if werr := writeJSON(app.Out, res); werr != nil {
		return werr
	}
	return err
}

// operationFor resolves the operation by name, falling back to the ledger.
func (a *AppContext) operationFor(ctx context.Context, orderID, name string) (lightx.Operation, error) {
	if name == "" && a.Orders != nil {
		rec, err := a.Orders.GetByOrderID(ctx, orderID)
		if err != nil {
			if errors.Is(err, repo.ErrOrderNotFound) {
				return lightx.Operation{}, fmt.Errorf("order %s is not in the ledger; pass --operation", orderID)
			}
			return lightx.Operation{}, err
		}
		name = rec.Operation
	}
	if name == "" {
		return lightx.Operation{}, fmt.Errorf("--operation is required without a database ledger")
	}
	return a.Catalog.Lookup(name)
}

// outputDir is --out, or STORAGE_PATH when --save is set.
func (a *AppContext) outputDir(cmd *cli.Command) string {
	if dir := cmd.String("out"); dir != "" {
		return dir
	}
	if cmd.Bool("save") {
		return a.Config.StoragePath
	}
	return ""
}

// saveOutputs downloads the output and mask of a resolved order into dir.
func (a *AppContext) saveOutputs(ctx context.Context, dir string, res *result) error {
	store, err := storage.NewFileStore(dir)
	if err != nil {
		return err
	}
	for _, item := range []struct {
		kind string
		url  string
		path *string
	}{
		{"output", res.OutputURL, &res.OutputPath},
		{"mask", res.MaskURL, &res.MaskPath},
	} {
		if item.url == "" {
			continue
		}
		data, contentType, err := a.Client.Download(ctx, item.url)
		if err != nil {
			return err
		}
		path, err := store.SaveOutput(ctx, res.Operation, res.OrderID, item.kind, data, contentType)
		if err != nil {
			return err
		}
		*item.path = path
	}
	return nil
}
