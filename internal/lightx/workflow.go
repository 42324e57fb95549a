package lightx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"imagejobs/internal/infra"
)

// InputSlot declares one asset an operation accepts and the payload field its
// public URL is sent in.
type InputSlot struct {
	Name     string
	Field    string
	Required bool
}

// Params are caller-supplied operation parameters before validation.
type Params map[string]string

// ParamsFunc validates params and returns the non-asset payload fields.
type ParamsFunc func(params Params) (map[string]any, error)

// CheckedInput is an input asset after size and content-type validation.
type CheckedInput struct {
	Slot        string
	ContentType string
	Data        []byte
}

// InputsFunc inspects prepared inputs together with the caller's params.
// It runs before anything is uploaded.
type InputsFunc func(params Params, inputs []CheckedInput) error

// Operation describes one remote feature. The workflow knows nothing about
// what an operation does beyond this descriptor.
type Operation struct {
	Name           string
	Description    string
	Endpoint       string
	StatusEndpoint string
	Inputs         []InputSlot
	Params         ParamsFunc
	CheckInputs    InputsFunc
}

// StatusPath returns the order-status endpoint polled for this operation.
func (op Operation) StatusPath() string {
	if op.StatusEndpoint != "" {
		return op.StatusEndpoint
	}
	return statusEndpointFor(op.Endpoint)
}

// Input returns the slot named name.
func (op Operation) Input(name string) (InputSlot, bool) {
	for _, slot := range op.Inputs {
		if slot.Name == name {
			return slot, true
		}
	}
	return InputSlot{}, false
}

// OrderRecorder persists submitted orders and their final state.
type OrderRecorder interface {
	RecordSubmitted(ctx context.Context, operation string, handle JobHandle) error
	RecordResolved(ctx context.Context, orderID string, status *JobStatus, attempts int, cause error) error
}

type nopRecorder struct{}

func (nopRecorder) RecordSubmitted(context.Context, string, JobHandle) error { return nil }
func (nopRecorder) RecordResolved(context.Context, string, *JobStatus, int, error) error {
	return nil
}

// NopRecorder records nothing.
func NopRecorder() OrderRecorder { return nopRecorder{} }

// WorkflowOptions configures a Workflow. Zero values select the defaults.
type WorkflowOptions struct {
	Policy   RetryPolicy
	Sleep    SleepFunc
	Logger   *infra.Logger
	Observer Observer
	Recorder OrderRecorder
}

// Workflow runs upload, submit and poll for one operation per call. It keeps
// no state between calls and is safe for concurrent use.
type Workflow struct {
	client   *Client
	poller   *Poller
	logger   *infra.Logger
	observer Observer
	recorder OrderRecorder
}

// NewWorkflow wires a workflow around client.
func NewWorkflow(client *Client, opts WorkflowOptions) *Workflow {
	logger := opts.Logger
	if logger == nil {
		logger = client.logger
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = NopRecorder()
	}
	return &Workflow{
		client: client,
		poller: NewPoller(client, PollerOptions{
			Policy:   opts.Policy,
			Sleep:    opts.Sleep,
			Logger:   logger,
			Observer: observer,
		}),
		logger:   logger,
		observer: observer,
		recorder: recorder,
	}
}

// Client returns the underlying API client.
func (w *Workflow) Client() *Client {
	return w.client
}

// Run validates params and inputs, uploads every input in slot order, submits
// one job and polls it. Nothing touches the network until every input has
// passed the local checks. Errors keep their kind; a poll failure carries the
// order id so the caller can Resume.
func (w *Workflow) Run(ctx context.Context, op Operation, inputs map[string]Asset, params Params) (*JobStatus, error) {
	started := time.Now()
	status, attempts, err := w.run(ctx, op, inputs, params)
	w.observer.Finished(op.Name, attempts, time.Since(started), err)
	return status, err
}

func (w *Workflow) run(ctx context.Context, op Operation, inputs map[string]Asset, params Params) (*JobStatus, int, error) {
	if err := validateOperation(op); err != nil {
		return nil, 0, err
	}

	fields := map[string]any{}
	if op.Params != nil {
		built, err := op.Params(params)
		if err != nil {
			return nil, 0, asInvalidParams(op.Name, err)
		}
		for k, v := range built {
			fields[k] = v
		}
	}

	prepared, err := w.prepareInputs(op, inputs, params)
	if err != nil {
		return nil, 0, err
	}

	for _, item := range prepared {
		began := time.Now()
		assetURL, err := w.client.uploadPrepared(ctx, item.asset)
		w.observer.UploadFinished(len(item.asset.data), time.Since(began), err)
		if err != nil {
			return nil, 0, fmt.Errorf("lightx: %s: upload %s: %w", op.Name, item.slot.Name, err)
		}
		fields[item.slot.Field] = assetURL
	}

	handle, err := w.client.Submit(ctx, op.Endpoint, fields)
	w.observer.Submitted(op.Name, err)
	if err != nil {
		return nil, 0, fmt.Errorf("lightx: %s: %w", op.Name, err)
	}
	handle.StatusEndpoint = op.StatusPath()
	if err := w.recorder.RecordSubmitted(ctx, op.Name, *handle); err != nil {
		w.logger.Error().Err(err).Str("order_id", handle.OrderID).Msg("lightx: record submission failed")
	}

	return w.watch(ctx, op.Name, *handle)
}

// Resume polls an order submitted earlier with a fresh budget, for example
// after a previous Run returned ErrRetryExhausted.
func (w *Workflow) Resume(ctx context.Context, op Operation, orderID string) (*JobStatus, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, &Error{Kind: ErrInvalidParams, Op: "resume", Message: "order id is required"}
	}
	started := time.Now()
	status, attempts, err := w.watch(ctx, op.Name, JobHandle{
		OrderID:        orderID,
		Endpoint:       op.Endpoint,
		StatusEndpoint: op.StatusPath(),
		InitialStatus:  StatePending,
	})
	w.observer.Finished(op.Name, attempts, time.Since(started), err)
	return status, err
}

// Status performs a single status query for an order of op.
func (w *Workflow) Status(ctx context.Context, op Operation, orderID string) (*JobStatus, error) {
	return w.client.OrderStatus(ctx, op.StatusPath(), orderID)
}

func (w *Workflow) watch(ctx context.Context, name string, handle JobHandle) (*JobStatus, int, error) {
	status, attempts, err := w.poller.poll(ctx, name, handle)

	// the recorder must not inherit a canceled context
	recordCtx := context.WithoutCancel(ctx)
	if rerr := w.recorder.RecordResolved(recordCtx, handle.OrderID, status, attempts, err); rerr != nil {
		w.logger.Error().Err(rerr).Str("order_id", handle.OrderID).Msg("lightx: record outcome failed")
	}
	if err != nil {
		var lerr *Error
		if errors.As(err, &lerr) && lerr.OrderID == "" {
			lerr.OrderID = handle.OrderID
		}
		return nil, attempts, fmt.Errorf("lightx: %s: %w", name, err)
	}
	return status, attempts, nil
}

type preparedInput struct {
	slot  InputSlot
	asset preparedAsset
}

func (w *Workflow) prepareInputs(op Operation, inputs map[string]Asset, params Params) ([]preparedInput, error) {
	for name := range inputs {
		if _, ok := op.Input(name); !ok {
			return nil, &Error{Kind: ErrInvalidParams, Op: op.Name, Message: fmt.Sprintf("unknown input %q", name)}
		}
	}
	out := make([]preparedInput, 0, len(op.Inputs))
	for _, slot := range op.Inputs {
		asset, ok := inputs[slot.Name]
		if !ok {
			if slot.Required {
				return nil, &Error{Kind: ErrInvalidParams, Op: op.Name, Message: fmt.Sprintf("input %q is required", slot.Name)}
			}
			continue
		}
		prepared, err := asset.prepare(w.client.maxUploadBytes, w.client.contentTypes)
		if err != nil {
			return nil, fmt.Errorf("lightx: %s: input %s: %w", op.Name, slot.Name, err)
		}
		out = append(out, preparedInput{slot: slot, asset: prepared})
	}
	if op.CheckInputs != nil {
		checked := make([]CheckedInput, len(out))
		for i, item := range out {
			checked[i] = CheckedInput{Slot: item.slot.Name, ContentType: item.asset.contentType, Data: item.asset.data}
		}
		if err := op.CheckInputs(params, checked); err != nil {
			return nil, asInvalidParams(op.Name, err)
		}
	}
	return out, nil
}

func validateOperation(op Operation) error {
	if strings.TrimSpace(op.Name) == "" || strings.TrimSpace(op.Endpoint) == "" {
		return &Error{Kind: ErrInvalidParams, Op: "run", Message: "operation name and endpoint are required"}
	}
	for _, slot := range op.Inputs {
		if slot.Name == "" || slot.Field == "" {
			return &Error{Kind: ErrInvalidParams, Op: op.Name, Message: "input slot needs a name and a payload field"}
		}
	}
	return nil
}

func asInvalidParams(name string, err error) error {
	if Kind(err) != nil {
		return fmt.Errorf("lightx: %s: %w", name, err)
	}
	return &Error{Kind: ErrInvalidParams, Op: name, Err: err}
}
