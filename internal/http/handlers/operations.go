package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"imagejobs/internal/lightx"
)

// multipartOverhead leaves room for form fields beside the image parts.
const multipartOverhead = 1 << 20

type runResponse struct {
	Operation string `json:"operation"`
	*lightx.JobStatus
}

// ListOperations serves the catalog.
func (a *App) ListOperations(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"operations": a.Catalog.Describe()})
}

// RunOperation accepts a multipart form: file parts are named after the
// operation's input slots and every other field is an operation parameter.
// The call blocks until the order resolves or the poll budget runs out.
func (a *App) RunOperation(w http.ResponseWriter, r *http.Request) {
	op, err := a.Catalog.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	limit := a.MaxUploadBytes*int64(max(len(op.Inputs), 1)) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "size_exceeded", fmt.Sprintf("request body exceeds %d bytes", limit))
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_params", "expected multipart/form-data body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	inputs, err := readInputs(r.MultipartForm.File)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	params := lightx.Params{}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	zerolog.Ctx(r.Context()).Info().
		Str("operation", op.Name).
		Int("inputs", len(inputs)).
		Int("params", len(params)).
		Msg("running operation")

	status, err := a.Runner.Run(r.Context(), op, inputs, params)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, runResponse{Operation: op.Name, JobStatus: status})
}

func readInputs(files map[string][]*multipart.FileHeader) (map[string]lightx.Asset, error) {
	inputs := make(map[string]lightx.Asset, len(files))
	for slot, headers := range files {
		if len(headers) != 1 {
			return nil, fmt.Errorf("input %q must be sent exactly once", slot)
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open input %q: %w", slot, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read input %q: %w", slot, err)
		}
		contentType := fh.Header.Get("Content-Type")
		if lightx.NormalizeContentType(contentType) == "application/octet-stream" {
			// generic clients label every part this way; sniff instead
			contentType = ""
		}
		asset := lightx.FromBytes(data, contentType)
		asset.Name = fh.Filename
		inputs[slot] = asset
	}
	return inputs, nil
}
