package lightx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
)

type uploadSlotRequest struct {
	UploadType  string `json:"uploadType"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type uploadSlotBody struct {
	UploadImage string `json:"uploadImage"`
	ImageURL    string `json:"imageUrl"`
}

// Upload checks the asset locally, registers an upload slot and transfers
// the bytes. It returns the public URL to reference in a job payload. Neither
// network step is retried.
func (c *Client) Upload(ctx context.Context, asset Asset) (string, error) {
	prepared, err := asset.prepare(c.maxUploadBytes, c.contentTypes)
	if err != nil {
		return "", err
	}
	return c.uploadPrepared(ctx, prepared)
}

func (c *Client) uploadPrepared(ctx context.Context, asset preparedAsset) (string, error) {
	slot, err := c.RequestUploadSlot(ctx, int64(len(asset.data)), asset.contentType)
	if err != nil {
		return "", err
	}
	if err := c.putObject(ctx, slot.UploadURL, asset.data, asset.contentType); err != nil {
		return "", err
	}
	c.logger.Debug().
		Str("asset", asset.label).
		Int("bytes", len(asset.data)).
		Str("content_type", asset.contentType).
		Msg("lightx: asset uploaded")
	return slot.AssetURL, nil
}

// RequestUploadSlot declares size and content type and returns the
// pre-signed target plus the URL the asset will be served from.
func (c *Client) RequestUploadSlot(ctx context.Context, size int64, contentType string) (*UploadSlot, error) {
	const op = "register upload"
	env, err := c.postJSON(ctx, op, c.uploadEndpoint, uploadSlotRequest{
		UploadType:  "imageUrl",
		Size:        size,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	if env.StatusCode != serviceSuccessCode {
		return nil, &Error{
			Kind:       ErrTransport,
			Op:         op,
			Endpoint:   c.uploadEndpoint,
			HTTPStatus: http.StatusOK,
			Code:       env.StatusCode,
			Message:    env.message(),
		}
	}
	var body uploadSlotBody
	if err := decodeBody(op, c.uploadEndpoint, env, &body); err != nil {
		return nil, err
	}
	slot := &UploadSlot{
		UploadURL: strings.TrimSpace(body.UploadImage),
		AssetURL:  strings.TrimSpace(body.ImageURL),
	}
	if slot.UploadURL == "" || slot.AssetURL == "" {
		return nil, &Error{Kind: ErrMalformedResponse, Op: op, Endpoint: c.uploadEndpoint, Message: "upload slot urls missing"}
	}
	return slot, nil
}

// putObject transfers raw bytes to a pre-signed URL. The Content-Type must
// match the registered type or the store rejects the request. The API key is
// not sent to the store.
func (c *Client) putObject(ctx context.Context, target string, data []byte, contentType string) error {
	const op = "transfer upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return &Error{Kind: ErrTransport, Op: op, Err: err}
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: ErrTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{
			Kind:       ErrTransport,
			Op:         op,
			HTTPStatus: resp.StatusCode,
			Message:    strings.TrimSpace(string(detail)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
