package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/metrics"
	"github.com/ivlev/audiogram/internal/scene"
)

// HTTPNotifier calls the per-job webhook URLs submitted with the scene.
// Hooks with an empty URL are skipped.
type HTTPNotifier struct {
	hooks  scene.Hooks
	client *http.Client
	logger zerolog.Logger
}

func NewHTTPNotifier(hooks scene.Hooks, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPNotifier{
		hooks:  hooks,
		client: &http.Client{Timeout: timeout},
		logger: log.WithComponent("hooks"),
	}
}

// UpdateStatus: PUT {"status": ...} на updateHook.
func (n *HTTPNotifier) UpdateStatus(ctx context.Context, id string, status Status) error {
	if n.hooks.UpdateHook == "" {
		return nil
	}
	err := n.sendJSON(ctx, http.MethodPut, n.hooks.UpdateHook, map[string]string{"status": string(status)})
	return n.done("update", id, err)
}

// ReportError: POST {"message": ...} на errorHook.
func (n *HTTPNotifier) ReportError(ctx context.Context, id, message string) error {
	if n.hooks.ErrorHook == "" {
		return nil
	}
	err := n.sendJSON(ctx, http.MethodPost, n.hooks.ErrorHook, map[string]string{"message": message})
	return n.done("error", id, err)
}

// Deliver uploads the video as the multipart field "video" to finishHook.
func (n *HTTPNotifier) Deliver(ctx context.Context, id, path string) error {
	if n.hooks.FinishHook == "" {
		return nil
	}
	return n.done("finish", id, n.upload(ctx, n.hooks.FinishHook, path))
}

func (n *HTTPNotifier) done(hook, id string, err error) error {
	metrics.RecordHook(hook, err)
	if err != nil {
		n.logger.Warn().Err(err).Str("hook", hook).Str("job_id", id).Msg("hook call failed")
		return fmt.Errorf("%s hook: %w", hook, err)
	}
	n.logger.Debug().Str("hook", hook).Str("job_id", id).Msg("hook called")
	return nil
}

func (n *HTTPNotifier) sendJSON(ctx context.Context, method, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return n.do(req)
}

// upload стримит файл через pipe, не читая его в память целиком.
func (n *HTTPNotifier) upload(ctx context.Context, url, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("video", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.CloseWithError(err)
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = n.do(req)
	pr.CloseWithError(io.ErrClosedPipe)
	return err
}

func (n *HTTPNotifier) do(req *http.Request) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
