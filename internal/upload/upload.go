package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Uploader transmits a coverage report to the analytics service.
// Single attempt; with FailOnError set a failed transmission fails the
// run it belongs to.
type Uploader struct {
	client *http.Client

	Url   string
	Token string

	FailOnError bool
	Verbose     bool
}

func New(uploadUrl string, token string) *Uploader {
	return &Uploader{
		client: &http.Client{Timeout: 60 * time.Second},
		Url:    uploadUrl,
		Token:  token,
	}
}

// Meta identifies the run the report belongs to.
type Meta struct {
	RunUuid string
	Commit  string
	Ref     string
}

// Upload POSTs the gzipped report. A nil return means the service
// accepted it; any other outcome is an error for the caller to treat
// per FailOnError.
func (u *Uploader) Upload(ctx context.Context, gzipped []byte, meta Meta) error {
	endpoint, err := url.Parse(u.Url)
	if err != nil {
		return fmt.Errorf("invalid upload url %s: %w", u.Url, err)
	}

	q := endpoint.Query()
	q.Set("run", meta.RunUuid)
	q.Set("commit", meta.Commit)
	if meta.Ref != "" {
		q.Set("ref", meta.Ref)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(gzipped))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Content-Encoding", "gzip")
	if u.Token != "" {
		req.Header.Set("Authorization", "token "+u.Token)
	}

	if u.Verbose {
		slog.Info("uploading coverage report",
			"url", endpoint.Redacted(),
			"bytes", len(gzipped),
			"commit", meta.Commit)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("report upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if u.Verbose {
		slog.Info("upload response", "status", resp.Status, "body", string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("report upload rejected: status %s: %s", resp.Status, string(body))
	}
	return nil
}
