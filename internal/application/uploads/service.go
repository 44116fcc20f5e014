package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// StorageClient puts objects into a Supabase storage bucket.
type StorageClient interface {
	PutObject(ctx context.Context, bucket, objectPath, contentType string, data []byte) error
}

// HTTPClient is a StorageClient backed by the Supabase storage HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

func (c *HTTPClient) PutObject(ctx context.Context, bucket, objectPath, contentType string, data []byte) error {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if c.BaseURL == "" {
		return fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", base, url.PathEscape(bucket), escapePath(objectPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	// supabase-js sends the same key as apikey and bearer token
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		bodyStr := string(body)
		if resp.StatusCode == 400 || resp.StatusCode == 403 {
			if strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized") {
				return fmt.Errorf("supabase storage requires the service_role key, not the anon key (raw body: %s)", bodyStr)
			}
		}
		return fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// Service archives uploaded import files. A nil *Service or one with no bucket is disabled.
type Service struct {
	Client StorageClient
	Bucket string
	Now    func() time.Time
}

// Enabled reports whether uploads are archived at all.
func (s *Service) Enabled() bool {
	return s != nil && s.Client != nil && s.Bucket != ""
}

// Archive stores data under imports/<yyyy>/<mm>/<unixmilli>-<name> and returns that path.
func (s *Service) Archive(ctx context.Context, fileName string, data []byte) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now().UTC()
	objectPath := fmt.Sprintf("imports/%04d/%02d/%d-%s", t.Year(), int(t.Month()), t.UnixMilli(), path.Base(strings.ReplaceAll(fileName, "\\", "/")))
	if err := s.Client.PutObject(ctx, s.Bucket, objectPath, contentTypeFor(fileName), data); err != nil {
		return "", err
	}
	return objectPath, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	}
	return "application/octet-stream"
}
