// Package storage uploads finished recordings to the cloud media provider
// using signed credentials issued by the backend.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	ihttp "github.com/randalmurphal/interviewroom/http"
)

// DefaultURLTemplate is the provider's video upload endpoint. "{cloud_name}"
// is replaced with the account identifier from the credentials.
const DefaultURLTemplate = "https://api.cloudinary.com/v1_1/{cloud_name}/video/upload"

// Credentials are the signed-upload fields issued by the backend.
type Credentials struct {
	APIKey    string
	Timestamp int64
	Signature string
	Folder    string
	CloudName string
}

// Result describes an uploaded recording.
type Result struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Bytes     int64  `json:"bytes"`
}

// Config configures an Uploader.
type Config struct {
	// URLTemplate defaults to DefaultURLTemplate.
	URLTemplate string

	// HTTPClient defaults to a client with no timeout. Uploads of long
	// recordings can take minutes.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Uploader posts recordings as multipart forms.
type Uploader struct {
	client      *http.Client
	urlTemplate string
	logger      *slog.Logger
}

// NewUploader creates an Uploader.
func NewUploader(cfg Config) *Uploader {
	u := &Uploader{
		client:      cfg.HTTPClient,
		urlTemplate: cfg.URLTemplate,
		logger:      cfg.Logger,
	}
	if u.client == nil {
		u.client = &http.Client{}
	}
	if u.urlTemplate == "" {
		u.urlTemplate = DefaultURLTemplate
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	return u
}

// Endpoint returns the upload URL for a cloud account.
func (u *Uploader) Endpoint(cloudName string) string {
	return strings.ReplaceAll(u.urlTemplate, "{cloud_name}", cloudName)
}

// Upload streams the file in r to the provider. name is the file name
// reported in the form.
func (u *Uploader) Upload(ctx context.Context, creds Credentials, name string, r io.Reader) (*Result, error) {
	if creds.CloudName == "" {
		return nil, fmt.Errorf("upload: missing cloud name")
	}
	endpoint := u.Endpoint(creds.CloudName)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, creds, name, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, &ihttp.APIError{
			Service:    "storage",
			StatusCode: resp.StatusCode,
			Endpoint:   req.URL.Path,
			Message:    providerMessage(body, resp.Status),
		}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if result.SecureURL == "" {
		return nil, fmt.Errorf("upload response has no secure_url")
	}

	u.logger.Debug("recording uploaded", "url", result.SecureURL, "bytes", result.Bytes)
	return &result, nil
}

func writeForm(mw *multipart.Writer, creds Credentials, name string, r io.Reader) error {
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}

	fields := []struct{ key, value string }{
		{"api_key", creds.APIKey},
		{"timestamp", strconv.FormatInt(creds.Timestamp, 10)},
		{"signature", creds.Signature},
		{"folder", creds.Folder},
		{"resource_type", "video"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.key, f.value); err != nil {
			return fmt.Errorf("write %s field: %w", f.key, err)
		}
	}

	return mw.Close()
}

// providerMessage extracts {"error":{"message": ...}} from an error body.
func providerMessage(body []byte, fallback string) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 512 {
		return s
	}
	return fallback
}
