package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config keys.
const (
	KeyAPIURL            = "api_url"
	KeyPollInterval      = "poll_interval"
	KeyUploadURLTemplate = "upload_url_template"
	KeyDataDir           = "data_dir"
	KeySTTURL            = "stt_url"
	KeySTTAPIKey         = "stt_api_key"
	KeyCaptureArgs       = "capture_args"
	KeyCaptureExt        = "capture_ext"
	KeyWebhookURL        = "webhook_url"
	KeySlackWebhookURL   = "slack_webhook_url"
	KeyLogLevel          = "log_level"
	KeyRequestTimeout    = "request_timeout"
	KeyMaxRetries        = "max_retries"

	KeyRecordingRetentionDays = "recording_retention_days"
)

// Names used for the resolver and saver.
const (
	AppDir          = "interviewroom"
	LocalConfigName = ".interviewroom.yaml"
	EnvPrefix       = "INTERVIEWROOM_"
)

// Defaults are the built-in values.
var Defaults = map[string]string{
	KeyAPIURL:            "http://localhost:8000",
	KeyPollInterval:      "4s",
	KeyUploadURLTemplate: "https://api.cloudinary.com/v1_1/{cloud_name}/video/upload",
	KeyDataDir:           "",
	KeySTTURL:            "",
	KeySTTAPIKey:         "",
	KeyCaptureArgs:       "",
	KeyCaptureExt:        "webm",
	KeyWebhookURL:        "",
	KeySlackWebhookURL:   "",
	KeyLogLevel:          "info",
	KeyRequestTimeout:    "0s",
	KeyMaxRetries:        "1",

	KeyRecordingRetentionDays: "7",
}

// Keys lists every recognized key in display order.
var Keys = []string{
	KeyAPIURL,
	KeyPollInterval,
	KeyUploadURLTemplate,
	KeyDataDir,
	KeySTTURL,
	KeySTTAPIKey,
	KeyCaptureArgs,
	KeyCaptureExt,
	KeyWebhookURL,
	KeySlackWebhookURL,
	KeyLogLevel,
	KeyRequestTimeout,
	KeyMaxRetries,
	KeyRecordingRetentionDays,
}

// Secret reports whether key holds a credential that should be masked
// when printed.
func Secret(key string) bool {
	return key == KeySTTAPIKey || key == KeySlackWebhookURL
}

// Client is the typed client configuration.
type Client struct {
	APIURL            string
	PollInterval      time.Duration
	UploadURLTemplate string
	DataDir           string
	STTURL            string
	STTAPIKey         string
	CaptureArgs       string
	CaptureExt        string
	WebhookURL        string
	SlackWebhookURL   string
	LogLevel          slog.Level

	// RequestTimeout of zero means backend calls are not bounded
	// client-side.
	RequestTimeout time.Duration
	MaxRetries     int

	// RecordingRetentionDays is how long a recording that never reached
	// storage stays in RecordingDir. Uploaded recordings are removed at
	// once.
	RecordingRetentionDays int
}

// NewClientResolver returns the resolver for the interviewroom client.
func NewClientResolver() *Resolver {
	return NewResolver(ResolverConfig{
		EnvPrefix:       EnvPrefix,
		GlobalConfigDir: AppDir,
		LocalConfigName: LocalConfigName,
		Defaults:        Defaults,
		ValidKeys:       Keys,
	})
}

// NewSaver returns the saver for the interviewroom client.
func NewSaver() SaveConfig {
	return SaveConfig{
		GlobalConfigDir: AppDir,
		LocalConfigName: LocalConfigName,
		ValidGlobalKeys: Keys,
		ValidLocalKeys:  Keys,
	}
}

// Load resolves and parses the client configuration.
func Load(flags map[string]string) (*Client, error) {
	return Parse(NewClientResolver().ResolveWithFlags(flags))
}

// Parse builds a Client from resolved values.
func Parse(r *Resolved) (*Client, error) {
	c := &Client{
		APIURL:            strings.TrimRight(r.Get(KeyAPIURL), "/"),
		UploadURLTemplate: r.Get(KeyUploadURLTemplate),
		DataDir:           r.Get(KeyDataDir),
		STTURL:            r.Get(KeySTTURL),
		STTAPIKey:         r.Get(KeySTTAPIKey),
		CaptureArgs:       r.Get(KeyCaptureArgs),
		CaptureExt:        strings.TrimPrefix(r.Get(KeyCaptureExt), "."),
		WebhookURL:        r.Get(KeyWebhookURL),
		SlackWebhookURL:   r.Get(KeySlackWebhookURL),
	}

	if c.APIURL == "" {
		return nil, fmt.Errorf("%s is required", KeyAPIURL)
	}

	var err error
	if c.PollInterval, err = parseDuration(r, KeyPollInterval); err != nil {
		return nil, err
	}
	if c.PollInterval <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", KeyPollInterval, c.PollInterval)
	}
	if c.RequestTimeout, err = parseDuration(r, KeyRequestTimeout); err != nil {
		return nil, err
	}

	if v := r.Get(KeyMaxRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s: invalid value %q (from %s)", KeyMaxRetries, v, r.Source(KeyMaxRetries))
		}
		c.MaxRetries = n
	}
	if v := r.Get(KeyRecordingRetentionDays); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s: invalid value %q (from %s)", KeyRecordingRetentionDays, v, r.Source(KeyRecordingRetentionDays))
		}
		c.RecordingRetentionDays = n
	}

	if v := r.Get(KeyLogLevel); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("%s: invalid value %q (from %s)", KeyLogLevel, v, r.Source(KeyLogLevel))
		}
	}

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	return c, nil
}

func parseDuration(r *Resolved, key string) (time.Duration, error) {
	v := r.Get(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q (from %s)", key, v, r.Source(key))
	}
	return d, nil
}

// DefaultDataDir is ~/.local/share/interviewroom, or a directory under the
// system temp dir when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppDir)
	}
	return filepath.Join(home, ".local", "share", AppDir)
}

// TranscriptDir is where exported transcripts are written.
func (c *Client) TranscriptDir() string {
	return filepath.Join(c.DataDir, "transcripts")
}

// RecordingDir is where recordings are written before upload. Retention
// is managed by package artifact.
func (c *Client) RecordingDir() string {
	return filepath.Join(c.DataDir, "recordings")
}
