package context

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/randalmurphal/interviewroom/auth"
	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/config"
	"github.com/randalmurphal/interviewroom/notify"
	"github.com/randalmurphal/interviewroom/prompt"
	"github.com/randalmurphal/interviewroom/store"
)

// Services wraps the client services for convenient initialization
type Services struct {
	Config   *config.Client
	Backend  *backend.Client
	Store    *store.Store
	Prompts  *prompt.Loader
	Session  *auth.Session   // nil when not logged in
	Notifier notify.Notifier // Optional notification service
}

// InjectAll adds all configured services to the context
func (s *Services) InjectAll(ctx context.Context) context.Context {
	if s.Config != nil {
		ctx = WithConfig(ctx, s.Config)
	}
	if s.Backend != nil {
		ctx = WithBackend(ctx, s.Backend)
	}
	if s.Store != nil {
		ctx = WithStore(ctx, s.Store)
	}
	if s.Prompts != nil {
		ctx = WithPrompt(ctx, s.Prompts)
	}
	if s.Session != nil {
		ctx = WithSession(ctx, s.Session)
	}
	if s.Notifier != nil {
		ctx = notify.WithNotifier(ctx, s.Notifier)
	}
	return ctx
}

// NewServices opens the local store, restores a saved login, and builds a
// backend client carrying its token. An expired or unreadable login leaves
// Session nil rather than failing.
func NewServices(ctx context.Context, cfg *config.Client, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(store.DefaultDBPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:   cfg,
		Store:    st,
		Prompts:  prompt.NewLoader(filepath.Join(cfg.DataDir, "prompts")),
		Notifier: NewNotifier(cfg, logger),
	}

	creds, err := st.LoadCredentials(ctx)
	switch {
	case errors.Is(err, store.ErrNoToken):
	case err != nil:
		st.Close()
		return nil, fmt.Errorf("load credentials: %w", err)
	default:
		sess, err := auth.NewSession(creds.Token, creds.Identity, time.Now())
		if err != nil {
			logger.Warn("saved login rejected", "token", auth.Fingerprint(creds.Token), "error", err)
		} else {
			s.Session = sess
		}
	}

	s.Backend = NewBackend(cfg, s.Session, logger)
	return s, nil
}

// NewBackend builds a backend client, authenticated when sess is non-nil.
func NewBackend(cfg *config.Client, sess *auth.Session, logger *slog.Logger) *backend.Client {
	bc := backend.Config{
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	}
	if sess != nil {
		bc.Token = sess.Token()
	}
	return backend.New(bc)
}

// NewNotifier fans out to the log and to any configured webhook or Slack
// endpoint. Slack only hears about session outcomes.
func NewNotifier(cfg *config.Client, logger *slog.Logger) notify.Notifier {
	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL, nil))
	}
	if cfg.SlackWebhookURL != "" {
		slack := notify.NewSlackNotifier(cfg.SlackWebhookURL, notify.WithSlackUsername("interviewroom"))
		notifiers = append(notifiers, notify.NewFilterNotifier(slack, notify.OutcomeEvents...))
	}
	if len(notifiers) == 1 {
		return notifiers[0]
	}
	multi := notify.NewMultiNotifier(notifiers...)
	multi.Logger = logger
	return multi
}

// Close releases the local store.
func (s *Services) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
