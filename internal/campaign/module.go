package campaign

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/event"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/inbound"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/outbound"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/store"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/usecase"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/watcher"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgconfig"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgrouter"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgroutine"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkguid"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
	JobID     pkguid.NumberID
}

func New(dep Dependency) (func(context.Context) error, error) {
	cfg := dep.Config
	ctx := dep.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}
	if dep.JobID == nil {
		sf, err := pkguid.NewSnowflake()
		if err != nil {
			return nil, err
		}
		dep.JobID = sf
	}

	gw, err := newGateway(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueSize := int(cfg.GetInt("modules.campaign.insight.queue_size"))
	if queueSize <= 0 {
		queueSize = 512
	}
	bus := event.NewBus(queueSize)

	uc, err := usecase.New(usecase.Dependency{
		Store:          store.NewInMemoryStore(),
		Jobs:           store.NewInMemoryJobStore(),
		Gateway:        gw,
		Events:         bus,
		Runner:         dep.Goroutine,
		FileID:         dep.ID,
		JobID:          dep.JobID,
		RootCtx:        ctx,
		MaxUploadBytes: cfg.GetInt("modules.campaign.upload.max_bytes"),
		Insight: usecase.InsightConfig{
			AuditSample:   int(cfg.GetInt("modules.campaign.insight.sample.audit")),
			SearchSample:  int(cfg.GetInt("modules.campaign.insight.sample.search")),
			PredictSample: int(cfg.GetInt("modules.campaign.insight.sample.predict")),
			Language:      cfg.GetString("modules.campaign.insight.language"),
			Timeout:       cfg.GetDuration("modules.campaign.insight.timeout"),
		},
	})
	if err != nil {
		return nil, err
	}

	consumer := event.NewInsightConsumer(bus, uc, event.ConsumerConfig{
		Workers:     int(cfg.GetInt("modules.campaign.insight.workers")),
		MaxRetries:  int(cfg.GetInt("modules.campaign.insight.max_retries")),
		BaseBackoff: cfg.GetDuration("modules.campaign.insight.base_backoff"),
	})
	consumer.Start()

	inbound.RegisterHTTPEndpoint(dep.Router, uc, cfg.GetInt("modules.campaign.upload.max_bytes"))

	var inbox *watcher.Inbox
	if dir := cfg.GetString("modules.campaign.inbox.dir"); dir != "" {
		inbox, err = watcher.NewInbox(watcher.Config{
			Dir:      dir,
			Debounce: cfg.GetDuration("modules.campaign.inbox.debounce"),
		}, uc)
		if err == nil {
			err = inbox.Start(ctx)
		}
		if err != nil {
			if inbox != nil {
				inbox.Stop()
			}
			_ = consumer.Stop(ctx)
			return nil, err
		}
	}

	return func(ctx context.Context) error {
		if inbox != nil {
			inbox.Stop()
		}
		return consumer.Stop(ctx)
	}, nil
}

// newGateway returns a nil gateway when no API key is configured; insight
// jobs then fail with a clear message instead of blocking startup.
func newGateway(ctx context.Context, cfg pkgconfig.Config) (usecase.Gateway, error) {
	provider := cfg.GetString("gateway.provider")
	gw, err := outbound.New(ctx, outbound.Config{
		Provider: provider,
		Gemini: outbound.GeminiConfig{
			APIKey:       cfg.GetString("gateway.gemini.api_key"),
			Model:        cfg.GetString("gateway.gemini.model"),
			PredictModel: cfg.GetString("gateway.gemini.predict_model"),
		},
		OpenRouter: outbound.OpenRouterConfig{
			APIKey:       cfg.GetString("gateway.openrouter.api_key"),
			BaseURL:      cfg.GetString("gateway.openrouter.base_url"),
			Model:        cfg.GetString("gateway.openrouter.model"),
			PredictModel: cfg.GetString("gateway.openrouter.predict_model"),
			Timeout:      cfg.GetDuration("gateway.openrouter.timeout"),
			MaxAttempts:  int(cfg.GetInt("gateway.openrouter.max_attempts")),
			BaseDelay:    cfg.GetDuration("gateway.openrouter.base_delay"),
			MaxDelay:     cfg.GetDuration("gateway.openrouter.max_delay"),
		},
	})
	if errors.Is(err, outbound.ErrNotConfigured) {
		slog.WarnContext(ctx, "insight gateway is not configured", "provider", provider)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "insight gateway ready", "provider", provider)
	return gw, nil
}
