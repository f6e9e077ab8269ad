package di

import (
	"fmt"
	"time"

	"SignalRelay/internal/domain/models"
	"SignalRelay/internal/domain/repository"
	api "SignalRelay/internal/handler/api"
	mid "SignalRelay/internal/middleware"
	internalrepo "SignalRelay/internal/repository"
	"SignalRelay/internal/service/cache"
	"SignalRelay/internal/service/finnhub"
	"SignalRelay/internal/service/forexfactory"
	"SignalRelay/internal/service/gemini"
	svcmetrics "SignalRelay/internal/service/metrics"
	"SignalRelay/internal/service/ratelimit"
	"SignalRelay/internal/service/telegram"
	"SignalRelay/internal/services/confluence"
	"SignalRelay/internal/services/narrative"
	"SignalRelay/internal/services/risk"
	"SignalRelay/internal/services/scoring"
	"SignalRelay/internal/usecase"
	"SignalRelay/pkg/config"
	xhttp "SignalRelay/pkg/http"
	pkgkafka "SignalRelay/pkg/kafka"
	"SignalRelay/pkg/logger"
	"SignalRelay/pkg/metrics"
	"SignalRelay/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideRedisCache returns the shared risk cache, or nil when redis is off.
func ProvideRedisCache(cfg *config.Config) *cache.RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	return cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
}

// ProvideEventPublisher streams lifecycle events to Kafka when enabled.
func ProvideEventPublisher(cfg *config.Config) (repository.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer), nil
}

// ProvideRiskProvider builds the fallback chain: Finnhub, then ForexFactory.
func ProvideRiskProvider(cfg *config.Config, log *logger.Logger, shared *cache.RedisCache) *risk.Provider {
	srcOpts := []risk.SourceOption{risk.WithMaxEntries(cfg.Risk.MaxEntries)}
	if len(cfg.Risk.Keywords) > 0 {
		srcOpts = append(srcOpts, risk.WithKeywords(cfg.Risk.Keywords))
	}

	var sources []repository.RiskSource
	if !cfg.Risk.Finnhub.Disabled {
		fh := finnhub.New(cfg.Risk.Finnhub.APIKey, cfg.Risk.Finnhub.BaseURL, cfg.Risk.Timeout)
		sources = append(sources, risk.NewFinnhubSource(fh, srcOpts...))
	}
	if !cfg.Risk.ForexFactory.Disabled {
		ff := forexfactory.New(cfg.Risk.ForexFactory.URL, cfg.Risk.Timeout)
		sources = append(sources, risk.NewForexFactorySource(ff, srcOpts...))
	}

	opts := []risk.Option{risk.WithTimeout(cfg.Risk.Timeout)}
	if shared != nil {
		opts = append(opts, risk.WithSharedCache(shared))
	}
	local := cache.NewTTLCache[models.RiskAssessment](cfg.Risk.CacheTTL)
	return risk.NewProvider(sources, local, log.With(logger.String("component", "risk")), opts...)
}

// ProvideConfluenceProvider creates the timeframe confluence lookup.
func ProvideConfluenceProvider(cfg *config.Config) *confluence.Provider {
	return confluence.NewProvider(cache.NewTTLCache[models.ConfluenceAssessment](cfg.Confluence.CacheTTL))
}

// ProvideNarrator wraps the Gemini client with retries and fallbacks.
func ProvideNarrator(cfg *config.Config, log *logger.Logger) *narrative.Generator {
	gen := gemini.New(gemini.Config{
		BaseURL:       cfg.LLM.BaseURL,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		Timeout:       cfg.LLM.Timeout,
		RatePerMinute: cfg.LLM.RatePerMinute,
	})
	return narrative.New(gen, log.With(logger.String("component", "narrative")),
		narrative.WithRetry(cfg.LLM.MaxAttempts, cfg.LLM.Backoff),
	)
}

// ProvideNotifier creates the Telegram notifier.
func ProvideNotifier(cfg *config.Config, log *logger.Logger) repository.Notifier {
	return telegram.New(telegram.Config{
		APIURL:    cfg.Telegram.APIURL,
		BotToken:  cfg.Telegram.BotToken,
		ChatID:    cfg.Telegram.ChatID,
		ParseMode: cfg.Telegram.ParseMode,
		Timeout:   cfg.Telegram.Timeout,
	}, log.With(logger.String("component", "telegram")))
}

// ProvideTradeStore creates the in-memory trade store.
func ProvideTradeStore(cfg *config.Config) repository.TradeStore {
	return internalrepo.NewMemoryTradeStore(cfg.Trades.TTL, time.Now)
}

// ProvideClusterStore creates the in-memory cluster store.
func ProvideClusterStore(cfg *config.Config) repository.ClusterStore {
	return internalrepo.NewMemoryClusterStore(cfg.Trades.TTL, time.Now)
}

// ProvideDispatcher creates the signal dispatcher use case.
func ProvideDispatcher(
	cfg *config.Config,
	log *logger.Logger,
	trades repository.TradeStore,
	clusters repository.ClusterStore,
	notifier repository.Notifier,
	pub repository.EventPublisher,
	m repository.Metrics,
	riskProvider *risk.Provider,
	confluenceProvider *confluence.Provider,
	narrator *narrative.Generator,
) *usecase.Dispatcher {
	return usecase.NewDispatcher(trades, clusters, notifier, pub, m,
		usecase.Enrichment{
			Risk:       riskProvider,
			Confluence: confluenceProvider,
			Scorer:     scoring.NewEngine(),
			Narrator:   narrator,
		},
		usecase.DispatcherConfig{
			Brand:            cfg.Telegram.Brand,
			NotifyDuplicates: cfg.Trades.NotifyDuplicates,
		},
		log.With(logger.String("component", "dispatcher")),
	)
}

// ProvideHTTPServer mounts the webhook and admin routes.
func ProvideHTTPServer(
	cfg *config.Config,
	log *logger.Logger,
	dispatcher *usecase.Dispatcher,
	riskProvider *risk.Provider,
	confluenceProvider *confluence.Provider,
) *xhttp.Server {
	throttle := mid.Throttle(ratelimit.New(), cfg.Webhook.RatePerSecond, cfg.Webhook.Burst, log)

	handlers := xhttp.Handlers{
		api.NewWebhookEchoHandler(log, dispatcher, cfg.Webhook.Path, cfg.Webhook.Timeout, throttle),
		api.NewAdminEchoHandler(log, dispatcher, riskProvider, confluenceProvider),
	}

	metricsPath := cfg.Metrics.Path
	if cfg.Metrics.Disabled {
		metricsPath = ""
	}
	return xhttp.NewServer(handlers, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	pub repository.EventPublisher,
	shared *cache.RedisCache,
) *server.App {
	resources := []server.Resource{{Name: "kafka", Close: pub.Close}}
	if shared != nil {
		resources = append(resources, server.Resource{Name: "redis", Close: shared.Close})
	}
	return server.New(cfg, log, srv, resources...)
}
