package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"SpikeWatch/internal/domain/repository"
	"SpikeWatch/internal/engine"
	"SpikeWatch/internal/handler/api"
	internalrepo "SpikeWatch/internal/repository"
	"SpikeWatch/internal/service/cooldown"
	"SpikeWatch/internal/service/polygon"
	"SpikeWatch/internal/service/telegram"
	"SpikeWatch/internal/usecase"
	"SpikeWatch/pkg/cache"
	pkgch "SpikeWatch/pkg/clickhouse"
	"SpikeWatch/pkg/config"
	xhttp "SpikeWatch/pkg/http"
	pkgkafka "SpikeWatch/pkg/kafka"
	applogger "SpikeWatch/pkg/logger"
	"SpikeWatch/pkg/metrics"
	"SpikeWatch/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBaselines loads the per-symbol historical statistics file.
func ProvideBaselines(cfg *config.Config, l *applogger.Logger) (repository.BaselineStore, error) {
	store, err := internalrepo.LoadCSVBaselines(cfg.Scanner.BaselinePath, l)
	if err != nil {
		return nil, fmt.Errorf("baselines: %w", err)
	}
	return store, nil
}

// ProvideMarketStream creates the Polygon WebSocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return polygon.New(
		cfg.Polygon.APIKey,
		cfg.Polygon.WebSocketURL,
		cfg.Polygon.Symbols,
		cfg.Polygon.SubscribeAll,
		cfg.Polygon.Quotes,
		cfg.Polygon.ReconnectDelay,
		cfg.Polygon.PingInterval,
	)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// schema exists. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append(append([]string{}, internalrepo.AlertSchema...), internalrepo.BarSchema...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideAlertStore creates the ClickHouse alert repository, or nil when
// ClickHouse is disabled.
func ProvideAlertStore(chClient *pkgch.Client, l *applogger.Logger) repository.AlertStore {
	if chClient == nil {
		return nil
	}
	store := internalrepo.NewCHAlertStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideBarRecorder creates the ClickHouse bar recorder, or nil when
// ClickHouse is disabled.
func ProvideBarRecorder(chClient *pkgch.Client) usecase.BarRecorder {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewCHBarRecorder(chClient)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertPublisher creates the Kafka alert publisher, or nil when
// Kafka is disabled.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.Topic)
}

// ProvideNotifier creates the Telegram notifier, or nil when Telegram is
// disabled.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger) repository.Notifier {
	if !cfg.Telegram.Enabled {
		return nil
	}
	return telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.QueueSize, l)
}

// ProvideCooldown creates the alert dedup store. Redis when enabled so
// restarts do not re-alert, in-memory otherwise.
func ProvideCooldown(cfg *config.Config) (repository.CooldownStore, error) {
	if cfg.Redis.Enabled {
		store, err := cooldown.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("redis cooldown: %w", err)
		}
		return store, nil
	}
	return cooldown.NewMemoryStore(), nil
}

// ProvideEngine creates the stage detection engine with session-default
// thresholds.
func ProvideEngine(baselines repository.BaselineStore, m repository.Metrics, l *applogger.Logger) *engine.Engine {
	return engine.New(baselines, m, l, nil)
}

// ProvideAlertEmitter creates the alert fan-out use case.
func ProvideAlertEmitter(
	notifier repository.Notifier,
	store repository.AlertStore,
	pub repository.AlertPublisher,
	cd repository.CooldownStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AlertEmitter {
	return usecase.NewAlertEmitter(notifier, store, pub, cd, m, l)
}

// ProvideScanner creates the live detection loop.
func ProvideScanner(
	stream repository.MarketStream,
	eng *engine.Engine,
	emitter *usecase.AlertEmitter,
	recorder usecase.BarRecorder,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.Scanner {
	return usecase.NewScanner(stream, eng, emitter, recorder, l, cfg.Scanner.Sessions)
}

// ProvideCache creates the API response cache. Layered over Redis when
// Redis is enabled so replicas share entries, in-memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = 6379
	}
	return host, port
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	store repository.AlertStore,
	baselines repository.BaselineStore,
	scanner *usecase.Scanner,
	cacheSvc cache.Service,
) xhttp.Handler {
	return api.NewAlertsEchoHandler(l, store, baselines, scanner, cacheSvc)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scanner *usecase.Scanner,
	notifier repository.Notifier,
	store repository.AlertStore,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, scanner, notifier, store, producer, chClient, handler)
}
