package main

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	alertapi "github.com/telemon/telemon/internal/alerting/api"
	"github.com/telemon/telemon/internal/alerting/cache"
	adb "github.com/telemon/telemon/internal/alerting/database"
	"github.com/telemon/telemon/internal/alerting/model"
	"github.com/telemon/telemon/internal/alerting/service/engine"
	"github.com/telemon/telemon/internal/alerting/service/notify"
	"github.com/telemon/telemon/internal/alerting/service/ruleset"
	"github.com/telemon/telemon/internal/collector"
	"github.com/telemon/telemon/internal/config"
	"github.com/telemon/telemon/internal/middleware"
)

func main() {
	log.Info().Msg("Starting telemon monitoring server")
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// notification fan-out
	dispatcher := notify.NewDispatcher(parseDuration(cfg.Monitor.NotifyTimeout, 10*time.Second))
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tg := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err := tg.TestConnection(ctx); err != nil {
			log.Error().Err(err).Msg("telegram connection check failed; registering notifier anyway")
		}
		dispatcher.Register(tg)
	}
	for _, wh := range cfg.Webhooks {
		if wh.URL == "" {
			continue
		}
		dispatcher.Register(notify.NewWebhookNotifier(wh.Name, wh.Type, wh.URL))
	}
	if cfg.Kafka.Brokers != "" {
		kn, kerr := notify.NewKafkaNotifier(strings.Split(cfg.Kafka.Brokers, ","), cfg.Kafka.Topic)
		if kerr != nil {
			log.Error().Err(kerr).Msg("kafka notifier init failed")
		} else {
			defer kn.Close()
			dispatcher.Register(kn)
		}
	}

	// optional durable archive for resolved alerts
	opts := []engine.Option{engine.WithMaxHistory(cfg.Monitor.HistoryLimit)}
	if cfg.Database.Host != "" {
		if db, derr := adb.New(cfg.Database.DSN()); derr == nil {
			defer db.Close()
			dao := adb.NewHistoryDAO(db)
			if err := dao.EnsureSchema(ctx); err != nil {
				log.Error().Err(err).Msg("alert history schema init failed")
			}
			opts = append(opts, engine.WithResolvedHook(func(a model.Alert) {
				archiveCtx, archiveCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer archiveCancel()
				if err := dao.InsertAlert(archiveCtx, &a); err != nil {
					log.Error().Err(err).Str("alert_id", a.ID).Msg("alert archive failed")
				}
			}))
		} else {
			log.Error().Err(derr).Msg("history DB init failed; running with in-memory history only")
		}
	}

	// optional redis mirror of the active alert set
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		alertCache := cache.NewRedisCache(rdb)
		defer alertCache.Close()
		onFired, onResolved := cache.EngineHooks(alertCache)
		opts = append(opts, engine.WithFiredHook(onFired), engine.WithResolvedHook(onResolved))
	}

	mgr := engine.NewManager(dispatcher, opts...)
	if cfg.Monitor.DefaultRules {
		if err := mgr.AddDefaultRules(); err != nil {
			log.Fatal().Err(err).Msg("failed to register default rules")
		}
	}
	if cfg.Monitor.RulesFile != "" {
		if _, err := ruleset.Bootstrap(cfg.Monitor.RulesFile, mgr); err != nil {
			log.Error().Err(err).Msg("bootstrap rules from file failed")
		}
		go func() {
			if err := ruleset.Watch(ctx, cfg.Monitor.RulesFile, mgr); err != nil {
				log.Error().Err(err).Msg("rules file watcher stopped")
			}
		}()
	}

	// metric collection loop driving the engine
	src, err := collector.NewPrometheusCollector(
		cfg.Prometheus.URL,
		parseDuration(cfg.Prometheus.QueryTimeout, 30*time.Second),
		nil,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create prometheus collector")
	}
	go collector.StartScheduler(ctx, collector.Deps{
		Source:   src,
		Engine:   mgr,
		Interval: parseDuration(cfg.Monitor.Interval, 30*time.Second),
	})

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.Authentication(cfg.Server.AuthToken))
	alertapi.NewApi(router, mgr)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start telemon server failed.")
	}
	log.Info().Msg("telemon server exit...")
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
