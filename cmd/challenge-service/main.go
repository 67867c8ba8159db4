package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bankroll-challenges/internal/challenge-service/cache"
	chttp "github.com/radieske/bankroll-challenges/internal/challenge-service/http"
	kpub "github.com/radieske/bankroll-challenges/internal/challenge-service/producer"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/pubsub"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/repo"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/service"
	"github.com/radieske/bankroll-challenges/internal/challenge-service/ws"
	sharedcache "github.com/radieske/bankroll-challenges/internal/shared/cache"
	"github.com/radieske/bankroll-challenges/internal/shared/config"
	"github.com/radieske/bankroll-challenges/internal/shared/db"
	"github.com/radieske/bankroll-challenges/internal/shared/kafka"
	"github.com/radieske/bankroll-challenges/internal/shared/logger"
	"github.com/radieske/bankroll-challenges/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "challenge-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if cfg.RunMigrations {
		if err := repo.Migrate(ctx, pg); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		log.Info("schema migrated")
	}
	store := repo.NewPostgres(pg)

	// Redis: cache de visões + pub/sub do WebSocket
	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer (tópico challenge_activity)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicActivity)
	defer writer.Close()
	log.Info("kafka writer ready", zap.String("topic", cfg.TopicActivity))

	// Métricas Prometheus
	created := prometheus.NewCounter(prometheus.CounterOpts{Name: "challenge_service_challenges_created_total", Help: "desafios criados"})
	statusBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "challenge_service_status_changes_total", Help: "arquivamentos/reaberturas por status"}, []string{"status"})
	placed := prometheus.NewCounter(prometheus.CounterOpts{Name: "challenge_service_bets_placed_total", Help: "apostas registradas"})
	settledBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "challenge_service_bets_settled_total", Help: "resultados gravados por resultado"}, []string{"result"})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{Name: "challenge_service_bets_deleted_total", Help: "apostas removidas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "challenge_service_errors_total", Help: "erros por operação"}, []string{"op"})
	prometheus.MustRegister(created, statusBy, placed, settledBy, deleted, errorsBy)

	svc := service.New(log, store,
		service.WithViewCache(cache.NewViewCache(rdb, cfg.ViewCacheTTL)),
		service.WithPublisher(kpub.NewKafkaPublisher(writer, cfg.TopicActivity)),
		service.WithNotifier(pubsub.NewRedisNotifier(rdb, cfg.ChallengeUpdatesChannel)),
		service.WithHooks(service.Hooks{
			OnChallengeCreated: func() { created.Inc() },
			OnStatusChanged:    func(s string) { statusBy.WithLabelValues(s).Inc() },
			OnBetPlaced:        func() { placed.Inc() },
			OnBetSettled:       func(r string) { settledBy.WithLabelValues(r).Inc() },
			OnBetDeleted:       func() { deleted.Inc() },
			OnError:            func(op string) { errorsBy.WithLabelValues(op).Inc() },
		}),
	)

	// WebSocket: só o dono do desafio pode se inscrever
	hub := ws.NewHub(log, allowOrigin(cfg.CORSAllowOrigin), func(ctx context.Context, userID, challengeID string) (bool, error) {
		_, err := store.GetChallenge(ctx, userID, challengeID)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	})
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.ChallengeUpdatesChannel, hub)

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": store.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	// HTTP público
	api := &chttp.API{Log: log, Svc: svc, WS: http.HandlerFunc(hub.HandleWS), CORSAllowOrigin: cfg.CORSAllowOrigin}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("challenge-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("api shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics shutdown", zap.Error(err))
	}
	log.Info("challenge-service stopped")
}

// allowOrigin aplica CORS_ALLOW_ORIGIN também no upgrade do WebSocket
func allowOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}
