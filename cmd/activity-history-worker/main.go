package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bankroll-challenges/internal/activity-history/consumer"
	"github.com/radieske/bankroll-challenges/internal/activity-history/repository"
	"github.com/radieske/bankroll-challenges/internal/shared/config"
	"github.com/radieske/bankroll-challenges/internal/shared/db"
	"github.com/radieske/bankroll-challenges/internal/shared/kafka"
	"github.com/radieske/bankroll-challenges/internal/shared/logger"
	"github.com/radieske/bankroll-challenges/internal/shared/metrics"
)

const consumerGroup = "activity-history"

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "activity-history-worker"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	repo := repository.NewPostgresRepo(pg)
	if cfg.RunMigrations {
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	// Consumer group activity-history + writer da DLQ
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicActivity, consumerGroup)
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicActivityDLQ)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_history_messages_consumed_total", Help: "mensagens consumidas"})
	persisted := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_history_persisted_total", Help: "atividades gravadas"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_history_duplicates_total", Help: "reentregas ignoradas"})
	dead := prometheus.NewCounter(prometheus.CounterOpts{Name: "activity_history_dead_lettered_total", Help: "mensagens enviadas para a DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "activity_history_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persisted, duplicates, dead, errorsBy)

	proc := &consumer.Processor{
		Log:            log,
		Reader:         reader,
		Repo:           repo,
		DLQ:            dlq,
		OnConsumed:     func() { consumed.Inc() },
		OnPersisted:    func() { persisted.Inc() },
		OnDuplicate:    func() { duplicates.Inc() },
		OnDeadLettered: func() { dead.Inc() },
		OnError:        func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": repo.Ping,
	})

	log.Info("activity-history-worker started",
		zap.String("consume", cfg.TopicActivity),
		zap.String("dlq", cfg.TopicActivityDLQ),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("activity-history-worker stopped")
}
