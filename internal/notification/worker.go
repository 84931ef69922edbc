package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vinyl-store/internal/config"
	"vinyl-store/internal/domain"
	"vinyl-store/internal/logger"
	"vinyl-store/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const sentKeyTTL = 24 * time.Hour

// Dispatcher routes a notification to the sender for its kind
type Dispatcher struct {
	email Sender
	push  Sender
}

func NewDispatcher(email, push Sender) *Dispatcher {
	return &Dispatcher{email: email, push: push}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) error {
	if n.Kind == domain.NotifyPush {
		return d.push.Send(ctx, n)
	}
	if n.Kind.IsEmail() {
		return d.email.Send(ctx, n)
	}
	return fmt.Errorf("unknown notification kind %q", n.Kind)
}

// Worker drains the notification outbox
type Worker struct {
	repo       repository.NotificationRepository
	transactor repository.Transactor
	dispatcher *Dispatcher
	redis      *redis.Client
	cfg        config.NotifyConfig
	logger     *zap.Logger
	tracer     trace.Tracer
	done       chan struct{}
}

func NewWorker(
	repo repository.NotificationRepository,
	transactor repository.Transactor,
	dispatcher *Dispatcher,
	redisClient *redis.Client,
	cfg config.NotifyConfig,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:       repo,
		transactor: transactor,
		dispatcher: dispatcher,
		redis:      redisClient,
		cfg:        cfg,
		logger:     log,
		tracer:     otel.Tracer("notification/worker"),
		done:       make(chan struct{}),
	}
}

// Start polls until ctx is cancelled. Call Wait to block until it returns.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()

		w.logger.Info("Notification worker started", zap.Duration("poll_interval", w.cfg.PollInterval))
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("Notification worker stopped")
				return
			case <-ticker.C:
				if _, err := w.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					w.logger.Error("Notification batch failed", zap.Error(err))
				}
			}
		}
	}()
}

func (w *Worker) Wait() {
	<-w.done
}

// ProcessBatch claims pending rows and dispatches them, returning how many
// were delivered.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	ctx, span := w.tracer.Start(ctx, "NotificationWorker.ProcessBatch")
	defer span.End()

	delivered := 0
	err := w.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		batch, err := w.repo.ClaimBatch(ctx, tx, w.cfg.BatchSize, w.cfg.MaxAttempts)
		if err != nil {
			return err
		}

		for _, n := range batch {
			if err := w.deliver(ctx, n); err != nil {
				logger.Warn(ctx, w.logger, "Notification delivery failed",
					zap.String("id", n.ID.String()),
					zap.String("kind", string(n.Kind)),
					zap.Int("attempt", n.Attempts+1),
					zap.Error(err),
				)
				if err := w.repo.MarkFailed(ctx, tx, n.ID, err.Error()); err != nil {
					return err
				}
				continue
			}

			if err := w.repo.MarkDispatched(ctx, tx, n.ID); err != nil {
				return err
			}
			delivered++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to process notification batch: %w", err)
	}

	span.SetAttributes(attribute.Int("delivered", delivered))
	return delivered, nil
}

// deliver sends n unless a previous batch already did and failed to commit
func (w *Worker) deliver(ctx context.Context, n *domain.Notification) error {
	key := sentKey(n)

	if w.redis != nil {
		exists, err := w.redis.Exists(ctx, key).Result()
		if err != nil {
			logger.Warn(ctx, w.logger, "Dedup lookup failed", zap.Error(err))
		} else if exists > 0 {
			logger.Debug(ctx, w.logger, "Notification already sent", zap.String("id", n.ID.String()))
			return nil
		}
	}

	if err := w.dispatcher.Dispatch(ctx, n); err != nil {
		return err
	}

	if w.redis != nil {
		if err := w.redis.Set(ctx, key, 1, sentKeyTTL).Err(); err != nil {
			logger.Warn(ctx, w.logger, "Failed to record sent notification", zap.Error(err))
		}
	}
	return nil
}

func sentKey(n *domain.Notification) string {
	return "notification_sent:" + n.ID.String()
}
