package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"vinyl-store/internal/breaker"
	"vinyl-store/internal/config"
	"vinyl-store/internal/domain"
	"vinyl-store/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// pushMessage is the Expo push API payload
type pushMessage struct {
	To    string            `json:"to"`
	Sound string            `json:"sound"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type expoSender struct {
	endpoint string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewExpoSender(cfg config.PushConfig, log *zap.Logger) Sender {
	return &expoSender{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		cb:       breaker.New("expo-push", log),
		logger:   log,
		tracer:   otel.Tracer("notification/push"),
	}
}

func (s *expoSender) Send(ctx context.Context, n *domain.Notification) error {
	ctx, span := s.tracer.Start(ctx, "expo.Send")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", n.Data["order_id"]))

	payload, err := json.Marshal(pushMessage{
		To:    n.Recipient,
		Sound: "default",
		Title: n.Data["title"],
		Body:  n.Data["body"],
		Data:  map[string]string{"orderId": n.Data["order_id"]},
	})
	if err != nil {
		return fmt.Errorf("failed to encode push message: %w", err)
	}

	_, err = breaker.Execute(s.cb, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return struct{}{}, fmt.Errorf("expo responded %d: %s", resp.StatusCode, body)
		}
		return struct{}{}, nil
	})
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, s.logger, "Error sending push notification", zap.Error(err))
		return fmt.Errorf("failed to send push: %w", err)
	}

	logger.Info(ctx, s.logger, "Push notification sent", zap.String("order_id", n.Data["order_id"]))
	return nil
}
