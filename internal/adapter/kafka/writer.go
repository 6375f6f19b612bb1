// Package kafka publishes finished swell forecasts to a downstream sink
// topic, the same producer role the teacher's loader played for transformed
// storm events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/config"
	"github.com/stonezone/surfcast-fusion/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces finished SwellForecast messages to the sink topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes a finished forecast to the sink topic.
func (w *Writer) Publish(ctx context.Context, forecast *domain.SwellForecast) error {
	msg, err := serializeToMessage(forecast)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish forecast: %w", err)
	}
	w.logger.Info("forecast published", "forecast_id", forecast.ForecastID, "events", len(forecast.Events))
	return nil
}

// Close flushes and closes the underlying producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SwellForecast into a Kafka message.
func serializeToMessage(forecast *domain.SwellForecast) (kafkago.Message, error) {
	data, err := json.Marshal(forecast)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(forecast.ForecastID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "generated_at", Value: []byte(forecast.Generated.Format(time.RFC3339))},
		},
	}, nil
}
