// Package kafka streams flat sales and weather records to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

// Publisher produces flat records to the sales and weather topics.
// It implements pipeline.RecordPublisher.
type Publisher struct {
	sales   *kafkago.Writer
	weather *kafkago.Writer
	logger  *slog.Logger
}

// NewPublisher creates producers for the configured topics.
func NewPublisher(brokers []string, salesTopic, weatherTopic string, logger *slog.Logger) *Publisher {
	newWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
		}
	}
	return &Publisher{
		sales:   newWriter(salesTopic),
		weather: newWriter(weatherTopic),
		logger:  logger,
	}
}

// PublishSales publishes every sales record as one JSON message, in a single
// WriteMessages call. The key is the record's merge key, so compacted topics
// keep the latest value per (location, person, product, hour).
func (p *Publisher) PublishSales(ctx context.Context, records []domain.SalesRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("serialize sales record: %w", err)
		}
		msgs[i] = kafkago.Message{
			Key:   salesKey(rec),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "table", Value: []byte("sales")},
			},
		}
	}
	return p.sales.WriteMessages(ctx, msgs...)
}

// PublishWeather publishes every weather record as one JSON message carrying
// the column names alongside the values.
func (p *Publisher) PublishWeather(ctx context.Context, weather domain.WeatherTable) error {
	if len(weather.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(weather.Records))
	for i, rec := range weather.Records {
		data, err := json.Marshal(weatherMessage{
			LocationID: rec.LocationID,
			Timestamp:  rec.Timestamp,
			Columns:    weather.Columns,
			Values:     rec.Values,
		})
		if err != nil {
			return fmt.Errorf("serialize weather record: %w", err)
		}
		msgs[i] = kafkago.Message{
			Key:   weatherKey(rec),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "table", Value: []byte("weather")},
			},
		}
	}
	return p.weather.WriteMessages(ctx, msgs...)
}

// Close closes both producers.
func (p *Publisher) Close() error {
	salesErr := p.sales.Close()
	weatherErr := p.weather.Close()
	if salesErr != nil {
		return salesErr
	}
	return weatherErr
}

type weatherMessage struct {
	LocationID int       `json:"location_id"`
	Timestamp  time.Time `json:"timestamp"`
	Columns    []string  `json:"columns"`
	Values     []float64 `json:"values"`
}

func salesKey(rec domain.SalesRecord) []byte {
	return fmt.Appendf(nil, "%d-%d-%d-%s",
		rec.LocationID, rec.PersonID, rec.ProductID, rec.Timestamp.UTC().Format(time.RFC3339))
}

func weatherKey(rec domain.WeatherRecord) []byte {
	return fmt.Appendf(nil, "%d-%s", rec.LocationID, rec.Timestamp.UTC().Format(time.RFC3339))
}
