package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"github.com/TheOksigen/autopart-backend/internal/events"
	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/services"
)

// BulkIngester runs a JSON array of product records through the ingestion pipeline
type BulkIngester interface {
	IngestJSON(ctx context.Context, body []byte) (*models.IngestionReport, error)
}

// BulkIngestSubscriber consumes catalog.bulk.requested messages
type BulkIngestSubscriber struct {
	js           jetstream.JetStream
	ingester     BulkIngester
	logger       *logrus.Entry
	consumerName string
	cancel       context.CancelFunc
}

// NewBulkIngestSubscriber creates a subscriber sharing the publisher's JetStream context.
// Every replica binds to the same durable consumer so each request is ingested once.
func NewBulkIngestSubscriber(js jetstream.JetStream, ingester BulkIngester, logger *logrus.Logger) *BulkIngestSubscriber {
	return &BulkIngestSubscriber{
		js:           js,
		ingester:     ingester,
		logger:       logger.WithField("component", "bulk-ingest-subscriber"),
		consumerName: "bulk-ingester",
	}
}

// Start creates the durable consumer and processes messages until ctx is cancelled or Stop is called
func (s *BulkIngestSubscriber) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, events.StreamCatalog, jetstream.ConsumerConfig{
		Durable:       s.consumerName,
		FilterSubject: events.SubjectBulkRequested,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       5 * time.Minute,
		MaxDeliver:    3,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create bulk ingest consumer: %w", err)
	}

	msgs, err := consumer.Messages()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to get bulk ingest messages iterator: %w", err)
	}

	go s.consume(ctx, msgs)

	s.logger.WithField("subject", events.SubjectBulkRequested).Info("Bulk ingest subscriber started")
	return nil
}

// Stop ends consumption
func (s *BulkIngestSubscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *BulkIngestSubscriber) consume(ctx context.Context, msgs jetstream.MessagesContext) {
	go func() {
		<-ctx.Done()
		msgs.Stop()
	}()

	for {
		msg, err := msgs.Next()
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgIteratorClosed) || ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Warn("Error getting next bulk ingest message")
			time.Sleep(time.Second)
			continue
		}

		s.settle(msg, s.handleMessage(ctx, msg.Data()))
	}
}

// settler is the acknowledgement half of jetstream.Msg
type settler interface {
	Ack() error
	Term() error
}

// settle acks a handled request and terminates a failed one. A batch that
// failed part way has already stored some products, so redelivery would duplicate them.
func (s *BulkIngestSubscriber) settle(msg settler, err error) {
	if err != nil {
		s.logger.WithError(err).Error("Bulk ingest aborted, not redelivering")
		if termErr := msg.Term(); termErr != nil {
			s.logger.WithError(termErr).Warn("Failed to terminate bulk ingest message")
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		s.logger.WithError(ackErr).Warn("Failed to ack bulk ingest message")
	}
}

// handleMessage returns an error only when the pipeline itself failed
func (s *BulkIngestSubscriber) handleMessage(ctx context.Context, data []byte) error {
	var event events.BulkRequestedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.WithError(err).Warn("Dropping malformed bulk ingest request")
		return nil
	}

	log := s.logger.WithField("requestId", event.RequestID)

	report, err := s.ingester.IngestJSON(ctx, event.Records)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			log.WithError(err).Warn("Dropping invalid bulk ingest request")
			return nil
		}
		return err
	}

	log.WithFields(logrus.Fields{
		"total":      report.TotalProcessed,
		"successful": report.SuccessCount,
		"failed":     report.ErrorCount,
	}).Info("Processed bulk ingest request")
	return nil
}
