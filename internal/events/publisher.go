package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/TheOksigen/autopart-backend/internal/models"
)

const (
	StreamCatalog = "CATALOG_EVENTS"

	SubjectBulkRequested  = "catalog.bulk.requested"
	SubjectBulkIngested   = "catalog.bulk.ingested"
	SubjectProductCreated = "catalog.product.created"
	SubjectProductUpdated = "catalog.product.updated"
	SubjectProductDeleted = "catalog.product.deleted"

	defaultPoolSize = 8
	publishTimeout  = 10 * time.Second
)

// streamPublisher is the part of jetstream.JetStream the publisher needs
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends catalog events to JetStream without blocking request handling
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream streamPublisher
	pool   *ants.Pool
	logger *logrus.Entry
}

// Connect opens a NATS connection that keeps retrying in the background
func Connect(natsURL, name string, logger *logrus.Logger) (*nats.Conn, error) {
	log := logger.WithField("component", "nats")
	nc, err := nats.Connect(natsURL,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectBufSize(8*1024*1024),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("Reconnected to NATS")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("Disconnected from NATS")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.WithError(err).Error("NATS error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NewPublisher creates the JetStream context and makes sure the catalog stream exists
func NewPublisher(nc *nats.Conn, logger *logrus.Logger) (*Publisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamCatalog,
		Subjects:  []string{"catalog.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to ensure catalog stream (may already exist)")
	}

	p, err := newPublisher(js, logger, defaultPoolSize)
	if err != nil {
		return nil, err
	}
	p.nc = nc
	p.js = js
	return p, nil
}

func newPublisher(stream streamPublisher, logger *logrus.Logger, poolSize int) (*Publisher, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish pool: %w", err)
	}
	return &Publisher{
		stream: stream,
		pool:   pool,
		logger: logger.WithField("component", "catalog-events"),
	}, nil
}

// JetStream exposes the stream context so subscribers can share the connection
func (p *Publisher) JetStream() jetstream.JetStream {
	return p.js
}

// Close waits briefly for in-flight publishes and drains the connection
func (p *Publisher) Close() {
	if p.pool != nil {
		if err := p.pool.ReleaseTimeout(5 * time.Second); err != nil {
			p.logger.WithError(err).Warn("Publish pool did not drain in time")
		}
	}
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// PublishBulkIngested announces the outcome of one bulk batch
func (p *Publisher) PublishBulkIngested(ctx context.Context, report *models.IngestionReport) error {
	return p.publish(SubjectBulkIngested, NewBulkIngestedEvent(report))
}

// PublishBulkRequested queues a raw JSON array of records for asynchronous ingestion.
// It waits for the JetStream ack so callers know the batch was actually stored.
func (p *Publisher) PublishBulkRequested(ctx context.Context, requestID string, records []byte) error {
	data, err := json.Marshal(&BulkRequestedEvent{RequestID: requestID, Records: records})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", SubjectBulkRequested, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := p.stream.Publish(pubCtx, SubjectBulkRequested, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", SubjectBulkRequested, err)
	}
	p.logger.WithField("request_id", requestID).Info("Bulk ingest request queued")
	return nil
}

// PublishProductCreated publishes a catalog.product.created event
func (p *Publisher) PublishProductCreated(ctx context.Context, product *models.Product) error {
	return p.publish(SubjectProductCreated, NewProductEvent(SubjectProductCreated, product, nil))
}

// PublishProductUpdated publishes a catalog.product.updated event listing the changed fields
func (p *Publisher) PublishProductUpdated(ctx context.Context, product *models.Product, changedFields []string) error {
	return p.publish(SubjectProductUpdated, NewProductEvent(SubjectProductUpdated, product, changedFields))
}

// PublishProductDeleted publishes a catalog.product.deleted event
func (p *Publisher) PublishProductDeleted(ctx context.Context, product *models.Product) error {
	return p.publish(SubjectProductDeleted, NewProductEvent(SubjectProductDeleted, product, nil))
}

// publish marshals synchronously and hands the network call to the pool
func (p *Publisher) publish(subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	return p.pool.Submit(func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if _, err := p.stream.Publish(pubCtx, subject, data); err != nil {
			p.logger.WithField("subject", subject).WithError(err).Error("Failed to publish catalog event")
			return
		}
		p.logger.WithField("subject", subject).Debug("Catalog event published")
	})
}
