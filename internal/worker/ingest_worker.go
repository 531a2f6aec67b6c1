package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"knowledgebot/internal/app"
	"knowledgebot/internal/model"
	"knowledgebot/internal/platform/rabbitmq"
)

type Ingester interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
}

type outcome int

const (
	ack outcome = iota
	drop
	retry
)

// IngestWorker consumes ingestion jobs from RabbitMQ, one at a time.
type IngestWorker struct {
	conn      *amqp.Connection
	ingester  Ingester
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, ingester Ingester, queueName string, logger *slog.Logger) *IngestWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestWorker{
		conn:      conn,
		ingester:  ingester,
		queueName: queueName,
		logger:    logger.With("component", "ingest_worker"),
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				w.settle(d, w.handle(workerCtx, d.Body, d.Redelivered))
			}
		}
	}()

	w.logger.Info("ingest worker started", "queue", w.queueName)
	return nil
}

func (w *IngestWorker) settle(d amqp.Delivery, o outcome) {
	var err error
	switch o {
	case ack:
		err = d.Ack(false)
	case drop:
		err = d.Nack(false, false)
	case retry:
		err = d.Nack(false, true)
	}
	if err != nil {
		w.logger.Error("settle delivery failed", "error", err)
	}
}

// handle decodes and ingests one job. A job that already failed once is
// dropped instead of requeued again.
func (w *IngestWorker) handle(ctx context.Context, body []byte, redelivered bool) outcome {
	var job model.IngestJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Error("decode ingest job failed", "error", err)
		return drop
	}

	res, err := w.ingester.Ingest(ctx, app.IngestInput{
		DocumentID: job.DocumentID,
		Filename:   job.Filename,
		Content:    job.Content,
	})
	switch {
	case err == nil:
		w.logger.Info("document ingested",
			"document_id", res.DocumentID,
			"filename", res.Filename,
			"chunks", res.ChunksCount,
		)
		return ack
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrNoContent):
		w.logger.Warn("ingest job rejected", "document_id", job.DocumentID, "error", err)
		return drop
	case redelivered:
		w.logger.Error("ingest job failed again, dropping", "document_id", job.DocumentID, "error", err)
		return drop
	default:
		w.logger.Error("ingest job failed, requeueing", "document_id", job.DocumentID, "error", err)
		return retry
	}
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
