package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/panjf2000/ants/v2"
)

// JetStreamConfig names the stream, subject and durable consumer for tasks.
type JetStreamConfig struct {
	URL     string
	Stream  string
	Subject string
	Durable string
	AckWait time.Duration // default 35m

	// Heartbeat is how often a running task's message is marked in progress,
	// default AckWait/3.
	Heartbeat time.Duration
}

// JetStreamQueue publishes tasks to a NATS JetStream stream and consumes them
// with a durable explicit-ack consumer.
type JetStreamQueue struct {
	cfg    JetStreamConfig
	nc     *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	logger *slog.Logger
}

var _ Submitter = (*JetStreamQueue)(nil)

func NewJetStreamQueue(ctx context.Context, cfg JetStreamConfig, logger *slog.Logger) (*JetStreamQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Stream == "" {
		cfg.Stream = "INGEST"
	}
	if cfg.Subject == "" {
		cfg.Subject = "ingest.jobs"
	}
	if cfg.Durable == "" {
		cfg.Durable = "ingest-worker"
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 35 * time.Minute
	}
	if cfg.Heartbeat <= 0 || cfg.Heartbeat >= cfg.AckWait {
		cfg.Heartbeat = cfg.AckWait / 3
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("resume-ingest"))
	if err != nil {
		logger.Error("queue.nats.connect_failed", "url", cfg.URL, "error", err)
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
	})
	if err != nil {
		nc.Close()
		logger.Error("queue.stream.create_failed", "stream", cfg.Stream, "error", err)
		return nil, fmt.Errorf("create stream: %w", err)
	}
	logger.Info("queue.stream.ready", "stream", cfg.Stream, "subject", cfg.Subject)
	return &JetStreamQueue{cfg: cfg, nc: nc, js: js, stream: stream, logger: logger}, nil
}

// Enqueue publishes task. The job id is the message id, so a resubmitted
// task inside the stream's duplicate window is stored once.
func (q *JetStreamQueue) Enqueue(ctx context.Context, task Task) error {
	data, err := encodeTask(task)
	if err != nil {
		return err
	}
	ack, err := q.js.Publish(ctx, q.cfg.Subject, data, jetstream.WithMsgID(task.JobID.String()))
	if err != nil {
		q.logger.Error("queue.publish.failed", "job_id", task.JobID, "error", err)
		return fmt.Errorf("publish task: %w", err)
	}
	q.logger.Info("queue.publish.ok", "job_id", task.JobID, "seq", ack.Sequence, "duplicate", ack.Duplicate)
	return nil
}

// Consume fetches tasks until ctx is done and runs them on a pool of
// concurrency workers. Successful tasks are acked; failed tasks are
// terminated since the handler already retried them.
func (q *JetStreamQueue) Consume(ctx context.Context, handler TaskHandler, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       q.cfg.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: q.cfg.Subject,
		AckWait:       q.cfg.AckWait,
		MaxAckPending: concurrency,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	defer wg.Wait()

	q.logger.Info("queue.consume.start", "durable", q.cfg.Durable, "concurrency", concurrency)
	for ctx.Err() == nil {
		free := pool.Free()
		if free <= 0 {
			time.Sleep(200 * time.Millisecond)
			continue
		}
		batch, err := consumer.Fetch(free, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			q.logger.Warn("queue.fetch.failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		for msg := range batch.Messages() {
			m := msg
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				q.handle(ctx, handler, m)
			}); err != nil {
				wg.Done()
				q.logger.Error("queue.dispatch.failed", "error", err)
				_ = m.Nak()
			}
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && ctx.Err() == nil {
			q.logger.Warn("queue.fetch.batch_error", "error", err)
		}
	}
	q.logger.Info("queue.consume.stop")
	return nil
}

func (q *JetStreamQueue) handle(ctx context.Context, handler TaskHandler, msg jetstream.Msg) {
	task, err := decodeTask(msg.Data())
	if err != nil {
		q.logger.Error("queue.task.invalid", "error", err)
		_ = msg.Term()
		return
	}
	stop := heartbeat(ctx, q.cfg.Heartbeat, func() error {
		if err := msg.InProgress(); err != nil {
			q.logger.Warn("queue.heartbeat.failed", "job_id", task.JobID, "error", err)
			return err
		}
		return nil
	})
	err = handler.Run(ctx, task)
	stop()
	if err != nil {
		if ctx.Err() != nil {
			// redeliver after restart
			_ = msg.Nak()
			return
		}
		_ = msg.Term()
		return
	}
	if err := msg.Ack(); err != nil {
		q.logger.Warn("queue.ack.failed", "job_id", task.JobID, "error", err)
	}
}

// heartbeat calls touch every interval until ctx is done or stop is called.
// stop returns once the ticker goroutine has exited. Touch errors do not end
// the heartbeat; the next tick tries again.
func heartbeat(ctx context.Context, interval time.Duration, touch func() error) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_ = touch()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

func (q *JetStreamQueue) Close() {
	if q.nc != nil {
		q.nc.Close()
	}
}
