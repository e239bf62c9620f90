package sink

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-multierror"
	client "github.com/influxdata/influxdb1-client/v2"
	"go.uber.org/zap"
)

var errBatcherClosed = errors.New("batcher closed")

// batcher groups points into batches, cut when length points are pending
// or every interval. Batches that fail to write stay queued and are
// retried, in order, on the next cut.
type batcher struct {
	client   client.Client
	database string
	logger   *zap.Logger
	length   int
	interval time.Duration
	retry    []retry.Option

	writeCh chan *client.Point
	flushCh chan chan error
	doneCh  chan struct{}
	exitCh  chan struct{}
	err     error

	// owned by the background goroutine.
	pending []*client.Point
	queued  []client.BatchPoints
}

func newBatcher(c client.Client, database string, logger *zap.Logger, length int, interval time.Duration, opts ...retry.Option) *batcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &batcher{
		client:   c,
		database: database,
		logger:   logger,
		length:   length,
		interval: interval,
		retry: append([]retry.Option{
			retry.Attempts(5),
			retry.Delay(500 * time.Millisecond),
			retry.DelayType(retry.BackOffDelay),
		}, opts...),
		writeCh: make(chan *client.Point),
		flushCh: make(chan chan error),
		doneCh:  make(chan struct{}),
		exitCh:  make(chan struct{}),
	}
	go b.background()
	return b
}

func (b *batcher) WritePoint(p *client.Point) {
	select {
	case b.writeCh <- p:
	case <-b.doneCh:
		b.logger.Warn("dropping point written after close")
	}
}

// Flush cuts a batch from pending points and writes every queued batch.
func (b *batcher) Flush(ctx context.Context) error {
	ch := make(chan error, 1)
	select {
	case b.flushCh <- ch:
	case <-b.doneCh:
		return errBatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes what is left and stops the batcher.
func (b *batcher) Close() error {
	select {
	case <-b.doneCh:
	default:
		close(b.doneCh)
	}
	<-b.exitCh

	var err *multierror.Error
	err = multierror.Append(err, b.err)
	err = multierror.Append(err, b.client.Close())
	return err.ErrorOrNil()
}

func (b *batcher) background() {
	defer close(b.exitCh)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case p := <-b.writeCh:
			b.pending = append(b.pending, p)
			if len(b.pending) >= b.length {
				b.cut()
				_ = b.send()
			}

		case <-ticker.C:
			b.cut()
			_ = b.send()

		case ch := <-b.flushCh:
			b.cut()
			ch <- b.send()

		case <-b.doneCh:
			b.cut()
			b.err = b.send()
			return
		}
	}
}

func (b *batcher) cut() {
	if len(b.pending) == 0 {
		return
	}
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{Database: b.database, Precision: "ns"})
	if err != nil {
		b.logger.Error("failed to create batch; dropping points", zap.Int("points", len(b.pending)), zap.Error(err))
		b.pending = nil
		return
	}
	bp.AddPoints(b.pending)
	b.queued = append(b.queued, bp)
	b.pending = nil
}

func (b *batcher) send() error {
	for len(b.queued) > 0 {
		bp := b.queued[0]
		err := retry.Do(func() error {
			return b.client.Write(bp)
		}, b.retry...)
		if err != nil {
			b.logger.Warn("failed to write batch; will retry", zap.Int("batches", len(b.queued)), zap.Error(err))
			return err
		}
		b.queued = b.queued[1:]
	}
	return nil
}
