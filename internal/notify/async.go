package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type job struct {
	to   string
	tmpl Template
	data map[string]string
}

// Async queues notifications and delivers them from a background goroutine,
// so callers never wait on the mail provider. Notify drops messages when the
// queue is full.
type Async struct {
	next    Notifier
	queue   chan job
	log     *zap.Logger
	timeout time.Duration
	done    chan struct{}
}

func NewAsync(next Notifier, buffer int, log *zap.Logger) *Async {
	if buffer <= 0 {
		buffer = 100
	}
	return &Async{
		next:    next,
		queue:   make(chan job, buffer),
		log:     log.Named("notify.async"),
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
	}
}

var _ Notifier = (*Async)(nil)

func (a *Async) Notify(_ context.Context, to string, tmpl Template, data map[string]string) error {
	select {
	case a.queue <- job{to: to, tmpl: tmpl, data: data}:
	default:
		a.log.Warn("notification queue full, dropping", zap.String("template", string(tmpl)))
	}
	return nil
}

// Start delivers queued notifications until ctx is cancelled, then drains what is left.
func (a *Async) Start(ctx context.Context) {
	defer close(a.done)
	a.log.Info("notification dispatcher started")

	for {
		select {
		case <-ctx.Done():
			a.drain()
			a.log.Info("notification dispatcher stopped")
			return
		case j := <-a.queue:
			a.deliver(j)
		}
	}
}

// Done is closed once Start has returned.
func (a *Async) Done() <-chan struct{} {
	return a.done
}

func (a *Async) drain() {
	for {
		select {
		case j := <-a.queue:
			a.deliver(j)
		default:
			return
		}
	}
}

func (a *Async) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.next.Notify(ctx, j.to, j.tmpl, j.data); err != nil {
		a.log.Error("notification failed",
			zap.String("template", string(j.tmpl)),
			zap.Error(err))
	}
}
