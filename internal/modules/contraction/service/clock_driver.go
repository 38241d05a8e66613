package service

import (
	"sync"
	"time"

	"storkwatch/internal/platform/clock"
)

// TickInterval is how often the driver ticks while a contraction is timed.
const TickInterval = time.Second

// ClockDriver forwards ticker instants onto one long-lived channel so consumers
// never have to re-subscribe across start/stop cycles. Ticks are coalesced when
// the consumer falls behind.
type ClockDriver struct {
	source clock.TickerSource
	ticks  chan time.Time

	mu      sync.Mutex
	ticker  clock.Ticker
	stop    chan struct{}
	stopped chan struct{}
}

func NewClockDriver(source clock.TickerSource) *ClockDriver {
	return &ClockDriver{source: source, ticks: make(chan time.Time, 1)}
}

// C delivers ticks while the driver runs.
func (d *ClockDriver) C() <-chan time.Time {
	return d.ticks
}

func (d *ClockDriver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticker != nil
}

// Start begins ticking. Starting a running driver is a no-op.
func (d *ClockDriver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ticker != nil {
		return
	}
	d.ticker = d.source.NewTicker(TickInterval)
	d.stop = make(chan struct{})
	d.stopped = make(chan struct{})
	go d.forward(d.ticker.C(), d.stop, d.stopped)
}

// Stop cancels ticking and drops any undelivered tick. It returns after the
// forwarding goroutine has exited.
func (d *ClockDriver) Stop() {
	d.mu.Lock()
	if d.ticker == nil {
		d.mu.Unlock()
		return
	}
	d.ticker.Stop()
	close(d.stop)
	stopped := d.stopped
	d.ticker, d.stop, d.stopped = nil, nil, nil
	d.mu.Unlock()

	<-stopped
	select {
	case <-d.ticks:
	default:
	}
}

func (d *ClockDriver) forward(src <-chan time.Time, stop, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case <-stop:
			return
		case now := <-src:
			select {
			case d.ticks <- now:
			default:
			}
		}
	}
}
