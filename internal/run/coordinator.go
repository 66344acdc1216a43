package run

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tvanlaerhoven/cavy-cli/internal/console"
	"github.com/tvanlaerhoven/cavy-cli/internal/event"
	"github.com/tvanlaerhoven/cavy-cli/internal/exitcodes"
	"github.com/tvanlaerhoven/cavy-cli/internal/metrics"
)

const keepAliveExpired = "Did not receive a keep-alive notification in time - app may have crashed."

// ErrStopped is returned to connection handlers once the coordinator has
// finished and no longer accepts input.
var ErrStopped = errors.New("coordinator stopped")

// KeepAliveTimeout is the longest the agent may stay silent before the run
// is declared dead.
const KeepAliveTimeout = 60 * time.Second

// Options configures a Coordinator. Every field is fixed for the lifetime
// of the process.
type Options struct {
	Dev              bool
	XML              bool
	XMLFile          string
	ReportDir        string
	KeepAliveTimeout time.Duration // zero means KeepAliveTimeout; tests shorten it
	PrintTable       bool
	PrintMarkdown    bool
}

type inboundKind int

const (
	inboundConnected inboundKind = iota
	inboundFrame
	inboundDisconnected
)

type inbound struct {
	kind   inboundKind
	remote string
	data   []byte
}

// Coordinator applies agent events to the run state. Connection handlers
// hand it frames from any goroutine; all state changes happen on the
// goroutine executing Run, one event at a time, in arrival order.
type Coordinator struct {
	opts     Options
	state    *State
	watchdog *Watchdog
	printer  *console.Printer
	logger   *log.Logger
	metrics  *metrics.Metrics

	inbox    chan inbound
	statusCh chan chan Status
	done     chan struct{}
	encoders sync.WaitGroup
	now      func() time.Time
}

// NewCoordinator builds a coordinator writing run output to printer. m may
// be nil.
func NewCoordinator(opts Options, printer *console.Printer, logger *log.Logger, m *metrics.Metrics) *Coordinator {
	if opts.KeepAliveTimeout <= 0 {
		opts.KeepAliveTimeout = KeepAliveTimeout
	}
	if opts.ReportDir == "" {
		opts.ReportDir = "."
	}
	return &Coordinator{
		opts:     opts,
		state:    NewState(opts.Dev, opts.XML),
		watchdog: NewWatchdog(opts.KeepAliveTimeout),
		printer:  printer,
		logger:   logger,
		metrics:  m,
		inbox:    make(chan inbound),
		statusCh: make(chan chan Status),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

func (c *Coordinator) send(ctx context.Context, in inbound) error {
	select {
	case c.inbox <- in:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports a newly accepted agent connection.
func (c *Coordinator) Connected(ctx context.Context, remote string) error {
	return c.send(ctx, inbound{kind: inboundConnected, remote: remote})
}

// Deliver queues one raw frame received from remote. It blocks until the
// loop has taken the frame, which keeps frames in arrival order.
func (c *Coordinator) Deliver(ctx context.Context, remote string, data []byte) error {
	return c.send(ctx, inbound{kind: inboundFrame, remote: remote, data: data})
}

// Disconnected reports that remote's connection has closed.
func (c *Coordinator) Disconnected(ctx context.Context, remote string) error {
	return c.send(ctx, inbound{kind: inboundDisconnected, remote: remote})
}

// Status returns a snapshot of the run state taken on the loop goroutine.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	select {
	case c.statusCh <- reply:
	case <-c.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Done is closed when Run returns.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Run processes events until the run decides the process exit code, the
// keep-alive deadline expires, or ctx is cancelled. The returned code is one
// of the exitcodes constants; err is non-nil only on cancellation.
func (c *Coordinator) Run(ctx context.Context) (int, error) {
	defer close(c.done)
	defer c.watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			c.flushReports()
			return exitcodes.Success, ctx.Err()

		case reply := <-c.statusCh:
			reply <- c.state.Status()

		case <-c.watchdog.C():
			c.metrics.RecordTimeout()
			c.logger.Error("Keep-alive deadline expired",
				"last_seen", c.watchdog.LastSeen().Format(time.TimeOnly),
				"deadline", c.watchdog.Deadline())
			c.printer.Fatal(keepAliveExpired)
			c.flushReports()
			return exitcodes.Fatal, nil

		case in := <-c.inbox:
			if code, exit := c.handle(in); exit {
				c.flushReports()
				return code, nil
			}
		}
	}
}

// flushReports waits for in-flight JUnit writes. Every return from Run goes
// through here so a report started before exit is complete on disk.
func (c *Coordinator) flushReports() {
	c.encoders.Wait()
}

func (c *Coordinator) handle(in inbound) (int, bool) {
	switch in.kind {
	case inboundConnected:
		c.onConnected(in.remote)
	case inboundDisconnected:
		// The watchdog stays armed so a crashed app still times out.
		c.logger.Warn("Agent disconnected", "remote", in.remote)
	case inboundFrame:
		return c.dispatch(in.data)
	}
	return 0, false
}

func (c *Coordinator) onConnected(remote string) {
	c.state.MarkBooted()
	c.metrics.RecordConnection()
	c.logger.Info("Agent connected", "remote", remote, "run_id", c.state.RunID())
	c.onNotify()
}

func (c *Coordinator) onNotify() {
	c.metrics.RecordNotification()
	c.printer.Notification(c.now())
	c.watchdog.Arm()
}

// dispatch decodes one frame and applies it. Frames that do not decode are
// dropped without output.
func (c *Coordinator) dispatch(data []byte) (int, bool) {
	switch ev := event.Decode(data).(type) {
	case event.Notify:
		c.onNotify()
	case event.Message:
		if !ev.Level.Known() {
			c.metrics.RecordDropped()
			c.logger.Debug("Dropped message with unknown level", "level", ev.Level)
			break
		}
		c.printer.Message(ev.Level, ev.Message)
	case event.Result:
		n := c.state.NextResult()
		c.metrics.RecordResult(ev.Passed)
		c.printer.Result(n, ev.Message, ev.Passed)
	case event.Report:
		return c.finish(ev)
	default:
		c.metrics.RecordDropped()
		c.logger.Debug("Dropped unrecognized message", "bytes", len(data))
	}
	return 0, false
}
