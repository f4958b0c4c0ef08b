// Package composite implements the composite device (C6): the runtime that
// owns one capability translator, one profile translator, one intercept
// gate, N source captures, and M target devices, and wires them together
// through the channels the data flow in this codebase's design runs along:
//
//	kernel -> source capture -> (preprocess) -> capability translator ->
//	(process) -> profile translator -> (postprocess) -> intercept gate ->
//	{targets, bus}
//
// Each stage (every source capture, preprocess, translator, process/profile,
// dispatch) runs in its own goroutine. Only source captures are supervised,
// with a restart-once-then-remove discipline; the other stages are not
// restarted.
package composite

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ilog "github.com/inputmux/inputmuxd/internal/log"
	"github.com/inputmux/inputmuxd/pkg/capmap"
	"github.com/inputmux/inputmuxd/pkg/intercept"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/profile"
	"github.com/inputmux/inputmuxd/pkg/scripting"
	"github.com/inputmux/inputmuxd/pkg/source"
	"github.com/inputmux/inputmuxd/pkg/target"
)

// chanBuffer bounds every inter-stage channel. A bounded channel applies
// natural backpressure to source captures rather than letting an unbounded
// queue hide a stuck target.
const chanBuffer = 64

// namedTarget is one configured output of a composite device: its instantiated
// target.Target plus whether it is the bus target (routed by
// intercept.DestBus) or a normal kernel-backed target (intercept.DestTargets).
type namedTarget struct {
	name   string
	kind   string
	target target.Target
	isBus  bool
}

// Composite is one running composite device.
type Composite struct {
	ID   string
	Name string

	logger *slog.Logger

	translator *capmap.Translator
	profile    *profile.Profile
	gate       *intercept.Gate
	hook       scripting.Hook
	tracer     ilog.EventTracer

	mu      sync.Mutex
	sources map[string]source.Source
	targets []namedTarget

	rawCh    chan nativeevent.NativeEvent
	nativeCh chan nativeevent.NativeEvent
	capCh1   chan nativeevent.CapabilityEvent
	capCh2   chan nativeevent.CapabilityEvent
	capCh3   chan nativeevent.CapabilityEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	fatal chan *Error
}

// New builds a Composite device from its already-instantiated stages.
// Sources are added with Add after New; at least one target must be passed
// here or New returns a TargetCreateFailed error (invariant: every composite
// has >=1 target).
func New(id, name string, logger *slog.Logger, translator *capmap.Translator, prof *profile.Profile, hook scripting.Hook, targets map[string]target.Target, busTargetNames map[string]bool) (*Composite, error) {
	if len(targets) == 0 {
		return nil, newError(TargetCreateFailed, name, fmt.Errorf("composite device requires at least one target"))
	}
	if hook == nil {
		hook = scripting.NoOp{}
	}
	c := &Composite{
		ID:         id,
		Name:       name,
		logger:     logger,
		translator: translator,
		profile:    prof,
		gate:       intercept.New(),
		hook:       hook,
		tracer:     ilog.NewEventTracer(ilog.NewRaw(nil)),
		sources:    map[string]source.Source{},
		rawCh:      make(chan nativeevent.NativeEvent, chanBuffer),
		nativeCh:   make(chan nativeevent.NativeEvent, chanBuffer),
		capCh1:     make(chan nativeevent.CapabilityEvent, chanBuffer),
		capCh2:     make(chan nativeevent.CapabilityEvent, chanBuffer),
		capCh3:     make(chan nativeevent.CapabilityEvent, chanBuffer),
		fatal:      make(chan *Error, 8),
	}
	for name, t := range targets {
		c.targets = append(c.targets, namedTarget{name: name, target: t, isBus: busTargetNames[name]})
	}
	return c, nil
}

// Gate exposes the intercept gate so a control-bus handler can change mode.
func (c *Composite) Gate() *intercept.Gate { return c.gate }

// SetTracer installs the trace-level native/capability event logger. A
// no-op tracer is installed by New; call this before Run to enable tracing.
func (c *Composite) SetTracer(t ilog.EventTracer) { c.tracer = t }

// Add binds a new source to the running composite (hot-add, spec §4.1 item
// 3), starting its capture goroutine under the same restart discipline as
// sources present at Run time.
func (c *Composite) Add(src source.Source) {
	c.mu.Lock()
	c.sources[src.Descriptor().ID] = src
	c.mu.Unlock()
	c.wg.Add(1)
	go c.runSource(src)
}

// Remove stops and releases a source (hot-remove, spec §4.1 item 4). The
// caller decides whether losing this source requires tearing the whole
// composite down (if the source was the last one satisfying a required
// group); Remove itself only releases the one device.
func (c *Composite) Remove(sourceID string) {
	c.mu.Lock()
	src, ok := c.sources[sourceID]
	if ok {
		delete(c.sources, sourceID)
	}
	c.mu.Unlock()
	if ok {
		_ = src.Close()
	}
}

// SourceCount reports how many sources are currently bound, so a caller (the
// manager) can decide whether a required group has gone empty.
func (c *Composite) SourceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sources)
}

// Run starts every source, the translator/profile/dispatch stages, and
// blocks until ctx is canceled or Close is called. A source whose capture
// fails twice is reported on Errors() and removed; Run keeps running.
func (c *Composite) Run(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.mu.Lock()
	for _, src := range c.sources {
		c.wg.Add(1)
		go c.runSource(src)
	}
	c.mu.Unlock()

	c.wg.Add(4)
	go c.runPreprocess()
	go c.runTranslator()
	go c.runProcessAndProfile()
	go c.runDispatch()

	<-c.ctx.Done()
	c.wg.Wait()
}

// Errors reports fatal sub-task failures after their restart has also
// failed; the manager reads this to decide whether to tear the composite
// down entirely.
func (c *Composite) Errors() <-chan *Error { return c.fatal }

// Close cancels every stage, drains targets to a neutral state, and closes
// their kernel handles.
func (c *Composite) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	srcs := make([]source.Source, 0, len(c.sources))
	for _, s := range c.sources {
		srcs = append(srcs, s)
	}
	c.mu.Unlock()
	for _, s := range srcs {
		_ = s.Close()
	}
	var firstErr error
	for _, nt := range c.targets {
		if err := nt.target.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runSource supervises one source capture with a restart-once-then-remove
// discipline: a Run failure restarts the capture a single time; a second
// failure removes the source permanently (spec §4.7).
func (c *Composite) runSource(src source.Source) {
	defer c.wg.Done()
	desc := src.Descriptor()
	attempts := 0
	for {
		err := src.Run(c.ctx, c.rawCh)
		if c.ctx.Err() != nil {
			return
		}
		attempts++
		if attempts >= 2 {
			c.logger.Warn("source capture failed permanently, removing", "source", desc.ID, "error", err)
			c.reportFatal(newError(SourceUnavailable, desc.ID, err))
			c.Remove(desc.ID)
			return
		}
		c.logger.Warn("source capture failed, restarting once", "source", desc.ID, "error", err)
	}
}

func (c *Composite) reportFatal(err *Error) {
	select {
	case c.fatal <- err:
	default:
	}
}

// runPreprocess applies the scripting preprocess hook between source capture
// and the capability translator.
func (c *Composite) runPreprocess() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.rawCh:
			if !ok {
				return
			}
			c.tracer.TraceNative(ev)
			if out, keep := c.hook.Preprocess(ev); keep {
				select {
				case c.nativeCh <- out:
				case <-c.ctx.Done():
					return
				}
			}
		}
	}
}

func (c *Composite) runTranslator() {
	defer c.wg.Done()
	c.translator.Run(c.ctx, c.nativeCh, c.capCh1)
}

// runProcessAndProfile applies the scripting process hook between the
// capability translator and the profile translator, then runs the profile
// translator itself.
func (c *Composite) runProcessAndProfile() {
	defer c.wg.Done()
	go func() {
		for {
			select {
			case <-c.ctx.Done():
				return
			case ev, ok := <-c.capCh1:
				if !ok {
					return
				}
				if out, keep := c.hook.Process(ev); keep {
					select {
					case c.capCh2 <- out:
					case <-c.ctx.Done():
						return
					}
				}
			}
		}
	}()
	c.profile.Run(c.ctx, c.capCh2, c.capCh3)
}

// runDispatch applies the scripting postprocess hook, routes each event
// through the intercept gate, and delivers it to targets and/or the bus
// target.
func (c *Composite) runDispatch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.capCh3:
			if !ok {
				return
			}
			out, keep := c.hook.Postprocess(ev)
			if !keep {
				continue
			}
			c.tracer.TraceCapability(out)
			dest := c.gate.Route(out)
			for _, nt := range c.targets {
				if nt.isBus && dest&intercept.DestBus != 0 {
					nt.target.Accept(out)
				}
				if !nt.isBus && dest&intercept.DestTargets != 0 {
					nt.target.Accept(out)
				}
			}
		}
	}
}
