// Package lookup drives a single user's graduation lookup: validate the
// NISN, wait the presentation delay, query the directory and, on a hit,
// ask the generator for a personal message.
//
// A Controller is a small state machine:
//
//	idle ──submit──▶ validating ──reject──▶ error
//	                     │
//	                    load
//	                     ▼
//	                  loading ──found──▶ result
//	                     │
//	                    miss──▶ error
//
// result and error go back to idle on dismiss; any settled or loading
// state accepts a new submit. The latest submission wins: a flow whose
// submission has been superseded finishes silently.
package lookup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/looplab/fsm"

	"github.com/aanand-mishra/graduation-api/internal/storage"
	"github.com/aanand-mishra/graduation-api/internal/types"
)

// Phase names the controller's current state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseLoading    Phase = "loading"
	PhaseResult     Phase = "result"
	PhaseError      Phase = "error"
)

const (
	eventSubmit  = "submit"
	eventReject  = "reject"
	eventLoad    = "load"
	eventFound   = "found"
	eventMiss    = "miss"
	eventDismiss = "dismiss"
)

// ErrNothingToDismiss is returned by Dismiss outside result and error.
var ErrNothingToDismiss = errors.New("nothing to dismiss")

// State is what the presentation layer renders.
type State struct {
	Phase  Phase               `json:"phase"`
	NISN   string              `json:"nisn,omitempty"`
	Result *types.LookupResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Directory is the part of storage.Storage the controller needs.
type Directory interface {
	GetStudentByNISN(nisn string) (types.Student, error)
}

// MessageGenerator produces the message for a found student.
// Implementations must not fail; see generator.Generator.
type MessageGenerator interface {
	Generate(ctx context.Context, student types.Student) string
}

// Controller owns one user's lookup state.
type Controller struct {
	dir      Directory
	gen      MessageGenerator
	delay    time.Duration
	log      *slog.Logger
	validate *validator.Validate

	mu      sync.Mutex
	machine *fsm.FSM
	seq     uint64
	state   State
	subs    map[int]chan State
	nextSub int
}

// New returns an idle controller. delay is the pause before each
// directory query; zero disables it.
func New(dir Directory, gen MessageGenerator, delay time.Duration, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{
		dir:      dir,
		gen:      gen,
		delay:    delay,
		log:      log,
		validate: validator.New(),
		state:    State{Phase: PhaseIdle},
		subs:     make(map[int]chan State),
	}

	c.machine = fsm.NewFSM(
		string(PhaseIdle),
		fsm.Events{
			{Name: eventSubmit, Src: []string{string(PhaseIdle), string(PhaseLoading), string(PhaseResult), string(PhaseError)}, Dst: string(PhaseValidating)},
			{Name: eventReject, Src: []string{string(PhaseValidating)}, Dst: string(PhaseError)},
			{Name: eventLoad, Src: []string{string(PhaseValidating)}, Dst: string(PhaseLoading)},
			{Name: eventFound, Src: []string{string(PhaseLoading)}, Dst: string(PhaseResult)},
			{Name: eventMiss, Src: []string{string(PhaseLoading)}, Dst: string(PhaseError)},
			{Name: eventDismiss, Src: []string{string(PhaseResult), string(PhaseError)}, Dst: string(PhaseIdle)},
		},
		fsm.Callbacks{
			"enter_idle":       c.onEnterIdle,
			"enter_validating": c.onEnterValidating,
			"enter_loading":    c.onEnterLoading,
			"enter_result":     c.onEnterResult,
			"enter_error":      c.onEnterError,
			"enter_state":      c.onEnterState,
		},
	)

	return c
}

// SanitizeNISN drops every character that is not an ASCII digit.
func SanitizeNISN(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// Submit starts a lookup for raw. Invalid input settles immediately in
// the error phase; valid input moves to loading and continues in the
// background. The returned channel receives the state once this
// submission settles (or the current state, if a later submission
// superseded it) and is then closed.
func (c *Controller) Submit(ctx context.Context, raw string) <-chan State {
	nisn := SanitizeNISN(raw)
	done := make(chan State, 1)

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state.NISN = nisn
	c.fire(ctx, eventSubmit)

	if err := c.validate.Struct(types.LookupRequest{NISN: nisn}); err != nil {
		c.log.Debug("rejecting nisn", slog.String("nisn", nisn), slog.String("error", err.Error()))
		c.fire(ctx, eventReject, MsgInvalidNISN)
		done <- c.snapshot()
		c.mu.Unlock()
		close(done)
		return done
	}

	c.fire(ctx, eventLoad)
	c.mu.Unlock()

	go c.run(ctx, seq, nisn, done)
	return done
}

// run performs the slow part of a submission outside the lock.
func (c *Controller) run(ctx context.Context, seq uint64, nisn string, done chan<- State) {
	defer close(done)

	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	event, arg := eventMiss, any(MsgNotFound)
	student, err := c.dir.GetStudentByNISN(nisn)
	switch {
	case err == nil:
		message := c.gen.Generate(ctx, student)
		event, arg = eventFound, &types.LookupResult{Student: student, Message: message}
	case errors.Is(err, storage.ErrStudentNotFound):
	default:
		c.log.Error("directory lookup failed",
			slog.String("nisn", nisn),
			slog.String("error", err.Error()))
		arg = MsgLookupFailed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.log.Debug("discarding superseded lookup", slog.String("nisn", nisn))
		done <- c.snapshot()
		return
	}

	c.fire(ctx, event, arg)
	done <- c.snapshot()
}

// Dismiss clears a settled result or error and returns to idle.
func (c *Controller) Dismiss(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Can(eventDismiss) {
		return c.snapshot(), ErrNothingToDismiss
	}

	c.seq++
	c.fire(ctx, eventDismiss)
	return c.snapshot(), nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subscribe streams every state change, starting with the current one.
// A slow reader loses intermediate states but always sees the newest.
// Call the returned func to stop; it closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 8)
	ch <- c.snapshot()
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

// fire must be called with c.mu held. Transitions ignore cancellation:
// once a submission has started it always settles in result or error.
func (c *Controller) fire(ctx context.Context, event string, args ...any) {
	if err := c.machine.Event(context.WithoutCancel(ctx), event, args...); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return
		}
		c.log.Error("invalid lookup transition",
			slog.String("event", event),
			slog.String("phase", string(c.state.Phase)),
			slog.String("error", err.Error()))
	}
}

func (c *Controller) snapshot() State {
	return c.state
}

// ============= fsm callbacks (run inside fire, c.mu held) =============

func (c *Controller) onEnterIdle(_ context.Context, _ *fsm.Event) {
	c.state = State{}
}

func (c *Controller) onEnterValidating(_ context.Context, _ *fsm.Event) {
	c.state.Result = nil
	c.state.Error = ""
}

func (c *Controller) onEnterLoading(_ context.Context, _ *fsm.Event) {
	c.state.Result = nil
	c.state.Error = ""
}

func (c *Controller) onEnterResult(_ context.Context, e *fsm.Event) {
	if len(e.Args) > 0 {
		c.state.Result, _ = e.Args[0].(*types.LookupResult)
	}
}

func (c *Controller) onEnterError(_ context.Context, e *fsm.Event) {
	if len(e.Args) > 0 {
		c.state.Error, _ = e.Args[0].(string)
	}
}

// onEnterState runs after the state-specific callback.
func (c *Controller) onEnterState(_ context.Context, e *fsm.Event) {
	c.state.Phase = Phase(e.Dst)
	c.log.Debug("lookup transition",
		slog.String("event", e.Event),
		slog.String("from", e.Src),
		slog.String("to", e.Dst))

	st := c.snapshot()
	for _, ch := range c.subs {
		select {
		case ch <- st:
		default:
			// full: drop the oldest pending state to make room
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}
