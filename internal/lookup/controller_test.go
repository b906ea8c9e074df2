package lookup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/graduation-api/internal/generator"
	"github.com/aanand-mishra/graduation-api/internal/storage/memory"
	"github.com/aanand-mishra/graduation-api/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingDirectory records how often it is queried.
type countingDirectory struct {
	Directory
	calls atomic.Int32
	err   error
}

func (d *countingDirectory) GetStudentByNISN(nisn string) (types.Student, error) {
	d.calls.Add(1)
	if d.err != nil {
		return types.Student{}, d.err
	}
	return d.Directory.GetStudentByNISN(nisn)
}

func newDirectory() *countingDirectory {
	return &countingDirectory{Directory: memory.NewSeeded()}
}

// staticGenerator names the student in its message.
type staticGenerator struct{}

func (staticGenerator) Generate(_ context.Context, s types.Student) string {
	return "pesan untuk " + s.Name
}

// gatedGenerator blocks each student's message until its gate is opened.
type gatedGenerator struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGatedGenerator(nisns ...string) *gatedGenerator {
	g := &gatedGenerator{gates: make(map[string]chan struct{})}
	for _, n := range nisns {
		g.gates[n] = make(chan struct{})
	}
	return g
}

func (g *gatedGenerator) open(nisn string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.gates[nisn])
}

func (g *gatedGenerator) Generate(_ context.Context, s types.Student) string {
	g.mu.Lock()
	gate := g.gates[s.NISN]
	g.mu.Unlock()
	<-gate
	return "pesan untuk " + s.Name
}

type failingModel struct{}

func (failingModel) GenerateText(context.Context, string) (string, error) {
	return "", errors.New("network unreachable")
}

func await(t *testing.T, ch <-chan State) State {
	t.Helper()
	select {
	case st := <-ch:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("lookup did not settle")
		return State{}
	}
}

func TestSubmit_InvalidInputNeverQueriesDirectory(t *testing.T) {
	dir := newDirectory()
	c := New(dir, staticGenerator{}, 0, discardLogger())

	for _, raw := range []string{"", "123", "001234567", "00123456789", "abcdefghij", "00123x567"} {
		st := await(t, c.Submit(context.Background(), raw))
		assert.Equal(t, PhaseError, st.Phase, "input %q", raw)
		assert.Equal(t, MsgInvalidNISN, st.Error, "input %q", raw)
		assert.Nil(t, st.Result)
	}
	assert.Equal(t, int32(0), dir.calls.Load())
}

func TestSubmit_StripsNonDigits(t *testing.T) {
	c := New(newDirectory(), staticGenerator{}, 0, discardLogger())

	st := await(t, c.Submit(context.Background(), " 0012-345-678 "))
	require.Equal(t, PhaseResult, st.Phase)
	assert.Equal(t, "0012345678", st.NISN)
	assert.Equal(t, "Aditya Pratama", st.Result.Student.Name)
}

func TestSubmit_NotFound(t *testing.T) {
	dir := newDirectory()
	c := New(dir, staticGenerator{}, 0, discardLogger())

	st := await(t, c.Submit(context.Background(), "9999999999"))
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, MsgNotFound, st.Error)
	assert.Equal(t, int32(1), dir.calls.Load())
}

func TestSubmit_Found(t *testing.T) {
	c := New(newDirectory(), staticGenerator{}, 0, discardLogger())

	st := await(t, c.Submit(context.Background(), "0012345678"))
	require.Equal(t, PhaseResult, st.Phase)
	require.NotNil(t, st.Result)
	assert.Equal(t, "Aditya Pratama", st.Result.Student.Name)
	assert.Equal(t, types.StatusPassed, st.Result.Student.Status)
	assert.Equal(t, "XII-IPA-1", st.Result.Student.ClassName)
	assert.Equal(t, "MIPA", st.Result.Student.Major)
	assert.Equal(t, "pesan untuk Aditya Pratama", st.Result.Message)
	assert.Empty(t, st.Error)

	st = await(t, c.Submit(context.Background(), "0011223344"))
	require.Equal(t, PhaseResult, st.Phase)
	assert.Equal(t, types.StatusPending, st.Result.Student.Status)
	assert.Equal(t, "XII-IPA-3", st.Result.Student.ClassName)
	assert.Equal(t, "MIPA", st.Result.Student.Major)
}

func TestSubmit_GenerationFailureStillReachesResult(t *testing.T) {
	gen := generator.New(failingModel{}, 0, discardLogger())
	c := New(newDirectory(), gen, 0, discardLogger())

	st := await(t, c.Submit(context.Background(), "0012345678"))
	require.Equal(t, PhaseResult, st.Phase)
	assert.Equal(t, generator.FallbackPassed, st.Result.Message)

	st = await(t, c.Submit(context.Background(), "0011223344"))
	require.Equal(t, PhaseResult, st.Phase)
	assert.Equal(t, generator.FallbackNotPassed, st.Result.Message)
}

func TestSubmit_DirectoryFault(t *testing.T) {
	dir := newDirectory()
	dir.err = errors.New("disk I/O error")
	c := New(dir, staticGenerator{}, 0, discardLogger())

	st := await(t, c.Submit(context.Background(), "0012345678"))
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, MsgLookupFailed, st.Error)
}

func TestSubmit_LoadingDuringDelay(t *testing.T) {
	c := New(newDirectory(), staticGenerator{}, 50*time.Millisecond, discardLogger())

	done := c.Submit(context.Background(), "0012345678")
	st := c.State()
	assert.Equal(t, PhaseLoading, st.Phase)
	assert.Nil(t, st.Result)

	st = await(t, done)
	assert.Equal(t, PhaseResult, st.Phase)
	assert.Equal(t, PhaseResult, c.State().Phase)
}

func TestSubmit_CanceledContextStillSettles(t *testing.T) {
	c := New(newDirectory(), staticGenerator{}, 50*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := c.Submit(ctx, "0012345678")
	require.Equal(t, PhaseLoading, c.State().Phase)
	cancel()

	st := await(t, done)
	require.Equal(t, PhaseResult, st.Phase)
	assert.Equal(t, "Aditya Pratama", st.Result.Student.Name)
	assert.Equal(t, PhaseResult, c.State().Phase)

	// an already canceled context settles too
	st = await(t, c.Submit(ctx, "9999999999"))
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, MsgNotFound, st.Error)

	st, err := c.Dismiss(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, st.Phase)
}

func TestSubmit_ClearsPreviousResult(t *testing.T) {
	gen := newGatedGenerator("0011223344")
	close(gen.gates["0011223344"])
	gen.gates["0012345678"] = make(chan struct{})
	c := New(newDirectory(), gen, 0, discardLogger())

	st := await(t, c.Submit(context.Background(), "0011223344"))
	require.Equal(t, PhaseResult, st.Phase)

	done := c.Submit(context.Background(), "0012345678")
	st = c.State()
	assert.Equal(t, PhaseLoading, st.Phase)
	assert.Nil(t, st.Result, "loading clears the previous result")

	gen.open("0012345678")
	assert.Equal(t, "Aditya Pratama", await(t, done).Result.Student.Name)
}

func TestSubmit_LatestSubmissionWins(t *testing.T) {
	gen := newGatedGenerator("0012345678", "0011223344")
	c := New(newDirectory(), gen, 0, discardLogger())

	first := c.Submit(context.Background(), "0012345678")
	second := c.Submit(context.Background(), "0011223344")

	gen.open("0011223344")
	st := await(t, second)
	require.Equal(t, PhaseResult, st.Phase)
	assert.Equal(t, "Budi Santoso", st.Result.Student.Name)

	// the superseded lookup completes later and must not overwrite
	gen.open("0012345678")
	stale := await(t, first)
	assert.Equal(t, "Budi Santoso", stale.Result.Student.Name)
	assert.Equal(t, "Budi Santoso", c.State().Result.Student.Name)
}

func TestSubmit_InvalidInputSupersedesInFlight(t *testing.T) {
	gen := newGatedGenerator("0012345678")
	c := New(newDirectory(), gen, 0, discardLogger())

	first := c.Submit(context.Background(), "0012345678")
	st := await(t, c.Submit(context.Background(), "12"))
	assert.Equal(t, PhaseError, st.Phase)

	gen.open("0012345678")
	await(t, first)
	assert.Equal(t, PhaseError, c.State().Phase)
	assert.Equal(t, MsgInvalidNISN, c.State().Error)
}

func TestDismiss(t *testing.T) {
	c := New(newDirectory(), staticGenerator{}, 0, discardLogger())

	_, err := c.Dismiss(context.Background())
	assert.True(t, errors.Is(err, ErrNothingToDismiss))

	st := await(t, c.Submit(context.Background(), "0012345678"))
	require.Equal(t, PhaseResult, st.Phase)

	st, err = c.Dismiss(context.Background())
	require.NoError(t, err)
	assert.Equal(t, State{Phase: PhaseIdle}, st)
	assert.Equal(t, State{Phase: PhaseIdle}, c.State())

	// a fresh submission is independent of the dismissed one
	st = await(t, c.Submit(context.Background(), "9999999999"))
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, MsgNotFound, st.Error)
	assert.Nil(t, st.Result)

	st, err = c.Dismiss(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, st.Phase)

	st = await(t, c.Submit(context.Background(), "0011223344"))
	require.Equal(t, PhaseResult, st.Phase)
	assert.Equal(t, "Budi Santoso", st.Result.Student.Name)
}

func TestSubscribe_StreamsTransitions(t *testing.T) {
	c := New(newDirectory(), staticGenerator{}, 0, discardLogger())

	states, stop := c.Subscribe()
	defer stop()

	await(t, c.Submit(context.Background(), "0012345678"))

	var phases []Phase
	for len(phases) < 4 {
		phases = append(phases, await(t, states).Phase)
	}
	assert.Equal(t, []Phase{PhaseIdle, PhaseValidating, PhaseLoading, PhaseResult}, phases)

	stop()
	_, open := <-states
	assert.False(t, open)
}

func TestSanitizeNISN(t *testing.T) {
	assert.Equal(t, "0012345678", SanitizeNISN("00-1234 5678"))
	assert.Equal(t, "", SanitizeNISN("abc"))
	assert.Equal(t, "123", SanitizeNISN("١٢٣123"))
}
