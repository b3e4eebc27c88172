package contacts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/campus_lostfound/realtime"
)

type loadResult struct {
	previews []Preview
	err      error
}

// gatedLoader каждая загрузка ждет, пока тест не отдаст ей результат
type gatedLoader struct {
	calls chan chan loadResult
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{calls: make(chan chan loadResult)}
}

func (g *gatedLoader) Load(ctx context.Context, _ string) ([]Preview, error) {
	reply := make(chan loadResult)
	g.calls <- reply
	r := <-reply
	return r.previews, r.err
}

func (g *gatedLoader) next(t *testing.T) chan loadResult {
	t.Helper()
	select {
	case reply := <-g.calls:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("загрузка не началась")
	}
	return nil
}

type loaderFunc func(ctx context.Context, viewer string) ([]Preview, error)

func (f loaderFunc) Load(ctx context.Context, viewer string) ([]Preview, error) {
	return f(ctx, viewer)
}

type failingFeed struct{}

func (failingFeed) Subscribe(realtime.Filter) (*realtime.Subscription, error) {
	return nil, errors.New("realtime unavailable")
}

// recorder собирает состояния, переданные в OnUpdate
type recorder struct {
	mu      sync.Mutex
	states  []State
	updates chan State
}

func newRecorder() *recorder {
	return &recorder{updates: make(chan State, 64)}
}

func (r *recorder) onUpdate(st State) {
	r.mu.Lock()
	r.states = append(r.states, st)
	r.mu.Unlock()
	r.updates <- st
}

func (r *recorder) seqs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uint64
	for _, st := range r.states {
		out = append(out, st.Seq)
	}
	return out
}

func (r *recorder) wait(t *testing.T, cond func(State) bool) State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-r.updates:
			if cond(st) {
				return st
			}
		case <-deadline:
			t.Fatal("ожидаемое состояние не пришло")
			return State{}
		}
	}
}

func preview(id string, sec int) Preview {
	return Preview{UserID: id, FullName: "User " + id, Email: DefaultEmail, LastContact: at(sec)}
}

func TestSessionStaleResultIsDiscarded(t *testing.T) {
	loader := newGatedLoader()
	rec := newRecorder()
	s := NewSession("U1", loader, nil, quietLogger(), SessionOptions{OnUpdate: rec.onUpdate})
	defer s.Close()

	ctx := context.Background()
	errA := make(chan error, 1)
	go func() { errA <- s.Refresh(ctx) }()
	replyA := loader.next(t)

	errB := make(chan error, 1)
	go func() { errB <- s.Refresh(ctx) }()
	replyB := loader.next(t)

	assert.True(t, s.State().Loading)

	replyB <- loadResult{previews: []Preview{preview("U3", 20)}}
	require.NoError(t, <-errB)
	replyA <- loadResult{previews: []Preview{preview("U2", 10)}}
	require.NoError(t, <-errA)

	st := s.State()
	assert.Equal(t, uint64(2), st.Seq)
	assert.False(t, st.Loading)
	assert.Equal(t, []string{"U3"}, ids(st.Contacts))
	assert.Equal(t, []uint64{2}, rec.seqs())
}

func TestSessionNewerResultReplacesOlder(t *testing.T) {
	loader := newGatedLoader()
	rec := newRecorder()
	s := NewSession("U1", loader, nil, quietLogger(), SessionOptions{OnUpdate: rec.onUpdate})
	defer s.Close()

	ctx := context.Background()
	errA := make(chan error, 1)
	go func() { errA <- s.Refresh(ctx) }()
	replyA := loader.next(t)
	errB := make(chan error, 1)
	go func() { errB <- s.Refresh(ctx) }()
	replyB := loader.next(t)

	replyA <- loadResult{previews: []Preview{preview("U2", 10)}}
	require.NoError(t, <-errA)
	assert.True(t, s.State().Loading)

	replyB <- loadResult{previews: []Preview{preview("U3", 20), preview("U2", 10)}}
	require.NoError(t, <-errB)

	st := s.State()
	assert.Equal(t, []string{"U3", "U2"}, ids(st.Contacts))
	assert.False(t, st.Loading)
	assert.Equal(t, []uint64{1, 2}, rec.seqs())
}

func TestSessionErrorClearsContacts(t *testing.T) {
	fail := false
	loader := loaderFunc(func(context.Context, string) ([]Preview, error) {
		if fail {
			return nil, &QueryError{Step: StepProfiles, Err: errors.New("timeout")}
		}
		return []Preview{preview("U2", 1)}, nil
	})
	s := NewSession("U1", loader, nil, quietLogger(), SessionOptions{})
	defer s.Close()

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.State().Contacts, 1)

	fail = true
	err := s.Refresh(context.Background())

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	st := s.State()
	assert.Empty(t, st.Contacts)
	assert.ErrorAs(t, st.Err, &qe)
	assert.False(t, st.Loading)
}

func TestSessionStartWithoutViewer(t *testing.T) {
	s := NewSession("", loaderFunc(func(context.Context, string) ([]Preview, error) {
		t.Fatal("загрузка без пользователя")
		return nil, nil
	}), nil, quietLogger(), SessionOptions{})

	assert.ErrorIs(t, s.Start(context.Background()), ErrNoViewer)
}

func TestSessionSubscriptionFailureKeepsManualRefresh(t *testing.T) {
	calls := 0
	loader := loaderFunc(func(context.Context, string) ([]Preview, error) {
		calls++
		return []Preview{preview("U2", calls)}, nil
	})
	s := NewSession("U1", loader, failingFeed{}, quietLogger(), SessionOptions{})
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, calls)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, uint64(2), s.State().Seq)
}

func TestSessionCloseDiscardsInflightResult(t *testing.T) {
	loader := newGatedLoader()
	rec := newRecorder()
	s := NewSession("U1", loader, nil, quietLogger(), SessionOptions{OnUpdate: rec.onUpdate})

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	reply := loader.next(t)

	s.Close()
	assert.NotPanics(t, s.Close)
	assert.True(t, s.Closed())

	reply <- loadResult{previews: []Preview{preview("U2", 1)}}
	require.NoError(t, <-done)

	assert.Empty(t, s.State().Contacts)
	assert.Empty(t, rec.seqs())
	assert.ErrorIs(t, s.Refresh(context.Background()), ErrSessionClosed)
}

func TestSessionRefreshesOnFeedEvent(t *testing.T) {
	hub := realtime.NewHub(8, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	src := &memorySource{
		attempts: []ContactAttempt{attempt("a1", "U2", "U1", 10)},
		profiles: []ProfileSummary{profile("U2", 5), profile("U3", 1), profile("U4", 1)},
	}
	rec := newRecorder()
	s := NewSession("U1", NewFetcher(src, quietLogger()), hub, quietLogger(), SessionOptions{OnUpdate: rec.onUpdate})
	defer s.Close()

	require.NoError(t, s.Start(ctx))
	first := rec.wait(t, func(st State) bool { return st.Seq == 1 })
	assert.Equal(t, []string{"U2"}, ids(first.Contacts))

	// чужая попытка не вызывает обновления
	hub.Publish(realtime.Event{
		Table: realtime.TableContactAttempts,
		Type:  realtime.Insert,
		Row:   map[string]string{"contacted_by": "U4", "posted_user_id": "U3"},
	})

	src.add(attempt("a2", "U1", "U3", 20))
	hub.Publish(realtime.Event{
		Table: realtime.TableContactAttempts,
		Type:  realtime.Insert,
		Row:   map[string]string{"contacted_by": "U1", "posted_user_id": "U3"},
	})

	updated := rec.wait(t, func(st State) bool { return len(st.Contacts) == 2 })
	assert.Equal(t, []string{"U3", "U2"}, ids(updated.Contacts))
	assert.Equal(t, uint64(2), updated.Seq)
}

func TestSessionCloseUnsubscribes(t *testing.T) {
	hub := realtime.NewHub(8, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	var mu sync.Mutex
	calls := 0
	loader := loaderFunc(func(context.Context, string) ([]Preview, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil, nil
	})
	s := NewSession("U1", loader, hub, quietLogger(), SessionOptions{})
	require.NoError(t, s.Start(ctx))
	s.Close()

	hub.Publish(realtime.Event{
		Table: realtime.TableContactAttempts,
		Type:  realtime.Insert,
		Row:   map[string]string{"posted_user_id": "U1"},
	})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}
