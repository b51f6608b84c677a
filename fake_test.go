package mailpinger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// behaviour scripts how a fake server reacts to each step. A nil error
// means the step succeeds; hang makes the step block until its context ends.
type behaviour struct {
	dialErr   error
	loginErr  error
	capsErr   error
	selectErr error
	noopErr   error
	logoutErr error
	closeErr  error

	hang       string // step name that blocks until ctx is done
	nilSession bool
	panicOn    string
}

// fakeDialer hands out fakeSessions keyed by host.
type fakeDialer struct {
	mu         sync.Mutex
	behaviours map[string]behaviour
	sessions   []*fakeSession

	inFlight atomic.Int64
	peak     atomic.Int64
}

func newFakeDialer(b map[string]behaviour) *fakeDialer {
	return &fakeDialer{behaviours: b}
}

func (d *fakeDialer) Dial(ctx context.Context, addr Address) (Session, error) {
	d.mu.Lock()
	b := d.behaviours[addr.Host]
	d.mu.Unlock()

	if b.panicOn == stepDial {
		panic("dial exploded")
	}
	if b.hang == stepDial {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	if b.nilSession {
		return nil, nil
	}

	cur := d.inFlight.Add(1)
	for {
		p := d.peak.Load()
		if cur <= p || d.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	s := &fakeSession{b: b, dialer: d}
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

// allClosed reports whether every session handed out has been closed
// exactly once.
func (d *fakeDialer) allClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sessions {
		if s.closed.Load() != 1 {
			return false
		}
	}
	return true
}

type fakeSession struct {
	b      behaviour
	dialer *fakeDialer

	mu     sync.Mutex
	steps  []string
	closed atomic.Int32
}

func (s *fakeSession) record(ctx context.Context, step string, err error) error {
	s.mu.Lock()
	s.steps = append(s.steps, step)
	s.mu.Unlock()

	if s.b.panicOn == step {
		panic(step + " exploded")
	}
	if s.b.hang == step {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (s *fakeSession) Login(ctx context.Context, user, secret string) error {
	if secret == "" {
		return s.record(ctx, stepLogin, errors.New("NO [AUTHENTICATIONFAILED] empty password"))
	}
	return s.record(ctx, stepLogin, s.b.loginErr)
}

func (s *fakeSession) Capabilities(ctx context.Context) ([]string, error) {
	if err := s.record(ctx, stepCapabilities, s.b.capsErr); err != nil {
		return nil, err
	}
	return []string{"IDLE", "IMAP4rev1"}, nil
}

func (s *fakeSession) Select(ctx context.Context, mailbox string) (uint32, error) {
	if err := s.record(ctx, stepSelect, s.b.selectErr); err != nil {
		return 0, err
	}
	return 3, nil
}

func (s *fakeSession) Noop(ctx context.Context) error {
	return s.record(ctx, stepNoop, s.b.noopErr)
}

func (s *fakeSession) Logout(ctx context.Context) error {
	return s.record(ctx, stepLogout, s.b.logoutErr)
}

func (s *fakeSession) Close() error {
	if s.closed.Add(1) == 1 {
		s.dialer.inFlight.Add(-1)
	}
	return s.b.closeErr
}

func (s *fakeSession) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.steps...)
}
