// Package session drives one target run: handshake, the lock-step dispatch
// loop over reported markers, and the exit drain.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/metal-test/metal/internal/engine"
	"github.com/metal-test/metal/internal/hook"
	"github.com/metal-test/metal/internal/serialinfo"
)

// ErrNoExpansion is returned when a reported marker has no macro expansion.
var ErrNoExpansion = errors.New("session: no macro expansion for marker")

// State is the lifecycle phase of a session.
type State int32

const (
	StateHandshaking State = iota
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session owns the stream and the engine for one target run.
type Session struct {
	id       string
	ctx      context.Context
	info     *serialinfo.Info
	registry *hook.Registry
	stream   io.ReadWriteCloser
	engine   *engine.Engine
	logger   zerolog.Logger

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// New performs the handshake on rw. The stream is closed if it fails.
func New(ctx context.Context, info *serialinfo.Info, rw io.ReadWriteCloser, registry *hook.Registry, logger zerolog.Logger) (*Session, error) {
	s := &Session{
		id:       uuid.New().String(),
		ctx:      ctx,
		info:     info,
		registry: registry,
		stream:   rw,
	}
	s.logger = logger.With().
		Str("component", "session").
		Str("session", s.id).
		Logger()
	s.state.Store(int32(StateHandshaking))

	e, err := engine.New(info, rw, rw, s.logger)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}
	s.engine = e

	init := e.InitMarker()
	s.logger.Info().
		Int("width", e.Width()).
		Str("order", fmt.Sprint(e.Order())).
		Int64("base", e.BaseOffset()).
		Str("init", fmt.Sprintf("%s(%d)", init.File, init.Line)).
		Msg("Target connected")
	return s, nil
}

// ID is the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State reports the current lifecycle phase.
func (s *Session) State() State { return State(s.state.Load()) }

// Engine exposes the session's engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Run dispatches reported markers until the exit hook stops, then notifies
// every hook of the exit code in registration order. The stream is closed
// when Run returns. The context is only consulted between messages.
func (s *Session) Run() (int, error) {
	s.state.Store(int32(StateRunning))
	term := s.registry.Terminator()

	for term.Running() {
		if err := s.ctx.Err(); err != nil {
			s.close()
			return 0, fmt.Errorf("session cancelled: %w", err)
		}
		if err := s.step(); err != nil {
			s.close()
			return 0, err
		}
	}

	code := term.ExitCode()
	s.logger.Info().Int("code", code).Msg("Target exited")

	s.state.Store(int32(StateDraining))
	for _, h := range s.registry.All() {
		if err := h.Exit(code); err != nil {
			s.close()
			return code, fmt.Errorf("exit notification for %s failed: %w", h.Identifier(), err)
		}
	}

	if err := s.close(); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to close stream")
	}
	return code, nil
}

func (s *Session) step() error {
	m, err := s.engine.ReadMarker()
	if err != nil {
		return err
	}

	exp, ok := s.info.FindExpansion(m)
	if !ok {
		return fmt.Errorf("%s(%d): %w: %s", m.File, m.Line, ErrNoExpansion, m.Name)
	}

	h, err := s.registry.Lookup(exp.Name)
	if err != nil {
		return fmt.Errorf("%s(%d): %w", exp.File, exp.Line, err)
	}

	s.logger.Debug().
		Str("macro", exp.Name).
		Str("file", exp.File).
		Int("line", exp.Line).
		Msg("Dispatching")

	if err := h.Invoke(s.engine, exp); err != nil {
		return fmt.Errorf("%s(%d): %s: %w", exp.File, exp.Line, exp.Name, err)
	}
	return nil
}

// Close tears the stream down. It is safe to call after Run.
func (s *Session) Close() error {
	return s.close()
}

func (s *Session) close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.stream.Close()
		s.state.Store(int32(StateClosed))
	})
	return s.closeErr
}
