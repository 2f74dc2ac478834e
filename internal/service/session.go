package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"productrag/internal/domain"
)

// Mode selects how a session treats consecutive queries.
type Mode int

const (
	// ModeContinuous answers each query on its own.
	ModeContinuous Mode = iota
	// ModeMultiTurn carries conversation history between queries.
	ModeMultiTurn
)

func (m Mode) String() string {
	if m == ModeMultiTurn {
		return "chat"
	}
	return "continuous"
}

// State is the lifecycle position of a session.
type State int

const (
	StateIdle State = iota
	StateAwaitingInput
	StateProcessing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateProcessing:
		return "processing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ReplyKind tells the front end how to present a Reply.
type ReplyKind int

const (
	ReplyNone ReplyKind = iota
	ReplyAnswer
	ReplyHelp
	ReplyCleared
	ReplyFarewell
)

// Reply is the outcome of one input line.
type Reply struct {
	Kind ReplyKind
	Text string
}

const (
	cmdExit  = "exit"
	cmdHelp  = "help"
	cmdClear = "clear"
)

// Farewell is shown when a session terminates.
const Farewell = "Goodbye! Thanks for shopping with us."

var (
	ErrNotAccepting = errors.New("session is not accepting input")
	ErrInterrupted  = errors.New("turn interrupted")
)

// HelpText lists the commands available in mode.
func HelpText(mode Mode) string {
	lines := []string{
		"Type a product question and press Enter.",
		"Add \"below <amount> USD\" to set a price ceiling.",
		"Commands:",
		"  help   show this message",
		"  exit   end the session",
	}
	if mode == ModeMultiTurn {
		lines = append(lines, "  clear  forget the conversation so far")
	}
	return strings.Join(lines, "\n")
}

// Answerer is the pipeline surface a session needs.
type Answerer interface {
	Answer(ctx context.Context, query string, history []domain.Turn) (string, error)
}

// Session drives one interactive conversation. It is used by a single input
// loop and performs no locking.
type Session struct {
	id       string
	mode     Mode
	pipeline Answerer
	history  *History
	state    State
	log      *log.Entry
}

func NewSession(pipeline Answerer, mode Mode, historyTurns int) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		mode:     mode,
		pipeline: pipeline,
		history:  NewHistory(historyTurns),
		state:    StateIdle,
		log:      log.WithFields(log.Fields{"session": id, "mode": mode.String()}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) State() State { return s.state }

// History returns a copy of the conversation turns.
func (s *Session) History() []domain.Turn { return s.history.Turns() }

// Start moves an idle session to AwaitingInput.
func (s *Session) Start() {
	if s.state == StateIdle {
		s.state = StateAwaitingInput
		s.log.Info("Session started")
	}
}

// Interrupt terminates the session and returns the farewell.
func (s *Session) Interrupt() Reply {
	s.terminate("interrupt")
	return Reply{Kind: ReplyFarewell, Text: Farewell}
}

// Handle processes one line of input. Provider and store failures never
// surface here; they become the Apology answer. ErrInterrupted is returned
// when ctx is cancelled mid-turn, in which case the partial exchange is rolled
// back and the session terminates.
func (s *Session) Handle(ctx context.Context, input string) (Reply, error) {
	if s.state != StateAwaitingInput {
		return Reply{}, fmt.Errorf("%w (state %s)", ErrNotAccepting, s.state)
	}
	text := strings.TrimSpace(input)
	if text == "" {
		return Reply{Kind: ReplyNone}, nil
	}

	switch strings.ToLower(text) {
	case cmdExit:
		s.terminate("exit")
		return Reply{Kind: ReplyFarewell, Text: Farewell}, nil
	case cmdHelp:
		return Reply{Kind: ReplyHelp, Text: HelpText(s.mode)}, nil
	case cmdClear:
		if s.mode == ModeMultiTurn {
			s.history.Reset()
			s.log.Info("History cleared")
			return Reply{Kind: ReplyCleared}, nil
		}
	}

	return s.process(ctx, text)
}

func (s *Session) process(ctx context.Context, query string) (reply Reply, err error) {
	s.state = StateProcessing
	var history []domain.Turn
	if s.mode == ModeMultiTurn {
		s.history.Append(domain.RoleUser, query)
		history = s.history.Turns()
	}

	answer, err := s.answer(ctx, query, history)
	if err != nil {
		if ctx.Err() != nil {
			if s.mode == ModeMultiTurn {
				s.history.dropLast()
			}
			s.terminate("interrupt")
			return Reply{Kind: ReplyFarewell, Text: Farewell}, ErrInterrupted
		}
		logFields := log.Fields{"query": query}
		var f *domain.Failure
		if errors.As(err, &f) {
			logFields["stage"] = f.Stage
			logFields["kind"] = f.Kind.String()
		}
		s.log.WithFields(logFields).WithError(err).Error("Turn failed")
		answer = Apology
	}

	if s.mode == ModeMultiTurn {
		s.history.Append(domain.RoleAssistant, answer)
		s.history.Trim()
	}
	s.state = StateAwaitingInput
	return Reply{Kind: ReplyAnswer, Text: answer}, nil
}

func (s *Session) answer(ctx context.Context, query string, history []domain.Turn) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.pipeline.Answer(ctx, query, history)
}

func (s *Session) terminate(reason string) {
	if s.state == StateTerminated {
		return
	}
	s.state = StateTerminated
	s.log.WithField("reason", reason).Info("Session terminated")
}
