// Package session implements the chat session registry and per-turn
// orchestration protocol (§4.5): a bounded, in-memory
// conversational record keyed by (userID, sessionID), a MicroRunner
// contract for validating a chat backend's response before it reaches
// the caller, and a periodic reaper that evicts idle non-default
// sessions.
package session

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultSessionID is used by callers that do not supply one.
	// Sessions with this id are never evicted by the reaper.
	DefaultSessionID = "default"

	// MaxTurns is the history cap: at most this many {user, model}
	// pairs are retained; the oldest is dropped on overflow.
	MaxTurns = 50

	// DefaultTTL is the inactivity window after which a non-default
	// session is eligible for eviction.
	DefaultTTL = 30 * time.Minute

	// DefaultReapInterval is how often the reaper goroutine sweeps for
	// idle sessions.
	DefaultReapInterval = 5 * time.Minute
)

// Message is one entry in a turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is a {user, model} pair. A turn with an empty Model is an
// in-flight turn awaiting the backend's reply.
type Turn struct {
	User  Message `json:"user"`
	Model Message `json:"model"`
}

// Session is the in-memory conversational record §4.5 names:
// { chatHandle, history[], lastAccess }, keyed by (userID, sessionID).
// Mutations are serialised per session via mu — the orchestrator does
// not interleave two in-flight turns of the same session (§5).
type Session struct {
	UserID     string
	ID         string
	ChatHandle string
	History    []Turn
	LastAccess time.Time

	mu sync.Mutex
}

// Lock serialises turn processing for this session. Unlock must be
// called by the same goroutine that locked it.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// appendTurn records t and enforces the 50-turn cap, dropping the
// oldest pair on overflow.
func (s *Session) appendTurn(t Turn) {
	s.History = append(s.History, t)
	if len(s.History) > MaxTurns {
		s.History = s.History[len(s.History)-MaxTurns:]
	}
}

// touch stamps LastAccess. Callers hold the session lock.
func (s *Session) touch(now time.Time) { s.LastAccess = now }

// ChatBackend is the narrow capability internal/session needs from a
// generative backend: send a transcript, get text back. The concrete
// vendor client lives in internal/chatbackend and satisfies this
// structurally.
type ChatBackend interface {
	Send(ctx context.Context, messages []Message) (string, error)
}

// ValidationContract is an opaque, backend-defined description of what
// a valid response must satisfy, produced by MicroRunner.Prepare and
// threaded through to MicroRunner.Validate unexamined.
type ValidationContract any

// GatedContext is an opaque retrieval/configuration payload threaded
// the same way as ValidationContract.
type GatedContext any

// ValidationReceipt is whatever a MicroRunner wants recorded once a
// turn's response has been accepted (possibly after repair).
type ValidationReceipt any

// PrepareResult is MicroRunner.Prepare's output: the contract and
// gated context to carry forward, plus the (possibly augmented)
// message actually sent to the chat backend.
type PrepareResult struct {
	Contract         ValidationContract
	GatedContext     GatedContext
	AugmentedMessage string
}

// ValidateResult is MicroRunner.Validate's output.
type ValidateResult struct {
	Receipt      ValidationReceipt
	NeedsRepair  bool
	RepairPrompt string
}

// MicroRunner is the optional response-validation contract the design
// §4.5 names: prepare the prompt, validate the backend's reply against
// a contract, and finalise a receipt once accepted.
type MicroRunner interface {
	Prepare(ctx context.Context, message string) (PrepareResult, error)
	Validate(ctx context.Context, responseText string, contract ValidationContract, gatedContext GatedContext) (ValidateResult, error)
	Finalize(ctx context.Context, receipt ValidationReceipt) error
}

// ValidationDisclaimer is prepended to a response that still fails
// validation after one repair attempt (§4.5 step 2).
const ValidationDisclaimer = "[unverified: this response did not pass automated validation]\n\n"
