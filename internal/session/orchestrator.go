package session

import (
	"context"
	"fmt"
	"time"
)

// Orchestrator runs the per-turn protocol §4.5 describes:
// record the user message, optionally gate the round-trip through a
// MicroRunner, append the reply, and enforce the history cap. One
// Orchestrator is shared across sessions; per-session serialisation
// comes from Session.Lock, not from anything here.
type Orchestrator struct {
	store   Store
	backend ChatBackend
}

// NewOrchestrator builds an Orchestrator over store using backend to
// produce replies.
func NewOrchestrator(store Store, backend ChatBackend) *Orchestrator {
	return &Orchestrator{store: store, backend: backend}
}

// HandleTurn runs one turn of (userID, sessionID): it records message,
// sends it to the backend (through runner's prepare/validate/repair
// gate if runner is non-nil), appends the reply, and persists the
// session. The session's own lock is held for the duration, so a
// second concurrent call for the same session blocks until this one
// returns — §5's "does not interleave two in-flight turns of
// the same session".
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, sessionID, message string, runner MicroRunner) (string, error) {
	sess, err := o.store.Get(ctx, userID, sessionID)
	if err != nil {
		return "", fmt.Errorf("session: load: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()

	sess.appendTurn(Turn{User: Message{Role: "user", Content: message}})

	reply, err := o.runTurn(ctx, message, runner)
	if err != nil {
		return "", err
	}

	sess.History[len(sess.History)-1].Model = Message{Role: "model", Content: reply}
	sess.touch(time.Now())

	if err := o.store.Save(ctx, sess); err != nil {
		return "", fmt.Errorf("session: save: %w", err)
	}
	return reply, nil
}

func (o *Orchestrator) runTurn(ctx context.Context, message string, runner MicroRunner) (string, error) {
	if runner == nil {
		return o.backend.Send(ctx, []Message{{Role: "user", Content: message}})
	}

	prep, err := runner.Prepare(ctx, message)
	if err != nil {
		return "", fmt.Errorf("session: prepare: %w", err)
	}

	responseText, err := o.backend.Send(ctx, []Message{{Role: "user", Content: prep.AugmentedMessage}})
	if err != nil {
		return "", fmt.Errorf("session: backend send: %w", err)
	}

	result, err := runner.Validate(ctx, responseText, prep.Contract, prep.GatedContext)
	if err != nil {
		return "", fmt.Errorf("session: validate: %w", err)
	}

	if result.NeedsRepair {
		responseText, err = o.backend.Send(ctx, []Message{{Role: "user", Content: result.RepairPrompt}})
		if err != nil {
			return "", fmt.Errorf("session: backend repair send: %w", err)
		}
		result, err = runner.Validate(ctx, responseText, prep.Contract, prep.GatedContext)
		if err != nil {
			return "", fmt.Errorf("session: revalidate: %w", err)
		}
		if result.NeedsRepair {
			responseText = ValidationDisclaimer + responseText
		}
	}

	if err := runner.Finalize(ctx, result.Receipt); err != nil {
		return "", fmt.Errorf("session: finalize: %w", err)
	}
	return responseText, nil
}
