package onboarding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/session"
)

// API is the server side of the flow.
type API interface {
	Identity(ctx context.Context) (Identity, error)
	Entitled(ctx context.Context, accountID string) (bool, error)
	SaveDraftForAccount(ctx context.Context, fields models.DraftFields, sessionID string) (string, error)
	CreateVoice(ctx context.Context, draftID string, voice models.VoiceProfile) (*models.BrandVoice, error)
	GenerateVoice(ctx context.Context) (*models.BrandVoice, generation.Outcome, error)
	PreviewVoice(ctx context.Context, req generation.VoiceRequest) (generation.VoiceResult, error)
}

// Navigator shows the user where to go next and surfaces warnings.
type Navigator interface {
	Navigate(to Destination)
	Warn(message string)
}

// Reconciler executes decisions against the API, the local session and the navigator.
type Reconciler struct {
	api   API
	local *session.Local
	nav   Navigator
	log   *zap.Logger
	group singleflight.Group
}

func NewReconciler(api API, local *session.Local, nav Navigator, log *zap.Logger) *Reconciler {
	return &Reconciler{api: api, local: local, nav: nav, log: log}
}

type runResult struct {
	phase Phase
}

// Reconcile resumes a pending onboarding after sign-in. Concurrent calls share one run.
func (r *Reconciler) Reconcile(ctx context.Context) (Phase, error) {
	v, err, _ := r.group.Do("reconcile", func() (any, error) {
		st := r.local.State()
		if st.Pending == "" {
			return runResult{phase: Drafting}, nil
		}
		id, entitled, err := r.check(ctx)
		if err != nil {
			return runResult{phase: AwaitingEntitlement}, err
		}
		phase, effects := Reconcile(st, id, entitled)
		return runResult{phase: phase}, r.run(ctx, effects)
	})
	return v.(runResult).phase, err
}

// RequestGeneration handles the user asking for a voice. Concurrent calls share one run.
func (r *Reconciler) RequestGeneration(ctx context.Context) (Phase, error) {
	v, err, _ := r.group.Do("generate", func() (any, error) {
		if _, err := r.local.GetOrCreateSessionID(); err != nil {
			return runResult{phase: Drafting}, err
		}
		st := r.local.State()
		id, entitled, err := r.check(ctx)
		if err != nil {
			return runResult{phase: Drafting}, err
		}
		phase, effects := RequestGeneration(st, id, entitled)
		return runResult{phase: phase}, r.run(ctx, effects)
	})
	return v.(runResult).phase, err
}

// Preview generates a voice for the local draft without storing it on the
// account and caches it on the draft, so the next reconcile promotes it
// instead of generating again. Fallback voices are shown but not cached.
func (r *Reconciler) Preview(ctx context.Context) (generation.VoiceResult, error) {
	v, err, _ := r.group.Do("preview", func() (any, error) {
		d := r.local.LoadDraft()
		if d.IsEmpty() {
			return generation.VoiceResult{}, fmt.Errorf("%w: the draft is empty", core.ErrValidation)
		}
		res, err := r.api.PreviewVoice(ctx, generation.VoiceRequestFromDraft(d.DraftFields))
		switch {
		case errors.Is(err, core.ErrNotAuthenticated):
			r.nav.Navigate(SignIn)
		case errors.Is(err, core.ErrNotEntitled):
			r.nav.Warn(subscriptionRequired)
			r.nav.Navigate(Billing)
		}
		if err != nil {
			return generation.VoiceResult{}, fmt.Errorf("voice preview: %w", err)
		}
		if res.Fallback {
			r.nav.Warn(res.Warning)
			return res, nil
		}
		d.BrandVoice = &res.Voice
		return res, r.local.SaveDraft(d)
	})
	return v.(generation.VoiceResult), err
}

func (r *Reconciler) check(ctx context.Context) (Identity, bool, error) {
	id, err := r.api.Identity(ctx)
	if err != nil {
		return Identity{}, false, fmt.Errorf("identity check: %w", err)
	}
	if !id.Authenticated() {
		return id, false, nil
	}
	entitled, err := r.api.Entitled(ctx, id.AccountID)
	if err != nil {
		return id, false, fmt.Errorf("subscription check: %w", err)
	}
	return id, entitled, nil
}

// run applies effects in order, each completing before the next starts.
// The first failure stops the run and leaves the local state in place.
func (r *Reconciler) run(ctx context.Context, effects []Effect) error {
	draftID := ""
	for _, e := range effects {
		var err error
		switch e := e.(type) {
		case MarkPending:
			err = r.local.MarkPending(e.SessionID)
		case ClearPending:
			err = r.local.ClearPending()
		case SaveDraftForAccount:
			draftID, err = r.api.SaveDraftForAccount(ctx, e.Fields, e.SessionID)
		case CreateVoice:
			if draftID == "" {
				err = fmt.Errorf("%w: voice creation without a saved draft", core.ErrStateConsistency)
				break
			}
			_, err = r.api.CreateVoice(ctx, draftID, e.Voice)
		case GenerateVoice:
			var outcome generation.Outcome
			_, outcome, err = r.api.GenerateVoice(ctx)
			if err == nil && outcome.Fallback {
				r.nav.Warn(outcome.Warning)
			}
		case ClearLocal:
			err = r.local.Clear()
		case Redirect:
			r.nav.Navigate(e.To)
		case Warn:
			r.log.Warn(e.Message, zap.Error(e.Err))
			r.nav.Warn(e.Message)
		default:
			err = fmt.Errorf("unknown effect %T", e)
		}
		if err != nil {
			r.log.Error("onboarding step failed", zap.String("step", fmt.Sprintf("%T", e)), zap.Error(err))
			return err
		}
	}
	return nil
}

// IsRetryable reports whether a failed run can simply be attempted again.
func IsRetryable(err error) bool {
	return errors.Is(err, core.ErrTransport)
}
