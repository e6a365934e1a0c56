// Package onboarding drives the anonymous draft through sign-in and the
// subscription gate into the account. Decisions are pure functions returning
// the next phase and the effects to perform, executed by Reconciler.
package onboarding

import (
	"fmt"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/session"
)

type Phase int

const (
	Drafting Phase = iota
	AwaitingEntitlement
	Reconciled
	VoiceGenerated
)

func (p Phase) String() string {
	switch p {
	case Drafting:
		return "drafting"
	case AwaitingEntitlement:
		return "awaiting_entitlement"
	case Reconciled:
		return "reconciled"
	case VoiceGenerated:
		return "voice_generated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Destination string

const (
	SignIn    Destination = "sign-in"
	Billing   Destination = "billing"
	Dashboard Destination = "dashboard"
)

// Effect is one side effect requested by a decision.
type Effect interface{ isEffect() }

type (
	MarkPending  struct{ SessionID string }
	ClearPending struct{}
	// SaveDraftForAccount upserts the cached draft under the account,
	// adopting the session's server-side draft when there is one.
	SaveDraftForAccount struct {
		Fields    models.DraftFields
		SessionID string
	}
	// CreateVoice stores a voice on the draft saved by the preceding effect.
	CreateVoice struct{ Voice models.VoiceProfile }
	// GenerateVoice asks the server to generate and store a voice for the account.
	GenerateVoice struct{}
	ClearLocal    struct{}
	Redirect      struct{ To Destination }
	Warn          struct {
		Message string
		Err     error
	}
)

func (MarkPending) isEffect()         {}
func (ClearPending) isEffect()        {}
func (SaveDraftForAccount) isEffect() {}
func (CreateVoice) isEffect()         {}
func (GenerateVoice) isEffect()       {}
func (ClearLocal) isEffect()          {}
func (Redirect) isEffect()            {}
func (Warn) isEffect()                {}

// Identity is the result of the identity check. An empty AccountID means signed out.
type Identity struct {
	AccountID string
}

func (i Identity) Authenticated() bool { return i.AccountID != "" }

const (
	subscriptionRequired = "You need an active subscription to generate a brand voice. Subscribe, then try again."
	nothingToReconcile   = "Your onboarding answers could not be found on this device, so nothing was carried over."
)

// RequestGeneration handles the user asking for a brand voice. The pending
// flag is always recorded first so it survives the sign-in redirect.
func RequestGeneration(st session.State, id Identity, entitled bool) (Phase, []Effect) {
	effects := []Effect{MarkPending{SessionID: st.SessionID}}
	st.Pending = st.SessionID

	if !id.Authenticated() {
		return AwaitingEntitlement, append(effects, Redirect{To: SignIn})
	}
	phase, rest := reconcile(st, id, entitled, true)
	return phase, append(effects, rest...)
}

// Reconcile runs after authentication. Without a pending flag it does nothing.
func Reconcile(st session.State, id Identity, entitled bool) (Phase, []Effect) {
	return reconcile(st, id, entitled, false)
}

func reconcile(st session.State, id Identity, entitled, generate bool) (Phase, []Effect) {
	if st.Pending == "" {
		return Drafting, nil
	}
	if !id.Authenticated() {
		return AwaitingEntitlement, nil
	}
	if !entitled {
		return AwaitingEntitlement, []Effect{
			ClearPending{},
			Warn{Message: subscriptionRequired, Err: core.ErrNotEntitled},
			Redirect{To: Billing},
		}
	}
	if st.Draft == nil {
		return Reconciled, []Effect{
			Warn{Message: nothingToReconcile, Err: fmt.Errorf("%w: pending session %s has no cached draft", core.ErrStateConsistency, st.Pending)},
			ClearLocal{},
			Redirect{To: Dashboard},
		}
	}

	phase := Reconciled
	effects := []Effect{SaveDraftForAccount{Fields: st.Draft.DraftFields, SessionID: st.Pending}}
	switch {
	case st.Draft.BrandVoice != nil:
		effects = append(effects, CreateVoice{Voice: *st.Draft.BrandVoice})
		phase = VoiceGenerated
	case generate:
		effects = append(effects, GenerateVoice{})
		phase = VoiceGenerated
	}
	return phase, append(effects, ClearLocal{}, Redirect{To: Dashboard})
}
