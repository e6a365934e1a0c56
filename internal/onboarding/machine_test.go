package onboarding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/session"
)

var acmeFields = models.DraftFields{
	BusinessName:        "Acme",
	YearFounded:         "2020",
	BusinessDescription: "We roast coffee.",
	TargetAudience:      "Remote workers",
	CompanyValues:       "Craft",
}

func pendingState(draft *session.Draft) session.State {
	return session.State{SessionID: "sess-1", Pending: "sess-1", Draft: draft}
}

func TestRequestGenerationMarksPendingFirst(t *testing.T) {
	for name, tc := range map[string]struct {
		id       Identity
		entitled bool
	}{
		"signed out":   {Identity{}, false},
		"not entitled": {Identity{AccountID: "acc-1"}, false},
		"entitled":     {Identity{AccountID: "acc-1"}, true},
	} {
		st := session.State{SessionID: "sess-1", Draft: &session.Draft{DraftFields: acmeFields}}
		_, effects := RequestGeneration(st, tc.id, tc.entitled)
		require.NotEmpty(t, effects, name)
		assert.Equal(t, MarkPending{SessionID: "sess-1"}, effects[0], name)
	}
}

func TestRequestGenerationSignedOutRedirectsToSignIn(t *testing.T) {
	phase, effects := RequestGeneration(session.State{SessionID: "sess-1"}, Identity{}, false)
	assert.Equal(t, AwaitingEntitlement, phase)
	assert.Equal(t, []Effect{MarkPending{SessionID: "sess-1"}, Redirect{To: SignIn}}, effects)
}

func TestNotEntitledClearsPendingAndGoesToBilling(t *testing.T) {
	phase, effects := Reconcile(pendingState(&session.Draft{DraftFields: acmeFields}), Identity{AccountID: "acc-1"}, false)
	assert.Equal(t, AwaitingEntitlement, phase)
	require.Len(t, effects, 3)
	assert.Equal(t, ClearPending{}, effects[0])
	warn, ok := effects[1].(Warn)
	require.True(t, ok)
	assert.ErrorIs(t, warn.Err, core.ErrNotEntitled)
	assert.Equal(t, Redirect{To: Billing}, effects[2])
}

func TestReconcileWithoutPendingIsNoop(t *testing.T) {
	st := session.State{SessionID: "sess-1", Draft: &session.Draft{DraftFields: acmeFields}}
	phase, effects := Reconcile(st, Identity{AccountID: "acc-1"}, true)
	assert.Equal(t, Drafting, phase)
	assert.Empty(t, effects)
}

func TestReconcileSignedOutKeepsWaiting(t *testing.T) {
	phase, effects := Reconcile(pendingState(&session.Draft{DraftFields: acmeFields}), Identity{}, false)
	assert.Equal(t, AwaitingEntitlement, phase)
	assert.Empty(t, effects)
}

func TestReconcileMigratesDraft(t *testing.T) {
	phase, effects := Reconcile(pendingState(&session.Draft{DraftFields: acmeFields}), Identity{AccountID: "acc-1"}, true)
	assert.Equal(t, Reconciled, phase)
	assert.Equal(t, []Effect{
		SaveDraftForAccount{Fields: acmeFields, SessionID: "sess-1"},
		ClearLocal{},
		Redirect{To: Dashboard},
	}, effects)
}

func TestReconcilePromotesCachedVoice(t *testing.T) {
	voice := generation.FallbackVoice("Acme", "")
	phase, effects := Reconcile(pendingState(&session.Draft{DraftFields: acmeFields, BrandVoice: &voice}), Identity{AccountID: "acc-1"}, true)
	assert.Equal(t, VoiceGenerated, phase)
	require.Len(t, effects, 4)
	assert.IsType(t, SaveDraftForAccount{}, effects[0])
	assert.Equal(t, CreateVoice{Voice: voice}, effects[1])
	assert.Equal(t, ClearLocal{}, effects[2])
}

func TestRequestGenerationEntitledGeneratesWhenNoVoiceCached(t *testing.T) {
	st := session.State{SessionID: "sess-1", Draft: &session.Draft{DraftFields: acmeFields}}
	phase, effects := RequestGeneration(st, Identity{AccountID: "acc-1"}, true)
	assert.Equal(t, VoiceGenerated, phase)
	assert.Equal(t, []Effect{
		MarkPending{SessionID: "sess-1"},
		SaveDraftForAccount{Fields: acmeFields, SessionID: "sess-1"},
		GenerateVoice{},
		ClearLocal{},
		Redirect{To: Dashboard},
	}, effects)
}

func TestPendingWithoutDraftIsStateConsistencyNoop(t *testing.T) {
	phase, effects := Reconcile(pendingState(nil), Identity{AccountID: "acc-1"}, true)
	assert.Equal(t, Reconciled, phase)
	require.Len(t, effects, 3)
	warn, ok := effects[0].(Warn)
	require.True(t, ok)
	assert.True(t, errors.Is(warn.Err, core.ErrStateConsistency))
	assert.Equal(t, ClearLocal{}, effects[1])
	assert.Equal(t, Redirect{To: Dashboard}, effects[2])
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "awaiting_entitlement", AwaitingEntitlement.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}
