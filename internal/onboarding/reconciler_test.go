package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/core"
	db "github.com/gichigi/choir/internal/core/database"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/services"
	"github.com/gichigi/choir/internal/session"
)

// serviceAPI runs the flow against the real services over the in-memory store.
type serviceAPI struct {
	accountID  string
	entitled   bool
	onboarding *services.OnboardingService
	voices     *services.BrandVoiceService
	calls      []string
	failCreate error
	preview    *generation.VoiceResult
}

func newServiceAPI() *serviceAPI {
	store := db.NewMemoryClient()
	gen := generation.NewGenerator(nil, time.Second, zap.NewNop())
	return &serviceAPI{
		onboarding: services.NewOnboardingService(store, zap.NewNop()),
		voices:     services.NewBrandVoiceService(store, gen, zap.NewNop()),
	}
}

func (a *serviceAPI) Identity(ctx context.Context) (Identity, error) {
	a.calls = append(a.calls, "identity")
	return Identity{AccountID: a.accountID}, nil
}

func (a *serviceAPI) Entitled(ctx context.Context, accountID string) (bool, error) {
	a.calls = append(a.calls, "entitled")
	return a.entitled, nil
}

func (a *serviceAPI) SaveDraftForAccount(ctx context.Context, fields models.DraftFields, sessionID string) (string, error) {
	a.calls = append(a.calls, "save")
	return a.onboarding.SaveForAccount(ctx, a.accountID, fields, sessionID)
}

func (a *serviceAPI) CreateVoice(ctx context.Context, draftID string, voice models.VoiceProfile) (*models.BrandVoice, error) {
	a.calls = append(a.calls, "create_voice")
	if a.failCreate != nil {
		return nil, a.failCreate
	}
	return a.voices.Create(ctx, a.accountID, draftID, voice)
}

func (a *serviceAPI) GenerateVoice(ctx context.Context) (*models.BrandVoice, generation.Outcome, error) {
	a.calls = append(a.calls, "generate_voice")
	return a.voices.Regenerate(ctx, a.accountID)
}

func (a *serviceAPI) PreviewVoice(ctx context.Context, req generation.VoiceRequest) (generation.VoiceResult, error) {
	a.calls = append(a.calls, "preview")
	switch {
	case a.accountID == "":
		return generation.VoiceResult{}, core.ErrNotAuthenticated
	case !a.entitled:
		return generation.VoiceResult{}, core.ErrNotEntitled
	case a.preview != nil:
		return *a.preview, nil
	}
	return a.voices.Generate(ctx, req), nil
}

type recordingNav struct {
	went     []Destination
	warnings []string
}

func (n *recordingNav) Navigate(to Destination) { n.went = append(n.went, to) }
func (n *recordingNav) Warn(msg string)         { n.warnings = append(n.warnings, msg) }

func newLocal(t *testing.T) *session.Local {
	t.Helper()
	return session.NewLocal(session.NewMemoryStore(), zap.NewNop())
}

func TestScenarioSessionDraftReachesAccount(t *testing.T) {
	ctx := context.Background()
	api := newServiceAPI()
	local := newLocal(t)
	nav := &recordingNav{}

	sessionID, err := local.GetOrCreateSessionID()
	require.NoError(t, err)
	require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields}))
	sessionDraftID, err := api.onboarding.SaveForSession(ctx, sessionID, acmeFields)
	require.NoError(t, err)

	r := NewReconciler(api, local, nav, zap.NewNop())

	// anonymous request: flag recorded, user sent to sign in
	phase, err := r.RequestGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, AwaitingEntitlement, phase)
	assert.Equal(t, sessionID, local.Pending())
	assert.Equal(t, []Destination{SignIn}, nav.went)

	// signed in and subscribed: the post-authentication run migrates the draft
	api.accountID, api.entitled = "acc-1", true
	phase, err = r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, Reconciled, phase)
	assert.Equal(t, []Destination{SignIn, Dashboard}, nav.went)

	got, err := api.onboarding.GetForAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.BusinessName)
	assert.Equal(t, sessionDraftID, got.ID, "re-keyed, not copied")

	bySession, err := api.onboarding.GetForSession(ctx, sessionID)
	require.NoError(t, err)
	if bySession != nil {
		assert.Equal(t, got.ID, bySession.ID)
	}

	assert.Equal(t, session.State{}, local.State(), "local artifacts cleared together")
}

func TestReconcileTwiceMakesNoFurtherCalls(t *testing.T) {
	ctx := context.Background()
	api := newServiceAPI()
	api.accountID, api.entitled = "acc-1", true
	local := newLocal(t)
	voice := generation.FallbackVoice("Acme", "")
	require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields, BrandVoice: &voice}))
	require.NoError(t, local.MarkPending("sess-1"))

	r := NewReconciler(api, local, &recordingNav{}, zap.NewNop())
	phase, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, VoiceGenerated, phase)
	assert.Equal(t, []string{"identity", "entitled", "save", "create_voice"}, api.calls)

	first, err := api.voices.Get(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	phase, err = r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, Drafting, phase)
	assert.Len(t, api.calls, 4, "second run is a no-op")

	again, err := api.voices.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestFailedStepLeavesLocalStateForRetry(t *testing.T) {
	ctx := context.Background()
	api := newServiceAPI()
	api.accountID, api.entitled = "acc-1", true
	api.failCreate = core.ErrTransport
	local := newLocal(t)
	voice := generation.FallbackVoice("Acme", "")
	require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields, BrandVoice: &voice}))
	require.NoError(t, local.MarkPending("sess-1"))
	nav := &recordingNav{}

	r := NewReconciler(api, local, nav, zap.NewNop())
	_, err := r.Reconcile(ctx)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "sess-1", local.Pending())
	assert.True(t, local.HasDraft())
	assert.Empty(t, nav.went)

	// retry converges: the account draft is patched, not duplicated
	api.failCreate = nil
	_, err = r.Reconcile(ctx)
	require.NoError(t, err)
	d, err := api.onboarding.GetForAccount(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.NotNil(t, d.GeneratedVoice)
	assert.Equal(t, []Destination{Dashboard}, nav.went)
}

func TestNotEntitledRunGoesToBilling(t *testing.T) {
	ctx := context.Background()
	api := newServiceAPI()
	api.accountID = "acc-1"
	local := newLocal(t)
	require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields}))
	require.NoError(t, local.MarkPending("sess-1"))
	nav := &recordingNav{}

	phase, err := NewReconciler(api, local, nav, zap.NewNop()).Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, AwaitingEntitlement, phase)
	assert.Equal(t, []Destination{Billing}, nav.went)
	assert.Len(t, nav.warnings, 1)
	assert.Empty(t, local.Pending())
	assert.True(t, local.HasDraft(), "draft kept for a later retry")
}

func TestRequestGenerationWhenEntitledStoresVoice(t *testing.T) {
	ctx := context.Background()
	api := newServiceAPI()
	api.accountID, api.entitled = "acc-1", true
	local := newLocal(t)
	require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields}))
	nav := &recordingNav{}

	phase, err := NewReconciler(api, local, nav, zap.NewNop()).RequestGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, VoiceGenerated, phase)
	assert.Contains(t, api.calls, "generate_voice")
	assert.Len(t, nav.warnings, 1, "no provider configured, fallback voice is flagged")

	v, err := api.voices.Get(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Len(t, v.Pillars, 3)
}

type failingIdentity struct{ serviceAPI }

func (f *failingIdentity) Identity(ctx context.Context) (Identity, error) {
	return Identity{}, errors.New("connection refused")
}

func TestIdentityFailureKeepsPending(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields}))
	require.NoError(t, local.MarkPending("sess-1"))

	_, err := NewReconciler(&failingIdentity{}, local, &recordingNav{}, zap.NewNop()).Reconcile(context.Background())
	require.Error(t, err)
	assert.Equal(t, "sess-1", local.Pending())
}

func TestPreviewIsCachedAndPromotedOnGeneration(t *testing.T) {
	ctx := context.Background()
	api := newServiceAPI()
	api.accountID, api.entitled = "acc-1", true
	voice := generation.FallbackVoice("Acme Preview", "A preview summary.")
	api.preview = &generation.VoiceResult{Voice: voice}
	local := newLocal(t)
	require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields}))
	nav := &recordingNav{}
	r := NewReconciler(api, local, nav, zap.NewNop())

	res, err := r.Preview(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme Preview", res.Voice.CompanyName)
	cached := local.LoadDraft().BrandVoice
	require.NotNil(t, cached)
	assert.Equal(t, voice, *cached)

	stored, err := api.voices.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Nil(t, stored, "a preview is not stored on the account")

	phase, err := r.RequestGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, VoiceGenerated, phase)
	assert.Equal(t, []string{"preview", "identity", "entitled", "save", "create_voice"}, api.calls)
	assert.NotContains(t, api.calls, "generate_voice", "the cached voice is promoted, not regenerated")

	stored, err = api.voices.Get(ctx, "acc-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "A preview summary.", stored.BusinessSummary)
	assert.False(t, local.HasDraft())
}

func TestPreviewFallbackIsNotCached(t *testing.T) {
	api := newServiceAPI()
	api.accountID, api.entitled = "acc-1", true
	local := newLocal(t)
	require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields}))
	nav := &recordingNav{}

	res, err := NewReconciler(api, local, nav, zap.NewNop()).Preview(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Len(t, res.Voice.Pillars, 3)
	assert.Nil(t, local.LoadDraft().BrandVoice)
	assert.Len(t, nav.warnings, 1)
}

func TestPreviewRequiresEntitlement(t *testing.T) {
	ctx := context.Background()
	for name, tc := range map[string]struct {
		accountID string
		want      error
		goesTo    Destination
	}{
		"signed out":   {"", core.ErrNotAuthenticated, SignIn},
		"not entitled": {"acc-1", core.ErrNotEntitled, Billing},
	} {
		t.Run(name, func(t *testing.T) {
			api := newServiceAPI()
			api.accountID = tc.accountID
			local := newLocal(t)
			require.NoError(t, local.SaveDraft(session.Draft{DraftFields: acmeFields}))
			nav := &recordingNav{}

			_, err := NewReconciler(api, local, nav, zap.NewNop()).Preview(ctx)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, []Destination{tc.goesTo}, nav.went)
			assert.Nil(t, local.LoadDraft().BrandVoice)
		})
	}
}

func TestPreviewNeedsADraft(t *testing.T) {
	api := newServiceAPI()
	_, err := NewReconciler(api, newLocal(t), &recordingNav{}, zap.NewNop()).Preview(context.Background())
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, api.calls)
}
