package app

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/config"
	db "github.com/gichigi/choir/internal/core/database"
	"github.com/gichigi/choir/internal/core/extractor"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/services"
)

type testServer struct {
	t    *testing.T
	srv  *httptest.Server
	subs *services.SubscriptionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:            "secret",
		BillingWebhookSecret: "whsec",
		SignInPath:           "/sign-in",
		BillingPath:          "/pricing",
		AllowedOrigins:       []string{"http://localhost:3000"},
		GenerationTimeout:    time.Second,
	}
	log := zap.NewNop()
	store := db.NewMemoryClient()
	gen := generation.NewGenerator(nil, time.Second, log)
	subs := services.NewSubscriptionService(store, cfg.BillingWebhookSecret, log)
	svc := Services{
		Accounts:      services.NewAccountService(store, cfg.JWTSecret),
		Onboarding:    services.NewOnboardingService(store, log),
		Voices:        services.NewBrandVoiceService(store, gen, log),
		Content:       services.NewContentService(store, gen, nil, "", log),
		Subscriptions: subs,
		Extractor:     extractor.NewDocconvExtractor(false, log),
	}
	srv := httptest.NewServer(NewRouter(cfg, svc, log))
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, subs: subs}
}

func (s *testServer) do(method, path, token string, body any) (*http.Response, []byte) {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(s.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp, out
}

func (s *testServer) signup(email string) (token, accountID string) {
	s.t.Helper()
	resp, body := s.do(http.MethodPost, "/api/signup", "", map[string]string{"email": email, "password": "correct horse"})
	require.Equal(s.t, http.StatusCreated, resp.StatusCode, string(body))
	var out struct {
		Token     string `json:"token"`
		AccountID string `json:"accountId"`
	}
	require.NoError(s.t, json.Unmarshal(body, &out))
	return out.Token, out.AccountID
}

func (s *testServer) subscribe(eventID, accountID string) {
	s.t.Helper()
	body := []byte(`{"id":"` + eventID + `","type":"subscription.active","data":{"id":"sub-` + accountID +
		`","status":"active","metadata":{"accountId":"` + accountID + `"}}}`)
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/billing/webhook", bytes.NewReader(body))
	require.NoError(s.t, err)
	req.Header.Set("X-Billing-Signature", s.subs.Sign(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	resp.Body.Close()
	require.Equal(s.t, http.StatusOK, resp.StatusCode)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

var acme = map[string]string{
	"businessName":        "Acme",
	"yearFounded":         "2020",
	"businessDescription": "We roast coffee. Small batches.",
	"targetAudience":      "Remote workers",
	"companyValues":       "Craft",
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestOnboardingToAccountFlow(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(http.MethodPut, "/api/onboarding/session/sess-1", "", acme)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	sessionDraft := decode[map[string]string](t, body)["id"]

	token, accountID := s.signup("jo@example.com")

	resp, body = s.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[map[string]any](t, body)["entitled"].(bool))

	resp, body = s.do(http.MethodPost, "/api/brand-voice/generate", token, acme)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "/pricing", decode[map[string]string](t, body)["redirect"])

	s.subscribe("evt-1", accountID)

	withSession := map[string]string{"sessionId": "sess-1"}
	for k, v := range acme {
		withSession[k] = v
	}
	resp, body = s.do(http.MethodPut, "/api/onboarding", token, withSession)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	accountDraft := decode[map[string]string](t, body)["id"]
	assert.Equal(t, sessionDraft, accountDraft)

	resp, body = s.do(http.MethodPost, "/api/brand-voice/generate", token, acme)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	preview := decode[generation.VoiceResult](t, body)
	assert.True(t, preview.Fallback, "no provider configured")
	require.Len(t, preview.Voice.Pillars, 3)

	resp, body = s.do(http.MethodPost, "/api/brand-voice", token, map[string]any{
		"draftId":    accountDraft,
		"brandVoice": preview.Voice,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = s.do(http.MethodGet, "/api/onboarding", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft := decode[map[string]any](t, body)
	assert.Equal(t, "Acme", draft["businessName"])
	assert.NotNil(t, draft["generatedVoice"])
}

func TestContentLibraryOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token, accountID := s.signup("jo@example.com")
	s.subscribe("evt-1", accountID)

	resp, body := s.do(http.MethodPut, "/api/onboarding", token, acme)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	resp, body = s.do(http.MethodPost, "/api/brand-voice/regenerate", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	regenerated := decode[struct {
		BrandVoice struct {
			ID string `json:"id"`
		} `json:"brandVoice"`
		Fallback bool `json:"fallback"`
	}](t, body)
	assert.True(t, regenerated.Fallback)
	voiceID := regenerated.BrandVoice.ID

	var ids []string
	for _, tc := range []struct {
		title, typ string
		tags       []string
	}{
		{"One", "blog", []string{"A"}},
		{"Two", "blog", []string{"B"}},
		{"Three", "social", []string{"A", "B"}},
		{"Four", "blog", []string{"C"}},
	} {
		resp, body = s.do(http.MethodPost, "/api/content", token, map[string]any{
			"brandVoiceId": voiceID, "title": tc.title, "type": tc.typ, "body": "text", "tags": tc.tags,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		ids = append(ids, decode[map[string]any](t, body)["id"].(string))
	}

	resp, body = s.do(http.MethodGet, "/api/content?tags=A,B&type=blog", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
		HasMore bool `json:"hasMore"`
	}](t, body)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)

	resp, _ = s.do(http.MethodGet, "/api/content?limit=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/api/content?cursor=%25%25", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/api/content/metadata", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"types":["blog","social"],"tags":["A","B","C"]}`, string(body))

	other, _ := s.signup("sam@example.com")
	resp, _ = s.do(http.MethodDelete, "/api/content/"+ids[0], other, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, "/api/content/"+ids[0], token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "foreign delete leaves the item")

	resp, _ = s.do(http.MethodPost, "/api/content/"+ids[0]+"/export", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = s.do(http.MethodDelete, "/api/content/"+ids[0], token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(http.MethodDelete, "/api/content/"+ids[0], token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProtectedRoutesNeedIdentity(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/me", "/api/onboarding", "/api/content", "/api/billing/status"} {
		resp, _ := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestDashboardGateRedirects(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/sign-in", resp.Header.Get("Location"))

	token, accountID := s.signup("jo@example.com")
	resp, _ = s.do(http.MethodGet, "/dashboard/content", token, nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/pricing", resp.Header.Get("Location"))

	s.subscribe("evt-1", accountID)
	resp, body := s.do(http.MethodGet, "/dashboard", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"recentContent":[]`)
}

func TestDocumentImportReturnsText(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="brand.txt"`)
	h.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("We are Acme.\n\nWe roast coffee.\n"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(s.srv.URL+"/api/onboarding/document", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		ContentType string `json:"contentType"`
		Text        string `json:"text"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "text/plain", out.ContentType)
	assert.Equal(t, "We are Acme.\nWe roast coffee.", out.Text)
}
