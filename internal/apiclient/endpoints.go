package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gichigi/choir/internal/core"
	"github.com/gichigi/choir/internal/generation"
	"github.com/gichigi/choir/internal/models"
	"github.com/gichigi/choir/internal/onboarding"
)

var _ onboarding.API = (*Client)(nil)

type AuthResult struct {
	Token     string `json:"token"`
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}

type Me struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Entitled  bool   `json:"entitled"`
}

type ImportedDocument struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Text        string `json:"text"`
}

type savedDraft struct {
	ID string `json:"id"`
}

// Signup creates an account and adopts its token.
func (c *Client) Signup(ctx context.Context, email, password, name string) (AuthResult, error) {
	var res AuthResult
	in := map[string]string{"email": email, "password": password}
	if name != "" {
		in["name"] = name
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/signup", in, &res); err != nil {
		return AuthResult{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

// Login authenticates and adopts the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var res AuthResult
	in := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", in, &res); err != nil {
		return AuthResult{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var me Me
	err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, &me)
	return me, err
}

// Identity returns the signed-in account. A missing or rejected token is
// an anonymous identity, not an error.
func (c *Client) Identity(ctx context.Context) (onboarding.Identity, error) {
	if c.Token() == "" {
		return onboarding.Identity{}, nil
	}
	me, err := c.Me(ctx)
	if errors.Is(err, core.ErrNotAuthenticated) {
		return onboarding.Identity{}, nil
	}
	if err != nil {
		return onboarding.Identity{}, err
	}
	return onboarding.Identity{AccountID: me.AccountID}, nil
}

// Entitled reports whether the signed-in account holds an active subscription.
// The account is identified by the token; accountID is only checked against it.
func (c *Client) Entitled(ctx context.Context, accountID string) (bool, error) {
	var st struct {
		Entitled      bool                  `json:"entitled"`
		Subscriptions []models.Subscription `json:"subscriptions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/billing/status", nil, &st); err != nil {
		return false, err
	}
	for _, s := range st.Subscriptions {
		if s.AccountID != "" && s.AccountID != accountID {
			return false, fmt.Errorf("%w: subscription status for another account", core.ErrStateConsistency)
		}
	}
	return st.Entitled, nil
}

// SaveSessionDraft upserts the anonymous draft of sessionID on the server.
func (c *Client) SaveSessionDraft(ctx context.Context, sessionID string, fields models.DraftFields) (string, error) {
	var res savedDraft
	err := c.doJSON(ctx, http.MethodPut, "/api/onboarding/session/"+url.PathEscape(sessionID), fields, &res)
	return res.ID, err
}

// SaveDraftForAccount upserts the account's draft, adopting the draft of sessionID when the account has none.
func (c *Client) SaveDraftForAccount(ctx context.Context, fields models.DraftFields, sessionID string) (string, error) {
	in := struct {
		models.DraftFields
		SessionID string `json:"sessionId,omitempty"`
	}{fields, sessionID}
	var res savedDraft
	err := c.doJSON(ctx, http.MethodPut, "/api/onboarding", in, &res)
	return res.ID, err
}

// GetAccountDraft returns nil when the account has no draft.
func (c *Client) GetAccountDraft(ctx context.Context) (*models.OnboardingDraft, error) {
	var d *models.OnboardingDraft
	if err := c.doJSON(ctx, http.MethodGet, "/api/onboarding", nil, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Client) CreateVoice(ctx context.Context, draftID string, voice models.VoiceProfile) (*models.BrandVoice, error) {
	in := struct {
		DraftID    string              `json:"draftId"`
		BrandVoice models.VoiceProfile `json:"brandVoice"`
	}{draftID, voice}
	var v models.BrandVoice
	if err := c.doJSON(ctx, http.MethodPost, "/api/brand-voice", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

type regenerated struct {
	BrandVoice *models.BrandVoice `json:"brandVoice"`
	generation.Outcome
}

// GenerateVoice asks the server to build the account's voice from its draft.
// Concurrent calls share one request, which outlives the caller that started
// it; the HTTP client timeout still applies.
func (c *Client) GenerateVoice(ctx context.Context) (*models.BrandVoice, generation.Outcome, error) {
	v, err, _ := c.group.Do("regenerate", func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		var res regenerated
		if err := c.doJSON(ctx, http.MethodPost, "/api/brand-voice/regenerate", nil, &res); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, generation.Outcome{}, err
	}
	res := v.(regenerated)
	return res.BrandVoice, res.Outcome, nil
}

// PreviewVoice generates a voice for req without storing it.
func (c *Client) PreviewVoice(ctx context.Context, req generation.VoiceRequest) (generation.VoiceResult, error) {
	var res generation.VoiceResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/brand-voice/generate", req, &res); err != nil {
		return generation.VoiceResult{}, err
	}
	return res, nil
}

// GetBrandVoice returns nil when the account has no voice yet.
func (c *Client) GetBrandVoice(ctx context.Context) (*models.BrandVoice, error) {
	var v *models.BrandVoice
	if err := c.doJSON(ctx, http.MethodGet, "/api/brand-voice", nil, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) ListContent(ctx context.Context, q models.ContentQuery) (models.ContentPage, error) {
	params := url.Values{}
	if q.SearchQuery != "" {
		params.Set("q", q.SearchQuery)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	for _, t := range q.Tags {
		params.Add("tags", t)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Cursor != "" {
		params.Set("cursor", q.Cursor)
	}
	path := "/api/content"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page models.ContentPage
	err := c.doJSON(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

func (c *Client) DeleteContent(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/content/"+url.PathEscape(id), nil, nil)
}

// ImportDocument uploads a brand document and returns its extracted text.
func (c *Client) ImportDocument(ctx context.Context, fileName string, r io.Reader) (ImportedDocument, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return ImportedDocument{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return ImportedDocument{}, fmt.Errorf("read %s: %w", fileName, err)
	}
	if err := mw.Close(); err != nil {
		return ImportedDocument{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/onboarding/document", &buf)
	if err != nil {
		return ImportedDocument{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var doc ImportedDocument
	err = c.do(req, &doc)
	return doc, err
}
