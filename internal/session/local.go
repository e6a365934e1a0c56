package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/models"
)

// Draft is the onboarding draft cached on the client, together with a voice
// generated before the account existed, if any.
type Draft struct {
	models.DraftFields
	BrandVoice *models.VoiceProfile `json:"brandVoice,omitempty"`
}

// IsEmpty reports whether no field has been filled in.
func (d Draft) IsEmpty() bool {
	return d.DraftFields == (models.DraftFields{}) && d.BrandVoice == nil
}

// State is the whole persisted record.
type State struct {
	SessionID string `json:"sessionId,omitempty"`
	Pending   string `json:"pendingSessionId,omitempty"`
	Draft     *Draft `json:"onboardingDraft,omitempty"`
}

// Local is the session store API used by the onboarding flow.
// It has a single writer and never makes network calls.
type Local struct {
	store Store
	log   *zap.Logger
	newID func() string
}

func NewLocal(store Store, log *zap.Logger) *Local {
	return &Local{store: store, log: log, newID: uuid.NewString}
}

// State loads the record. Unreadable or malformed keys are treated as absent.
func (l *Local) State() State {
	raw, err := l.store.Read()
	if err != nil {
		l.log.Warn("session store unreadable, starting fresh", zap.Error(err))
		return State{}
	}
	if len(raw) == 0 {
		return State{}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		l.log.Warn("session record is corrupt, starting fresh", zap.Error(err))
		return State{}
	}

	var st State
	l.decodeKey(fields, "sessionId", &st.SessionID)
	l.decodeKey(fields, "pendingSessionId", &st.Pending)
	var d Draft
	if l.decodeKey(fields, "onboardingDraft", &d) {
		st.Draft = &d
	}
	return st
}

func (l *Local) decodeKey(fields map[string]json.RawMessage, key string, dst any) bool {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		l.log.Warn("ignoring corrupt session key", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (l *Local) save(st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := l.store.Write(data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// GetOrCreateSessionID returns the stored session id, creating one on first use.
func (l *Local) GetOrCreateSessionID() (string, error) {
	st := l.State()
	if strings.TrimSpace(st.SessionID) != "" {
		return st.SessionID, nil
	}
	st.SessionID = l.newID()
	if err := l.save(st); err != nil {
		return "", err
	}
	return st.SessionID, nil
}

// SaveDraft replaces the cached draft wholesale.
func (l *Local) SaveDraft(d Draft) error {
	st := l.State()
	st.Draft = &d
	return l.save(st)
}

// LoadDraft returns the cached draft, or the empty draft when there is none.
func (l *Local) LoadDraft() Draft {
	if d := l.State().Draft; d != nil {
		return *d
	}
	return Draft{}
}

// HasDraft reports whether a draft has been cached.
func (l *Local) HasDraft() bool {
	return l.State().Draft != nil
}

// MarkPending records that sessionID awaits reconciliation after sign-in.
func (l *Local) MarkPending(sessionID string) error {
	st := l.State()
	st.Pending = sessionID
	return l.save(st)
}

func (l *Local) ClearPending() error {
	st := l.State()
	if st.Pending == "" {
		return nil
	}
	st.Pending = ""
	return l.save(st)
}

// Pending returns the session id awaiting reconciliation, or "".
func (l *Local) Pending() string {
	return l.State().Pending
}

// Clear drops the session id, cached draft and pending flag together.
func (l *Local) Clear() error {
	return l.store.Remove()
}
