package respond

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gichigi/choir/internal/core"
)

func TestErrorUsesTaxonomyStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zap.NewNop(), fmt.Errorf("content 1: %w", core.ErrNotAuthorized))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"content 1: not authorized"}`, rec.Body.String())
}

func TestErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zap.NewNop(), errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := Decode(r, &v)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}
