package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := map[error]int{
		nil:                                   http.StatusOK,
		fmt.Errorf("x: %w", ErrValidation):    http.StatusBadRequest,
		ErrNotAuthenticated:                   http.StatusUnauthorized,
		ErrNotEntitled:                        http.StatusPaymentRequired,
		fmt.Errorf("y: %w", ErrNotAuthorized): http.StatusForbidden,
		ErrNotFound:                           http.StatusNotFound,
		ErrTransport:                          http.StatusBadGateway,
		ErrUnavailable:                        http.StatusServiceUnavailable,
		errors.New("boom"):                    http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusCode(err), "%v", err)
	}
}
