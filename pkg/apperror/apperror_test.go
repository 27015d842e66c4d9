package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = NotFound("thing not found")

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("find: %w", errSentinel)

	assert.ErrorIs(t, wrapped, errSentinel)
	assert.ErrorIs(t, NotFound("thing not found"), errSentinel)
	assert.False(t, errors.Is(NotFound("other"), errSentinel))
	assert.False(t, errors.Is(Conflict("thing not found"), errSentinel))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, InvalidState("x").HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").HTTPStatus())
	assert.Equal(t, http.StatusConflict, Conflict("x").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ExternalService(0, "x", nil).HTTPStatus())
	assert.Equal(t, http.StatusNotFound, ExternalService(http.StatusNotFound, "x", nil).HTTPStatus())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindForbidden, KindOf(fmt.Errorf("wrap: %w", Forbidden("no"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "invalid_state", KindInvalidState.String())
}
