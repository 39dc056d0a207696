package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainConstructors(t *testing.T) {
	cases := []struct {
		err  *Error
		code int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{Authorization("not yours"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Unavailable("nobody home"), http.StatusServiceUnavailable},
		{Internal(stderrors.New("db down"), "load user"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.code, HTTPStatus(tc.err))
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, "ping redis")
	require.NotNil(t, err)
	assert.Equal(t, "ping redis", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, Wrap(nil, "no-op"))
}

func TestWrapPropagatesCode(t *testing.T) {
	inner := NotFound("alert missing")
	outer := Wrap(inner, "lookup failed")
	assert.Equal(t, http.StatusNotFound, outer.Code)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(outer))
}

func TestHTTPStatusDefaultsToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(stderrors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(New("uncoded")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, GetCode(Validation("x")))
	assert.Zero(t, GetCode(stderrors.New("foreign")))
}
