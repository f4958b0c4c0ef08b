package apierror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	cases := []struct {
		name string
		err  ApiError
		want string
	}{
		{"zero value", ApiError{}, "unknown error"},
		{"no status", ApiError{Title: "Bad Request", Detail: "oops"}, "Bad Request: oops"},
		{"full", ApiError{Status: 404, Title: "Not Found", Detail: "no such composite"}, "404 Not Found: no such composite"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, 400, ErrBadRequest("x").Status)
	assert.Equal(t, 404, ErrNotFound("x").Status)
	assert.Equal(t, 409, ErrConflict("x").Status)
	assert.Equal(t, 500, ErrInternal("x").Status)
	assert.Equal(t, 401, ErrUnauthorized("x").Status)
}

func TestWrapErrorPassesThroughApiError(t *testing.T) {
	original := ErrConflict("composite already managed")
	wrapped := WrapError(original)
	assert.Equal(t, original, wrapped)
}

func TestWrapErrorWrapsPlainError(t *testing.T) {
	wrapped := WrapError(errors.New("boom"))
	assert.Equal(t, 500, wrapped.Status)
	assert.Contains(t, wrapped.Detail, "boom")
}
