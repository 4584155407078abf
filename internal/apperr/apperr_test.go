package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindInvalidOTP:      http.StatusBadRequest,
		KindConflict:        http.StatusBadRequest,
		KindNotFound:        http.StatusNotFound,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindRateLimited:     http.StatusTooManyRequests,
		KindTooLarge:        http.StatusRequestEntityTooLarge,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("verify: %w", NotFound("User not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "User not found", Message(err))
}

func TestInternalMessageIsGeneric(t *testing.T) {
	err := Internal(errors.New("connection refused on 10.0.0.3"))
	assert.Equal(t, "Internal server error", Message(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestFromDB(t *testing.T) {
	assert.Nil(t, FromDB(nil, "x"))

	err := FromDB(sql.ErrNoRows, "Pooja not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Pooja not found", Message(err))

	err = FromDB(sql.ErrNoRows, "")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Resource not found", Message(err), "a 404 never carries the internal error text")

	dup := &pq.Error{Code: "23505", Constraint: "accounts_phone_key"}
	err = FromDB(fmt.Errorf("insert account: %w", dup), "")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "Phone number already registered", Message(err))

	fk := &pq.Error{Code: "23503", Constraint: "poojas_temple_id_fkey"}
	err = FromDB(fk, "")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Contains(t, Message(err), "poojas")

	err = FromDB(&pq.Error{Code: "22P02"}, "")
	assert.True(t, errors.Is(err, ErrValidation))

	typed := Forbidden("nope")
	assert.Same(t, typed, FromDB(typed, "ignored"))

	err = FromDB(errors.New("boom"), "")
	assert.Equal(t, KindInternal, KindOf(err))
}
