package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	notFound := NewNotFoundError("session not found")

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain", err: errors.New("boom"), want: KindUnknown},
		{name: "domain", err: notFound, want: KindNotFound},
		{name: "wrapped", err: errors.Wrap(notFound, "getting session"), want: KindNotFound},
		{name: "entry closed", err: NewEntryClosedError("closed"), want: KindEntryClosed},
		{name: "validation", err: NewValidationError(nil, FieldError{Field: "term", Error: "required"}), want: KindInvalidArgument},
		{name: "wrapped validation", err: errors.Wrap(NewValidationError(nil), "creating"), want: KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Is(t *testing.T) {
	notFound := NewNotFoundError("session not found")
	other := NewNotFoundError("invoice not found")

	assert.True(t, errors.Is(notFound, ErrNotFound))
	assert.True(t, errors.Is(errors.Wrap(notFound, "ctx"), ErrNotFound))
	assert.True(t, errors.Is(notFound, notFound))
	assert.False(t, errors.Is(notFound, other))
	assert.False(t, errors.Is(notFound, ErrInvalidState))
	assert.True(t, errors.Is(NewValidationError(nil), ErrInvalidArgument))
	assert.False(t, errors.Is(NewValidationError(nil), ErrNotFound))
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "wrapped", err: NewValidationError(errors.New("invalid data")), want: "invalid data"},
		{name: "first field", err: NewValidationError(nil, FieldError{Field: "exam", Error: "too high"}, FieldError{Field: "first_ca", Error: "x"}), want: "exam: too high"},
		{name: "empty", err: NewValidationError(nil), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestDBOrdering_String(t *testing.T) {
	assert.Equal(t, "created_at DESC", DBOrdering{Field: "created_at"}.String())
	assert.Equal(t, "student_id ASC", DBOrdering{Field: "student_id", Ascending: true}.String())
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "class:jss1:sess-1", LockKey("class", "jss1", "sess-1"))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "John Doe", CleanString("  John Doe \n"))
	assert.Equal(t, "john@example.com", CleanString(" John@Example.com ", true))
}
