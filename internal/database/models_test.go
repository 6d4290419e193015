package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateId(t *testing.T) {
	tcases := []struct {
		name string
		id   string
		err  bool
	}{
		{
			name: "valid id",
			id:   "room-1_abc",
			err:  false,
		},
		{
			name: "valid uuid-shaped id",
			id:   "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			err:  false,
		},
		{
			name: "empty id",
			id:   "",
			err:  true,
		},
		{
			name: "too long",
			id:   strings.Repeat("a", 65),
			err:  true,
		},
		{
			name: "illegal character",
			id:   "room 1",
			err:  true,
		},
		{
			name: "injection attempt",
			id:   "room';drop",
			err:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateId("room id", tc.id)
			if tc.err {
				assert.Error(t, err, "expected error for id %q", tc.id)
				var vErr *ValidationError
				assert.ErrorAs(t, err, &vErr, "expected a ValidationError")
				assert.Equal(t, "room id", vErr.Field, "expected field name in error")
			} else {
				assert.NoError(t, err, "expected no error for id %q", tc.id)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "content", Reason: "exceeds maximum length"}
	assert.Equal(t, "invalid content: exceeds maximum length", err.Error(), "expected formatted message")
}
