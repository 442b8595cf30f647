package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	rec := Record{"id": "u1", "name": "a", "tags": []any{"x"}}

	id, payload, err := Split(rec)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	assert.Equal(t, map[string]any{"name": "a", "tags": []any{"x"}}, payload)

	// Caller-owned data is untouched.
	assert.Equal(t, Record{"id": "u1", "name": "a", "tags": []any{"x"}}, rec)

	payload["name"] = "changed"
	assert.Equal(t, "a", rec["name"])
}

func TestSplit_Invalid(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"nil", nil},
		{"missing", Record{"name": "a"}},
		{"empty", Record{"id": ""}},
		{"not a string", Record{"id": 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Split(tt.rec)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestJoin(t *testing.T) {
	payload := map[string]any{"name": "a", "id": "ignored"}
	rec := Join("u1", payload)

	assert.Equal(t, Record{"id": "u1", "name": "a"}, rec)
	assert.Equal(t, "u1", rec.ID())
	assert.Equal(t, "ignored", payload["id"], "payload is copied, not modified")
}

func TestNormalizeID(t *testing.T) {
	composed, err := NormalizeID("caf\u00e9")
	require.NoError(t, err)
	decomposed, err := NormalizeID("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)

	_, err = NormalizeID("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateTable(t *testing.T) {
	for _, name := range []string{"users", "_private", "T2", "snake_case_9"} {
		assert.NoError(t, ValidateTable(name), name)
	}
	for _, name := range []string{"", "9lives", "with space", "semi;colon", "dash-ed", `quo"te`, "\u00fcn\u00efcode"} {
		assert.ErrorIs(t, ValidateTable(name), ErrValidation, name)
	}
}

func TestTxError(t *testing.T) {
	cause := fmt.Errorf("insert users/a: %w", ErrAlreadyExists)
	err := error(&TxError{Err: cause})

	assert.ErrorIs(t, err, ErrTransaction)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "transaction rolled back")
}

func TestErrClosedIsConnectionError(t *testing.T) {
	assert.ErrorIs(t, ErrClosed, ErrConnection)
}
