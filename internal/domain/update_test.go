package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/taskapp/internal/domain"
)

func TestIsAllowedUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requested []string
		allowed   []string
		want      bool
	}{
		{
			name:      "empty request is allowed",
			requested: nil,
			allowed:   domain.TaskUpdatableFields,
			want:      true,
		},
		{
			name:      "all keys allowed",
			requested: []string{"name", "age"},
			allowed:   domain.UserUpdatableFields,
			want:      true,
		},
		{
			name:      "one key outside allowed set",
			requested: []string{"name", "tokens"},
			allowed:   domain.UserUpdatableFields,
			want:      false,
		},
		{
			name:      "owner may not be changed",
			requested: []string{"owner"},
			allowed:   domain.TaskUpdatableFields,
			want:      false,
		},
		{
			name:      "empty allowed set rejects anything",
			requested: []string{"description"},
			allowed:   nil,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, domain.IsAllowedUpdate(tt.requested, tt.allowed))
		})
	}
}

func TestCheckUpdate(t *testing.T) {
	t.Parallel()

	fields := domain.UpdateFields{
		"description": json.RawMessage(`"x"`),
		"owner":       json.RawMessage(`"someone"`),
	}

	err := domain.CheckUpdate(fields, domain.TaskUpdatableFields)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidUpdate))
	assert.Contains(t, err.Error(), "owner")

	delete(fields, "owner")
	assert.NoError(t, domain.CheckUpdate(fields, domain.TaskUpdatableFields))
}

func TestUpdateFields_Decode(t *testing.T) {
	t.Parallel()

	fields := domain.UpdateFields{"completed": json.RawMessage(`true`), "age": json.RawMessage(`"ten"`)}

	var completed bool
	require.NoError(t, fields.Decode("completed", &completed))
	assert.True(t, completed)

	var age int
	assert.Error(t, fields.Decode("age", &age))
	assert.Equal(t, []string{"age", "completed"}, fields.Keys())
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	var verr domain.ValidationError
	assert.NoError(t, verr.Err())

	verr.Add("email", "invalid")
	verr.Add("password", "too short")

	err := verr.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.True(t, verr.Has("email"))
	assert.False(t, verr.Has("name"))
	assert.Contains(t, err.Error(), "email: invalid")
	assert.Contains(t, err.Error(), "password: too short")
}

func TestUser_Tokens(t *testing.T) {
	t.Parallel()

	u := &domain.User{Tokens: []string{"a", "b", "c"}}
	assert.True(t, u.HasToken("b"))

	u.RemoveToken("b")
	assert.Equal(t, []string{"a", "c"}, u.Tokens)
	assert.False(t, u.HasToken("b"))
}

func TestUser_PublicOmitsSecrets(t *testing.T) {
	t.Parallel()

	u := &domain.User{
		ID:           "id",
		Name:         "Ann",
		Email:        "ann@example.com",
		PasswordHash: "hash",
		Tokens:       []string{"t"},
		Avatar:       []byte{1, 2, 3},
	}

	data, err := json.Marshal(u.Public())
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal(data, &view))

	for _, key := range []string{"password", "passwordHash", "PasswordHash", "tokens", "Tokens", "avatar", "Avatar"} {
		assert.NotContains(t, view, key)
	}

	assert.Equal(t, "Ann", view["name"])
	assert.Equal(t, "ann@example.com", view["email"])
}
