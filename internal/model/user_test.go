package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/identity-api/pkg/security"
)

func TestUserJSONNeverExposesSecrets(t *testing.T) {
	u := User{
		Email:        "alice@example.com",
		Name:         "Alice",
		Password:     "plaintext-should-vanish",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Salt:         "c2FsdA==",
		Algorithm:    security.AlgorithmBcrypt,
		Provider:     ProviderLocal,
		Validations: []ValidationAttempt{
			{Type: ContactEmail, Code: "123456", CreatedAt: time.Now()},
		},
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.NotContains(t, string(data), "$2a$10$")
	assert.NotContains(t, string(data), "c2FsdA==")
	assert.NotContains(t, string(data), "123456")
	assert.NotContains(t, out, "salt")
	assert.NotContains(t, out, "password_hash")
	assert.NotContains(t, out, "algorithm")

	validations := out["validations"].([]interface{})
	attempt := validations[0].(map[string]interface{})
	assert.NotContains(t, attempt, "code")

	// Plaintext survives marshalling until the service clears it; a record
	// headed for a response must carry no password at all.
	assert.Contains(t, out, "password")
	u.Password = ""

	data, err = json.Marshal(u)
	require.NoError(t, err)

	var cleared map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &cleared))
	assert.NotContains(t, cleared, "password")
	assert.NotContains(t, string(data), "plaintext-should-vanish")
}

func TestHasPassword(t *testing.T) {
	assert.False(t, (&User{}).HasPassword())
	assert.True(t, (&User{PasswordHash: "x"}).HasPassword())
}

func TestValidation(t *testing.T) {
	u := User{Validations: []ValidationAttempt{
		{Type: ContactEmail},
		{Type: ContactPhone},
	}}

	require.NotNil(t, u.Validation(ContactPhone))
	assert.Equal(t, ContactPhone, u.Validation(ContactPhone).Type)
	assert.Nil(t, u.Validation("pager"))

	// The returned pointer aliases the slice entry so callers can mutate it
	u.Validation(ContactEmail).Validated = true
	assert.True(t, u.Validations[0].Validated)
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		provider string
		isUpdate bool
		want     bool
	}{
		{"local e164", "+15551234567", ProviderLocal, false, true},
		{"local without plus", "15551234567", ProviderLocal, false, true},
		{"local garbage", "not-a-phone", ProviderLocal, false, false},
		{"local too short", "+123", ProviderLocal, false, false},
		{"local leading zero", "+05551234567", ProviderLocal, false, false},
		{"local empty is a config concern", "", ProviderLocal, false, true},
		{"local update grandfathered", "not-a-phone", ProviderLocal, true, true},
		{"federated anything goes", "whatever", "google", false, true},
		{"federated empty", "", "saml", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPhone(tt.phone, tt.provider, tt.isUpdate))
		})
	}
}
