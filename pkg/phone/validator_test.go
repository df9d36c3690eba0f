package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_USNumber(t *testing.T) {
	result, err := Validate("(212) 555-0123", "US")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, "+12125550123", result.E164Format)
	assert.Equal(t, "US", result.CountryCode)
}

func TestValidate_AlreadyE164(t *testing.T) {
	result, err := Validate("+442071838750", "US")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, "GB", result.CountryCode)
}

func TestNormalize_RejectsInvalid(t *testing.T) {
	_, err := Normalize("12345", "US")
	assert.Error(t, err)

	_, err = Normalize("", "US")
	assert.Error(t, err)
}

func TestNormalize_ReturnsE164(t *testing.T) {
	got, err := Normalize("212-555-0123", "US")
	require.NoError(t, err)
	assert.Equal(t, "+12125550123", got)
}
