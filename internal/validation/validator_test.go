package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/timesapp/times-bot/internal/errors"
	"github.com/timesapp/times-bot/internal/validation"
)

type testTrigger struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	Emoji     string `json:"emoji" validate:"required"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testTrigger{MessageID: "M1", Emoji: "✅"})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	err := v.Validate(testTrigger{MessageID: "M1"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Message, "emoji")
	assert.Contains(t, domainErr.Message, "is required")
}

func TestValidator_UsesJSONFieldNames(t *testing.T) {
	v := validation.New()

	type renamed struct {
		Value string `json:"display_value,omitempty" validate:"required"`
	}

	err := v.Validate(renamed{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display_value")
}
