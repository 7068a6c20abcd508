package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredText(t *testing.T) {
	t.Parallel()

	got, err := RequiredText("title", "  hola  ", 10)
	require.NoError(t, err)
	assert.Equal(t, "hola", got)

	_, err = RequiredText("title", " \t\n", 10)
	assert.EqualError(t, err, "title is required")

	// Limits count runes, not bytes.
	_, err = RequiredText("title", strings.Repeat("é", 10), 10)
	assert.NoError(t, err)
	_, err = RequiredText("title", strings.Repeat("é", 11), 10)
	assert.EqualError(t, err, "title too long (max 10 characters)")
}

func TestOptionalText(t *testing.T) {
	t.Parallel()

	got, err := OptionalText("tag", nil, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	blank := "   "
	got, err = OptionalText("tag", &blank, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	raw := " exam "
	got, err = OptionalText("tag", &raw, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "exam", *got)
	assert.Equal(t, " exam ", raw)

	long := "parcial"
	_, err = OptionalText("tag", &long, 5)
	assert.Error(t, err)
}
