package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAPIVersion(t *testing.T) {
	v, err := ParseAPIVersion("v1")
	require.NoError(t, err)
	assert.Equal(t, APIVersionV1, v)

	_, err = ParseAPIVersion("v9")
	assert.Error(t, err)

	_, err = ParseAPIVersion("")
	assert.Error(t, err)
}

func TestAPIVersionIsAtLeast(t *testing.T) {
	assert.True(t, APIVersionV1.IsAtLeast(APIVersionV1))
	assert.True(t, APIVersionV1.IsAtLeast("v0"), "known versions outrank unknown ones")
	assert.False(t, APIVersion("v0").IsAtLeast(APIVersionV1))
}

func TestLatestVersionIsSupported(t *testing.T) {
	assert.Contains(t, SupportedVersions(), LatestVersion())
}
