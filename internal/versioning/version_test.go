package versioning_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitplugins/internal/versioning"
)

func TestCompare(testInstance *testing.T) {
	testCases := []struct {
		name     string
		left     string
		right    string
		expected int
	}{
		{name: "semver_older", left: "1.2.3", right: "1.10.0", expected: -1},
		{name: "semver_prefix_equal", left: "v2.0.0", right: "2.0.0", expected: 0},
		{name: "semver_prerelease", left: "1.0.0-beta", right: "1.0.0", expected: -1},
		{name: "partial_semver", left: "1.2", right: "1.1.9", expected: 1},
		{name: "numeric_beats_word", left: "1.0.0", right: "main", expected: 1},
		{name: "words", left: "develop", right: "main", expected: -1},
		{name: "segment_fallback", left: "release-7", right: "release-10", expected: -1},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, versioning.Compare(testCase.left, testCase.right))
		})
	}
}

func TestIsNewer(testInstance *testing.T) {
	require.True(testInstance, versioning.IsNewer("1.1.0", "1.0.0"))
	require.False(testInstance, versioning.IsNewer("1.0.0", "v1.0.0"))
	require.False(testInstance, versioning.IsNewer("", "1.0.0"))
	require.True(testInstance, versioning.IsNewer("0.0.1", ""))
	require.False(testInstance, versioning.IsNewer("main", "1.0.0"))
	require.Equal(testInstance, "3.1.0", versioning.Normalize(" v3.1.0 "))
}
