package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSessionIDRoundTripsThroughFilename(t *testing.T) {
	id := GenerateSessionID()
	require.Len(t, id, len("20060102_150405")+1+4)

	filename := SessionFilename(id)
	parsed, ok := ParseSessionFilename(filename)
	require.True(t, ok)
	require.Equal(t, id, parsed)
}

func TestParseSessionFilenameRejectsMalformedNames(t *testing.T) {
	_, ok := ParseSessionFilename("not_a_session.log")
	require.False(t, ok)

	_, ok = ParseSessionFilename("session_abc.txt")
	require.False(t, ok)

	_, ok = ParseSessionFilename("short")
	require.False(t, ok)
}

func TestShortSessionIDExtractsTrailingHex(t *testing.T) {
	require.Equal(t, "a7b3", ShortSessionID("20251217_205106_a7b3"))
	require.Equal(t, "ab", ShortSessionID("ab"))
}
