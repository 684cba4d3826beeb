package serviceinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWinFlags(t *testing.T) {
	priority, create, err := ParseWinFlags([]string{
		"idle_priority_class",
		"CREATE_NEW_CONSOLE",
		"HIGH_PRIORITY_CLASS",
		"create_no_window",
	})
	require.NoError(t, err)
	require.Equal(t, uint32(0x80), priority)
	require.Equal(t, uint32(0x08000010), create)

	priority, create, err = ParseWinFlags(nil)
	require.NoError(t, err)
	require.Zero(t, priority)
	require.Zero(t, create)

	_, _, err = ParseWinFlags([]string{"FAST_PRIORITY_CLASS"})
	require.Error(t, err)
}
