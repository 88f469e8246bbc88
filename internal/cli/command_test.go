package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeafCommandBuild(t *testing.T) {
	cmd := LeafCommand{
		Use:   "demo",
		Short: "Demo command",
		Args:  cobra.NoArgs,
		BoolFlags: []BoolFlag{
			{Name: "offline", Usage: "offline", Default: true},
		},
		StrFlags: []StringFlag{
			{Name: "region", Usage: "region", Default: "IN"},
		},
		IntFlags: []IntFlag{
			{Name: "year", Usage: "year", Default: 2026},
		},
		RunE: func(cmd *cobra.Command, args []string) error { return nil },
	}.Build()

	assert.Equal(t, "demo", cmd.Use)
	b, err := cmd.Flags().GetBool("offline")
	require.NoError(t, err)
	assert.True(t, b)
	s, err := cmd.Flags().GetString("region")
	require.NoError(t, err)
	assert.Equal(t, "IN", s)
	n, err := cmd.Flags().GetInt("year")
	require.NoError(t, err)
	assert.Equal(t, 2026, n)
}

func TestGroupCommandBuild(t *testing.T) {
	assert.True(t, settingsCmd.HasSubCommands())
	names := []string{}
	for _, c := range settingsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"get", "set"}, names)
}
