package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	certs "github.com/tycrek-archive/tycrek-certs-custom"
)

func TestBlueprintWritesValidConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "blueprint.toml")

	rootCmd.SetArgs([]string{"blueprint", "-o", out})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var cfg certs.Config
	require.NoError(t, toml.Unmarshal(data, &cfg))

	// Placeholders must still form a config that validates, so a user can
	// edit values one at a time without the file going invalid in between.
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.Staging, "blueprint must default to staging")
	assert.Equal(t, certs.DefaultPropagationDelayMS, cfg.PropagationDelayMS)
}
