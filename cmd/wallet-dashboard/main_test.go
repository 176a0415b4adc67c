package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["snapshot"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestSnapshot_MissingConfigFile(t *testing.T) {
	opts := &rootOptions{configFile: filepath.Join(t.TempDir(), "nope.yaml")}

	var out bytes.Buffer
	err := runSnapshot(context.Background(), opts, false, &out)
	require.Error(t, err)
	assert.Empty(t, out.String())
}
