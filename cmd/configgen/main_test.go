package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/wirecodec/internal/config"
	"github.com/danmuck/wirecodec/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.toml")
	cfgPath := filepath.Join(dir, config.DefaultPath)
	require.NoError(t, config.WriteTemplate(schemaPath, config.KindSchema, false))
	require.NoError(t, config.WriteTemplate(cfgPath, config.KindWirectl, false))

	assert.NoError(t, validateFile(config.KindSchema, schemaPath))
	assert.NoError(t, validateFile(config.KindWirectl, cfgPath))
	assert.Error(t, validateFile(config.KindSchema, cfgPath))
}

func TestValidateFileRejectsUnknownKind(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "x.toml")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	err := validateFile("bogus", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}
