package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/audiogram/internal/hooks"
	"github.com/ivlev/audiogram/internal/jobstore"
	"github.com/ivlev/audiogram/internal/scene"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSceneInitAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.yaml")

	out, err := execute(t, "scene", "init", path, "--audio", "track.mp3", "--cover", "cover.png")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	sc, err := scene.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "episode", sc.ID)
	assert.Equal(t, "track.mp3", sc.Audio)

	_, err = execute(t, "scene", "init", path)
	assert.Error(t, err, "existing file is not overwritten without --force")

	out, err = execute(t, "scene", "check", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "OK:"), out)
}

func TestSceneCheckRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: bad\nmeta:\n  video:\n    width: 0\n    height: 10\n"), 0644))

	_, err := execute(t, "scene", "check", path)
	assert.Error(t, err)
}

func TestJobRows(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := jobRows([]jobstore.Job{{
		ID: "a", Status: hooks.StatusError, UpdatedAt: at,
		Error: strings.Repeat("x", 100),
	}})
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0][0])
	assert.Equal(t, "ERROR", rows[0][1])
	assert.Len(t, []rune(rows[0][3]), 60)

	table := renderTable(jobHeaders, rows)
	assert.Contains(t, table, "Status")
	assert.Contains(t, table, "ERROR")
}
