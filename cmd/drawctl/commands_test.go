package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const rosterYAML = `
name: Copa Regional
format: groups
groups: 1
clubs_per_group: 2
clubs:
  - name: Porto
    logo: https://example.com/porto.png
  - name: Braga
`

type harness struct {
	t  *testing.T
	db string
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, db: filepath.Join(t.TempDir(), "draw.db")}
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	argv := append([]string{"drawctl", "--db", h.db}, args...)
	err := newApp(&out).RunContext(context.Background(), argv)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) snapshot() draw.Snapshot {
	h.t.Helper()
	var snapshot draw.Snapshot
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("status", "--json")), &snapshot))
	return snapshot
}

func TestImportDrawAndExport(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()

	rosterPath := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(rosterPath, []byte(rosterYAML), 0o644))
	assert.Equal(t, "imported 2 clubs\n", h.mustRun("import", rosterPath))

	snapshot := h.snapshot()
	assert.Equal(t, "Copa Regional", snapshot.Tournament.Name)
	assert.Equal(t, 2, snapshot.Tournament.TotalClubs)
	require.Len(t, snapshot.Tournament.Clubs, 2)

	_, err := h.run("draw", snapshot.Tournament.Clubs[0].ID)
	assert.ErrorIs(t, err, draw.ErrLocked, "drawing before start")

	assert.Equal(t, "draw is active\n", h.mustRun("start"))
	braga := snapshot.Tournament.Clubs[1]
	assert.Equal(t, "Group A slot 1: Braga\n", h.mustRun("draw", braga.ID))

	_, err = h.run("draw", braga.ID)
	assert.ErrorIs(t, err, draw.ErrAlreadyDrawn)

	status := h.mustRun("status")
	assert.Contains(t, status, "Copa Regional")
	assert.Contains(t, status, "1 positions filled")

	exportPath := filepath.Join(dir, "draw.xlsx")
	h.mustRun("export", exportPath)
	f, err := excelize.OpenFile(exportPath)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Draw")

	assert.Equal(t, "draw is finished\n", h.mustRun("finish"))
	assert.Equal(t, "draw is inactive\n", h.mustRun("restart"))
	assert.Equal(t, 0, h.snapshot().FilledPositions())
}

func TestClubCommands(t *testing.T) {
	h := newHarness(t)

	logoPath := filepath.Join(t.TempDir(), "crest.png")
	require.NoError(t, os.WriteFile(logoPath, []byte("png"), 0o644))

	out := h.mustRun("add-club", "--logo", logoPath, "Benfica")
	id, name, ok := strings.Cut(strings.TrimSpace(out), "\t")
	require.True(t, ok)
	assert.Equal(t, "Benfica", name)

	club := h.snapshot().Tournament.Clubs[0]
	assert.Equal(t, id, club.ID)
	assert.Equal(t, "data:image/png;base64,cG5n", club.LogoRef)

	h.mustRun("edit-club", "--name", "SL Benfica", id)
	club = h.snapshot().Tournament.Clubs[0]
	assert.Equal(t, "SL Benfica", club.Name)
	assert.Equal(t, "data:image/png;base64,cG5n", club.LogoRef, "logo is kept when not given")

	_, err := h.run("edit-club", "--name", "X", "missing")
	assert.ErrorIs(t, err, draw.ErrNotFound)

	h.mustRun("remove-club", id)
	assert.Empty(t, h.snapshot().Tournament.Clubs)
}

func TestSetCommand(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "knockout: 16 clubs\n", h.mustRun("set", "format", "knockout"))
	assert.Equal(t, "knockout: 32 clubs\n", h.mustRun("set", "totalClubs", "32"))

	_, err := h.run("set", "groups", "2")
	assert.ErrorIs(t, err, draw.ErrValidation)

	_, err = h.run("set", "name")
	assert.Error(t, err)
}
