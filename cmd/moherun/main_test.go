package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/moherun/internal/demo"
	"github.com/abrezinsky/moherun/internal/logger"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()

	var out bytes.Buffer
	cliApp := newCLI()
	cliApp.Writer = &out
	cliApp.ErrWriter = io.Discard

	base := []string{"moherun", "--config", filepath.Join(dir, "none.yaml"), "--env", filepath.Join(dir, "none.env")}
	require.NoError(t, cliApp.Run(append(base, args...)))
	return out.String()
}

func TestDemoThenLeaderboard(t *testing.T) {
	book := filepath.Join(t.TempDir(), "demo.xlsx")

	out := runCLI(t, "demo", "--out", book, "--seed", "7", "--runners", "6", "--weeks", "2")
	assert.Contains(t, out, "Wrote "+book)
	assert.Contains(t, out, "seed 7")

	runners := demo.NewGenerator(7).Runners(6)

	board := runCLI(t, "--workbook", book, "leaderboard", "--week", "total")
	found := false
	for _, name := range runners {
		if strings.Contains(board, name) {
			found = true
		}
	}
	assert.True(t, found, "expected a demo runner in the leaderboard:\n%s", board)

	week := runCLI(t, "--workbook", book, "leaderboard", "--week", "1", "--top", "2")
	assert.NotEmpty(t, week)
}

func TestDrawStateAtSundayEvening(t *testing.T) {
	book := filepath.Join(t.TempDir(), "demo.xlsx")
	runCLI(t, "demo", "--out", book, "--seed", "3", "--weeks", "2")

	// second Sunday of the challenge, inside the evening window
	out := runCLI(t, "--workbook", book, "draw-state", "--at", "2025-12-28 21:00")
	assert.Contains(t, out, "OPEN_NORMAL")
	assert.Contains(t, out, "W2")

	out = runCLI(t, "--workbook", book, "draw-state", "--at", "2025-12-27 21:00")
	assert.Contains(t, out, "LOCKED_WAITING")
	assert.Contains(t, out, "Sun 2025-12-28 20:00 EST")
	assert.Contains(t, out, "Mon 2025-12-29 20:00 EST (W5)")
}

func TestDemo_RejectsTooFewRunners(t *testing.T) {
	cliApp := newCLI()
	cliApp.Writer = io.Discard
	cliApp.ErrWriter = io.Discard
	dir := t.TempDir()

	err := cliApp.Run([]string{"moherun", "--config", filepath.Join(dir, "x.yaml"), "--env", filepath.Join(dir, "x.env"),
		"demo", "--out", filepath.Join(dir, "d.xlsx"), "--runners", "1"})
	assert.Error(t, err)
}

func TestParseAt(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2026, time.January, 7, 10, 0, 0, 0, loc) // Wednesday

	t.Run("empty is now", func(t *testing.T) {
		got, err := parseAt("  ", now)
		require.NoError(t, err)
		assert.Equal(t, now, got)
	})

	t.Run("absolute in challenge zone", func(t *testing.T) {
		got, err := parseAt("2026-01-11 21:30", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, time.January, 11, 21, 30, 0, 0, loc), got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := parseAt("2026-01-11T02:00:00Z", now)
		require.NoError(t, err)
		assert.True(t, got.Equal(time.Date(2026, time.January, 11, 2, 0, 0, 0, time.UTC)))
	})

	t.Run("natural language", func(t *testing.T) {
		got, err := parseAt("next sunday", now)
		require.NoError(t, err)
		assert.Equal(t, time.Sunday, got.Weekday())
		assert.True(t, got.After(now))
	})

	t.Run("nonsense", func(t *testing.T) {
		_, err := parseAt("banana", now)
		assert.Error(t, err)
	})
}

func testActions(out io.Writer) (keyboardActions, *logger.SlogLogger, *[]string, chan struct{}, *bool) {
	log := logger.Discard()
	log.SetLevel(slog.LevelInfo)
	opened := &[]string{}
	refreshed := make(chan struct{}, 1)
	quit := new(bool)
	return keyboardActions{
		dashboardURL: "http://localhost:8081/",
		log:          log,
		refresh:      func() { refreshed <- struct{}{} },
		quit:         func() { *quit = true },
		open: func(url string) error {
			*opened = append(*opened, url)
			return nil
		},
		out: out,
	}, log, opened, refreshed, quit
}

func TestKeyboard_TogglesAndCycles(t *testing.T) {
	var out bytes.Buffer
	actions, log, _, _, _ := testActions(&out)

	assert.True(t, actions.handle('h'))
	assert.True(t, log.IsHTTPLoggingEnabled())
	assert.True(t, actions.handle('H'))
	assert.False(t, log.IsHTTPLoggingEnabled())

	assert.True(t, actions.handle('l'))
	assert.Equal(t, slog.LevelWarn, log.GetLevel())
	assert.Contains(t, out.String(), "Log level: ")
	assert.Contains(t, out.String(), "warn")
}

func TestKeyboard_OpenRefreshQuit(t *testing.T) {
	var out bytes.Buffer
	actions, _, opened, refreshed, quit := testActions(&out)

	assert.True(t, actions.handle('o'))
	assert.Equal(t, []string{"http://localhost:8081/"}, *opened)

	assert.True(t, actions.handle('r'))
	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("refresh was not triggered")
	}

	assert.True(t, actions.handle('x'), "unbound keys keep listening")
	assert.False(t, *quit)

	assert.False(t, actions.handle('q'))
	assert.True(t, *quit)
}

func TestKeyboard_OpenError(t *testing.T) {
	var out bytes.Buffer
	actions, _, _, _, _ := testActions(&out)
	actions.open = func(string) error { return errors.New("no display") }

	assert.True(t, actions.handle('o'))
	assert.Contains(t, out.String(), "Error opening browser: no display")
}

func TestReadKeys_ClosesOnEOF(t *testing.T) {
	keys := make(chan byte)
	go readKeys(strings.NewReader("ok"), keys)

	var got []byte
	for k := range keys {
		got = append(got, k)
	}
	assert.Equal(t, []byte("ok"), got)
}
