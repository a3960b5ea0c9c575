package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/asleep/internal/pipeline"
)

const threeNights = `{"result":{"slept_sessions":[
  {"id":"a","start_time":"2024-03-01T14:00:00Z","sleep_time":"2024-03-01T14:30:00Z","wake_time":"2024-03-01T22:00:00Z","time_in_sleep":25200,"sleep_efficiency":0.88,"sleep_index":70},
  {"id":"b","start_time":"2024-03-02T14:00:00Z","sleep_time":"2024-03-02T14:40:00Z","wake_time":"2024-03-02T22:00:00Z","time_in_sleep":26400,"sleep_efficiency":0.9,"sleep_index":75},
  {"id":"c","start_time":"2024-03-03T14:00:00Z","sleep_time":"2024-03-03T14:50:00Z","wake_time":"2024-03-03T22:00:00Z","time_in_sleep":27000,"sleep_efficiency":0.93,"sleep_index":81}
],"average_stats":{"time_in_sleep":26200,"sleep_efficiency":0.9}}}`

type payloadFetcher string

func (p payloadFetcher) Fetch(context.Context, int) ([]byte, error) {
	return []byte(p), nil
}

func isolateConfig(t *testing.T, withCreds bool) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ASLEEP_REFRESH_TOKEN", "")
	t.Setenv("ASLEEP_BASE_URL", "")
	if withCreds {
		t.Setenv("ASLEEP_USER_ID", "user-1")
		t.Setenv("ASLEEP_ACCESS_TOKEN", "token-1")
	} else {
		t.Setenv("ASLEEP_USER_ID", "")
		t.Setenv("ASLEEP_ACCESS_TOKEN", "")
	}
}

func loadResult(t *testing.T, payload string) *pipeline.LoadResult {
	t.Helper()
	res, err := pipeline.Load(context.Background(), pipeline.LoadOptions{Days: 7, Fetcher: payloadFetcher(payload)})
	require.NoError(t, err)
	return res
}

func stubLoad(res *pipeline.LoadResult, err error) LoadFunc {
	return func(context.Context, int, pipeline.ProgressFunc) (*pipeline.LoadResult, error) {
		return res, err
	}
}

func loadedApp(t *testing.T) App {
	t.Helper()
	isolateConfig(t, true)
	res := loadResult(t, threeNights)

	a := NewApp(stubLoad(res, nil), 7)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m, _ = m.Update(DataLoadedMsg{Result: res})
	return m.(App)
}

func press(t *testing.T, m tea.Model, key string) tea.Model {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next
}

func TestNewAppNeedsSetupWithoutCredentials(t *testing.T) {
	isolateConfig(t, false)

	a := NewApp(stubLoad(nil, nil), 0)
	assert.True(t, a.needSetup)
	assert.NotNil(t, a.setupForm)
	assert.Equal(t, 7, a.days, "days default from config")
}

func TestNewAppSkipsSetupWithCredentials(t *testing.T) {
	isolateConfig(t, true)

	a := NewApp(stubLoad(nil, nil), 14)
	assert.False(t, a.needSetup)
	assert.Nil(t, a.setupForm)
	assert.Equal(t, 14, a.days)
}

func TestDataLoadedDerivesNightsAndDelta(t *testing.T) {
	a := loadedApp(t)

	require.True(t, a.loaded)
	require.Len(t, a.window, 3)
	require.Len(t, a.nights, 3)
	assert.Equal(t, "a", a.window[0].ID)
	assert.Equal(t, "c", a.nights[0].ID, "nights list newest first")
	assert.Equal(t, "+6", a.delta["sleep_score"])
	assert.Equal(t, "+10 mins", a.delta["sleep_time"])
}

func TestDataLoadedError(t *testing.T) {
	isolateConfig(t, true)
	a := NewApp(stubLoad(nil, nil), 7)

	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = m.Update(DataLoadedMsg{Err: errors.New("boom")})
	got := m.(App)

	assert.True(t, got.loaded)
	assert.Nil(t, got.report())
	assert.Contains(t, got.View(), "boom")
}

func TestRefreshErrorKeepsPreviousData(t *testing.T) {
	a := loadedApp(t)

	m, _ := a.Update(RefreshDataMsg{Err: errors.New("offline")})
	got := m.(App)

	assert.Error(t, got.loadErr)
	assert.Len(t, got.nights, 3)
	assert.NotNil(t, got.report())
}

func TestTabKeys(t *testing.T) {
	var m tea.Model = loadedApp(t)

	m = press(t, m, "n")
	assert.Equal(t, tabNights, m.(App).activeTab)
	m = press(t, m, "t")
	assert.Equal(t, tabTrends, m.(App).activeTab)
	m = press(t, m, "x")
	assert.Equal(t, tabSettings, m.(App).activeTab)
	m = press(t, m, "o")
	assert.Equal(t, tabOverview, m.(App).activeTab)
}

func TestNightsNavigation(t *testing.T) {
	var m tea.Model = loadedApp(t)
	m = press(t, m, "n")

	m = press(t, m, "j")
	m = press(t, m, "j")
	m = press(t, m, "j") // clamped at the oldest night
	assert.Equal(t, 2, m.(App).nightState.cursor)

	m = press(t, m, "k")
	assert.Equal(t, 1, m.(App).nightState.cursor)

	m = press(t, m, "enter")
	assert.Equal(t, nightViewDetail, m.(App).nightState.viewMode)
	m = press(t, m, "esc")
	assert.Equal(t, nightViewSplit, m.(App).nightState.viewMode)
}

func TestRefreshKeyStartsRefresh(t *testing.T) {
	a := loadedApp(t)

	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	assert.True(t, m.(App).refreshing)

	msg := cmd()
	refreshed, ok := msg.(RefreshDataMsg)
	require.True(t, ok)
	assert.NoError(t, refreshed.Err)

	// A second press while refreshing is ignored.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd)
}

func TestViewsRender(t *testing.T) {
	var m tea.Model = loadedApp(t)

	overview := m.View()
	assert.Contains(t, overview, "Sleep score")
	assert.Contains(t, overview, "Month avg")

	m = press(t, m, "n")
	nights := m.View()
	assert.Contains(t, nights, "Nights [3]")
	assert.Contains(t, nights, "Δ prev night")

	m = press(t, m, "t")
	assert.Contains(t, m.View(), "Metric Trends")

	m = press(t, m, "x")
	assert.Contains(t, m.View(), "Access Token")

	m = press(t, m, "?")
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
}

func TestViewTooNarrow(t *testing.T) {
	a := loadedApp(t)
	m, _ := a.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.True(t, strings.Contains(m.View(), "too narrow"))
}
