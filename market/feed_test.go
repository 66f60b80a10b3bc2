package market

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func series(sym Symbol, days []int, closes ...float64) []Bar {
	out := make([]Bar, len(days))
	for i, d := range days {
		out[i] = Bar{Symbol: sym, Time: t0.AddDate(0, 0, d), Close: closes[i]}
	}
	return out
}

func TestFeedAlignsSymbols(t *testing.T) {
	bars := map[Symbol][]Bar{
		"AAPL": series("AAPL", []int{0, 1, 2}, 10, 11, 12),
		"MSFT": series("MSFT", []int{0, 2}, 20, 22),
	}
	f, err := NewFeed(bars, []Symbol{"AAPL", "MSFT"}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, f.Cycles())
	assert.Equal(t, 1, f.Skipped())
	assert.Equal(t, t0, f.First())
	assert.True(t, f.Time().IsZero())

	_, err = f.LatestBars("AAPL", 1)
	assert.ErrorIs(t, err, ErrNoBars)

	require.True(t, f.Next())
	assert.Equal(t, t0, f.Time())

	require.True(t, f.Next())
	assert.Equal(t, t0.AddDate(0, 0, 2), f.Time())
	b, err := LatestBar(f, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 12.0, b.Close)

	// the dropped day never becomes visible
	got, err := f.LatestBars("AAPL", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Close)

	assert.False(t, f.Next())

	_, err = f.LatestBars("GOOG", 1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestNewFeedErrors(t *testing.T) {
	_, err := NewFeed(nil, nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewFeed(map[Symbol][]Bar{"AAPL": series("AAPL", []int{0}, 1)}, []Symbol{"AAPL", "MSFT"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoBars)

	_, err = NewFeed(map[Symbol][]Bar{
		"AAPL": series("AAPL", []int{0}, 1),
		"MSFT": series("MSFT", []int{1}, 1),
	}, []Symbol{"AAPL", "MSFT"}, zerolog.Nop())
	assert.ErrorContains(t, err, "no common timestamps")

	unordered := series("AAPL", []int{1, 0}, 1, 2)
	_, err = NewFeed(map[Symbol][]Bar{"AAPL": unordered}, []Symbol{"AAPL"}, zerolog.Nop())
	assert.ErrorContains(t, err, "not after")

	dup := series("AAPL", []int{0, 0}, 1, 2)
	_, err = NewFeed(map[Symbol][]Bar{"AAPL": dup}, []Symbol{"AAPL"}, zerolog.Nop())
	assert.ErrorContains(t, err, "not after")
}

func TestLoadFeed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"), []byte(sampleCSV), 0o644))

	f, err := LoadFeed(dir, []Symbol{"AAPL"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, f.Cycles())
	assert.Equal(t, []Symbol{"AAPL"}, f.Symbols())

	_, err = LoadFeed(dir, []Symbol{"MSFT"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestBarStore(t *testing.T) {
	s := NewBarStore()
	require.NoError(t, s.Push(Bar{Symbol: "AAPL", Time: t0, Close: 1}))
	require.NoError(t, s.Push(Bar{Symbol: "AAPL", Time: t0.AddDate(0, 0, 1), Close: 2}))
	assert.Error(t, s.Push(Bar{Symbol: "AAPL", Time: t0, Close: 3}))
	assert.Equal(t, 2, s.Len("AAPL"))

	got, err := s.LatestBars("AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got[0].Close = 99
	again, _ := s.LatestBars("AAPL", 2)
	assert.Equal(t, 1.0, again[0].Close)
}
