package market

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Feed replays historical bars for a fixed symbol universe one cycle at a
// time. Each call to Next publishes exactly one bar per symbol, all with
// the same timestamp, so consumers never see symbols at different dates.
//
// Timestamps that are not present for every symbol are dropped; Skipped
// reports how many.
type Feed struct {
	symbols  []Symbol
	bars     map[Symbol][]Bar
	timeline []time.Time
	cursor   map[Symbol]int
	pos      int
	skipped  int

	store *BarStore
	log   zerolog.Logger
}

// NewFeed builds a feed over already loaded bars. Each symbol's bars must
// be ascending with no duplicate timestamps, as LoadCSV returns them.
// Every symbol needs at least one bar and the universe needs at least one
// common timestamp.
func NewFeed(bars map[Symbol][]Bar, symbols []Symbol, log zerolog.Logger) (*Feed, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("feed: empty symbol list")
	}

	counts := make(map[int64]int)
	total := make(map[int64]struct{})
	for _, sym := range symbols {
		bs, ok := bars[sym]
		if !ok || len(bs) == 0 {
			return nil, fmt.Errorf("feed: %s: %w", sym, ErrNoBars)
		}
		for i, b := range bs {
			if i > 0 && !b.Time.After(bs[i-1].Time) {
				return nil, fmt.Errorf("feed: %s: bar at %s not after %s", sym,
					b.Time.Format(time.RFC3339), bs[i-1].Time.Format(time.RFC3339))
			}
			k := b.Time.UnixNano()
			counts[k]++
			total[k] = struct{}{}
		}
	}

	timeline := make([]time.Time, 0, len(counts))
	for k, n := range counts {
		if n == len(symbols) {
			timeline = append(timeline, time.Unix(0, k).UTC())
		}
	}
	if len(timeline) == 0 {
		return nil, fmt.Errorf("feed: symbols share no common timestamps")
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Before(timeline[j]) })

	f := &Feed{
		symbols:  append([]Symbol(nil), symbols...),
		bars:     bars,
		timeline: timeline,
		cursor:   make(map[Symbol]int, len(symbols)),
		skipped:  len(total) - len(timeline),
		store:    NewBarStore(),
		log:      log.With().Str("component", "feed").Logger(),
	}
	if f.skipped > 0 {
		f.log.Warn().
			Int("skipped", f.skipped).
			Int("cycles", len(timeline)).
			Msg("dropping timestamps missing for at least one symbol")
	}
	return f, nil
}

// LoadFeed reads <dir>/<SYMBOL>.csv (or .csv.xz) for every symbol.
func LoadFeed(dir string, symbols []Symbol, log zerolog.Logger) (*Feed, error) {
	bars := make(map[Symbol][]Bar, len(symbols))
	for _, sym := range symbols {
		path, err := findData(dir, sym)
		if err != nil {
			return nil, err
		}
		bs, err := LoadCSV(path, sym)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("symbol", string(sym)).Str("path", path).Int("bars", len(bs)).Msg("loaded bars")
		bars[sym] = bs
	}
	return NewFeed(bars, symbols, log)
}

func findData(dir string, sym Symbol) (string, error) {
	for _, ext := range []string{".csv", ".csv.xz"} {
		p := filepath.Join(dir, string(sym)+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no data file for %s in %s: %w", sym, dir, ErrUnknownSymbol)
}

// Next publishes the next cycle of bars. It returns false once the data is
// exhausted.
func (f *Feed) Next() bool {
	if f.pos >= len(f.timeline) {
		return false
	}
	t := f.timeline[f.pos]
	f.pos++

	for _, sym := range f.symbols {
		bs := f.bars[sym]
		i := f.cursor[sym]
		for i < len(bs) && bs[i].Time.Before(t) {
			i++
		}
		// i now points at the bar for t; the timeline guarantees it exists.
		b := bs[i]
		b.Symbol = sym
		f.cursor[sym] = i + 1
		if err := f.store.Push(b); err != nil {
			// NewFeed rejects unordered input, so this is a bug.
			panic(fmt.Sprintf("feed: %v", err))
		}
	}
	return true
}

// Time returns the timestamp of the current cycle.
func (f *Feed) Time() time.Time {
	if f.pos == 0 {
		return time.Time{}
	}
	return f.timeline[f.pos-1]
}

// First returns the earliest cycle timestamp.
func (f *Feed) First() time.Time { return f.timeline[0] }

// Cycles returns the total number of cycles the feed will publish.
func (f *Feed) Cycles() int { return len(f.timeline) }

// Skipped returns the number of timestamps dropped for missing data.
func (f *Feed) Skipped() int { return f.skipped }

// Symbols returns the feed's universe in configured order.
func (f *Feed) Symbols() []Symbol { return append([]Symbol(nil), f.symbols...) }

// LatestBars implements BarProvider over the bars published so far.
func (f *Feed) LatestBars(sym Symbol, n int) ([]Bar, error) {
	if _, ok := f.bars[sym]; !ok {
		return nil, fmt.Errorf("%s: %w", sym, ErrUnknownSymbol)
	}
	return f.store.LatestBars(sym, n)
}
