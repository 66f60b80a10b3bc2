package market

import (
	"fmt"
)

// BarStore is an in-memory BarProvider. Bars are appended per symbol in
// ascending time order and LatestBars reads the tail.
type BarStore struct {
	bars map[Symbol][]Bar
}

func NewBarStore() *BarStore {
	return &BarStore{bars: make(map[Symbol][]Bar)}
}

// Push appends a bar for its symbol. Bars must arrive in ascending time.
func (s *BarStore) Push(b Bar) error {
	prev := s.bars[b.Symbol]
	if n := len(prev); n > 0 && !b.Time.After(prev[n-1].Time) {
		return fmt.Errorf("push %s: bar at %s not after %s", b.Symbol,
			b.Time.Format("2006-01-02 15:04:05"), prev[n-1].Time.Format("2006-01-02 15:04:05"))
	}
	s.bars[b.Symbol] = append(prev, b)
	return nil
}

// LatestBars returns up to n of the most recent bars for sym.
func (s *BarStore) LatestBars(sym Symbol, n int) ([]Bar, error) {
	bars, ok := s.bars[sym]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", sym, ErrNoBars)
	}
	if n <= 0 || n > len(bars) {
		n = len(bars)
	}
	out := make([]Bar, n)
	copy(out, bars[len(bars)-n:])
	return out, nil
}

// Len returns the number of bars stored for sym.
func (s *BarStore) Len(sym Symbol) int {
	return len(s.bars[sym])
}
