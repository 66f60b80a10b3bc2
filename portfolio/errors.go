package portfolio

import "errors"

// Every error returned by this package is fatal for the run that produced
// it: the ledger is a precondition for returns, the equity curve and order
// decisions, so callers must not continue on a best-effort basis.
var (
	ErrInvalidDirection  = errors.New("invalid fill direction")
	ErrInvalidFill       = errors.New("invalid fill")
	ErrMissingMarketData = errors.New("missing market data")
	ErrTimestampSkew     = errors.New("bar timestamps differ across symbols")
	ErrStaleTimestamp    = errors.New("cycle timestamp not after last history entry")
	ErrUnknownSymbol     = errors.New("unknown symbol")
	ErrInvalidSignal     = errors.New("invalid signal type")
	ErrInvalidStrength   = errors.New("signal strength outside [0,1]")
)
