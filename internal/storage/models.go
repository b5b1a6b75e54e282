package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// SearchRun records one executed search window and its parameters.
type SearchRun struct {
	ID           int64
	WindowStart  time.Time
	WindowEnd    time.Time
	Step         time.Duration
	ToleranceDeg decimal.Decimal
	Provider     string
	Timezone     string
	CreatedAt    time.Time
}

// ReturnEvent is one accepted crossing with the validated angles at that
// instant. Angles travel through Postgres as numerics so they round-trip
// exactly.
type ReturnEvent struct {
	ID         int64
	RunID      int64
	Section    string
	EventTS    time.Time
	SunLon     decimal.Decimal
	MoonLon    decimal.Decimal
	Separation decimal.Decimal
	CreatedAt  time.Time
}
