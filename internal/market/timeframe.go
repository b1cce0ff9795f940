package market

import (
	"fmt"
	"time"
)

type Timeframe string

const (
	M1  Timeframe = "1m"
	M5  Timeframe = "5m"
	M15 Timeframe = "15m"
	M30 Timeframe = "30m"
	H1  Timeframe = "1h"
	H4  Timeframe = "4h"
	D1  Timeframe = "1d"
)

var timeframeToDuration = map[Timeframe]time.Duration{
	M1:  1 * time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  1 * time.Hour,
	H4:  4 * time.Hour,
	D1:  24 * time.Hour,
}

func (t Timeframe) ToDuration() (time.Duration, error) {
	duration, ok := timeframeToDuration[t]
	if !ok {
		return 0, fmt.Errorf("invalid timeframe: %s", t)
	}
	return duration, nil
}

func (t Timeframe) String() string {
	return string(t)
}
