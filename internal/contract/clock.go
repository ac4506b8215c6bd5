package contract

import "time"

// Clock supplies the time source for contract lifecycle bookkeeping. The
// production clock returns time.Now(), whose monotonic reading is what
// time.Time.Sub uses for elapsed-time computation; wall-clock time is never
// used for expiry because it can jump under NTP correction or system suspend.
// Tests substitute a deterministic fake.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production monotonic clock.
var SystemClock Clock = systemClock{}
