package asleep

import (
	"encoding/json"
	"time"
)

// Tokens is the result of a token refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // zero when the server sent no expires_in
}

// tokenResponse is the refresh endpoint body, either bare or wrapped in
// a "result" object.
type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    *float64 `json:"expires_in"`
}

type refreshEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// DateRange is an inclusive calendar-date query window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange covers days calendar dates ending on now's date, in now's
// location. days below 1 is treated as 1.
func NewDateRange(now time.Time, days int) DateRange {
	if days < 1 {
		days = 1
	}
	y, m, d := now.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// StartDate formats the first date as YYYY-MM-DD.
func (r DateRange) StartDate() string { return r.Start.Format(time.DateOnly) }

// EndDate formats the last date as YYYY-MM-DD.
func (r DateRange) EndDate() string { return r.End.Format(time.DateOnly) }
