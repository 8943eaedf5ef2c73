package httpapi

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withFixedClock(t *testing.T, fixed time.Time) {
	t.Helper()
	original := timeNow
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = original })
}

func TestInterpolateResolvesTodayToMidnightUnix(t *testing.T) {
	fixed := time.Date(2026, time.August, 1, 15, 30, 0, 0, time.UTC)
	withFixedClock(t, fixed)

	midnight := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	got := Interpolate("ts={{today}}", url.Values{})
	assert.Equal(t, "ts="+itoa(midnight.Unix()), got)
}

func TestInterpolateAppliesDayOffset(t *testing.T) {
	fixed := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	withFixedClock(t, fixed)

	got := Interpolate("{{today-1day}}", url.Values{})
	want := fixed.Add(-24 * time.Hour).Unix()
	assert.Equal(t, itoa(want), got)
}

func TestInterpolateFallsBackToURLParam(t *testing.T) {
	params := url.Values{"branch": []string{"main"}}
	got := Interpolate("repo/{{branch}}", params)
	assert.Equal(t, "repo/main", got)
}

func TestInterpolateWithoutTokensIsNoOp(t *testing.T) {
	got := Interpolate("no tokens here", url.Values{})
	assert.Equal(t, "no tokens here", got)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
