package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func unixFor(y int, m time.Month, d, h, min, s int) int64 {
	return time.Date(y, m, d, h, min, s, 0, time.UTC).Unix()
}

func TestStartOfDay(t *testing.T) {
	sec := unixFor(2026, time.March, 5, 14, 30, 45)
	require.Equal(t, unixFor(2026, time.March, 5, 0, 0, 0), StartOfDay(sec))
}

func TestStartOfYear(t *testing.T) {
	sec := unixFor(2026, time.March, 5, 14, 30, 45)
	require.Equal(t, unixFor(2026, time.January, 1, 0, 0, 0), StartOfYear(sec))
}

func TestWeekday(t *testing.T) {
	// 2026-03-05 is a Thursday.
	sec := unixFor(2026, time.March, 5, 0, 0, 0)
	require.Equal(t, int(time.Thursday), Weekday(sec))
}

func TestHourMinuteSecond(t *testing.T) {
	sec := unixFor(2026, time.March, 5, 14, 30, 45)
	require.Equal(t, 14, Hour(sec))
	require.Equal(t, 30, Minute(sec))
	require.Equal(t, 45, Second(sec))
}

func TestMonthDay(t *testing.T) {
	sec := unixFor(2026, time.March, 5, 14, 30, 45)
	require.Equal(t, 3, Month(sec))
	require.Equal(t, 5, Day(sec))
}

func TestSecondOfDay(t *testing.T) {
	sec := unixFor(2026, time.March, 5, 1, 0, 0)
	require.Equal(t, int64(SecondsPerHour), SecondOfDay(sec))
}

func TestTimeOfDay_NonWrappingWindow(t *testing.T) {
	morning := unixFor(2026, time.March, 5, 9, 0, 0)
	evening := unixFor(2026, time.March, 5, 20, 0, 0)
	require.True(t, TimeOfDay(morning, 8*SecondsPerHour, 17*SecondsPerHour))
	require.False(t, TimeOfDay(evening, 8*SecondsPerHour, 17*SecondsPerHour))
}

func TestTimeOfDay_WrappingWindowPastMidnight(t *testing.T) {
	lateNight := unixFor(2026, time.March, 5, 23, 30, 0)
	earlyMorning := unixFor(2026, time.March, 5, 1, 0, 0)
	midday := unixFor(2026, time.March, 5, 12, 0, 0)

	require.True(t, TimeOfDay(lateNight, 22*SecondsPerHour, 2*SecondsPerHour))
	require.True(t, TimeOfDay(earlyMorning, 22*SecondsPerHour, 2*SecondsPerHour))
	require.False(t, TimeOfDay(midday, 22*SecondsPerHour, 2*SecondsPerHour))
}
