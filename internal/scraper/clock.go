package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadTimestamp is returned for chat timestamps that are not clock faces.
var ErrBadTimestamp = errors.New("unrecognised chat timestamp")

var clockRe = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*([AaPp][Mm])?\s*$`)

// ParseClockTimestamp turns a clock face such as "9:41 PM" (or 24h "21:41")
// into an absolute time anchored on now. When the parsed hour is later than
// now's hour the message is assumed to be from the previous day.
//
// The rollback only looks at the hour, so it cannot tell apart timestamps more
// than a day old and misreads a stream that crosses midnight without chat
// activity for a while. Kept as is; swap the TimestampParser on the Scraper to
// change it.
func ParseClockTimestamp(text string, now time.Time) (time.Time, error) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, text)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, text)
	}

	switch strings.ToUpper(m[3]) {
	case "AM", "PM":
		if hour < 1 || hour > 12 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, text)
		}
		if strings.EqualFold(m[3], "PM") && hour != 12 {
			hour += 12
		}
		if strings.EqualFold(m[3], "AM") && hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, text)
		}
	}

	day := now
	if hour > now.Hour() {
		day = now.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location()), nil
}

// TimestampParser converts scraped clock text into an absolute time.
type TimestampParser func(text string, now time.Time) (time.Time, error)

// wholeMinute drops seconds and below.
func wholeMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// NotBeforeLaunch reports whether ts falls in or after the minute of launch.
// Chat timestamps carry minute precision only, so both sides are compared at
// whole minutes.
func NotBeforeLaunch(ts, launch time.Time) bool {
	return !wholeMinute(ts).Before(wholeMinute(launch))
}
