package utils

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDurationFormat indicates that a duration string is not in the 1w2d3h4m5s form.
var ErrInvalidDurationFormat = errors.New("invalid duration format")

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var prettyDurationPattern = regexp.MustCompile(`^(?:(\d+)w)?(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// prettyUnits lists the units used by FormatPrettyDuration from largest to smallest.
var prettyUnits = []struct {
	size   time.Duration
	suffix string
}{
	{week, "w"},
	{day, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
	{time.Second, "s"},
}

// ParsePrettyDuration parses strings like "1w", "2d12h" or "90s".
// Units must appear in descending order and each at most once.
func ParsePrettyDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrInvalidDurationFormat
	}

	match := prettyDurationPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDurationFormat, s)
	}

	var total time.Duration
	for i, unit := range prettyUnits {
		group := match[i+1]
		if group == "" {
			continue
		}

		n, err := strconv.ParseInt(group, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidDurationFormat, err)
		}

		if n > int64(math.MaxInt64/unit.size) {
			return 0, fmt.Errorf("%w: %q is too long", ErrInvalidDurationFormat, s)
		}

		part := time.Duration(n) * unit.size
		if total > math.MaxInt64-part {
			return 0, fmt.Errorf("%w: %q is too long", ErrInvalidDurationFormat, s)
		}
		total += part
	}

	return total, nil
}

// FormatPrettyDuration renders a duration using its two largest non-zero units,
// for example 1w2d or 3h5m. Sub-second precision is dropped.
func FormatPrettyDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	d = d.Truncate(time.Second)
	if d == 0 {
		return "0s"
	}

	var b strings.Builder

	shown := 0
	for _, unit := range prettyUnits {
		n := d / unit.size
		d -= n * unit.size

		if n == 0 {
			continue
		}

		b.WriteString(strconv.FormatInt(int64(n), 10))
		b.WriteString(unit.suffix)

		shown++
		if shown == 2 {
			break
		}
	}

	return b.String()
}
