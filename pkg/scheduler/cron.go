package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxCronSearchMinutes bounds the next-run scan to roughly five years of
// minutes, same order as a schedule that fires once on February 29.
const maxCronSearchMinutes = 5 * 366 * 24 * 60

// Schedule is a parsed recurring trigger: either a six-field cron
// expression (seconds minutes hours day-of-month month day-of-week, with
// months counted 0-11) or an "@every <duration>" interval.
type Schedule struct {
	raw   string
	every time.Duration
	expr  *cronExpression
}

// ParseSchedule validates and parses a schedule descriptor. A blank
// descriptor is a configuration error.
func ParseSchedule(raw string) (*Schedule, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, schedulerError(ErrConfiguration, "empty cron expression")
	}

	if strings.HasPrefix(trimmed, "@every ") {
		durationRaw := strings.TrimSpace(strings.TrimPrefix(trimmed, "@every "))
		interval, err := time.ParseDuration(durationRaw)
		if err != nil {
			return nil, errors.Join(schedulerError(ErrConfiguration, "invalid @every duration"), err)
		}
		if interval <= 0 {
			return nil, schedulerError(ErrConfiguration, "@every duration must be > 0")
		}
		return &Schedule{raw: trimmed, every: interval}, nil
	}

	fields := strings.Fields(trimmed)
	if len(fields) != 6 {
		return nil, schedulerError(ErrConfiguration, fmt.Sprintf("expected 6 cron fields in %q, got %d", trimmed, len(fields)))
	}

	expr, err := parseCronExpression(fields)
	if err != nil {
		return nil, err
	}
	return &Schedule{raw: trimmed, expr: expr}, nil
}

// String returns the original schedule descriptor.
func (s *Schedule) String() string {
	return s.raw
}

// Next returns the first trigger time strictly after now.
func (s *Schedule) Next(now time.Time) (time.Time, error) {
	if s == nil {
		return time.Time{}, schedulerError(ErrNotInitialized, "schedule is nil")
	}
	if s.every > 0 {
		return now.Add(s.every), nil
	}

	next, ok := s.expr.next(now)
	if !ok {
		return time.Time{}, schedulerError(ErrConfiguration, fmt.Sprintf("unable to find next run for schedule %q", s.raw))
	}
	return next, nil
}

type cronFieldMatcher struct {
	any    bool
	values map[int]struct{}
}

func (m cronFieldMatcher) contains(value int) bool {
	if m.any {
		return true
	}
	_, ok := m.values[value]
	return ok
}

type cronExpression struct {
	second     cronFieldMatcher
	minute     cronFieldMatcher
	hour       cronFieldMatcher
	dayOfMonth cronFieldMatcher
	month      cronFieldMatcher
	dayOfWeek  cronFieldMatcher
}

// dateMatches checks everything above second granularity. Day-of-month and
// day-of-week combine with the standard cron OR rule when both are
// restricted.
func (e *cronExpression) dateMatches(candidate time.Time) bool {
	if !e.minute.contains(candidate.Minute()) {
		return false
	}
	if !e.hour.contains(candidate.Hour()) {
		return false
	}
	if !e.month.contains(int(candidate.Month()) - 1) {
		return false
	}

	dayOfMonthMatch := e.dayOfMonth.contains(candidate.Day())
	dayOfWeekMatch := e.dayOfWeek.contains(int(candidate.Weekday()))
	switch {
	case e.dayOfMonth.any && e.dayOfWeek.any:
		return true
	case e.dayOfMonth.any:
		return dayOfWeekMatch
	case e.dayOfWeek.any:
		return dayOfMonthMatch
	default:
		return dayOfMonthMatch || dayOfWeekMatch
	}
}

// next scans minute by minute for a matching date, then second by second
// inside the matching minute, starting strictly after now.
func (e *cronExpression) next(now time.Time) (time.Time, bool) {
	candidate := now.Truncate(time.Second).Add(time.Second)
	for iteration := 0; iteration < maxCronSearchMinutes; iteration++ {
		if e.dateMatches(candidate) {
			endOfMinute := candidate.Truncate(time.Minute).Add(time.Minute)
			for at := candidate; at.Before(endOfMinute); at = at.Add(time.Second) {
				if e.second.contains(at.Second()) {
					return at, true
				}
			}
		}
		candidate = candidate.Truncate(time.Minute).Add(time.Minute)
	}
	return time.Time{}, false
}

func parseCronExpression(fields []string) (*cronExpression, error) {
	second, err := parseCronField(fields[0], 0, 59, false)
	if err != nil {
		return nil, errors.Join(schedulerError(ErrConfiguration, fmt.Sprintf("invalid seconds field %q", fields[0])), err)
	}
	minute, err := parseCronField(fields[1], 0, 59, false)
	if err != nil {
		return nil, errors.Join(schedulerError(ErrConfiguration, fmt.Sprintf("invalid minute field %q", fields[1])), err)
	}
	hour, err := parseCronField(fields[2], 0, 23, false)
	if err != nil {
		return nil, errors.Join(schedulerError(ErrConfiguration, fmt.Sprintf("invalid hour field %q", fields[2])), err)
	}
	dayOfMonth, err := parseCronField(fields[3], 1, 31, false)
	if err != nil {
		return nil, errors.Join(schedulerError(ErrConfiguration, fmt.Sprintf("invalid day-of-month field %q", fields[3])), err)
	}
	month, err := parseCronField(fields[4], 0, 11, false)
	if err != nil {
		return nil, errors.Join(schedulerError(ErrConfiguration, fmt.Sprintf("invalid month field %q", fields[4])), err)
	}
	dayOfWeek, err := parseCronField(fields[5], 0, 6, true)
	if err != nil {
		return nil, errors.Join(schedulerError(ErrConfiguration, fmt.Sprintf("invalid day-of-week field %q", fields[5])), err)
	}

	return &cronExpression{
		second:     second,
		minute:     minute,
		hour:       hour,
		dayOfMonth: dayOfMonth,
		month:      month,
		dayOfWeek:  dayOfWeek,
	}, nil
}

func parseCronField(raw string, minValue, maxValue int, normalizeSunday bool) (cronFieldMatcher, error) {
	field := strings.TrimSpace(raw)
	if field == "" {
		return cronFieldMatcher{}, schedulerError(ErrConfiguration, "empty field")
	}
	if field == "*" {
		return cronFieldMatcher{any: true}, nil
	}

	values := map[int]struct{}{}
	for _, segment := range strings.Split(field, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return cronFieldMatcher{}, schedulerError(ErrConfiguration, "empty segment")
		}
		if err := appendCronSegmentValues(values, segment, minValue, maxValue, normalizeSunday); err != nil {
			return cronFieldMatcher{}, err
		}
	}
	if len(values) == 0 {
		return cronFieldMatcher{}, schedulerError(ErrConfiguration, "no values parsed")
	}
	return cronFieldMatcher{values: values}, nil
}

func appendCronSegmentValues(values map[int]struct{}, segment string, minValue, maxValue int, normalizeSunday bool) error {
	base := segment
	step := 1
	if strings.Contains(segment, "/") {
		stepParts := strings.SplitN(segment, "/", 2)
		base = strings.TrimSpace(stepParts[0])
		stepRaw := strings.TrimSpace(stepParts[1])
		parsedStep, err := strconv.Atoi(stepRaw)
		if err != nil || parsedStep <= 0 {
			return schedulerError(ErrConfiguration, fmt.Sprintf("invalid step value %q", stepRaw))
		}
		step = parsedStep
	}

	if base == "" {
		base = "*"
	}

	start := minValue
	end := maxValue
	switch {
	case base == "*":
		// keep full range
	case strings.Contains(base, "-"):
		rangeParts := strings.SplitN(base, "-", 2)
		rangeStart, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return schedulerError(ErrConfiguration, fmt.Sprintf("invalid range start %q", rangeParts[0]))
		}
		rangeEnd, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return schedulerError(ErrConfiguration, fmt.Sprintf("invalid range end %q", rangeParts[1]))
		}
		start = normalizeCronValue(rangeStart, normalizeSunday)
		end = normalizeCronValue(rangeEnd, normalizeSunday)
	default:
		singleValue, err := strconv.Atoi(base)
		if err != nil {
			return schedulerError(ErrConfiguration, fmt.Sprintf("invalid value %q", base))
		}
		start = normalizeCronValue(singleValue, normalizeSunday)
		end = start
		if step > 1 {
			end = maxValue
		}
	}

	if start < minValue || start > maxValue {
		return schedulerError(ErrConfiguration, fmt.Sprintf("value %d out of range [%d,%d]", start, minValue, maxValue))
	}
	if end < minValue || end > maxValue {
		return schedulerError(ErrConfiguration, fmt.Sprintf("value %d out of range [%d,%d]", end, minValue, maxValue))
	}
	if end < start {
		return schedulerError(ErrConfiguration, fmt.Sprintf("invalid range %d-%d", start, end))
	}

	for value := start; value <= end; value += step {
		normalizedValue := normalizeCronValue(value, normalizeSunday)
		if normalizedValue < minValue || normalizedValue > maxValue {
			continue
		}
		values[normalizedValue] = struct{}{}
	}
	return nil
}

// normalizeCronValue maps day-of-week 7 to Sunday.
func normalizeCronValue(value int, normalizeSunday bool) int {
	if normalizeSunday && value == 7 {
		return 0
	}
	return value
}
