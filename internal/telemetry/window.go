package telemetry

import "time"

// TimestampLayout is the minute-granularity key format used by the
// telemetry store.
const TimestampLayout = "2006-01-02_15-04"

// Window retains the records whose timestamp keys fall within
// [now-window, now]. A key that fails to parse drops only its own
// record; the rest of the sequence is kept.
func Window(records []EnergyRecord, window time.Duration, now time.Time) []EnergyRecord {
	floor := now.Add(-window)

	var recent []EnergyRecord
	for _, record := range records {
		ts, err := time.ParseInLocation(TimestampLayout, record.Key, time.Local)
		if err != nil {
			continue
		}
		if ts.Before(floor) || ts.After(now) {
			continue
		}
		recent = append(recent, record)
	}

	return recent
}

// FallbackRecords builds the single synthetic zero record substituted
// when a merged or windowed sequence comes up empty, so downstream
// consumers never operate on an empty sequence.
func FallbackRecords(now time.Time, channels []Channel) []EnergyRecord {
	values := make(map[string]float64, len(channels))
	for _, ch := range channels {
		values[ch.Name] = 0
	}

	return []EnergyRecord{{
		Key:      now.Format(TimestampLayout),
		Channels: values,
		Total:    0,
	}}
}
