package telemetry

import "sort"

// Merge normalizes the per-channel logs onto one ordered, deduplicated
// timeline. The key set is the union of every configured channel's keys,
// sorted lexicographically (which is chronological for the fixed
// YYYY-MM-DD_HH-MM format). Each record carries every configured channel,
// zero-filled where the channel has no reading at that key, and a total
// that is always the arithmetic sum of the channel values.
//
// Merge is pure: identical inputs produce identical output.
func Merge(logs map[string]RawLog, channels []Channel) []EnergyRecord {
	keySet := make(map[string]struct{})
	for _, ch := range channels {
		for key := range logs[ch.Name] {
			keySet[key] = struct{}{}
		}
	}

	if len(keySet) == 0 {
		return nil
	}

	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]EnergyRecord, 0, len(keys))
	for _, key := range keys {
		values := make(map[string]float64, len(channels))
		total := 0.0
		for _, ch := range channels {
			watts := logs[ch.Name][key] // absent key reads as 0
			values[ch.Name] = watts
			total += watts
		}
		records = append(records, EnergyRecord{
			Key:      key,
			Channels: values,
			Total:    total,
		})
	}

	return records
}
