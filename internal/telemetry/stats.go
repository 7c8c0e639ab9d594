package telemetry

import (
	"fmt"
	"math"
	"strings"
)

const (
	wattsPerKilowatt = 1000.0
	// One sample per minute. The kWh conversion divides accumulated
	// watt-samples by 60; changing the sample cadence changes this
	// constant.
	samplesPerHour = 60.0
)

// Derive computes the scalar dashboard statistics from the full and
// windowed record sequences plus the latest status flags. Instantaneous
// figures (current, peak) use the windowed sequence; accumulated usage
// uses the full sequence. Accumulation runs at full precision and rounds
// only at the boundary.
func Derive(full, recent []EnergyRecord, flags StatusFlags, channels []Channel) (Stats, []BreakdownEntry, []Alert) {
	stats := Stats{
		ManualMode: flags.ManualMode,
		// TODO: derive savings once a tariff source exists
		SavingsPercent: 0,
	}

	if len(recent) > 0 {
		stats.CurrentKW = round2(recent[len(recent)-1].Total / wattsPerKilowatt)

		peak := 0.0
		for _, record := range recent {
			if record.Total > peak {
				peak = record.Total
			}
		}
		stats.PeakKW = round2(peak / wattsPerKilowatt)
	}

	breakdown := make([]BreakdownEntry, 0, len(channels))
	for _, ch := range channels {
		sum := 0.0
		for _, record := range full {
			sum += record.Channels[ch.Name]
		}
		breakdown = append(breakdown, BreakdownEntry{
			Channel:        ch.Name,
			Label:          ch.Label,
			Color:          ch.Color,
			KWh:            round3(sum / samplesPerHour / wattsPerKilowatt),
			BenchmarkWatts: ch.BenchmarkWatts,
		})
	}

	return stats, breakdown, evaluateAlerts(recent, flags, channels)
}

// evaluateAlerts runs the fixed rule set against the latest state. Each
// rule contributes at most one alert per evaluation.
func evaluateAlerts(recent []EnergyRecord, flags StatusFlags, channels []Channel) []Alert {
	var alerts []Alert

	if !flags.VentilationOn {
		alerts = append(alerts, Alert{
			Level:   AlertWarning,
			Message: "Ventilation device is off",
		})
	}

	if !flags.MotionDetected {
		alerts = append(alerts, Alert{
			Level:   AlertInfo,
			Message: "No motion detected",
		})
	}

	if len(recent) > 0 {
		latest := recent[len(recent)-1]
		var over []string
		for _, ch := range channels {
			if ch.BenchmarkWatts > 0 && latest.Channels[ch.Name] > ch.BenchmarkWatts {
				over = append(over, ch.Label)
			}
		}
		if len(over) > 0 {
			alerts = append(alerts, Alert{
				Level:   AlertWarning,
				Message: fmt.Sprintf("Above reference wattage: %s", strings.Join(over, ", ")),
			})
		}
	}

	return alerts
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
