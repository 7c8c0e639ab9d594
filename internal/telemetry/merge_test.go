package telemetry_test

import (
	"reflect"
	"testing"

	"codeberg.org/mutker/homewatt/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChannels() []telemetry.Channel {
	return []telemetry.Channel{
		{Name: "ac", Label: "Air Conditioner", Color: "#2196F3", BenchmarkWatts: 1500},
		{Name: "fan", Label: "Fan", Color: "#4CAF50", BenchmarkWatts: 75},
	}
}

func TestMergeAlignsDisjointKeys(t *testing.T) {
	logs := map[string]telemetry.RawLog{
		"ac":  {"2024-01-01_00-00": 500},
		"fan": {"2024-01-01_00-00": 50, "2024-01-01_00-01": 50},
	}

	records := telemetry.Merge(logs, testChannels())
	require.Len(t, records, 2)

	assert.Equal(t, "2024-01-01_00-00", records[0].Key)
	assert.InDelta(t, 500, records[0].Channels["ac"], 0.001)
	assert.InDelta(t, 50, records[0].Channels["fan"], 0.001)
	assert.InDelta(t, 550, records[0].Total, 0.001)

	assert.Equal(t, "2024-01-01_00-01", records[1].Key)
	assert.InDelta(t, 0, records[1].Channels["ac"], 0.001)
	assert.InDelta(t, 50, records[1].Channels["fan"], 0.001)
	assert.InDelta(t, 50, records[1].Total, 0.001)
}

func TestMergeKeyUnionSortedWithoutDuplicates(t *testing.T) {
	logs := map[string]telemetry.RawLog{
		"ac":  {"2024-01-02_10-30": 100, "2024-01-01_09-00": 200},
		"fan": {"2024-01-01_09-00": 30, "2024-01-03_00-00": 40},
	}

	records := telemetry.Merge(logs, testChannels())
	require.Len(t, records, 3)

	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, record.Key)
	}
	assert.Equal(t, []string{"2024-01-01_09-00", "2024-01-02_10-30", "2024-01-03_00-00"}, keys)
}

func TestMergeTotalEqualsChannelSum(t *testing.T) {
	logs := map[string]telemetry.RawLog{
		"ac":  {"2024-01-01_00-00": 123.4, "2024-01-01_00-01": 0},
		"fan": {"2024-01-01_00-02": 55.5},
	}

	for _, record := range telemetry.Merge(logs, testChannels()) {
		sum := 0.0
		for _, watts := range record.Channels {
			sum += watts
		}
		assert.InDelta(t, sum, record.Total, 0.0001, "record %s", record.Key)
		assert.Len(t, record.Channels, 2, "every configured channel is zero-filled")
	}
}

func TestMergeEmptyLogs(t *testing.T) {
	assert.Empty(t, telemetry.Merge(nil, testChannels()))
	assert.Empty(t, telemetry.Merge(map[string]telemetry.RawLog{
		"ac":  {},
		"fan": {},
	}, testChannels()))
}

func TestMergeIgnoresUnconfiguredChannels(t *testing.T) {
	logs := map[string]telemetry.RawLog{
		"ac":     {"2024-01-01_00-00": 500},
		"geyser": {"2024-01-01_00-05": 2000},
	}

	records := telemetry.Merge(logs, testChannels())
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-01_00-00", records[0].Key)
}

func TestMergeIdempotent(t *testing.T) {
	logs := map[string]telemetry.RawLog{
		"ac":  {"2024-01-01_00-00": 500, "2024-01-01_00-02": 410.5},
		"fan": {"2024-01-01_00-01": 50},
	}

	first := telemetry.Merge(logs, testChannels())
	second := telemetry.Merge(logs, testChannels())
	assert.True(t, reflect.DeepEqual(first, second))
}
