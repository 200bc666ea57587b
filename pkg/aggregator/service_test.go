package aggregator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/NotCoffee418/witmotion_logger/pkg/sampledb"
	"github.com/NotCoffee418/witmotion_logger/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWithAccX(t *testing.T, accX string) *types.Sample {
	t.Helper()
	values := map[string]string{}
	for _, name := range types.FieldOrder {
		values[name] = "0.0000"
	}
	values[types.FieldSystemTime] = "2025-01-01T00:00:00.000Z"
	values[types.FieldTimestamp] = "25-01-01T00:00:00.000Z"
	values[types.FieldAccX] = accX
	values[types.FieldYaw] = "90.0000"
	s, err := types.NewSample(values)
	require.NoError(t, err)
	return s
}

func TestRounding(t *testing.T) {
	ts := time.Date(2025, 3, 4, 10, 42, 17, 500, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 42, 0, 0, time.UTC).Unix(), roundToMinuteStart(ts))
	assert.Equal(t, time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC).Unix(), roundToHourStart(ts))
	assert.Equal(t, roundToHourStart(ts)+3600, getEnd(TimeframeHour, roundToHourStart(ts)))
	assert.Equal(t, roundToMinuteStart(ts)+60, getEnd(TimeframeMinute, roundToMinuteStart(ts)))
}

func TestAggregateMinute(t *testing.T) {
	db, err := sampledb.Open(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	defer db.Close()

	minute := time.Date(2025, 3, 4, 10, 42, 0, 0, time.UTC)
	require.NoError(t, db.InsertSample(sampleWithAccX(t, "1.0000"), minute.Add(time.Second)))
	require.NoError(t, db.InsertSample(sampleWithAccX(t, "3.0000"), minute.Add(59*time.Second)))
	// next minute, not included
	require.NoError(t, db.InsertSample(sampleWithAccX(t, "100.0000"), minute.Add(time.Minute)))

	require.NoError(t, Aggregate(db.DB(), TimeframeMinute, minute.Unix()))

	s, err := GetSummary(db.DB(), TimeframeMinute, minute.Unix())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.EqualValues(t, 2, s.SampleCount)
	assert.InDelta(t, 2.0, s.AvgAccX, 1e-9)
	assert.InDelta(t, 90.0, s.AvgYaw, 1e-9)
}

func TestAggregateEmptyTimeframe(t *testing.T) {
	db, err := sampledb.Open(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC).Unix()
	require.NoError(t, Aggregate(db.DB(), TimeframeHour, start))

	s, err := GetSummary(db.DB(), TimeframeHour, start)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestAggregateCompleted(t *testing.T) {
	db, err := sampledb.Open(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 3, 4, 11, 0, 30, 0, time.UTC)
	prevMinute := now.Add(-time.Minute).Truncate(time.Minute)
	require.NoError(t, db.InsertSample(sampleWithAccX(t, "4.0000"), prevMinute.Add(10*time.Second)))

	require.NoError(t, AggregateCompleted(db.DB(), now))

	minute, err := GetSummary(db.DB(), TimeframeMinute, prevMinute.Unix())
	require.NoError(t, err)
	require.NotNil(t, minute)
	assert.InDelta(t, 4.0, minute.AvgAccX, 1e-9)

	// 10:59 belongs to the previous hour
	hour, err := GetSummary(db.DB(), TimeframeHour, time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC).Unix())
	require.NoError(t, err)
	require.NotNil(t, hour)
	assert.EqualValues(t, 1, hour.SampleCount)
}

func TestTimeframeHelpers(t *testing.T) {
	tf, err := ParseTimeframe("hour")
	require.NoError(t, err)
	assert.Equal(t, TimeframeHour, tf)

	tf, err = ParseTimeframe("")
	require.NoError(t, err)
	assert.Equal(t, TimeframeMinute, tf)

	_, err = ParseTimeframe("week")
	assert.Error(t, err)

	at := time.Date(2025, 3, 4, 10, 42, 17, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC).Unix(), TimeframeHour.Start(at))
	assert.Equal(t, time.Date(2025, 3, 4, 10, 42, 0, 0, time.UTC).Unix(), TimeframeMinute.Start(at))

	text, err := TimeframeHour.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "hour", string(text))
}
