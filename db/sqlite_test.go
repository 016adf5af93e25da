package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradecast/schema"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(":memory:"))
	t.Cleanup(func() { Close() })
}

func TestSaveAndQueryPredictions(t *testing.T) {
	setupDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := SavePrediction(PredictionRecord{
			ID:         fmt.Sprintf("req-%d", i),
			Input:      schema.Record{"absences": float64(i), "school": "GP"},
			Label:      "B",
			Confidence: 0.6,
			LatencyMs:  1.5,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	records, err := QueryRecentPredictions(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, "req-2", records[0].ID)
	assert.Equal(t, "req-0", records[2].ID)

	// Input round-trips through its JSON column.
	assert.Equal(t, "GP", records[0].Input["school"])
	assert.Equal(t, float64(2), records[0].Input["absences"])
	assert.Equal(t, "B", records[0].Label)
	assert.Equal(t, 0.6, records[0].Confidence)
}

func TestSavePredictionUpsertsByID(t *testing.T) {
	setupDB(t)

	rec := PredictionRecord{
		ID:         "req-1",
		Input:      schema.Record{"absences": 1.0},
		Label:      "C",
		Confidence: 0.4,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, SavePrediction(rec))

	rec.Label = "B"
	require.NoError(t, SavePrediction(rec))

	records, err := QueryRecentPredictions(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "B", records[0].Label)
}

func TestQueryPredictionsLimit(t *testing.T) {
	setupDB(t)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, SavePrediction(PredictionRecord{
			ID:        fmt.Sprintf("req-%d", i),
			Input:     schema.Record{},
			Label:     "A",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := QueryRecentPredictions(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Non-positive limit falls back to the default.
	records, err = QueryRecentPredictions(0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestTrainingLogRoundTrip(t *testing.T) {
	setupDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, SaveTrainingLog(TrainingLog{
		ModelName:   "student-grade-rf",
		Accuracy:    0.71,
		TrainRows:   520,
		TestRows:    129,
		ColumnCount: 48,
		TrainedAt:   base,
	}))
	require.NoError(t, SaveTrainingLog(TrainingLog{
		ModelName:   "student-grade-rf",
		Accuracy:    0.74,
		TrainRows:   520,
		TestRows:    129,
		ColumnCount: 48,
		TrainedAt:   base.Add(time.Hour),
	}))

	logs, err := LoadTrainingLog()
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Newest first.
	assert.Equal(t, 0.74, logs[0].Accuracy)
	assert.Equal(t, 0.71, logs[1].Accuracy)
	assert.Equal(t, 48, logs[0].ColumnCount)
}

func TestUninitializedDatabase(t *testing.T) {
	require.NoError(t, Close())

	assert.Error(t, SavePrediction(PredictionRecord{ID: "x"}))
	_, err := QueryRecentPredictions(1)
	assert.Error(t, err)
	assert.Error(t, SaveTrainingLog(TrainingLog{}))
	_, err = LoadTrainingLog()
	assert.Error(t, err)
}
