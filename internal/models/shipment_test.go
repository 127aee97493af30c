package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistoryRecord_UnmarshalISOVariants(t *testing.T) {
	var recs []HistoryRecord
	require.NoError(t, json.Unmarshal([]byte(`[
  {"tracking_number": "A1", "added_at": "2025-01-02T03:04:05+00:00"},
  {"tracking_number": "B2", "added_at": "2025-01-02T03:04:05.123456"},
  {"tracking_number": "C3", "added_at": "2025-01-02T05:04:05.5+02:00"},
  {"tracking_number": "D4", "added_at": "yesterday"},
  {"tracking_number": "E5"}
]`), &recs))

	require.Len(t, recs, 5)
	require.True(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Equal(recs[0].AddedAt))
	require.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC), recs[1].AddedAt)
	require.True(t, time.Date(2025, 1, 2, 3, 4, 5, 500000000, time.UTC).Equal(recs[2].AddedAt))
	require.True(t, recs[3].AddedAt.IsZero())
	require.Equal(t, "E5", recs[4].TrackingNumber)
}

func TestHistoryRecord_MarshalKeepsUnparsedValue(t *testing.T) {
	var rec HistoryRecord
	require.NoError(t, json.Unmarshal([]byte(`{"tracking_number":"D4","added_at":"yesterday"}`), &rec))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, `{"tracking_number":"D4","added_at":"yesterday"}`, string(out))

	out, err = json.Marshal(HistoryRecord{TrackingNumber: "A1", AddedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)})
	require.NoError(t, err)
	require.JSONEq(t, `{"tracking_number":"A1","added_at":"2025-01-02T03:04:05Z"}`, string(out))
}

func TestTrackingNumbers(t *testing.T) {
	set := TrackingNumbers([]HistoryRecord{{TrackingNumber: "A"}, {TrackingNumber: "B"}, {TrackingNumber: "A"}})
	require.Len(t, set, 2)
	require.Contains(t, set, "B")
}
