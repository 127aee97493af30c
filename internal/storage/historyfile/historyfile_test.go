package historyfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/ParcelSync/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestStore_LoadMissingFile(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "h.json"), false, nil)
	recs, err := st.Load()
	require.NoError(t, err)
	require.NotNil(t, recs)
	require.Empty(t, recs)
}

func TestStore_LoadMalformedFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "h.json")
	require.NoError(t, os.WriteFile(p, []byte(`[{"tracking_number": "A"`), 0o600))

	recs, err := New(p, false, nil).Load()
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestStore_LoadAcceptsOffsetTimestamps(t *testing.T) {
	p := filepath.Join(t.TempDir(), "h.json")
	require.NoError(t, os.WriteFile(p, []byte(`[
  {"tracking_number": "A", "added_at": "2024-11-10T12:00:00.123456+00:00"}
]`), 0o600))

	recs, err := New(p, false, nil).Load()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "A", recs[0].TrackingNumber)
	require.WithinDuration(t, time.Date(2024, 11, 10, 12, 0, 0, 123456000, time.UTC), recs[0].AddedAt, 0)
}

func TestStore_LoadMixedTimestampFormats(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "h.json")
	require.NoError(t, os.WriteFile(p, []byte(`[
  {"tracking_number": "A1", "added_at": "2025-01-02T03:04:05+00:00"},
  {"tracking_number": "B2", "added_at": "2025-01-02T03:04:05.123456"},
  {"tracking_number": "C3", "added_at": "not a date"}
]`), 0o644))

	st := New(p, false, nil)
	recs, err := st.Load()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC), recs[1].AddedAt)

	// rewriting keeps every earlier record
	require.NoError(t, st.Save(append(recs, models.HistoryRecord{TrackingNumber: "D4", AddedAt: time.Now().UTC()})))
	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"added_at": "not a date"`)

	recs, err = st.Load()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	require.Equal(t, "A1", recs[0].TrackingNumber)
}

func TestStore_SaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "h.json")
	st := New(p, false, nil)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, st.Save([]models.HistoryRecord{
		{TrackingNumber: "A", AddedAt: at},
		{TrackingNumber: "B", AddedAt: at},
	}))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "[\n  {\n    \"tracking_number\": \"A\""))
	require.Contains(t, string(raw), `"added_at": "2025-01-02T03:04:05Z"`)

	recs, err := st.Load()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "B", recs[1].TrackingNumber)

	require.Equal(t, []string{"h.json", "h.json.lock"}, dirNames(t, dir))
}

func TestStore_FailedSaveLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "h.json")
	original := []byte("[\n  {\n    \"tracking_number\": \"OLD\",\n    \"added_at\": \"2024-01-01T00:00:00Z\"\n  }\n]")
	require.NoError(t, os.WriteFile(p, original, 0o644))

	st := New(p, false, nil)
	var sawTmp string
	st.beforeRename = func(tmpPath string) error {
		sawTmp = tmpPath
		b, err := os.ReadFile(tmpPath)
		require.NoError(t, err)
		require.Contains(t, string(b), "NEW")
		return errors.New("killed")
	}

	err := st.Save([]models.HistoryRecord{{TrackingNumber: "NEW", AddedAt: time.Now().UTC()}})
	require.Error(t, err)

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, original, got)
	require.NoFileExists(t, sawTmp)
	require.Equal(t, []string{"h.json", "h.json.lock"}, dirNames(t, dir))
}

func TestStore_DryRunDoesNotTouchDisk(t *testing.T) {
	dir := t.TempDir()
	st := New(filepath.Join(dir, "h.json"), true, nil)

	require.NoError(t, st.Save([]models.HistoryRecord{{TrackingNumber: "A", AddedAt: time.Now().UTC()}}))
	require.Empty(t, dirNames(t, dir))
}

func TestStore_LockIsExclusive(t *testing.T) {
	p := filepath.Join(t.TempDir(), "h.json")
	st := New(p, false, nil)

	unlock, err := st.lock()
	require.NoError(t, err)

	other, err := os.OpenFile(p+".lock", os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer other.Close()

	err = unix.Flock(int(other.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	require.ErrorIs(t, err, unix.EWOULDBLOCK)

	unlock()
	require.NoError(t, unix.Flock(int(other.Fd()), unix.LOCK_EX|unix.LOCK_NB))
}

func TestNew_DefaultPath(t *testing.T) {
	require.Equal(t, DefaultPath, New("", false, nil).Path())
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	out := []string{}
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}
