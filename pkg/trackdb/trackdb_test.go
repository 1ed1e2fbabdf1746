package trackdb

import (
	"path/filepath"
	"testing"
	"time"

	"dashgps/pkg/extract"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db := NewDB(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func record(file string, minute int) extract.Record {
	return extract.Record{
		SourceFile:   file,
		Time:         time.Date(2022, 3, 14, 12, minute, 0, 0, time.UTC),
		LatitudeDeg:  59.5,
		LongitudeDeg: 18.05,
		SpeedMPS:     5.14444,
		BearingDeg:   90.5,
	}
}

func summary(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.SourceFile+"@"+e.Time.Format("15:04"))
	}
	return out
}

var (
	run1      = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	run2      = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	run1Start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	run2Start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
)

func saveRuns(t *testing.T, db *DB) {
	t.Helper()
	require.NoError(t, db.SaveRun(run2, run2Start, []extract.Record{
		record("c.mp4", 3),
	}))
	require.NoError(t, db.SaveRun(run1, run1Start, []extract.Record{
		record("b.mp4", 2),
		record("a.mp4", 1),
	}))
}

func TestQuery(t *testing.T) {
	db := newTestDB(t)
	saveRuns(t, db)

	cases := []struct {
		name     string
		query    Query
		expected []string
	}{
		{"all", Query{}, []string{"b.mp4@12:02", "a.mp4@12:01", "c.mp4@12:03"}},
		{"limit", Query{Limit: 1}, []string{"b.mp4@12:02"}},
		{"from", Query{From: run2Start}, []string{"c.mp4@12:03"}},
		{"to", Query{To: run2Start}, []string{"b.mp4@12:02", "a.mp4@12:01"}},
		{"run", Query{RunID: run2}, []string{"c.mp4@12:03"}},
		{"empty", Query{From: run2Start.Add(time.Hour)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := db.Query(tc.query)
			require.NoError(t, err)
			require.Equal(t, tc.expected, summary(entries))
		})
	}
}

func TestQueryEntry(t *testing.T) {
	db := newTestDB(t)
	saveRuns(t, db)

	entries, err := db.Query(Query{RunID: run1})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	expected := Entry{
		RunID:    run1,
		RunStart: run1Start,
		Seq:      1,
		Record:   record("a.mp4", 1),
	}
	require.Equal(t, expected, entries[1])
}

func TestSaveRunMaxKeys(t *testing.T) {
	db := newTestDB(t)
	db.maxKeys = 2
	saveRuns(t, db)

	entries, err := db.Query(Query{})
	require.NoError(t, err)
	require.Equal(t, []string{"a.mp4@12:01", "c.mp4@12:03"}, summary(entries))
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.db")

	db := NewDB(path)
	require.NoError(t, db.Open())
	require.NoError(t, db.SaveRun(run1, run1Start, []extract.Record{record("a.mp4", 1)}))
	require.NoError(t, db.Close())

	db = NewDB(path)
	require.NoError(t, db.Open())
	defer db.Close()

	entries, err := db.Query(Query{})
	require.NoError(t, err)
	require.Equal(t, []string{"a.mp4@12:01"}, summary(entries))
}

func TestEncodeKey(t *testing.T) {
	key := encodeKey(time.Unix(0, 0x0102), run2, 7)
	expected := []byte{
		0, 0, 0, 0, 0, 0, 1, 2,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2,
		0, 0, 0, 7,
	}
	require.Equal(t, expected, key)
}
