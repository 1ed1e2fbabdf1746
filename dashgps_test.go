package dashgps

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dashgps/pkg/config"
	"dashgps/pkg/mp4"
	"dashgps/pkg/novatek"
	"dashgps/pkg/trackdb"

	"github.com/stretchr/testify/require"
)

func newRaw(hour uint32) novatek.Raw {
	return novatek.Raw{
		Hour:      hour,
		Year:      2022,
		Month:     3,
		Day:       14,
		SatLock:   'A',
		LatHemi:   'N',
		LonHemi:   'E',
		Latitude:  5930,
		Longitude: 1803,
		Speed:     10,
		Bearing:   90,
	}
}

func writeVideo(t *testing.T, path string, raws ...novatek.Raw) {
	t.Helper()
	var f mp4.GPSFile
	for _, raw := range raws {
		f.Records = append(f.Records, raw.Marshal())
	}
	data, err := f.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// Two files, a.mp4 recorded after b.mp4.
func prepareDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeVideo(t, filepath.Join(dir, "a.mp4"), newRaw(10))
	writeVideo(t, filepath.Join(dir, "b.mp4"), newRaw(9))
	return dir
}

func runArgs(args ...string) (string, error) {
	stderr := &bytes.Buffer{}
	err := run(context.Background(), args, stderr)
	return stderr.String(), err
}

func TestRun(t *testing.T) {
	t.Run("gpxSortedByTime", func(t *testing.T) {
		dir := prepareDir(t)
		output := filepath.Join(dir, "out.gpx")

		logs, err := runArgs("-o", output, filepath.Join(dir, "*.mp4"))
		require.NoError(t, err)
		require.Contains(t, logs,
			"[INFO] "+filepath.Join(dir, "a.mp4")+": Extract: loaded 'a.mp4'")
		require.Contains(t, logs, "wrote 2 records from 2 files")

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		doc := string(data)
		require.Equal(t, 2, strings.Count(doc, "<trkpt "))
		require.Less(t,
			strings.Index(doc, "<src>b.mp4</src>"),
			strings.Index(doc, "<src>a.mp4</src>"))
		require.Contains(t, doc, `<trkpt lat="59.5" lon="18.05">`)
	})
	t.Run("fileOrder", func(t *testing.T) {
		dir := prepareDir(t)
		output := filepath.Join(dir, "out.gpx")

		_, err := runArgs("-s", "file", "-o", output, filepath.Join(dir, "*.mp4"))
		require.NoError(t, err)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		doc := string(data)
		require.Less(t,
			strings.Index(doc, "<src>a.mp4</src>"),
			strings.Index(doc, "<src>b.mp4</src>"))
	})
	t.Run("nmea", func(t *testing.T) {
		dir := prepareDir(t)
		output := filepath.Join(dir, "out.nmea")

		_, err := runArgs("-format", "nmea", "-workers", "2", "-output", output,
			filepath.Join(dir, "*.mp4"))
		require.NoError(t, err)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\r\n")
		require.Len(t, lines, 2)
		require.True(t, strings.HasPrefix(lines[0], "$GPRMC,090000.00,A,"), lines[0])
	})
	t.Run("outputExists", func(t *testing.T) {
		dir := prepareDir(t)
		output := filepath.Join(dir, "out.gpx")
		require.NoError(t, os.WriteFile(output, []byte("keep"), 0o600))

		logs, err := runArgs("-o", output, filepath.Join(dir, "*.mp4"))
		require.ErrorIs(t, err, ErrOutputExists)
		require.Contains(t, logs, "[ERROR] App: output file already exists")

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Equal(t, "keep", string(data))
	})
	t.Run("force", func(t *testing.T) {
		dir := prepareDir(t)
		output := filepath.Join(dir, "out.gpx")
		require.NoError(t, os.WriteFile(output, []byte("keep"), 0o600))

		_, err := runArgs("-f", "-o", output, filepath.Join(dir, "*.mp4"))
		require.NoError(t, err)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Contains(t, string(data), "<gpx ")
	})
	t.Run("noMatch", func(t *testing.T) {
		dir := t.TempDir()
		output := filepath.Join(dir, "out.gpx")

		logs, err := runArgs("-o", output, filepath.Join(dir, "*.mp4"))
		require.NoError(t, err)
		require.Contains(t, logs, "[WARNING] App: no files match")

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Contains(t, string(data), "<trkseg></trkseg>")
	})
	t.Run("invalidHeader", func(t *testing.T) {
		dir := prepareDir(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "c.mp4"), []byte("x"), 0o600))

		logs, err := runArgs("-o", filepath.Join(dir, "out.gpx"), filepath.Join(dir, "*.mp4"))
		require.ErrorIs(t, err, mp4.ErrInvalidHeader)
		require.Contains(t, logs, "[ERROR] App: ")
	})
	t.Run("trackDB", func(t *testing.T) {
		dir := prepareDir(t)
		dbPath := filepath.Join(dir, "tracks.db")

		_, err := runArgs("-o", filepath.Join(dir, "out.gpx"), "-db", dbPath,
			filepath.Join(dir, "*.mp4"))
		require.NoError(t, err)

		db := trackdb.NewDB(dbPath)
		require.NoError(t, db.Open())
		defer db.Close()

		entries, err := db.Query(trackdb.Query{})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, "b.mp4", entries[0].SourceFile)
		require.Equal(t, entries[0].RunID, entries[1].RunID)
	})
	t.Run("missingInput", func(t *testing.T) {
		logs, err := runArgs("-o", "x.gpx")
		require.ErrorIs(t, err, ErrMissingInput)
		require.Contains(t, logs, "Usage: dashgps")
		require.Contains(t, logs, "[ERROR] App: missing input path or glob pattern")
	})
	t.Run("help", func(t *testing.T) {
		logs, err := runArgs("-h")
		require.NoError(t, err)
		require.NotContains(t, logs, "[ERROR]")
	})
	t.Run("invalidSort", func(t *testing.T) {
		logs, err := runArgs("-s", "date", "in.mp4")
		require.ErrorIs(t, err, config.ErrInvalidValue)
		require.Contains(t, logs, "[ERROR] App: config: ")
	})
}

func TestParseArgs(t *testing.T) {
	t.Run("configFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dashgps.yaml")
		yaml := []byte("output: file.nmea\nformat: nmea\nsort: none\nworkers: 3\n")
		require.NoError(t, os.WriteFile(path, yaml, 0o600))

		pattern, cfg, err := parseArgs(
			[]string{"-config", path, "-sort", "file", "*.MP4"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.Equal(t, "*.MP4", pattern)
		require.Equal(t, "file.nmea", cfg.Output)
		require.Equal(t, "nmea", cfg.Format)
		require.Equal(t, "file", cfg.Sort)
		require.Equal(t, 3, cfg.Workers)
	})
	t.Run("defaults", func(t *testing.T) {
		_, cfg, err := parseArgs([]string{"in.mp4"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.Equal(t, config.Default(), *cfg)
	})
	t.Run("s3KeyFromOutput", func(t *testing.T) {
		_, cfg, err := parseArgs(
			[]string{"-o", "/tmp/x/track.gpx", "-s3-bucket", "b", "in.mp4"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.Equal(t, "track.gpx", cfg.S3.Key)
	})
}
