// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package dashgps

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dashgps/pkg/config"
	"dashgps/pkg/extract"
	"dashgps/pkg/input"
	"dashgps/pkg/log"
	"dashgps/pkg/publish"
	"dashgps/pkg/track"
	"dashgps/pkg/trackdb"

	"github.com/google/uuid"
)

// Errors.
var (
	ErrOutputExists = errors.New("output file already exists, use -f to overwrite")
	ErrMissingInput = errors.New("missing input path or glob pattern")
)

// Run parses the command line and extracts the GPS track.
// Errors are logged before they are returned.
func Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return run(ctx, os.Args[1:], os.Stderr)
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	pattern, cfg, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		logError(stderr, err)
		return err
	}

	app, err := newApp(pattern, cfg, stderr)
	if err != nil {
		logError(stderr, err)
		return err
	}
	defer app.close()

	if err := app.run(ctx); err != nil {
		app.logger.Error().Src("app").Msgf("%v", err)
		return err
	}
	return nil
}

// logError logs errors that happen before the app logger exists.
func logError(w io.Writer, err error) {
	logger := log.NewLogger()
	cancel := logger.LogToWriter(w, log.LevelError)
	defer cancel()

	logger.Error().Src("app").Msgf("%v", err)
}

type flags struct {
	output     string
	force      bool
	sort       string
	format     string
	workers    int
	configPath string
	logLevel   string
	trackDB    string
	mqttBroker string
	mqttTopic  string
	s3Bucket   string
	s3Key      string
}

// parseArgs loads the config file and applies the flags that were set.
func parseArgs(args []string, stderr io.Writer) (string, *config.Config, error) {
	def := config.Default()
	var f flags

	fs := flag.NewFlagSet("dashgps", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: dashgps [flags] <input file or glob>\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&f.output, "o", def.Output, "output file")
	fs.StringVar(&f.output, "output", def.Output, "output file")
	fs.BoolVar(&f.force, "f", false, "overwrite the output file")
	fs.BoolVar(&f.force, "force", false, "overwrite the output file")
	fs.StringVar(&f.sort, "s", def.Sort, "sort mode: file, gps or none")
	fs.StringVar(&f.sort, "sort", def.Sort, "sort mode: file, gps or none")
	fs.StringVar(&f.format, "format", def.Format, "output format: gpx or nmea")
	fs.IntVar(&f.workers, "workers", def.Workers, "files processed in parallel, 0 for one per cpu")
	fs.StringVar(&f.configPath, "config", "", "path to config yaml")
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel, "error, warning, info or debug")
	fs.StringVar(&f.trackDB, "db", "", "track database path")
	fs.StringVar(&f.mqttBroker, "mqtt-broker", "", "publish waypoints to this mqtt broker")
	fs.StringVar(&f.mqttTopic, "mqtt-topic", def.MQTT.Topic, "mqtt topic")
	fs.StringVar(&f.s3Bucket, "s3-bucket", "", "upload the output to this s3 bucket")
	fs.StringVar(&f.s3Key, "s3-key", "", "s3 object key, output file name if empty")

	if err := fs.Parse(args); err != nil {
		return "", nil, err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return "", nil, ErrMissingInput
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return "", nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["o"] || set["output"] {
		cfg.Output = f.output
	}
	if set["f"] || set["force"] {
		cfg.Force = f.force
	}
	if set["s"] || set["sort"] {
		cfg.Sort = f.sort
	}
	if set["format"] {
		cfg.Format = f.format
	}
	if set["workers"] {
		cfg.Workers = f.workers
	}
	if set["log-level"] {
		cfg.LogLevel = f.logLevel
	}
	if set["db"] {
		cfg.TrackDB = f.trackDB
	}
	if set["mqtt-broker"] {
		cfg.MQTT.Broker = f.mqttBroker
	}
	if set["mqtt-topic"] {
		cfg.MQTT.Topic = f.mqttTopic
	}
	if set["s3-bucket"] {
		cfg.S3.Bucket = f.s3Bucket
	}
	if set["s3-key"] {
		cfg.S3.Key = f.s3Key
	}
	if cfg.S3.Bucket != "" && cfg.S3.Key == "" {
		cfg.S3.Key = filepath.Base(cfg.Output)
	}

	if err := cfg.Validate(); err != nil {
		return "", nil, fmt.Errorf("config: %w", err)
	}
	return fs.Arg(0), cfg, nil
}

// App single extraction run.
type App struct {
	pattern string
	cfg     *config.Config
	runID   uuid.UUID
	start   time.Time
	logger  *log.Logger

	sortMode extract.SortMode
	writer   track.Writer

	cancelLog log.CancelFunc
}

func newApp(pattern string, cfg *config.Config, stderr io.Writer) (*App, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	sortMode, err := extract.ParseSortMode(cfg.Sort)
	if err != nil {
		return nil, err
	}
	writer, err := track.NewWriter(cfg.Format)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger()
	cancelLog := logger.LogToWriter(stderr, level)

	return &App{
		pattern:   pattern,
		cfg:       cfg,
		runID:     uuid.New(),
		start:     time.Now(),
		logger:    logger,
		sortMode:  sortMode,
		writer:    writer,
		cancelLog: cancelLog,
	}, nil
}

func (app *App) close() {
	app.cancelLog()
}

func (app *App) run(ctx context.Context) error {
	records, waypoints, err := app.extract()
	if err != nil {
		return err
	}

	return app.publish(ctx, records, waypoints)
}

// extract writes the sorted track to the output file.
func (app *App) extract() ([]extract.Record, []track.Waypoint, error) {
	output := app.cfg.Output
	if !app.cfg.Force {
		if _, err := os.Lstat(output); err == nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrOutputExists, output)
		}
	}

	file, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	defer file.Close()

	paths, err := input.Resolve(app.pattern)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		app.logger.Warn().Src("app").Msgf("no files match '%v'", app.pattern)
	}

	workers, err := app.cfg.WorkerCount()
	if err != nil {
		return nil, nil, err
	}
	app.logger.Debug().Src("app").
		Msgf("run %v: %d files, %d workers", app.runID, len(paths), workers)

	e := extract.NewExtractor(app.logger, extract.Options{Workers: workers})
	records, stats, err := e.Run(paths)
	if err != nil {
		return nil, nil, err
	}
	extract.Sort(records, app.sortMode)

	waypoints := track.NewWaypoints(records)
	w := bufio.NewWriter(file)
	if err := app.writer(w, waypoints); err != nil {
		return nil, nil, fmt.Errorf("write output: %w", err)
	}
	if err := w.Flush(); err != nil {
		return nil, nil, fmt.Errorf("write output: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, nil, fmt.Errorf("close output: %w", err)
	}

	app.logger.Info().Src("app").Msgf(
		"wrote %d records from %d files to '%v', %d blocks skipped, %d files without GPS",
		stats.Records, stats.Files, output, stats.Skipped, stats.FilesWithoutGPS)
	return records, waypoints, nil
}

// publish sends the finished track to the optional sinks.
func (app *App) publish(
	ctx context.Context,
	records []extract.Record,
	waypoints []track.Waypoint,
) error {
	if app.cfg.TrackDB != "" {
		db := trackdb.NewDB(app.cfg.TrackDB)
		if err := db.Open(); err != nil {
			return err
		}
		defer db.Close()

		if err := db.SaveRun(app.runID, app.start, records); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		app.logger.Info().Src("app").
			Msgf("saved run %v to '%v'", app.runID, app.cfg.TrackDB)
	}

	if app.cfg.MQTT.Broker != "" {
		p := publish.NewMQTT(app.cfg.MQTT.Broker, app.cfg.MQTT.Topic, app.runID, app.logger)
		if err := p.Publish(waypoints); err != nil {
			return err
		}
	}

	if app.cfg.S3.Bucket != "" {
		u, err := publish.NewS3(ctx, app.cfg.S3.Bucket, app.cfg.S3.Key, app.logger)
		if err != nil {
			return err
		}
		if err := u.Upload(ctx, app.cfg.Output); err != nil {
			return err
		}
	}
	return nil
}
