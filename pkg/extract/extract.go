// SPDX-License-Identifier: GPL-2.0-or-later

// Package extract reads the GPS records from one or more
// Novatek mp4 files into a single ordered collection.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dashgps/pkg/log"
	"dashgps/pkg/mp4"
	"dashgps/pkg/novatek"
)

// Record decoded GPS record.
type Record struct {
	SourceFile   string    `json:"sourceFile"` // Base name.
	Time         time.Time `json:"time"`       // Device wall clock, no time zone.
	LatitudeDeg  float64   `json:"lat"`
	LongitudeDeg float64   `json:"lon"`
	SpeedMPS     float64   `json:"speed"`
	BearingDeg   float32   `json:"bearing"`
}

// NewRecord creates a record from a converted fix.
func NewRecord(sourceFile string, fix novatek.Fix) Record {
	return Record{
		SourceFile:   sourceFile,
		Time:         fix.Time,
		LatitudeDeg:  fix.LatitudeDeg,
		LongitudeDeg: fix.LongitudeDeg,
		SpeedMPS:     fix.SpeedMPS,
		BearingDeg:   fix.BearingDeg,
	}
}

// Stats extraction counters.
type Stats struct {
	Files           int
	FilesWithoutGPS int
	Blocks          int
	Skipped         int
	Records         int
}

func (s *Stats) add(s2 Stats) {
	s.Files += s2.Files
	s.FilesWithoutGPS += s2.FilesWithoutGPS
	s.Blocks += s2.Blocks
	s.Skipped += s2.Skipped
	s.Records += s2.Records
}

// Options extractor options.
type Options struct {
	// Number of files processed at the same time, 1 if zero.
	Workers int
}

// Extractor extracts records from files.
type Extractor struct {
	logger  log.ILogger
	workers int
}

// NewExtractor returns a new extractor.
func NewExtractor(logger log.ILogger, opts Options) *Extractor {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Extractor{
		logger:  logger,
		workers: workers,
	}
}

// Run extracts records from paths, in the given order.
// Files without a gps box and invalid records are logged and
// skipped, any other error aborts the run.
func (e *Extractor) Run(paths []string) ([]Record, Stats, error) {
	if e.workers == 1 || len(paths) < 2 {
		return e.runSequential(paths)
	}
	return e.runConcurrent(paths)
}

func (e *Extractor) runSequential(paths []string) ([]Record, Stats, error) {
	var records []Record
	var stats Stats

	// Shared between files.
	var buf []byte
	for _, path := range paths {
		fileRecords, fileStats, err := e.extractFile(path, &buf, records)
		if err != nil {
			return nil, Stats{}, err
		}
		records = fileRecords
		stats.add(fileStats)
	}
	return records, stats, nil
}

type fileResult struct {
	records []Record
	stats   Stats
	err     error
}

// runConcurrent processes files in parallel, each worker has its own
// buffer and the per file results are joined in path order.
func (e *Extractor) runConcurrent(paths []string) ([]Record, Stats, error) {
	results := make([]fileResult, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var buf []byte
			for index := range jobs {
				r := &results[index]
				r.records, r.stats, r.err = e.extractFile(paths[index], &buf, nil)
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var records []Record
	var stats Stats
	for _, r := range results {
		if r.err != nil {
			return nil, Stats{}, r.err
		}
		records = append(records, r.records...)
		stats.add(r.stats)
	}
	return records, stats, nil
}

// ExtractFile returns the records of a single file in index order.
func (e *Extractor) ExtractFile(path string) ([]Record, Stats, error) {
	var buf []byte
	return e.extractFile(path, &buf, nil)
}

// extractFile appends the records in path to records.
func (e *Extractor) extractFile(
	path string,
	buf *[]byte,
	records []Record,
) ([]Record, Stats, error) {
	stats := Stats{Files: 1}
	name := filepath.Base(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("stat input: %w", err)
	}

	fileSize := uint64(info.Size())
	gps, err := mp4.ReadGPSIndex(file, fileSize)
	switch {
	case errors.Is(err, mp4.ErrNoGPSBox), errors.Is(err, mp4.ErrInvalidGPSBox):
		log.Warn(e.logger).Src("extract").File(path).Msgf("no GPS blocks: %v", err)
		stats.FilesWithoutGPS++
		return records, stats, nil
	case err != nil:
		return nil, Stats{}, fmt.Errorf("read mp4 header %v: %w", path, err)
	}

	log.Info(e.logger).Src("extract").File(path).Msgf("loaded '%s', %s", name, gps.Summary())

	for index, block := range gps.Blocks {
		stats.Blocks++
		log.Debug(e.logger).Src("extract").File(path).
			Msgf("[%d] 0x%08X, size=%d", index, block.Offset, block.Size)

		fix, err := readBlock(file, fileSize, block, buf)
		if err != nil {
			if !isBlockError(err) {
				return nil, Stats{}, fmt.Errorf("read block %d of %v: %w", index, path, err)
			}
			log.Warn(e.logger).Src("extract").File(path).Msgf(
				"skipping GPS block [%d] at offset 0x%08X size=%d: %v",
				index, block.Offset, block.Size, err)
			stats.Skipped++
			continue
		}

		records = append(records, NewRecord(name, fix))
		stats.Records++
	}
	return records, stats, nil
}

// errShortBlock the block extends past the end of the file.
var errShortBlock = errors.New("block extends past end of file")

func isBlockError(err error) bool {
	var recordErr *novatek.RecordError
	return errors.As(err, &recordErr) || errors.Is(err, errShortBlock)
}

// readBlock reads a block into buf, resized to the block size, and decodes it.
// Blocks that do not fit inside fileSize are rejected before buf is resized.
func readBlock(
	r io.ReadSeeker,
	fileSize uint64,
	block mp4.RawBlock,
	buf *[]byte,
) (novatek.Fix, error) {
	if block.Offset > fileSize || uint64(block.Size) > fileSize-block.Offset {
		return novatek.Fix{}, errShortBlock
	}
	if _, err := r.Seek(int64(block.Offset), io.SeekStart); err != nil {
		return novatek.Fix{}, err
	}

	size := int(block.Size)
	if cap(*buf) < size {
		*buf = make([]byte, size)
	}
	*buf = (*buf)[:size]

	if _, err := io.ReadFull(r, *buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return novatek.Fix{}, errShortBlock
		}
		return novatek.Fix{}, err
	}

	return novatek.Decode(*buf)
}
