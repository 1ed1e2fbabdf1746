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

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"dashgps/pkg/extract"
	"dashgps/pkg/log"
	"dashgps/pkg/track"

	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultOutput   = "dashcam.gpx"
	DefaultSort     = "gps"
	DefaultFormat   = "gpx"
	DefaultWorkers  = 1
	DefaultLogLevel = "info"
	DefaultTopic    = "dashcam/gps"
)

// Config run configuration.
type Config struct {
	Output   string `yaml:"output"`
	Force    bool   `yaml:"force"`
	Sort     string `yaml:"sort"`
	Format   string `yaml:"format"`
	Workers  int    `yaml:"workers"` // 0 = one per logical cpu.
	LogLevel string `yaml:"logLevel"`

	// Optional track database path.
	TrackDB string `yaml:"trackDB"`

	MQTT MQTT `yaml:"mqtt"`
	S3   S3   `yaml:"s3"`
}

// MQTT publisher configuration, disabled if Broker is empty.
type MQTT struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

// S3 upload configuration, disabled if Bucket is empty.
type S3 struct {
	Bucket string `yaml:"bucket"`
	Key    string `yaml:"key"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Output:   DefaultOutput,
		Sort:     DefaultSort,
		Format:   DefaultFormat,
		Workers:  DefaultWorkers,
		LogLevel: DefaultLogLevel,
		MQTT: MQTT{
			Topic: DefaultTopic,
		},
	}
}

// Parse unmarshals yaml on top of the default configuration.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Load reads and parses a config file, an empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		c := Default()
		return &c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return c, nil
}

// ErrInvalidValue invalid config value.
var ErrInvalidValue = errors.New("invalid value")

// Validate checks every value.
func (c Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("output: %w: empty", ErrInvalidValue)
	}
	if _, err := extract.ParseSortMode(c.Sort); err != nil {
		return fmt.Errorf("sort: %w: %v", ErrInvalidValue, err)
	}
	if _, err := track.NewWriter(c.Format); err != nil {
		return fmt.Errorf("format: %w: %v", ErrInvalidValue, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers: %w: %d", ErrInvalidValue, c.Workers)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w: %v", ErrInvalidValue, err)
	}
	if c.MQTT.Broker != "" && c.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic: %w: empty", ErrInvalidValue)
	}
	if c.S3.Bucket != "" && strings.TrimPrefix(c.S3.Key, "/") == "" {
		return fmt.Errorf("s3.key: %w: empty", ErrInvalidValue)
	}
	return nil
}

type cpuCountFunc func(logical bool) (int, error)

// WorkerCount resolves the number of extraction workers.
func (c Config) WorkerCount() (int, error) {
	return c.workerCount(cpu.Counts)
}

func (c Config) workerCount(counts cpuCountFunc) (int, error) {
	if c.Workers > 0 {
		return c.Workers, nil
	}
	n, err := counts(true)
	if err != nil {
		return 0, fmt.Errorf("count cpus: %w", err)
	}
	if n < 1 {
		return 1, nil
	}
	return n, nil
}
