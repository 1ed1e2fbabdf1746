// Package gpsinfo is a CLI utility that prints the box layout
// and GPS index of every mp4 file in a directory.
package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"dashgps/pkg/mp4"
)

const usage = `print the mp4 boxes and gps index of dashcam videos
example: gpsinfo ./DCIM/Movie`

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	args := os.Args
	if len(args) != 2 {
		fmt.Println(usage)
		return nil
	}

	var videos []string

	walkFunc := func(path string, info fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%v %w", path, err)
		}
		if info.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ".mp4" {
			return nil
		}
		videos = append(videos, path)
		return nil
	}
	if err := filepath.WalkDir(args[1], walkFunc); err != nil {
		return err
	}

	nVideos := len(videos)
	fmt.Printf("Found %v videos.\n", nVideos)

	chResults := make(chan result, nVideos)
	for _, video := range videos {
		go func(video string) {
			info, err := inspect(video)
			chResults <- result{
				video: video,
				info:  info,
				err:   err,
			}
		}(video)
	}

	for i := 1; i <= nVideos; i++ {
		result := <-chResults
		fmt.Printf("[%v/%v]", i, nVideos)
		if result.err != nil {
			fmt.Printf("[ERR] %v %v\n", result.video, result.err)
			continue
		}
		fmt.Printf("[OK] %v\n%v", result.video, result.info)
	}
	return nil
}

type result struct {
	video string
	info  string
	err   error
}

func inspect(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	size := uint64(stat.Size())

	infos, err := mp4.ReadBoxInfos(file, size)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "  %v offset=0x%08X size=%d\n", info.Type, info.Offset, info.Size)
	}

	gps, err := mp4.ReadGPSIndex(file, size)
	if err != nil {
		fmt.Fprintf(&b, "  gps: %v\n", err)
		return b.String(), nil
	}
	fmt.Fprintf(&b, "  gps: %v\n", gps.Summary())
	return b.String(), nil
}
