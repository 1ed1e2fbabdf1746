// SPDX-License-Identifier: GPL-2.0-or-later

package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func createFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir,
		"2022_0101_000002_002F.MP4",
		"2022_0101_000001_001F.MP4",
		"2022_0101_000001_001R.MP4",
		"sub/x.MP4",
	)

	t.Run("literal", func(t *testing.T) {
		path := filepath.Join(dir, "2022_0101_000001_001F.MP4")
		paths, err := Resolve(path)
		require.NoError(t, err)
		require.Equal(t, []string{path}, paths)
	})
	t.Run("glob", func(t *testing.T) {
		paths, err := Resolve(filepath.Join(dir, "*F.MP4"))
		require.NoError(t, err)
		require.Equal(t, []string{
			filepath.Join(dir, "2022_0101_000001_001F.MP4"),
			filepath.Join(dir, "2022_0101_000002_002F.MP4"),
		}, paths)
	})
	t.Run("noMatch", func(t *testing.T) {
		paths, err := Resolve(filepath.Join(dir, "*.mov"))
		require.NoError(t, err)
		require.Empty(t, paths)
	})
	t.Run("badPattern", func(t *testing.T) {
		_, err := Resolve(filepath.Join(dir, "[.MP4"))
		require.ErrorIs(t, err, ErrBadPattern)
	})
	t.Run("directory", func(t *testing.T) {
		_, err := Resolve(filepath.Join(dir, "sub"))
		require.ErrorIs(t, err, ErrPathNotFile)
	})
	t.Run("globDirectory", func(t *testing.T) {
		_, err := Resolve(filepath.Join(dir, "s*"))
		require.ErrorIs(t, err, ErrPathNotFile)
	})
}
