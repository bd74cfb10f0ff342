package camera

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// DirectorySource replays image files from a directory in name order. Used
// for demos, tests and re-processing captured sessions.
type DirectorySource struct {
	files []string
	pos   int
}

// OpenDirectory lists the supported image files in dir.
func OpenDirectory(dir string) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	return &DirectorySource{files: files}, nil
}

// Next returns the next file as a frame, io.EOF when all files are consumed.
func (d *DirectorySource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.pos >= len(d.files) {
		return nil, io.EOF
	}

	data, err := os.ReadFile(d.files[d.pos])
	if err != nil {
		return nil, fmt.Errorf("read frame file: %w", err)
	}

	d.pos++
	return &Frame{Number: d.pos, Data: data, CapturedAt: time.Now()}, nil
}

// Close is a no-op for directory sources.
func (d *DirectorySource) Close() error { return nil }

var _ Source = (*DirectorySource)(nil)
