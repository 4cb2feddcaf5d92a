package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// imageExtensions lists the file types the directory device replays.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// dirDevice replays the images of a directory in name order at a
// fixed rate, then ends the stream cleanly.
type dirDevice struct {
	files  []string
	next   int
	ticker *time.Ticker
}

func openDir(_ context.Context, desc Descriptor) (Device, error) {
	dir := desc.Target
	if dir == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("dir descriptor has no path"),
			"capture", "Open", "path parsing")
	}

	// ReadDir returns entries sorted by name, which fixes replay order.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %v", errors.ErrSourceLost, err),
			"capture", "Open", "directory listing")
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	if len(files) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("no images under %s", dir),
			"capture", "Open", "directory listing")
	}

	return &dirDevice{
		files:  files,
		ticker: time.NewTicker(desc.Interval()),
	}, nil
}

func (d *dirDevice) ReadFrame(ctx context.Context) (*vision.Frame, error) {
	if d.next >= len(d.files) {
		return nil, errors.WrapFatal(errors.ErrEndOfStream,
			"capture", "ReadFrame", "directory replay")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.ticker.C:
	}

	path := d.files[d.next]
	d.next++

	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s: %v", errors.ErrDecodeFailed, filepath.Base(path), err),
			"capture", "ReadFrame", "image decode")
	}

	return vision.FromImage(img, 0, time.Now()), nil
}

func (d *dirDevice) Close() error {
	d.ticker.Stop()
	return nil
}
