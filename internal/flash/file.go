package flash

import (
	"context"
	"fmt"
	"os"

	"github.com/muurk/feathertrace/internal/logging"
)

// FileReader reads an image that is already on disk.
type FileReader struct {
	Path string
	// Base is the device address of the first byte in the file
	Base uint32
}

// NewFileReader creates a FileReader for path.
func NewFileReader(path string, base uint32) *FileReader {
	return &FileReader{Path: path, Base: base}
}

func (r *FileReader) Read(ctx context.Context) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flash image: %w", err)
	}
	logging.LogImage(r.Path, r.Base, data)
	return &Image{Data: data, Base: r.Base, Source: r.Path}, nil
}
