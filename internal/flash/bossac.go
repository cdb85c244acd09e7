package flash

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/feathertrace/internal/logging"
)

// BossacReader reads the sketch area of a board in bootloader mode with
// "bossac -r". The board must already be in its bootloader; this reader
// never resets or writes the device.
type BossacReader struct {
	config Config
	board  *Board
	port   string
	logger *zap.Logger
}

// NewBossacReader creates a reader for the board on port.
func NewBossacReader(config Config, board *Board, port string, logger *zap.Logger) *BossacReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BossacReader{config: config, board: board, port: port, logger: logger}
}

// Args returns the bossac arguments used to read into path.
func (r *BossacReader) Args(path string) []string {
	return []string{
		fmt.Sprintf("--port=%s", r.port),
		fmt.Sprintf("--offset=%#x", r.board.SketchOffset),
		"-r", path,
	}
}

func (r *BossacReader) Read(ctx context.Context) (*Image, error) {
	if r.port == "" {
		return nil, fmt.Errorf("no serial port given for bossac")
	}
	bossac, err := ResolveTool(r.config.BossacPath, "bossac")
	if err != nil {
		return nil, err
	}

	path, cleanup, err := imagePath(r.config, "feathertrace-flash-*.bin")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if _, err := runTool(ctx, r.logger, r.config.Timeout, bossac, r.Args(path)...); err != nil {
		return nil, err
	}

	data, err := readImage("bossac", path)
	if err != nil {
		return nil, err
	}
	img := &Image{Data: data, Base: r.board.SketchStart(), Source: r.port}
	logging.LogImage(img.Source, img.Base, data)
	keep(r.config, r.logger, img, path)
	return img, nil
}
