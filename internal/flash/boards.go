package flash

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed boards/boards.yaml
var boardsYAML []byte

// DefaultBoard is used when no board is configured.
const DefaultBoard = "feather_m0"

// Board describes the flash geometry of a supported board.
type Board struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	MCU          string   `yaml:"mcu"`
	FlashBase    uint32   `yaml:"flash_base"`
	FlashSize    uint32   `yaml:"flash_size"`
	SketchOffset uint32   `yaml:"sketch_offset"`
	USB          BoardUSB `yaml:"usb"`
}

// BoardUSB holds the USB identifiers a board enumerates with.
type BoardUSB struct {
	VID            uint16   `yaml:"vid"`
	SketchPIDs     []uint16 `yaml:"sketch_pids"`
	BootloaderPIDs []uint16 `yaml:"bootloader_pids"`
}

// SketchStart returns the device address of the sketch area.
func (b *Board) SketchStart() uint32 {
	return b.FlashBase + b.SketchOffset
}

// SketchSize returns the number of bytes from the sketch start to the end of
// flash.
func (b *Board) SketchSize() uint32 {
	return b.FlashSize - b.SketchOffset
}

func (b *Board) String() string {
	return fmt.Sprintf("%s - %s", b.Name, b.Description)
}

// BoardDB holds the board catalog.
type BoardDB struct {
	Boards []*Board
	index  map[string]*Board
}

type boardDBContainer struct {
	Boards []*Board `yaml:"boards"`
}

var (
	globalBoardDB   *BoardDB
	globalBoardOnce sync.Once
	globalBoardErr  error
)

// LoadBoards loads the embedded board catalog. The catalog is parsed once.
func LoadBoards() (*BoardDB, error) {
	globalBoardOnce.Do(func() {
		globalBoardDB, globalBoardErr = parseBoards(boardsYAML)
	})
	return globalBoardDB, globalBoardErr
}

func parseBoards(data []byte) (*BoardDB, error) {
	var container boardDBContainer
	if err := yaml.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("failed to parse boards.yaml: %w", err)
	}

	db := &BoardDB{
		Boards: container.Boards,
		index:  make(map[string]*Board, len(container.Boards)),
	}
	for _, b := range db.Boards {
		if b.SketchOffset >= b.FlashSize {
			return nil, fmt.Errorf("board %s: sketch offset %#x outside flash size %#x", b.Name, b.SketchOffset, b.FlashSize)
		}
		db.index[b.Name] = b
	}
	return db, nil
}

// Get retrieves a board by name.
func (db *BoardDB) Get(name string) (*Board, bool) {
	b, ok := db.index[name]
	return b, ok
}

// Lookup retrieves a board by name, returning a *BoardUnknownError when it is
// not in the catalog.
func (db *BoardDB) Lookup(name string) (*Board, error) {
	if name == "" {
		name = DefaultBoard
	}
	if b, ok := db.index[name]; ok {
		return b, nil
	}
	return nil, &BoardUnknownError{Name: name, Available: db.Names()}
}

// List returns all boards in catalog order.
func (db *BoardDB) List() []*Board {
	return db.Boards
}

// Names returns the sorted board names.
func (db *BoardDB) Names() []string {
	names := make([]string, 0, len(db.index))
	for name := range db.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
