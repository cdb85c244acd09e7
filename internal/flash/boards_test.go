package flash

import (
	"errors"
	"testing"
)

func TestLoadBoards(t *testing.T) {
	db, err := LoadBoards()
	if err != nil {
		t.Fatalf("failed to load boards: %v", err)
	}
	if len(db.List()) == 0 {
		t.Fatal("expected at least one board")
	}

	b, ok := db.Get(DefaultBoard)
	if !ok {
		t.Fatalf("expected default board %s in catalog", DefaultBoard)
	}
	if b.SketchOffset != 0x2000 {
		t.Errorf("expected sketch offset 0x2000, got %#x", b.SketchOffset)
	}
	if b.FlashSize != 0x40000 {
		t.Errorf("expected flash size 0x40000, got %#x", b.FlashSize)
	}
	if b.SketchStart() != 0x2000 || b.SketchSize() != 0x3e000 {
		t.Errorf("unexpected sketch area %#x+%#x", b.SketchStart(), b.SketchSize())
	}
	if b.USB.VID != 0x239a {
		t.Errorf("expected VID 0x239a, got %#x", b.USB.VID)
	}
	if len(b.USB.BootloaderPIDs) != 3 {
		t.Errorf("expected 3 bootloader PIDs, got %v", b.USB.BootloaderPIDs)
	}
}

func TestBoardLookup(t *testing.T) {
	db, err := LoadBoards()
	if err != nil {
		t.Fatalf("failed to load boards: %v", err)
	}

	b, err := db.Lookup("")
	if err != nil || b.Name != DefaultBoard {
		t.Errorf("expected default board for empty name, got %v, %v", b, err)
	}

	_, err = db.Lookup("arduino_uno")
	var unknown *BoardUnknownError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *BoardUnknownError, got %v", err)
	}
	if len(unknown.Available) != len(db.List()) {
		t.Errorf("expected %d available boards, got %v", len(db.List()), unknown.Available)
	}
}

func TestParseBoardsRejectsBadGeometry(t *testing.T) {
	data := []byte(`
boards:
  - name: broken
    flash_size: 0x1000
    sketch_offset: 0x2000
`)
	if _, err := parseBoards(data); err == nil {
		t.Error("expected an error for a sketch offset outside flash")
	}
}
