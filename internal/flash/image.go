package flash

import (
	"context"
	"fmt"
)

// Image is a raw flash image.
type Image struct {
	// Data is the image contents
	Data []byte
	// Base is the device address of Data[0]
	Base uint32
	// Source describes where the image came from (file path, port, probe)
	Source string
	// KeptPath is where the raw image was left on disk, empty when it was
	// removed after reading
	KeptPath string
}

// Address converts an offset within the image to a device address.
func (img *Image) Address(offset int) uint32 {
	return img.Base + uint32(offset)
}

func (img *Image) String() string {
	return fmt.Sprintf("%s (%d bytes at 0x%08x)", img.Source, len(img.Data), img.Base)
}

// Reader acquires a flash image.
type Reader interface {
	Read(ctx context.Context) (*Image, error)
}
