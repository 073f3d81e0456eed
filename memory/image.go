package memory

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is bumped whenever the image encoding changes shape.
const ImageVersion = 1

// Image is a serializable copy of the backed regions of an AddressSpace.
// Code identities are not part of an image; function pointers belong to
// the registry that minted them.
type Image struct {
	Version byte          `cbor:"1,keyasint"`
	Layout  ImageLayout   `cbor:"2,keyasint"`
	Regions []ImageRegion `cbor:"3,keyasint"`
}

// ImageLayout mirrors Layout with stable wire keys.
type ImageLayout struct {
	CodeSize  uint64 `cbor:"1,keyasint"`
	StackSize uint64 `cbor:"2,keyasint"`
	HeapSize  uint64 `cbor:"3,keyasint"`
	Alignment uint64 `cbor:"4,keyasint"`
}

// ImageRegion holds the allocated prefix of one region.
type ImageRegion struct {
	ID   RegionID `cbor:"1,keyasint"`
	Base uint64   `cbor:"2,keyasint"`
	Used uint64   `cbor:"3,keyasint"`
	Data []byte   `cbor:"4,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("memory: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot copies the allocated contents of Stack and Heap.
func (s *AddressSpace) Snapshot() *Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := &Image{
		Version: ImageVersion,
		Layout: ImageLayout{
			CodeSize:  s.layout.CodeSize,
			StackSize: s.layout.StackSize,
			HeapSize:  s.layout.HeapSize,
			Alignment: s.layout.Alignment,
		},
	}
	for _, r := range s.regions {
		if r.data == nil {
			continue
		}
		used := r.used.Load()
		data := make([]byte, used)
		copy(data, r.data[:used])
		img.Regions = append(img.Regions, ImageRegion{
			ID:   r.ID,
			Base: uint64(r.Base),
			Used: used,
			Data: data,
		})
	}
	return img
}

// Restore loads an image into a space with the same layout whose Stack and
// Heap have not been allocated from yet.
func (s *AddressSpace) Restore(img *Image) error {
	if img.Version != ImageVersion {
		return fmt.Errorf("memory: unsupported image version %d", img.Version)
	}
	want := ImageLayout{
		CodeSize:  s.layout.CodeSize,
		StackSize: s.layout.StackSize,
		HeapSize:  s.layout.HeapSize,
		Alignment: s.layout.Alignment,
	}
	if img.Layout != want {
		return fmt.Errorf("memory: image layout %+v does not match space layout %+v", img.Layout, want)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.regions {
		if r.data != nil && r.used.Load() != 0 {
			return fmt.Errorf("memory: cannot restore into a space with a used %s region", r.ID)
		}
	}
	for _, ir := range img.Regions {
		if ir.ID >= numRegions || s.regions[ir.ID].data == nil {
			return fmt.Errorf("memory: image holds unrestorable region %s", ir.ID)
		}
		r := s.regions[ir.ID]
		if Address(ir.Base) != r.Base || ir.Used > r.Size || uint64(len(ir.Data)) != ir.Used {
			return fmt.Errorf("memory: image %s region is inconsistent (base %#x, used %d, %d bytes)",
				ir.ID, ir.Base, ir.Used, len(ir.Data))
		}
	}
	for _, ir := range img.Regions {
		r := s.regions[ir.ID]
		copy(r.data, ir.Data)
		r.used.Store(ir.Used)
	}
	return nil
}

// MarshalImage serializes an Image to CBOR bytes.
func MarshalImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes an Image from CBOR bytes.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("memory: unmarshal image: %w", err)
	}
	return &img, nil
}
