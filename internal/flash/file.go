package flash

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// File is a flash image stored in a regular file.
//
// The image is mapped read-write into memory where the platform supports it;
// otherwise every access goes through ReadAt/WriteAt. Writes obey the same
// bit-clearing rule as Memory.
type File struct {
	f         *os.File
	path      string
	size      uint32
	eraseUnit uint32

	// shared mapping of the whole image; nil when unmapped
	data   []byte
	mapErr error
}

// CreateFile creates (or truncates) an erased image of size bytes at path.
func CreateFile(path string, size, eraseUnit uint32) (*File, error) {
	if eraseUnit == 0 || size == 0 || size%eraseUnit != 0 {
		return nil, fmt.Errorf("flash: size %d is not a positive multiple of erase unit %d", size, eraseUnit)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{Erased}, int(size)), 0o644); err != nil {
		return nil, fmt.Errorf("flash: create image: %w", err)
	}
	return OpenFile(path, eraseUnit)
}

// OpenFile opens an existing image. Its size must be a multiple of eraseUnit.
func OpenFile(path string, eraseUnit uint32) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("flash: open image: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("flash: stat image: %w", err)
	}
	size := st.Size()
	if eraseUnit == 0 || size == 0 || size%int64(eraseUnit) != 0 || size > int64(^uint32(0)) {
		f.Close()
		return nil, fmt.Errorf("flash: image %s has size %d, not a positive multiple of erase unit %d", path, size, eraseUnit)
	}
	d := &File{
		f:         f,
		path:      path,
		size:      uint32(size),
		eraseUnit: eraseUnit,
	}
	if err := d.mapImage(); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// Path returns the image path.
func (d *File) Path() string { return d.path }

// Size returns the image size in bytes.
func (d *File) Size() uint32 { return d.size }

// EraseUnit returns the erase unit size in bytes.
func (d *File) EraseUnit() uint32 { return d.eraseUnit }

// Mapped reports whether the image is served from a memory mapping.
func (d *File) Mapped() bool { return d.data != nil }

// MapError returns why the image could not be mapped, or nil if it is.
func (d *File) MapError() error { return d.mapErr }

func (d *File) Read(addr uint32, p []byte) error {
	if d.f == nil {
		return os.ErrClosed
	}
	if err := checkRange(d.size, addr, len(p)); err != nil {
		return err
	}
	if d.data != nil {
		copy(p, d.data[addr:])
		return nil
	}
	if _, err := d.f.ReadAt(p, int64(addr)); err != nil {
		return fmt.Errorf("flash: read image: %w", err)
	}
	return nil
}

func (d *File) Write(addr uint32, p []byte) error {
	if d.f == nil {
		return os.ErrClosed
	}
	if err := checkRange(d.size, addr, len(p)); err != nil {
		return err
	}
	if d.data != nil {
		return program(addr, d.data[addr:addr+uint32(len(p))], p)
	}
	cur := make([]byte, len(p))
	if err := d.Read(addr, cur); err != nil {
		return err
	}
	if err := program(addr, cur, p); err != nil {
		return err
	}
	if _, err := d.f.WriteAt(cur, int64(addr)); err != nil {
		return fmt.Errorf("flash: write image: %w", err)
	}
	return nil
}

func (d *File) Erase(addr uint32) error {
	if d.f == nil {
		return os.ErrClosed
	}
	if err := checkRange(d.size, addr, int(d.eraseUnit)); err != nil {
		return err
	}
	if addr%d.eraseUnit != 0 {
		return fmt.Errorf("%w: 0x%x", ErrUnaligned, addr)
	}
	if d.data != nil {
		unit := d.data[addr : addr+d.eraseUnit]
		for i := range unit {
			unit[i] = Erased
		}
		return nil
	}
	if _, err := d.f.WriteAt(bytes.Repeat([]byte{Erased}, int(d.eraseUnit)), int64(addr)); err != nil {
		return fmt.Errorf("flash: erase image: %w", err)
	}
	return nil
}

// Bytes returns a copy of the whole image.
func (d *File) Bytes() ([]byte, error) {
	out := make([]byte, d.size)
	if err := d.Read(0, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sync flushes the image to stable storage.
func (d *File) Sync() error {
	if d.f == nil {
		return os.ErrClosed
	}
	return d.syncImage()
}

// Close syncs, unmaps and closes the image. Closing twice is a no-op.
func (d *File) Close() error {
	if d.f == nil {
		return nil
	}
	errSync := d.syncImage()
	errUnmap := d.unmapImage()
	errClose := d.f.Close()
	d.f = nil
	return errors.Join(errSync, errUnmap, errClose)
}
