package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/roach88/veeprom/internal/eeprom"
	"github.com/roach88/veeprom/internal/flash"
)

// session is an open image with a store on top of it.
type session struct {
	image    *flash.File
	store    *eeprom.Store
	recovery eeprom.Recovery
}

// openImage opens the configured image, creating an erased one when create
// is set and the file does not exist.
func openImage(opts *RootOptions, create bool) (*flash.File, error) {
	cfg := opts.Config.Geometry
	path := opts.Config.Image

	img, err := flash.OpenFile(path, cfg.EraseUnitSize)
	if errors.Is(err, fs.ErrNotExist) && create {
		opts.Logger.Info("creating flash image", "path", path, "size", cfg.DeviceSize())
		img, err = flash.CreateFile(path, cfg.DeviceSize(), cfg.EraseUnitSize)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open image", err)
	}
	if !img.Mapped() {
		opts.Logger.Debug("image not memory mapped, using file I/O", "path", path, "error", img.MapError())
	}
	if img.Size() < cfg.DeviceSize() {
		img.Close()
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("image %s holds %d bytes, geometry needs %d", path, img.Size(), cfg.DeviceSize()))
	}
	return img, nil
}

// openSession opens the image and recovers the store. A missing image is
// created erased and formatted by the recovery.
func openSession(opts *RootOptions) (*session, error) {
	img, err := openImage(opts, true)
	if err != nil {
		return nil, err
	}
	st, err := eeprom.New(img, opts.Config.Geometry, eeprom.WithLogger(opts.Logger))
	if err != nil {
		img.Close()
		return nil, WrapExitError(ExitCommandError, "invalid geometry", err)
	}
	rec, err := st.Init()
	if err != nil {
		img.Close()
		return nil, WrapExitError(ExitCommandError, "recovery failed", err)
	}
	return &session{image: img, store: st, recovery: rec}, nil
}

// Close flushes the image to disk.
func (s *session) Close() error {
	return closeImage(s.image)
}

// closeImage closes img and reports a failed flush as a command error.
func closeImage(img io.Closer) error {
	if err := img.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to flush image", err)
	}
	return nil
}
