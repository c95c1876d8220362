package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/veeprom/internal/flash"
)

// ImageResult is the output of export and import.
type ImageResult struct {
	Image      string `json:"image"`
	File       string `json:"file"`
	Size       int    `json:"size"`
	Compressed int    `json:"compressed"`
	// Recovery is the action Init took on an imported image.
	Recovery string `json:"recovery,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.zst>",
		Short: "Save a zstd compressed copy of the flash image",
		Long: `Write the raw flash image, zstd compressed, to file. The image is
copied as is: no recovery runs, so interrupted states are preserved.

Examples:
  veeprom export backup.img.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, cmd, args[0])
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.zst>",
		Short: "Replace the flash image with an exported copy",
		Long: `Decompress file over the flash image, then recover it.
The decompressed image must be exactly as large as the geometry needs.

Examples:
  veeprom import backup.img.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args[0])
		},
	}
}

func runExport(opts *RootOptions, cmd *cobra.Command, out string) error {
	formatter := opts.formatter(cmd)

	img, err := openImage(opts, false)
	if err != nil {
		return err
	}
	defer img.Close()

	raw, err := img.Bytes()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read image", err)
	}
	packed, err := flash.CompressImage(raw)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compress image", err)
	}
	if err := os.WriteFile(out, packed, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}

	result := ImageResult{Image: img.Path(), File: out, Size: len(raw), Compressed: len(packed)}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Exported %s to %s (%d -> %d bytes)\n", result.Image, out, result.Size, result.Compressed)
	return nil
}

func runImport(opts *RootOptions, cmd *cobra.Command, in string) error {
	formatter := opts.formatter(cmd)

	packed, err := os.ReadFile(in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read import", err)
	}
	raw, err := flash.DecompressImage(packed)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decompress import", err)
	}
	if want := opts.Config.Geometry.DeviceSize(); uint64(len(raw)) != uint64(want) {
		return NewExitError(ExitCommandError, fmt.Sprintf("imported image has %d bytes, geometry needs %d", len(raw), want))
	}
	if err := os.WriteFile(opts.Config.Image, raw, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write image", err)
	}

	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	if err := sess.Close(); err != nil {
		return err
	}

	result := ImageResult{
		Image:      opts.Config.Image,
		File:       in,
		Size:       len(raw),
		Compressed: len(packed),
		Recovery:   recoverySummary(sess.recovery),
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Imported %s into %s, recovery: %s\n", in, result.Image, result.Recovery)
	return nil
}
