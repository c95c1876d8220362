package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/veeprom/internal/eeprom"
)

// FormatResult is the output of the format command.
type FormatResult struct {
	Image    string `json:"image"`
	Capacity int    `json:"capacity"`
}

// NewFormatCommand creates the format command.
func NewFormatCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Erase both pages and start an empty store",
		Long: `Erase both pages of the image and mark page 0 Active.
All stored data is lost. The image is created if it does not exist.

Examples:
  veeprom format --image flash.img
  veeprom format --config veeprom.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(rootOpts, cmd)
		},
	}
}

func runFormat(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	img, err := openImage(opts, true)
	if err != nil {
		return err
	}
	defer img.Close()

	st, err := eeprom.New(img, opts.Config.Geometry, eeprom.WithLogger(opts.Logger))
	if err != nil {
		return formatter.StoreError("invalid geometry", err, nil)
	}
	if err := st.Format(); err != nil {
		return formatter.StoreError("format failed", err, nil)
	}
	if err := closeImage(img); err != nil {
		return err
	}

	result := FormatResult{Image: img.Path(), Capacity: st.Capacity()}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "Formatted %s: %d bytes available\n", result.Image, result.Capacity)
	return nil
}
