package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// WriteResult is the output of the write command.
type WriteResult struct {
	Addr  uint32 `json:"addr"`
	Len   int    `json:"len"`
	Words int    `json:"words"`
	// Compactions counts the page swaps the write caused.
	Compactions uint64 `json:"compactions"`
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "write <addr> <hex>",
		Short: "Write bytes to the emulated EEPROM",
		Long: `Write the hex encoded data at addr. The address must be a multiple
of the word size. A trailing partial word keeps its other bytes.

Examples:
  veeprom write 0 deadbeef
  veeprom write 4 ab
  veeprom write 0x10 "01 02 03 04"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runWrite(opts *RootOptions, cmd *cobra.Command, addrArg, dataArg string) error {
	formatter := opts.formatter(cmd)

	addr, err := parseAddr(addrArg)
	if err != nil {
		return err
	}
	data, err := parseHex(dataArg)
	if err != nil {
		return err
	}

	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	before := sess.store.Stats().Compactions
	if err := sess.store.Write(addr, data); err != nil {
		return formatter.StoreError("write failed", err, map[string]any{"addr": addr, "len": len(data)})
	}

	if err := sess.Close(); err != nil {
		return err
	}

	w := sess.store.Config().WordSize
	result := WriteResult{
		Addr:        addr,
		Len:         len(data),
		Words:       (len(data) + w - 1) / w,
		Compactions: sess.store.Stats().Compactions - before,
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Wrote %d bytes at 0x%x", result.Len, result.Addr)
	if result.Compactions > 0 {
		fmt.Fprintf(formatter.Writer, " (%d compaction(s))", result.Compactions)
	}
	fmt.Fprintln(formatter.Writer)
	return nil
}
