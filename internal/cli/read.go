package cli

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/veeprom/internal/eeprom"
)

// ReadResult is the output of the read command.
type ReadResult struct {
	Addr uint32 `json:"addr"`
	Len  int    `json:"len"`
	Data string `json:"data"`
	// Code is "no_data" when some words were never written; their bytes
	// read as ff.
	Code string `json:"code"`
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <addr> <len>",
		Short: "Read bytes from the emulated EEPROM",
		Long: `Read len bytes starting at addr. Neither needs to be word aligned.
Words that were never written read as ff and make the command exit 1.

Examples:
  veeprom read 0 16
  veeprom read 0x40 4 --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runRead(opts *RootOptions, cmd *cobra.Command, addrArg, lenArg string) error {
	formatter := opts.formatter(cmd)

	addr, err := parseAddr(addrArg)
	if err != nil {
		return err
	}
	n, err := parseLen(lenArg)
	if err != nil {
		return err
	}

	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	buf := make([]byte, n)
	err = sess.store.Read(addr, buf)
	if err != nil && !errors.Is(err, eeprom.ErrNoData) {
		return formatter.StoreError("read failed", err, nil)
	}
	// recovery may have rewritten the image
	if cerr := sess.Close(); cerr != nil {
		return cerr
	}

	result := ReadResult{Addr: addr, Len: n, Data: hex.EncodeToString(buf), Code: eeprom.Code(err)}
	if formatter.JSON() {
		if perr := formatter.Success(result); perr != nil {
			return perr
		}
	} else {
		fmt.Fprintln(formatter.Writer, result.Data)
	}

	if err != nil {
		formatter.VerboseLog("read 0x%x+%d: %v", addr, n, err)
		return WrapExitError(ExitFailure, "some words have no data", err)
	}
	return nil
}
