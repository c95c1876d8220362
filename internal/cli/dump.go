package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/veeprom/internal/eeprom"
)

// DumpRecord is one committed record slot.
type DumpRecord struct {
	Addr  uint32 `json:"addr"`
	Index uint32 `json:"index"`
	Value string `json:"value"`
	Live  bool   `json:"live"`
}

// DumpPage is the decoded contents of one page.
type DumpPage struct {
	Page    int           `json:"page"`
	Status  eeprom.Status `json:"status"`
	Active  bool          `json:"active"`
	Records []DumpRecord  `json:"records"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "List the records stored in each page",
		Long: `Recover the image and list the committed records of both pages in log
order. Superseded records are hidden unless --all is given.

Examples:
  veeprom dump
  veeprom dump --all --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, cmd, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include superseded records")
	return cmd
}

func runDump(opts *RootOptions, cmd *cobra.Command, all bool) error {
	formatter := opts.formatter(cmd)

	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	st := sess.store
	status, err := st.Status()
	if err != nil {
		return formatter.StoreError("read page headers", err, nil)
	}

	pages := make([]DumpPage, 0, 2)
	for p := 0; p < 2; p++ {
		page := DumpPage{Page: p, Status: status[p], Active: p == st.ActivePage(), Records: []DumpRecord{}}
		slots, err := st.Records(p)
		if err != nil {
			return formatter.StoreError(fmt.Sprintf("read page %d", p), err, nil)
		}
		for _, s := range slots {
			if !s.Live && !all {
				continue
			}
			page.Records = append(page.Records, DumpRecord{
				Addr:  s.Addr,
				Index: s.Index,
				Value: hex.EncodeToString(s.Value),
				Live:  s.Live,
			})
		}
		pages = append(pages, page)
	}

	if err := sess.Close(); err != nil {
		return err
	}

	if formatter.JSON() {
		return formatter.Success(pages)
	}

	w := formatter.Writer
	for _, page := range pages {
		marker := ""
		if page.Active {
			marker = " *"
		}
		fmt.Fprintf(w, "page %d: %s%s\n", page.Page, page.Status, marker)
		for _, r := range page.Records {
			stale := ""
			if !r.Live {
				stale = " (superseded)"
			}
			fmt.Fprintf(w, "  0x%04x  word %-5d %s%s\n", r.Addr, r.Index, r.Value, stale)
		}
	}
	return nil
}
