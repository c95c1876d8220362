package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/veeprom/internal/eeprom"
)

// InfoResult describes an image and the store on it.
type InfoResult struct {
	Image        string           `json:"image"`
	Geometry     eeprom.Config    `json:"geometry"`
	Capacity     int              `json:"capacity"`
	Words        int              `json:"words"`
	SlotsPerPage int              `json:"slots_per_page"`
	Status       [2]eeprom.Status `json:"status"`
	ActivePage   int              `json:"active_page"`
	Recovery     eeprom.Recovery  `json:"recovery"`
	Records      int              `json:"records"`
	Live         int              `json:"live"`
	FreeSlots    int              `json:"free_slots"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show geometry, page states and fill level",
		Long: `Recover the image and describe it: geometry, page headers, the
recovery action taken and how full the active page is.

Examples:
  veeprom info --image flash.img
  veeprom info --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, cmd)
		},
	}
}

func runInfo(opts *RootOptions, cmd *cobra.Command) error {
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
	slots, err := st.Records(st.ActivePage())
	if err != nil {
		return formatter.StoreError("read records", err, nil)
	}
	if err := sess.Close(); err != nil {
		return err
	}
	cfg := st.Config()

	result := InfoResult{
		Image:        sess.image.Path(),
		Geometry:     cfg,
		Capacity:     st.Capacity(),
		Words:        cfg.CapacityRecords(),
		SlotsPerPage: cfg.SlotsPerPage(),
		Status:       status,
		ActivePage:   st.ActivePage(),
		Recovery:     sess.recovery,
		Records:      len(slots),
		FreeSlots:    cfg.SlotsPerPage() - len(slots),
	}
	for _, s := range slots {
		if s.Live {
			result.Live++
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	p := message.NewPrinter(language.English)
	w := formatter.Writer
	p.Fprintf(w, "Image:       %s\n", result.Image)
	p.Fprintf(w, "Pages:       0x%x, 0x%x (%d bytes each, erase unit %d)\n",
		cfg.Page0Address, cfg.Page1Address, cfg.PageSize, cfg.EraseUnitSize)
	p.Fprintf(w, "Records:     %d byte words, %d byte index\n", cfg.WordSize, cfg.IndexSize)
	p.Fprintf(w, "Capacity:    %d bytes (%d words)\n", result.Capacity, result.Words)
	p.Fprintf(w, "Status:      page 0 %s, page 1 %s\n", status[0], status[1])
	p.Fprintf(w, "Recovery:    %s\n", recoverySummary(sess.recovery))
	p.Fprintf(w, "Active page: %d\n", result.ActivePage)
	p.Fprintf(w, "Slots:       %d used, %d live, %d free of %d\n",
		result.Records, result.Live, result.FreeSlots, result.SlotsPerPage)
	return nil
}

func recoverySummary(rec eeprom.Recovery) string {
	s := rec.Action.String()
	if rec.Page >= 0 {
		s = fmt.Sprintf("%s (page %d)", s, rec.Page)
	}
	if rec.Lossy {
		s += " (stored data discarded)"
	}
	return s
}
