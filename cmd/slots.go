package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/calendar"
)

type slotsOptions struct {
	windowStart string
	windowEnd   string
	duration    time.Duration
	busyFile    string
	jsonOutput  bool
}

func newSlotsCmd() *cobra.Command {
	opts := slotsOptions{}

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Find free slots between busy intervals",
		Long: `Find the free slots inside a time window, given a JSON list of busy
intervals such as the one returned by the Calendar free/busy API:

  [{"start": "2026-03-02T10:00:00Z", "end": "2026-03-02T11:00:00Z"}]

Timestamps without an offset are read as UTC. Use --busy - to read the list
from standard input. No Google account is needed.`,
		Example: `  inboxassist slots --window-start 2026-03-02T09:00:00Z --window-end 2026-03-02T18:00:00Z --duration 30m --busy busy.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlots(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.windowStart, "window-start", "", "Start of the search window (RFC 3339)")
	cmd.Flags().StringVar(&opts.windowEnd, "window-end", "", "End of the search window (RFC 3339)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 30*time.Minute, "Minimum slot length (at least 1m)")
	cmd.Flags().StringVar(&opts.busyFile, "busy", "", "JSON file with busy intervals, or - for stdin. Empty means the whole window is free.")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the slots as JSON")
	_ = cmd.MarkFlagRequired("window-start")
	_ = cmd.MarkFlagRequired("window-end")

	return cmd
}

func runSlots(stdin io.Reader, out io.Writer, opts slotsOptions) error {
	start, err := calendar.ParseTimestamp(opts.windowStart)
	if err != nil {
		return fmt.Errorf("window start: %w", err)
	}
	end, err := calendar.ParseTimestamp(opts.windowEnd)
	if err != nil {
		return fmt.Errorf("window end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("window start %s must be before window end %s", opts.windowStart, opts.windowEnd)
	}
	if opts.duration < calendar.MinSlotDuration {
		return fmt.Errorf("duration must be at least %s, got %s", calendar.MinSlotDuration, opts.duration)
	}

	busy, err := readBusyIntervals(stdin, opts.busyFile)
	if err != nil {
		return err
	}

	slots := calendar.FindFreeSlots(calendar.TimeRange{Start: start, End: end}, busy, opts.duration)

	if opts.jsonOutput {
		if slots == nil {
			slots = []calendar.TimeRange{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(slots)
	}

	if len(slots) == 0 {
		_, err := fmt.Fprintf(out, "No free slot of at least %s.\n", opts.duration)
		return err
	}
	for _, s := range slots {
		if _, err := fmt.Fprintf(out, "%s  %s  (%s)\n",
			s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339), s.Duration()); err != nil {
			return err
		}
	}
	return nil
}

func readBusyIntervals(stdin io.Reader, path string) ([]calendar.TimeRange, error) {
	if path == "" {
		return nil, nil
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open busy file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw []calendar.RawInterval
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode busy intervals: %w", err)
	}
	return calendar.ParseBusyIntervals(raw)
}
