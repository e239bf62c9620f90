package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/crashhook/sdk-go/minidump"
	"github.com/crashhook/sdk-go/sink"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <dump>",
	Short: "Print the streams of a minidump",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		f, err := minidump.ReadFile(args[0])
		if err != nil {
			return err
		}
		return printDump(c.OutOrStdout(), f)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events <file>",
	Short: "List events recorded by the file transport",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		evs, err := sink.ReadEvents(args[0])
		if err != nil {
			return err
		}
		out := c.OutOrStdout()
		for _, ev := range evs {
			value := ev.Message
			if len(ev.Exception) > 0 {
				value = ev.Exception[0].Value
			}
			fmt.Fprintf(out, "%s  %-7s %-10s %s  (%d attachments, %d breadcrumbs)\n",
				ev.Timestamp.Format(time.RFC3339), ev.Level, ev.Platform, value,
				len(ev.Attachments), len(ev.Breadcrumbs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(eventsCmd)
}

func printDump(w io.Writer, f *minidump.File) error {
	fmt.Fprintf(w, "minidump taken %s, %d streams\n",
		humanize.Time(time.Unix(int64(f.Header.TimeDateStamp), 0)), len(f.Streams))
	for _, s := range f.Streams {
		fmt.Fprintf(w, "  %-16s %#010x %s\n", s.Type, uint32(s.Type), humanize.Bytes(uint64(len(s.Data))))
	}

	if si, csd, err := f.SystemInfo(); err == nil {
		fmt.Fprintf(w, "system: arch=%d cpus=%d platform=%#x os=%d.%d.%d %s\n",
			si.ProcessorArchitecture, si.NumberOfProcessors, si.PlatformID,
			si.MajorVersion, si.MinorVersion, si.BuildNumber, csd)
	}
	if ex, err := f.Exception(); err == nil {
		fmt.Fprintf(w, "exception: thread=%d code=%#x\n", ex.ThreadID, ex.ExceptionCode)
	}
	if data, ok := f.Stream(minidump.ProcessInfoStream); ok {
		var pi minidump.ProcessInfo
		if err := json.Unmarshal(data, &pi); err != nil {
			return fmt.Errorf("decoding process info: %w", err)
		}
		fmt.Fprintf(w, "process: pid=%d exe=%s go=%s goroutines=%d rss=%s\n",
			pi.PID, pi.Executable, pi.GoVersion, pi.NumGoroutine, humanize.Bytes(pi.RSS))
	}
	return nil
}
