package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/user-none/fmtrack/fm"
	"github.com/user-none/fmtrack/fx"
)

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info <song>",
		Short: "Print song metadata, instruments and effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			song, chain, err := loadSong(args[0])
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), song, chain)
			return nil
		},
	}
}

// songDuration is the length of one pass through the order list.
func songDuration(song *fm.SongData) time.Duration {
	if song.BPM <= 0 {
		return 0
	}
	secs := float64(song.TotalTicks()) / (float64(song.BPM) * 0.4)
	return time.Duration(math.Round(secs * float64(time.Second)))
}

func printInfo(w io.Writer, song *fm.SongData, chain []fm.Effect) {
	fmt.Fprintf(w, "Title:        %s\n", song.Title)
	fmt.Fprintf(w, "BPM:          %g\n", song.BPM)
	fmt.Fprintf(w, "Ticks/row:    %d\n", song.TicksPerRow)
	fmt.Fprintf(w, "Patterns:     %d\n", len(song.Patterns))
	fmt.Fprintf(w, "Orders:       %d\n", len(song.Orders))
	fmt.Fprintf(w, "Duration:     %s\n", songDuration(song).Round(10*time.Millisecond))

	fmt.Fprintf(w, "Instruments:  %d\n", len(song.Instruments))
	for i, inst := range song.Instruments {
		fmt.Fprintf(w, "  %3d  %s%s\n", i, inst.Name, instrumentTags(&inst))
	}

	if len(chain) == 0 {
		return
	}
	fmt.Fprintf(w, "Effects:      %d\n", len(chain))
	for i, e := range chain {
		fmt.Fprintf(w, "  %3d  %s\n", i, fx.Name(e.Type()))
	}
}

func instrumentTags(inst *fm.Instrument) string {
	var tags string
	if inst.FourOp {
		tags += " [4op]"
	}
	if inst.DoubleVoice {
		tags += " [dual]"
	}
	if inst.FixedNote != 0 {
		tags += fmt.Sprintf(" [fixed %d]", inst.FixedNote)
	}
	return tags
}
