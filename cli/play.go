package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user-none/fmtrack/fm"
)

type playOptions struct {
	loop      bool
	loopStart int
	stopOrder int
}

func newPlayCmd(opts *options) *cobra.Command {
	po := &playOptions{}
	cmd := &cobra.Command{
		Use:   "play <song>",
		Short: "Play a song through the default audio device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			song, _, err := loadSong(args[0])
			if err != nil {
				return err
			}
			return playSong(cmd, opts, po, song)
		},
	}
	addPlayFlags(cmd, po)
	return cmd
}

func newDemoCmd(opts *options) *cobra.Command {
	po := &playOptions{}
	var out string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Play the built-in demo song, or save it with --save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			song := fm.DemoSong()
			if out != "" {
				if err := fm.SaveSongFile(out, song, nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
				return nil
			}
			return playSong(cmd, opts, po, song)
		},
	}
	addPlayFlags(cmd, po)
	cmd.Flags().StringVar(&out, "save", "", "write the demo song to this path instead of playing it")
	return cmd
}

func addPlayFlags(cmd *cobra.Command, po *playOptions) {
	cmd.Flags().BoolVarP(&po.loop, "loop", "l", false, "loop until interrupted")
	cmd.Flags().IntVar(&po.loopStart, "loop-start", 0, "order index to return to when looping")
	cmd.Flags().IntVar(&po.stopOrder, "stop-order", -1, "last order to play (-1 plays all)")
}

func playSong(cmd *cobra.Command, opts *options, po *playOptions, song *fm.SongData) error {
	c, err := opts.newController()
	if err != nil {
		return err
	}
	r := NewRunner(c, opts.sampleRate)
	defer r.Close()

	c.SetLoopStart(po.loopStart)
	c.SetStopOrder(po.stopOrder)
	if err := c.PlaySong(song, po.loop); err != nil {
		return err
	}
	return r.Wait(cmd.Context(), cmd.OutOrStdout(), song)
}

func newNoteCmd(opts *options) *cobra.Command {
	var (
		note       uint8
		instrument int
		volume     uint8
		channel    int
		duration   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Play a single note from the sound bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.newController()
			if err != nil {
				return err
			}
			r := NewRunner(c, opts.sampleRate)
			defer r.Close()
			return r.PlayNote(cmd.Context(), channel, note, instrument, volume, duration)
		},
	}
	cmd.Flags().Uint8VarP(&note, "note", "n", 60, "note number (60 = middle C)")
	cmd.Flags().IntVarP(&instrument, "instrument", "i", 0, "bank instrument index")
	cmd.Flags().Uint8Var(&volume, "volume", fm.MaxVolume, "channel volume 0-63")
	cmd.Flags().IntVar(&channel, "channel", 0, "song channel 0-11")
	cmd.Flags().DurationVarP(&duration, "duration", "d", time.Second, "time before key-off")
	return cmd
}
