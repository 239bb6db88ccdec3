// Package cli provides the fmtrack command tree: live playback through the
// default audio device, offline WAV export, and song/bank inspection.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/user-none/fmtrack/fm"
	"github.com/user-none/fmtrack/fx"
)

var version = "0.1.0"

// options shared by every command.
type options struct {
	sampleRate int
	bankPath   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "fmtrack",
		Short: "OPL3 FM tracker player and exporter",
		Long: `fmtrack plays and exports tracker songs on an emulated OPL3 FM chip.

Examples:
  fmtrack play song.fmt --loop
  fmtrack export a.fmt b.fmt -o out/ --normalize
  fmtrack info song.fmt`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVar(&opts.sampleRate, "sample-rate", fm.DefaultConfig().SampleRate, "output sample rate in Hz")
	root.PersistentFlags().StringVar(&opts.bankPath, "bank", "", "sound bank used for manual notes")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log chip and sequencer warnings")

	root.AddCommand(
		newPlayCmd(opts),
		newDemoCmd(opts),
		newNoteCmd(opts),
		newExportCmd(opts),
		newInfoCmd(opts),
		newBankCmd(opts),
	)
	return root
}

// Execute runs the command tree with os.Args.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newController builds a controller for the shared options. Warnings are
// discarded unless --verbose is set.
func (o *options) newController() (*fm.Controller, error) {
	logger := log.New(io.Discard, "", 0)
	if o.verbose {
		logger = log.New(os.Stderr, "fmtrack: ", log.LstdFlags)
	}
	c := fm.NewController(fm.Config{SampleRate: o.sampleRate, Logger: logger})
	if o.bankPath != "" {
		if err := c.LoadBankFile(o.bankPath); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// loadSong reads a song file with the built-in effect types.
func loadSong(path string) (*fm.SongData, []fm.Effect, error) {
	return fm.LoadSongFile(path, fx.Factory)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
