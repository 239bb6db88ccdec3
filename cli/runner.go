package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/user-none/fmtrack/fm"
	"github.com/user-none/fmtrack/ui"
)

// pollInterval is how often the runner samples the playback position.
const pollInterval = 50 * time.Millisecond

// releaseTimeout bounds the wait for a note's release tail.
const releaseTimeout = 3 * time.Second

// Runner connects a controller to the audio device for live playback.
// oto's goroutine drives the controller through FillBuffer; the runner
// only watches the position and reports it.
type Runner struct {
	controller  *fm.Controller
	audioPlayer *ui.AudioPlayer
}

// NewRunner creates a Runner for c.
// Audio initialization failure is non-fatal; the runner will work without sound.
func NewRunner(c *fm.Controller, sampleRate int) *Runner {
	player, err := ui.NewAudioPlayer(c, sampleRate, 1.0)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	} else {
		c.SetOutput(player)
	}
	return &Runner{controller: c, audioPlayer: player}
}

// HasAudio reports whether an output device is attached.
func (r *Runner) HasAudio() bool {
	return r.audioPlayer != nil
}

// Close stops playback and releases the audio device.
func (r *Runner) Close() {
	r.controller.Stop()
	if r.audioPlayer != nil {
		r.controller.SetOutput(nil)
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
}

// Wait blocks until the song stops or ctx is cancelled. On a terminal the
// position is redrawn in place.
func (r *Runner) Wait(ctx context.Context, w io.Writer, song *fm.SongData) error {
	if !r.HasAudio() {
		return fmt.Errorf("no audio device available")
	}
	tty := isTerminal(w)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	last := fm.Position{Order: -1}
	for {
		select {
		case <-ctx.Done():
			if tty {
				fmt.Fprintln(w)
			}
			return nil
		case <-ticker.C:
		}

		pos := r.controller.Position()
		if !pos.Playing {
			if tty {
				fmt.Fprintln(w)
			}
			return nil
		}
		if pos.Order == last.Order && pos.Row == last.Row {
			continue
		}
		last = pos
		if tty {
			fmt.Fprintf(w, "\r%s  %s", song.Title, formatPosition(song, pos))
		} else if pos.Row == 0 {
			fmt.Fprintf(w, "order %d/%d\n", pos.Order+1, len(song.Orders))
		}
	}
}

// formatPosition renders a position as order, pattern and row.
func formatPosition(song *fm.SongData, pos fm.Position) string {
	pat := 0
	if pos.Order >= 0 && pos.Order < len(song.Orders) {
		pat = int(song.Orders[pos.Order])
	}
	return fmt.Sprintf("order %02d/%02d  pattern %02d  row %02d", pos.Order+1, len(song.Orders), pat, pos.Row)
}

// PlayNote holds a note for d, keys it off and waits for the release tail.
func (r *Runner) PlayNote(ctx context.Context, ch int, note uint8, instrument int, volume uint8, d time.Duration) error {
	if !r.HasAudio() {
		return fmt.Errorf("no audio device available")
	}
	if err := r.controller.PlayNote(ch, note, instrument, volume); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
	r.controller.StopNote(ch)

	deadline := time.After(releaseTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for !r.controller.Sleeping() {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
