package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user-none/fmtrack/fm"
)

type exportOptions struct {
	outDir    string
	normalize bool
	noEffects bool
	jobs      int
}

func newExportCmd(opts *options) *cobra.Command {
	eo := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <song>...",
		Short: "Render songs to 32-bit float WAV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportSongs(cmd, opts, eo, args)
		},
	}
	cmd.Flags().StringVarP(&eo.outDir, "output", "o", ".", "directory for the WAV files")
	cmd.Flags().BoolVar(&eo.normalize, "normalize", false, "scale each file to a 0.98 peak")
	cmd.Flags().BoolVar(&eo.noEffects, "no-effects", false, "skip the song's effect chain")
	cmd.Flags().IntVarP(&eo.jobs, "jobs", "j", 2, "songs rendered in parallel")
	return cmd
}

// wavPath maps a song file to its WAV file in dir.
func wavPath(dir, song string) string {
	base := filepath.Base(song)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".wav")
}

// exportSongs renders every song on its own controller. The first failure
// cancels songs that have not started yet.
func exportSongs(cmd *cobra.Command, opts *options, eo *exportOptions, paths []string) error {
	if err := os.MkdirAll(eo.outDir, 0o755); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	progress := newProgressPrinter(out, isTerminal(out))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(1, eo.jobs))
	for _, path := range paths {
		path := path // per-iteration copy; go.mod targets 1.21 loop semantics
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			song, chain, err := loadSong(path)
			if err != nil {
				return err
			}
			c, err := opts.newController()
			if err != nil {
				return err
			}
			xo := fm.ExportOptions{
				Normalize: eo.normalize,
				Progress: func(done float64) {
					progress.update(path, done)
				},
			}
			if !eo.noEffects {
				xo.Effects = chain
			}
			dst := wavPath(eo.outDir, path)
			if err := c.ExportWAVFile(dst, song, xo); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			progress.done(path, dst)
			return nil
		})
	}
	return g.Wait()
}

// progressPrinter serialises export progress from parallel jobs. On a
// terminal it redraws one status line; otherwise it prints one line per
// finished file.
type progressPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	tty  bool
	last map[string]int
}

func newProgressPrinter(w io.Writer, tty bool) *progressPrinter {
	return &progressPrinter{w: w, tty: tty, last: make(map[string]int)}
}

func (p *progressPrinter) update(path string, done float64) {
	if !p.tty {
		return
	}
	pct := int(done * 100)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last[path] == pct {
		return
	}
	p.last[path] = pct
	fmt.Fprintf(p.w, "\r%-40s %3d%%", filepath.Base(path), pct)
}

func (p *progressPrinter) done(path, dst string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty {
		fmt.Fprint(p.w, "\r\033[K")
	}
	fmt.Fprintf(p.w, "%s -> %s\n", path, dst)
}
