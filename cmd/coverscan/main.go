// Command coverscan rectifies book cover photos on disk.
//
//	coverscan -out covers/ shelf1.jpg photos/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/emandor/bookcover_service/internal/img"
	"github.com/emandor/bookcover_service/internal/pipeline"
	"github.com/emandor/bookcover_service/internal/rectify"
	"github.com/emandor/bookcover_service/internal/telemetry"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp"}

type options struct {
	outDir   string
	maxWidth int
	quality  int
	backend  string
	workers  int
	dryRun   bool
}

func main() {
	var o options
	var verbose bool
	flag.StringVar(&o.outDir, "out", "processed", "Output directory for rectified covers")
	flag.IntVar(&o.maxWidth, "max-width", img.DefaultMaxWidth, "Downscale wider results to this width")
	flag.IntVar(&o.quality, "quality", img.DefaultQuality, "JPEG quality (1-95)")
	flag.StringVar(&o.backend, "backend", "go", fmt.Sprintf("Vision backend %v", rectify.Backends()))
	flag.IntVar(&o.workers, "workers", runtime.NumCPU(), "Images processed in parallel")
	flag.BoolVar(&o.dryRun, "dry-run", false, "Do not write output images")
	flag.BoolVar(&verbose, "verbose", false, "Print debug information")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] image_files_or_dirs...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := telemetry.Init(telemetry.Config{Level: level, File: "-"})

	failed, err := run(o, flag.Args(), os.Stdout, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}
	if failed > 0 {
		os.Exit(3)
	}
}

// run processes every input and reports one line per file to w. It returns
// the number of files that failed.
func run(o options, args []string, w io.Writer, log zerolog.Logger) (int, error) {
	backend, err := rectify.NewBackend(o.backend)
	if err != nil {
		return 0, err
	}
	pipe, err := pipeline.New(pipeline.Options{MaxWidth: o.maxWidth, Quality: o.quality}, backend, log)
	if err != nil {
		return 0, err
	}
	files, err := expand(args)
	if err != nil {
		return 0, err
	}
	if !o.dryRun {
		if err := os.MkdirAll(o.outDir, 0o755); err != nil {
			return 0, err
		}
	}

	var (
		failed atomic.Int32
		done   atomic.Int32
		out    = make(chan string)
	)
	printed := make(chan struct{})
	go func() {
		for line := range out {
			fmt.Fprintln(w, line)
		}
		close(printed)
	}()

	total := len(files)
	var g errgroup.Group
	g.SetLimit(max(o.workers, 1))
	dsts := outputPaths(o.outDir, files)
	for k, f := range files {
		g.Go(func() error {
			line := processFile(pipe, f, dsts[k], o)
			n := done.Add(1)
			if strings.HasPrefix(line, "FAILED") {
				failed.Add(1)
			}
			out <- fmt.Sprintf("[%d/%d] %s", n, total, line)
			return nil
		})
	}
	_ = g.Wait()
	close(out)
	<-printed
	return int(failed.Load()), nil
}

func processFile(pipe *pipeline.Pipeline, path, dst string, o options) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("FAILED %s: %v", path, err)
	}
	res, err := pipe.ProcessBytes(b)
	if err != nil {
		return fmt.Sprintf("FAILED %s: %v", path, err)
	}
	status := "no cover, kept original"
	if res.Detected {
		status = "cover rectified"
	}
	if o.dryRun {
		return fmt.Sprintf("%s: %s %dx%d", path, status, res.Width, res.Height)
	}
	if err := os.WriteFile(dst, res.Bytes, 0o644); err != nil {
		return fmt.Sprintf("FAILED %s: %v", path, err)
	}
	return fmt.Sprintf("%s -> %s: %s %dx%d", path, dst, status, res.Width, res.Height)
}

// outputPaths names one <base>.jpg per input. Inputs sharing a base name
// get -1, -2... suffixes in argument order; names compare case-insensitively.
func outputPaths(dir string, files []string) []string {
	taken := make(map[string]bool, len(files))
	out := make([]string, len(files))
	for k, src := range files {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		name := base + ".jpg"
		for n := 1; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s-%d.jpg", base, n)
		}
		taken[strings.ToLower(name)] = true
		out[k] = filepath.Join(dir, name)
	}
	return out
}

// expand replaces directories with the image files directly inside them.
func expand(args []string) ([]string, error) {
	var files []string
	for _, a := range args {
		fi, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, a)
			continue
		}
		entries, err := os.ReadDir(a)
		if err != nil {
			return nil, fmt.Errorf("list directory %q: %w", a, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
				files = append(files, filepath.Join(a, e.Name()))
			}
		}
	}
	return files, nil
}
