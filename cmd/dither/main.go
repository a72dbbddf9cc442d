// Command dither applies ordered dithering to an image file and writes the
// result as PNG.
//
// Usage:
//
//	dither -in photo.jpg -out photo-dithered.png [-viewport 1024] [-matrix 8]
//
// The performance sample for the engine call is printed to stdout. Set
// DITHER_NO_GPU=1 to force the CPU engine.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/dither"
	_ "github.com/gogpu/dither/gpu" // enable the GPU engine
)

func main() {
	var (
		in       = flag.String("in", "", "input image file")
		out      = flag.String("out", "", "output PNG file (default: <in>-dithered.png)")
		viewport = flag.Int("viewport", 1800, "display width; images are scaled to fit min(viewport, 1800)")
		matrix   = flag.Int("matrix", 4, "Bayer matrix size: 2, 4, 8 or 16")
		levels   = flag.Int("levels", 2, "output levels per channel")
		workers  = flag.Int("workers", runtime.NumCPU(), "CPU band workers")
		engine   = flag.String("engine", dither.EngineAuto, "engine: cpu, gpu or auto")
		kernel   = flag.String("kernel", "catmullrom", "resampling kernel: catmullrom, bilinear, approxbilinear, nearest")
		mono     = flag.Bool("mono", false, "convert to gray before dithering")
		checked  = flag.Bool("checked", false, "validate engine preconditions")
		verbose  = flag.Bool("v", false, "debug logging to stderr")
	)
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "dither: -in is required")
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	dither.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if noGPU() {
		*engine = dither.EngineCPU
	}

	if err := run(*in, outputPath(*in, *out), *viewport, *engine, []dither.Option{
		dither.WithMatrixSize(*matrix),
		dither.WithLevels(*levels),
		dither.WithWorkers(*workers),
		dither.WithKernel(*kernel),
		dither.WithMonochrome(*mono),
		dither.WithChecked(*checked),
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(in, out string, viewport int, engine string, opts []dither.Option) error {
	p, err := dither.New(append(opts, dither.WithEngine(engine))...)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.ProcessFile(in, viewport)
	if err != nil {
		return err
	}
	fmt.Println(res.Sample)

	if err := writePNG(out, res); err != nil {
		return err
	}

	pr := message.NewPrinter(language.English)
	pr.Printf("%s: %d×%d pixels via %s, arena %d pages (%d bytes)\n",
		out, res.Width, res.Height, p.EngineName(), res.Stats.Pages, res.Stats.SizeBytes)
	return nil
}

func writePNG(path string, res *dither.Result) error {
	img := &image.NRGBA{
		Pix:    res.Pix,
		Stride: res.Width * 4,
		Rect:   image.Rect(0, 0, res.Width, res.Height),
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode output: %w", err)
	}
	return f.Close()
}

func outputPath(in, out string) string {
	if out != "" {
		return out
	}
	ext := filepath.Ext(in)
	return in[:len(in)-len(ext)] + "-dithered.png"
}

// noGPU reports whether DITHER_NO_GPU disables the GPU engine.
func noGPU() bool {
	v, ok := os.LookupEnv("DITHER_NO_GPU")
	if !ok || v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}
