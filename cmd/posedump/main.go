// Command posedump loads a model manifest, plays clips through the animator for a number of frames and prints the
// per-bone skinning buffer of the first instance.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/pose"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
)

func main() {
	configFile := flag.String("config", "", "Path to a TOML config file")
	manifest := flag.String("manifest", "", "Path to the model manifest")
	frames := flag.Int("frames", 0, "Number of frames to evaluate (default: 1)")
	fps := flag.Float64("fps", 0, "Frames per second (default: 30)")
	workers := flag.Int("workers", 0, "Number of evaluation workers (default: 1)")
	interp := flag.String("interp", "", "Interpolation: nearest or linear (default: nearest)")
	current := flag.String("current", "", "Name of the current clip")
	next := flag.String("next", "", "Name of the next clip")
	nextWeight := flag.Float64("next-weight", 0, "Blend weight of the next clip")
	format := flag.String("format", "", "Output format: dualquat or transform (default: dualquat)")
	shaderFile := flag.String("shader", "", "Skinning shader declaring the pose buffer binding")
	profile := flag.Bool("profile", false, "Log evaluation timing and memory statistics")
	verbose := flag.Bool("v", false, "Log loader and animator activity")
	watch := flag.Bool("watch", false, "Re-run whenever the manifest or its assets change")
	flag.Parse()

	var cfg Config
	if *configFile != "" {
		var err error
		cfg, err = Load(*configFile)
		if err != nil {
			log.Fatalf("[posedump] %v", err)
		}
	}

	cfg.Resolve(Flags{
		Manifest:      *manifest,
		Frames:        *frames,
		FPS:           float32(*fps),
		Workers:       *workers,
		Interpolation: *interp,
		Current:       *current,
		Next:          *next,
		NextWeight:    float32(*nextWeight),
		Format:        *format,
		Shader:        *shaderFile,
		Profile:       *profile,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[posedump] %v", err)
	}

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := watchRun(ctx, cfg, os.Stdout, *verbose); err != nil && ctx.Err() == nil {
			log.Fatalf("[posedump] %v", err)
		}
		return
	}
	if err := run(cfg, os.Stdout, *verbose); err != nil {
		log.Fatalf("[posedump] %v", err)
	}
}

// playback advances one configured clip in seconds and converts to the animator's normalized time.
type playback struct {
	index    int
	duration float32
	offset   float32
	speed    float32
	weight   float32
}

func newPlayback(m model.Model, c ClipConfig) (playback, error) {
	if c.Clip == "" {
		return playback{index: -1}, nil
	}
	idx := m.ClipIndex(c.Clip)
	if idx < 0 {
		return playback{}, fmt.Errorf("model %q has no clip %q (have %v)", m.Name(), c.Clip, m.ClipNames())
	}
	return playback{
		index:    idx,
		duration: m.Clip(idx).Duration(),
		offset:   c.Offset,
		speed:    c.Speed,
		weight:   common.ValueOr(c.Weight, 0),
	}, nil
}

func (p playback) at(t float32) animator.ClipState {
	if p.index < 0 {
		return animator.NoClip
	}
	return animator.ClipState{
		ClipIndex:      p.index,
		NormalizedTime: (p.offset + t*p.speed) / p.duration,
		Weight:         p.weight,
	}
}

// outputBinding pre-processes the skinning shader and returns the binding of its pose buffer.
// Without a shader the pose buffer is bound at 0.
func outputBinding(path string, verbose bool) (int, error) {
	if path == "" {
		return 0, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	p := shader.NewPreProcessor()
	if _, err := p.Process(string(src)); err != nil {
		return 0, fmt.Errorf("shader %s: %w", path, err)
	}
	group, binding, ok := p.OutputBinding()
	if !ok {
		return 0, fmt.Errorf("shader %s: no dual_quat pose buffer declared", path)
	}
	if verbose {
		log.Printf("[posedump] pose buffer at @group(%d) @binding(%d)", group, binding)
	}
	return binding, nil
}

func run(cfg Config, w io.Writer, verbose bool) error {
	m, err := loader.NewLoader(loader.WithVerbose(verbose)).LoadModel(cfg.Manifest)
	if err != nil {
		return err
	}
	return dump(m, cfg, w, verbose)
}

// watchRun dumps the model every time it is (re)loaded until ctx is cancelled. Load and dump failures are
// logged and the watch continues.
func watchRun(ctx context.Context, cfg Config, w io.Writer, verbose bool) error {
	l := loader.NewLoader(loader.WithVerbose(verbose))
	return l.Watch(ctx, cfg.Manifest, func(m model.Model, err error) {
		if err == nil {
			err = dump(m, cfg, w, verbose)
		}
		if err != nil {
			log.Printf("[posedump] %v", err)
		}
	})
}

func dump(m model.Model, cfg Config, w io.Writer, verbose bool) error {
	mode, _ := pose.ParseInterpolation(cfg.Interpolation)

	current, err := newPlayback(m, cfg.Current)
	if err != nil {
		return err
	}
	next, err := newPlayback(m, cfg.Next)
	if err != nil {
		return err
	}

	binding, err := outputBinding(cfg.Shader, verbose)
	if err != nil {
		return err
	}

	a, err := animator.NewAnimator(
		animator.WithModel(m),
		animator.WithOutputBinding(binding),
		animator.WithMaxInstances(cfg.Instances),
		animator.WithWorkers(cfg.Workers),
		animator.WithInterpolation(mode),
		animator.WithProfiling(cfg.Profile),
		animator.WithVerbose(verbose),
	)
	if err != nil {
		return err
	}
	defer a.Release()

	for range cfg.Instances {
		if _, err := a.AddInstance(); err != nil {
			return err
		}
	}

	names := m.Skeleton().Names()
	for frame := range cfg.Frames {
		t := float32(frame) / cfg.FPS
		for i := range uint32(cfg.Instances) {
			if err := a.SetClipStates(i, current.at(t), next.at(t)); err != nil {
				return err
			}
		}
		staged := a.PrepareFrame()

		var bytes int
		for _, write := range a.StagedWriteData() {
			bytes += len(write.Data)
		}
		if verbose {
			log.Printf("[posedump] frame %d: t=%.3fs, %d instances staged, %d bytes", frame, t, staged, bytes)
		}

		dq, ok := a.DualQuats(0)
		if !ok {
			fmt.Fprintf(w, "frame %d: no pose\n", frame)
			continue
		}
		for b, name := range names {
			d := pose.DualQuat{Dual: dq[2*b], Real: dq[2*b+1]}
			switch cfg.Format {
			case formatTransform:
				tr := d.Transform()
				fmt.Fprintf(w, "%d\t%s\tt=%.5f\tq=%.5f\n", frame, name, tr.Translation(), tr.Rotation())
			default:
				fmt.Fprintf(w, "%d\t%s\tdual=%.5f\treal=%.5f\n", frame, name, d.Dual, d.Real)
			}
		}
	}
	return nil
}
