// Command tapctl drives the recorder and player from a terminal: record a
// session to a YAML profile, play one back, list what's on disk, or run
// the keyclick tool mode.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/inputtap/tap"
	"github.com/inputtap/tap/platform"
	"github.com/inputtap/tap/schema"
)

var (
	profilesDir string
	backendName string
	verbose     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tapctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tapctl",
		Short: "Record and replay mouse/keyboard timelines",
	}
	root.PersistentFlags().StringVar(&profilesDir, "profiles", defaultProfilesDir(), "directory holding .yaml profiles")
	root.PersistentFlags().StringVar(&backendName, "backend", "simulated", "input backend: simulated or native")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr instead of discarding")

	root.AddCommand(newRunCmd(), newRecordCmd(), newListCmd(), newKeyClickCmd())
	return root
}

func defaultProfilesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./profiles"
	}
	return filepath.Join(home, ".config", "tapctl", "profiles")
}

func newLogger() tap.Logger {
	if verbose {
		return tap.NewStdLogger(os.Stderr)
	}
	return tap.NopLogger
}

// resolveBackend opens the configured backend and returns it plus a
// cleanup function. "simulated" opens a virtual desktop window; "native"
// dials the real OS backend (X11 on Linux, unsupported elsewhere).
func resolveBackend(ctx context.Context, title string) (platform.Backend, func() error, error) {
	switch backendName {
	case "native":
		return newNativeBackend()
	case "simulated":
		return newSimulatedBackend(ctx, title)
	default:
		return platform.Backend{}, nil, fmt.Errorf("unknown backend %q (want simulated or native)", backendName)
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <profile>",
		Short: "Play back a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runProfile(ctx context.Context, name string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loader := schema.NewFileLoader(profilesDir)
	profile, err := loader.LoadProfile(name)
	if err != nil {
		return fmt.Errorf("load profile %q: %w", name, err)
	}

	backend, closeBackend, err := resolveBackend(ctx, "tapctl run: "+name)
	if err != nil {
		return err
	}
	defer closeBackend()

	log := newLogger()
	handle := tap.Spawn(backend.Injector, backend, nil, loader, log)
	handle.Send(tap.EngineCommand{Kind: tap.CmdSetProfile, Profile: profile})
	handle.Send(tap.EngineCommand{Kind: tap.CmdStart})

	fmt.Printf("running %q (%d actions) — press q to stop early\n", profile.Name, profile.Timeline.Len())
	stopKey := watchForStopKey(ctx)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stopKey:
			fmt.Println("stopping")
			handle.Shutdown()
			return nil
		case <-ctx.Done():
			handle.Shutdown()
			return nil
		case <-ticker.C:
			for {
				ev, ok := handle.TryRecv()
				if !ok {
					break
				}
				if done := printRunEvent(ev); done {
					handle.Shutdown()
					return nil
				}
			}
		}
	}
}

func printRunEvent(ev tap.EngineEvent) (done bool) {
	switch ev.Kind {
	case tap.EvtStateChanged:
		fmt.Printf("state: %s -> %s\n", ev.OldState, ev.NewState)
	case tap.EvtCountdownTick:
		fmt.Printf("starting in %ds...\n", ev.RemainingSecs)
	case tap.EvtIterationCompleted:
		fmt.Printf("iteration %d complete\n", ev.Iteration)
	case tap.EvtError:
		fmt.Printf("error: %s\n", ev.Message)
	case tap.EvtCompleted:
		fmt.Println("run complete")
		return true
	}
	return false
}

func newRecordCmd() *cobra.Command {
	var moveIntervalMs uint64
	cmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Record a new profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return recordProfile(cmd.Context(), args[0], moveIntervalMs)
		},
	}
	cmd.Flags().Uint64Var(&moveIntervalMs, "move-sample-ms", 50, "minimum spacing between recorded mouse-move samples")
	return cmd
}

func recordProfile(ctx context.Context, name string, moveIntervalMs uint64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, closeBackend, err := resolveBackend(ctx, "tapctl record: "+name)
	if err != nil {
		return err
	}
	defer closeBackend()

	events, err := backend.Hook.Start(ctx)
	if err != nil {
		return fmt.Errorf("start hook: %w", err)
	}

	config := tap.DefaultRecorderConfig()
	config.MoveSampleIntervalMs = moveIntervalMs
	rec := tap.NewRecorder(config, newLogger())
	rec.Start()

	fmt.Println("recording — press q to stop")
	stopKey := watchForStopKey(ctx)

	for {
		select {
		case <-stopKey:
			return finishRecording(rec, name)
		case <-ctx.Done():
			return finishRecording(rec, name)
		case ev, ok := <-events:
			if !ok {
				return finishRecording(rec, name)
			}
			rec.PushEvent(ev)
		}
	}
}

func finishRecording(rec *tap.Recorder, name string) error {
	result, ok := rec.Stop()
	if !ok {
		return fmt.Errorf("recorder was not running")
	}
	fmt.Printf("captured %d actions over %dms\n", result.Timeline.Len(), rec.DurationMs())

	profile := tap.Profile{
		Name:     name,
		Timeline: result.Timeline,
		Run:      tap.DefaultRunConfig(),
	}
	dsl := schema.FromProfile(profile)

	if err := os.MkdirAll(profilesDir, 0o755); err != nil {
		return fmt.Errorf("create profiles dir: %w", err)
	}
	data, err := yaml.Marshal(dsl)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	path := filepath.Join(profilesDir, name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Println("saved", path)
	return nil
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := schema.NewFileLoader(profilesDir)
			names, err := loader.ListProfiles()
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newKeyClickCmd() *cobra.Command {
	var intervalMs uint64
	cmd := &cobra.Command{
		Use:   "keyclick",
		Short: "Hold a letter key to repeat-click at the current cursor position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyClick(cmd.Context(), intervalMs)
		},
	}
	cmd.Flags().Uint64Var(&intervalMs, "interval-ms", 50, "repeat interval while a key is held")
	return cmd
}

func runKeyClick(ctx context.Context, intervalMs uint64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend, closeBackend, err := resolveBackend(ctx, "tapctl keyclick")
	if err != nil {
		return err
	}
	defer closeBackend()

	events, err := backend.Hook.Start(ctx)
	if err != nil {
		return fmt.Errorf("start hook: %w", err)
	}

	tracker := &tap.LastPositionTracker{}
	tracked := make(chan platform.RawEvent, 256)
	go func() {
		for ev := range events {
			tracker.Observe(ev)
			select {
			case tracked <- ev:
			default:
			}
		}
		close(tracked)
	}()

	config := tap.KeyClickConfig{Interval: time.Duration(intervalMs) * time.Millisecond}
	handle := tap.StartKeyClickRunner(ctx, config, tracked, backend.Injector, tracker.Position, newLogger())

	fmt.Println("keyclick running — hold a letter key to click, space to stop")
	for handle.IsRunning() {
		for _, ev := range handle.Drain() {
			if ev.Kind == tap.KeyClickClicked {
				fmt.Printf("click #%d at (%d,%d)\n", ev.Count, ev.X, ev.Y)
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Printf("stopped, %d total clicks\n", handle.ClickCount())
	return nil
}

// watchForStopKey puts stdin into raw mode (when it's a real terminal)
// and signals once the caller presses q, in addition to the usual
// SIGINT/SIGTERM handling so tapctl can be stopped either way.
func watchForStopKey(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			select {
			case out <- struct{}{}:
			default:
			}
		case <-ctx.Done():
		}
	}()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return out
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return out
	}
	go func() {
		defer term.Restore(fd, oldState)
		buf := make([]byte, 1)
		for {
			if ctx.Err() != nil {
				return
			}
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n > 0 && (buf[0] == 'q' || buf[0] == 'Q' || buf[0] == 3) {
				select {
				case out <- struct{}{}:
				default:
				}
				return
			}
		}
	}()
	return out
}
