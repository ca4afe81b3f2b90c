// SPDX-License-Identifier: MIT

// Package cmd wires the command line to the analysis pipeline.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"solstice/internal/analysis"
	"solstice/internal/config"
	"solstice/internal/log"
	"solstice/internal/source"
	"solstice/pkg/build"

	"github.com/spf13/cobra"
)

// NoInputMessage is printed when the root command gets no input file.
const NoInputMessage = "Please provide an audio file"

// flags holds the values bound to persistent flags. They override the
// configuration only when set on the command line.
type flags struct {
	configPath string
	debug      int

	mode       string
	windowSize int
	stepSize   int
	window     string
	linear     bool
	kernel     string
	chunkSize  int
	legacyPeak bool
	normalize  bool

	format    string
	precision int

	wsAddr  string
	udpAddr string
}

// app carries state from the persistent pre-run into the commands.
type app struct {
	stdout io.Writer
	flags  flags
	cfg    *config.Config
}

// Execute parses args and runs the selected command, writing results to
// stdout.
func Execute(args []string, stdout io.Writer) error {
	rootCmd := NewRootCommand(stdout)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// NewRootCommand builds the command tree.
func NewRootCommand(stdout io.Writer) *cobra.Command {
	buildInfo := build.GetBuildFlags()
	a := &app{stdout: stdout}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [flags] [input.wav]",
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(a.stdout, NoInputMessage)
				return nil
			}
			return a.analyseFile(cmd.Context(), args[0])
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	f := &a.flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Sets a custom config file (YAML)")
	pf.CountVarP(&f.debug, "debug", "d", "Turn debugging information on")

	pf.StringVar(&f.mode, "mode", "spectrogram", "Analysis mode: spectrogram or peak")
	pf.IntVar(&f.windowSize, "window-size", 1024, "Frame length in samples; 0 analyses the whole input (peak mode)")
	pf.IntVar(&f.stepSize, "step-size", 512, "Samples between frames; 0 means window size")
	pf.StringVar(&f.window, "window", "hann", "Window function: hann, hamming, blackman, blackman-nuttall, bartlett-hann, nuttall, lanczos, rectangular")
	pf.BoolVar(&f.linear, "linear", false, "Report linear magnitudes instead of log10")
	pf.StringVar(&f.kernel, "kernel", "gonum", "FFT backend: gonum or godsp")
	pf.IntVar(&f.chunkSize, "chunk-size", analysis.DefaultChunkSize, "Samples read per step")
	pf.BoolVar(&f.legacyPeak, "legacy-peak", false, "Compare peak magnitudes truncated to integers")
	pf.BoolVar(&f.normalize, "normalize", false, "Scale WAV samples to [-1, 1)")

	pf.StringVar(&f.format, "format", "text", "Output format: text or json")
	pf.IntVar(&f.precision, "precision", 4, "Decimals per value in text output; -1 for shortest")

	pf.StringVar(&f.wsAddr, "ws", "", "Also serve reports over websocket on host:port")
	pf.StringVar(&f.udpAddr, "udp", "", "Also send reports as UDP packets to host:port")

	rootCmd.AddCommand(
		newTestCommand(a),
		newToneCommand(a),
		newListenCommand(a),
		newDevicesCommand(a),
	)
	return rootCmd
}

// loadConfig reads the configuration, overlays the flags that were set,
// validates the result and applies the log level.
func (a *app) loadConfig(cmd *cobra.Command) error {
	// Debug output of the loading itself.
	if a.flags.debug > 0 || config.EnvDebug() {
		log.SetLevel(log.LevelDebug)
	}

	cfg, err := config.LoadConfig(a.flags.configPath)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	f := a.flags
	if f.debug > 0 {
		cfg.Debug = true
	}
	if changed("mode") {
		cfg.Analysis.Mode = f.mode
	}
	if changed("window-size") {
		cfg.Analysis.WindowSize = f.windowSize
	}
	if changed("step-size") {
		cfg.Analysis.StepSize = f.stepSize
	}
	if changed("window") {
		cfg.Analysis.Window = f.window
	}
	if changed("linear") {
		cfg.Analysis.Scale = "log"
		if f.linear {
			cfg.Analysis.Scale = "linear"
		}
	}
	if changed("kernel") {
		cfg.Analysis.Kernel = f.kernel
	}
	if changed("chunk-size") {
		cfg.Analysis.ChunkSize = f.chunkSize
	}
	if changed("legacy-peak") {
		cfg.Analysis.LegacyPeak = f.legacyPeak
	}
	if changed("normalize") {
		cfg.Analysis.Normalize = f.normalize
	}
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("precision") {
		cfg.Output.Precision = f.precision
	}
	if changed("ws") {
		cfg.Transport.WebSocketAddress = f.wsAddr
	}
	if changed("udp") {
		cfg.Transport.UDPTargetAddress = f.udpAddr
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	log.SetLevel(cfg.Level())
	a.cfg = cfg
	return nil
}

// analyseFile runs the configured analysis over a WAV file.
func (a *app) analyseFile(ctx context.Context, path string) error {
	src, err := source.OpenWAV(path, source.WAVOptions{Normalize: a.cfg.Analysis.Normalize})
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, stop := signalContext(ctx)
	defer stop()

	_, err = a.run(ctx, src, a.stdout)
	return err
}

// run analyses src into the configured sinks, printing reports to w when
// it is not nil. A run that produced no result is reported and is not an
// error.
func (a *app) run(ctx context.Context, src source.Source, w io.Writer) (analysis.Summary, error) {
	opts, err := a.cfg.AnalysisOptions()
	if err != nil {
		return analysis.Summary{}, err
	}
	an, err := analysis.New(opts)
	if err != nil {
		return analysis.Summary{}, err
	}

	sink, err := a.sinks(w)
	if err != nil {
		return analysis.Summary{}, err
	}

	sum, err := an.Run(ctx, src, sink)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	switch {
	case errors.Is(err, analysis.ErrNoResult):
		log.Warnf("No result: the input holds %d samples", sum.Samples)
		return sum, nil
	case errors.Is(err, context.Canceled):
		log.Infof("Analysis interrupted after %d columns", sum.Columns)
		return sum, nil
	case err != nil:
		return sum, err
	}

	log.Debugf("Analysis: %d samples, %d columns", sum.Samples, sum.Columns)
	return sum, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
