// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"

	"solstice/internal/analysis"
	"solstice/internal/audio"
	"solstice/internal/log"
	"solstice/internal/source"
	"solstice/internal/transport"
	"solstice/internal/tui"

	"github.com/spf13/cobra"
)

// newTestCommand analyses a synthetic tone with the current options.
func newTestCommand(a *app) *cobra.Command {
	var (
		list      bool
		frequency float64
		samples   int
	)
	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Analyse a synthetic tone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.NewTone(source.ToneConfig{
				Frequency:  frequency,
				SampleRate: source.DefaultToneSampleRate,
				Samples:    samples,
			})
			if err != nil {
				return err
			}

			// Without -l only the summary is printed.
			out := a.stdout
			if !list {
				out = nil
			}
			sum, err := a.run(cmd.Context(), src, out)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "test tone %g Hz: %d samples, %d columns", frequency, sum.Samples, sum.Columns)
			if sum.Last != nil {
				fmt.Fprintf(a.stdout, ", peak %g Hz (bin %d)", sum.Last.Frequency, sum.Last.Bin)
			}
			fmt.Fprintln(a.stdout)
			return nil
		},
	}
	testCmd.Flags().BoolVarP(&list, "list", "l", false, "Lists test values")
	testCmd.Flags().Float64Var(&frequency, "frequency", source.DefaultToneFrequency, "Tone frequency in Hz")
	testCmd.Flags().IntVar(&samples, "samples", source.DefaultToneSampleRate, "Tone length in samples")
	return testCmd
}

// newToneCommand writes a synthetic tone to a WAV file.
func newToneCommand(a *app) *cobra.Command {
	cfg := source.ToneConfig{}
	toneCmd := &cobra.Command{
		Use:   "tone <output.wav>",
		Short: "Write a synthetic sine tone to a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.NewTone(cfg)
			if err != nil {
				return err
			}
			samples, err := source.ReadAll(src, 0)
			if err != nil {
				return err
			}
			if err := source.WriteWAV(args[0], samples, int(src.SampleRate()), cfg.BitDepth); err != nil {
				return err
			}
			log.Infof("Wrote %d samples of %g Hz to %s", len(samples), cfg.Frequency, args[0])
			return nil
		},
	}
	f := toneCmd.Flags()
	f.Float64Var(&cfg.Frequency, "frequency", source.DefaultToneFrequency, "Tone frequency in Hz")
	f.Float64Var(&cfg.Amplitude, "amplitude", source.DefaultToneAmplitude, "Amplitude as a fraction of full scale")
	f.Float64Var(&cfg.SampleRate, "sample-rate", source.DefaultToneSampleRate, "Sample rate in Hz")
	f.IntVar(&cfg.BitDepth, "bit-depth", source.DefaultToneBitDepth, "Bits per sample")
	f.IntVar(&cfg.Samples, "samples", source.DefaultToneSampleRate, "Length in samples")
	return toneCmd
}

// newListenCommand analyses a live input device until interrupted.
func newListenCommand(a *app) *cobra.Command {
	var (
		deviceID   int
		showTUI    bool
		pick       bool
		recordPath string
		gate       float64
	)
	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Analyse a live input device until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			capture := audio.CaptureConfig{
				DeviceID:        a.cfg.Audio.InputDevice,
				SampleRate:      a.cfg.Audio.SampleRate,
				FramesPerBuffer: a.cfg.Audio.FramesPerBuffer,
				Channels:        a.cfg.Audio.InputChannels,
				LowLatency:      a.cfg.Audio.LowLatency,
				GateThreshold:   gate,
			}
			if cmd.Flags().Changed("device") {
				capture.DeviceID = deviceID
			}
			if a.cfg.Analysis.WindowSize == 0 {
				return errors.New("listen needs a window size above 0")
			}

			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if pick {
				devices, err := audio.HostDevices()
				if err != nil {
					return err
				}
				sel, ok, err := tui.PickDevice(devices)
				if err != nil || !ok {
					return err
				}
				capture.DeviceID, capture.SampleRate = sel.DeviceID, sel.SampleRate
			}

			src, err := audio.NewDeviceSource(capture)
			if err != nil {
				return err
			}
			defer src.Close()
			if recordPath != "" {
				if err := src.StartRecording(recordPath); err != nil {
					return err
				}
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			// Read blocks on the device; closing it ends the run.
			go func() {
				<-ctx.Done()
				src.Close()
			}()

			if !showTUI {
				_, err := a.run(ctx, src, a.stdout)
				return err
			}
			return a.runTUI(ctx, stop, src)
		},
	}
	f := listenCmd.Flags()
	f.IntVar(&deviceID, "device", audio.DefaultDeviceID, "Input device ID; see the devices command")
	f.BoolVar(&showTUI, "tui", false, "Show a live spectrum instead of printing reports")
	f.BoolVar(&pick, "pick", false, "Choose the device and sample rate interactively")
	f.StringVar(&recordPath, "record", "", "Also record the analysed channel to this WAV file")
	f.Float64Var(&gate, "gate", 0, "Noise gate threshold as a fraction of full scale (0 disables)")
	return listenCmd
}

// runTUI shows the live spectrum. Reports also reach the network sinks.
func (a *app) runTUI(ctx context.Context, stop context.CancelFunc, src *audio.DeviceSource) error {
	opts, err := a.cfg.AnalysisOptions()
	if err != nil {
		return err
	}
	an, err := analysis.New(opts)
	if err != nil {
		return err
	}
	extra, err := a.networkSinks(nil)
	if err != nil {
		return err
	}
	defer extra.Close()

	title := fmt.Sprintf("solstice • %s • window %d", opts.Mode, opts.WindowSize)
	model := tui.NewSpectrumModel(title, src.SampleRate(), opts.WindowSize)
	err = tui.RunSpectrum(model, func(sink transport.Transport) error {
		_, err := an.Run(ctx, src, append(transport.Multi{sink}, extra...))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	stop()
	return err
}

// newDevicesCommand lists the audio devices.
func newDevicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "List available audio devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.ListDevices(a.stdout)
		},
	}
}
