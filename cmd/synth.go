package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/synthfit/internal/audio"
	"github.com/cwbudde/synthfit/internal/fit"
	"github.com/cwbudde/synthfit/internal/signal"
)

var (
	synthFreq       float64
	synthAmplitudes []float64
	synthEnvelope   bool
	synthAttack     float64
	synthDecay      float64
	synthSustain    float64
	synthRelease    float64
	synthOut        string
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Render a harmonic test tone to a WAV file",
	Long: `Render a fundamental and its partials, optionally shaped by an ADSR
envelope, to use as an optimization target.`,
	Example: `  synthfit synth --freq 220 --amplitudes 0.5,0.25,0.125 --out target.wav`,
	RunE:    runSynth,
}

func init() {
	rootCmd.AddCommand(synthCmd)

	synthCmd.Flags().Float64Var(&synthFreq, "freq", 440, "Fundamental frequency in Hz")
	synthCmd.Flags().Float64SliceVar(&synthAmplitudes, "amplitudes", []float64{0.5}, "Amplitude of each partial, fundamental first")
	synthCmd.Flags().BoolVar(&synthEnvelope, "envelope", false, "Shape the tone with an ADSR envelope")
	synthCmd.Flags().Float64Var(&synthAttack, "attack", 50, "Envelope attack in ms")
	synthCmd.Flags().Float64Var(&synthDecay, "decay", 200, "Envelope decay in ms")
	synthCmd.Flags().Float64Var(&synthSustain, "sustain", 180, "Envelope sustain level (0-255)")
	synthCmd.Flags().Float64Var(&synthRelease, "release", 500, "Envelope release in ms")
	synthCmd.Flags().StringVar(&synthOut, "out", "target.wav", "Output WAV file")
}

func runSynth(cmd *cobra.Command, args []string) error {
	tone, err := renderTone()
	if err != nil {
		return err
	}
	if err := audio.Save(synthOut, tone, signal.SampleRate); err != nil {
		return err
	}
	slog.Info("Wrote tone", "path", synthOut, "freq", synthFreq, "partials", len(synthAmplitudes))
	return nil
}

func renderTone() (signal.Signal, error) {
	if len(synthAmplitudes) == 0 {
		return nil, fmt.Errorf("--amplitudes needs at least one value")
	}
	series := fit.HarmonicSeries{Freq: synthFreq, Amplitudes: synthAmplitudes}
	if synthFreq <= 0 || !series.Valid() {
		return nil, fmt.Errorf("%.1f Hz with %d partials does not fit below %.0f Hz",
			synthFreq, len(synthAmplitudes), signal.Nyquist())
	}

	tone := series.Render()
	if synthEnvelope {
		env := fit.Envelope{Attack: synthAttack, Decay: synthDecay, Sustain: synthSustain, Release: synthRelease}
		tone = env.Apply(tone)
	}
	return tone, nil
}
