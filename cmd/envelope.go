package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mlange-42/ppa/internal/plotting"
	"github.com/mlange-42/ppa/internal/pointio"
	"github.com/mlange-42/ppa/internal/store"
	"github.com/mlange-42/ppa/pkg/envelope"
)

var (
	envInput      string
	envWindow     string
	envRect       []float64
	envScenario   string
	envStatistic  string
	envCorrection string
	envNSim       int
	envAlpha      float64
	envGlobal     bool
	envWorkers    int
	envSeed       uint64
	envRadii      []float64
	envOutput     string
	envPlot       string
)

var envelopeCmd = &cobra.Command{
	Use:   "envelope",
	Short: "Run a Monte Carlo envelope test against a null model",
	Long:  "Tests an observed point pattern against a null model from a scenario file: simulates the model repeatedly, builds simulation envelopes of a summary statistic, and reports a rank-based p-value.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pat, err := loadPattern(envInput, envWindow, envRect)
		if err != nil {
			return err
		}
		sc, err := pointio.LoadScenario(envScenario)
		if err != nil {
			return err
		}
		proc, err := sc.Process.Build()
		if err != nil {
			return err
		}
		stat, err := envelope.ParseStatistic(envStatistic)
		if err != nil {
			return err
		}
		corr, err := resolveCorrection(envCorrection)
		if err != nil {
			return err
		}

		nSim := envNSim
		if nSim == 0 {
			nSim = cfg.Envelope.NSim
		}
		alpha := envAlpha
		if alpha == 0 {
			alpha = cfg.Envelope.Alpha
		}
		seed := envSeed
		if !cmd.Flags().Changed("seed") {
			seed = sc.Seed
		}
		workers := envWorkers
		if workers == 0 {
			workers = cfg.Envelope.Workers
		}

		env, err := envelope.Test(ctx, pat, stat, proc, envelope.Options{
			NSim:       nSim,
			Alpha:      alpha,
			Global:     envGlobal || cfg.Envelope.Global,
			Workers:    workers,
			Seed:       seed,
			Correction: corr,
			Radii:      envRadii,
		})
		if err != nil {
			return err
		}

		zap.L().Info("envelope test complete",
			zap.String("statistic", stat.String()),
			zap.String("process", proc.String()),
			zap.Int("n_sim", env.NSim),
			zap.Float64("p_value", env.PValue),
		)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if _, err := st.RecordRun(ctx, store.Run{
			Command:   "envelope",
			Statistic: stat.String(),
			Process:   proc.String(),
			Params: map[string]any{
				"input":      envInput,
				"scenario":   envScenario,
				"n_sim":      env.NSim,
				"alpha":      env.Alpha,
				"global":     envGlobal,
				"correction": corr.String(),
				"seed":       seed,
			},
			Summary: map[string]any{"p_value": env.PValue, "n": pat.Len()},
		}); err != nil {
			zap.L().Warn("record run failed", zap.Error(err))
		}

		if envOutput != "" {
			if err := pointio.WriteEnvelopeCSV(envOutput, env, csvOptions().Delimiter); err != nil {
				return err
			}
		}
		if envPlot != "" {
			if err := plotting.PlotEnvelope(envPlot, env); err != nil {
				return err
			}
		}
		if envOutput == "" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(env)
		}
		return nil
	},
}

func init() {
	envelopeCmd.Flags().StringVar(&envInput, "input", "", "observed point file, CSV or shapefile (required)")
	envelopeCmd.Flags().StringVar(&envWindow, "window", "", "GeoJSON polygon window file")
	envelopeCmd.Flags().Float64SliceVar(&envRect, "rect", nil, "rectangular window as xmin,xmax,ymin,ymax")
	envelopeCmd.Flags().StringVar(&envScenario, "scenario", "", "scenario YAML file with the null model (required)")
	envelopeCmd.Flags().StringVar(&envStatistic, "statistic", "L", "statistic: G, F, K, L or pcf")
	envelopeCmd.Flags().StringVar(&envCorrection, "correction", "", "edge correction (default from config)")
	envelopeCmd.Flags().IntVar(&envNSim, "n-sim", 0, "number of simulations (default from config)")
	envelopeCmd.Flags().Float64Var(&envAlpha, "alpha", 0, "significance level (default from config)")
	envelopeCmd.Flags().BoolVar(&envGlobal, "global", false, "use global (min/max) envelopes")
	envelopeCmd.Flags().IntVar(&envWorkers, "workers", 0, "parallel workers (default: all CPUs)")
	envelopeCmd.Flags().Uint64Var(&envSeed, "seed", 0, "random seed (default from scenario)")
	envelopeCmd.Flags().Float64SliceVar(&envRadii, "radii", nil, "evaluation radii (default: regular grid up to rmax)")
	envelopeCmd.Flags().StringVar(&envOutput, "output", "", "output CSV file (default: JSON to stdout)")
	envelopeCmd.Flags().StringVar(&envPlot, "plot", "", "output PNG plot file")
	_ = envelopeCmd.MarkFlagRequired("input")
	_ = envelopeCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(envelopeCmd)
}
