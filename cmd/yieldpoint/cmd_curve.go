package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/talgya/yieldpoint/internal/config"
	"github.com/talgya/yieldpoint/internal/describe"
	"github.com/talgya/yieldpoint/internal/format"
	"github.com/talgya/yieldpoint/internal/tensile"
)

// curveFlags are shared by commands that sample a curve.
type curveFlags struct {
	resolution int
	overshoot  float64
}

func (cf *curveFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&cf.resolution, "resolution", tensile.DefaultResolution, "curve steps")
	cmd.Flags().Float64Var(&cf.overshoot, "overshoot", tensile.DefaultOvershoot, "strain sampled past fracture")
}

// apply copies explicitly set flags over cfg and validates the result.
func (cf *curveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("resolution") {
		cfg.Resolution = cf.resolution
	}
	if cmd.Flags().Changed("overshoot") {
		cfg.Overshoot = cf.overshoot
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	return nil
}

func generate(cfg config.Config) (*tensile.Model, tensile.Curve, error) {
	m, err := cfg.Model()
	if err != nil {
		return nil, nil, err
	}
	c, err := m.GenerateCurve(cfg.Resolution, cfg.Overshoot)
	if err != nil {
		return nil, nil, err
	}
	return m, c, nil
}

func newCurveCmd(load loadFunc) *cobra.Command {
	var (
		cf     curveFlags
		every  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the sampled stress-strain curve",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := format.ParseMode(output)
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cf.apply(cmd, &cfg); err != nil {
				return err
			}
			_, curve, err := generate(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, format.CurveTable(mode, curve, every))
			if mode == format.ASCII {
				peak, _ := curve.PeakStress()
				fmt.Fprintf(out, "%s samples, peak %s MPa at strain %s (%s)\n",
					format.Count(len(curve)), format.Stress(peak.Stress), format.Strain(peak.Strain), peak.Phase)
			}
			return nil
		},
	}
	cf.register(cmd)
	cmd.Flags().IntVar(&every, "every", 10, "print every nth sample")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, markdown, csv")
	return cmd
}

func newQueryCmd(load loadFunc) *cobra.Command {
	var (
		cf     curveFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "query STRAIN...",
		Short: "Resolve stress and phase at the given strains",
		Long: `Looks each strain up against the sampled curve the way the live cursor
does: strain is clamped to [0, fracture], stress comes from the first sample
at or above it and the phase is classified from the clamped strain.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := format.ParseMode(output)
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cf.apply(cmd, &cfg); err != nil {
				return err
			}
			m, curve, err := generate(cfg)
			if err != nil {
				return err
			}

			states := make([]tensile.State, 0, len(args))
			for _, a := range args {
				strain, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("invalid strain %q: %w", a, err)
				}
				states = append(states, m.Query(curve, strain))
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.StateTable(mode, states...))
			return nil
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, markdown, csv")
	return cmd
}

func newPhasesCmd(load loadFunc) *cobra.Command {
	var (
		output  string
		details bool
	)
	cmd := &cobra.Command{
		Use:   "phases",
		Short: "List deformation phases and their strain ranges",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := format.ParseMode(output)
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			m, err := cfg.Model()
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, format.PhaseTable(mode, m))
			if details {
				for _, c := range describe.All() {
					fmt.Fprintf(out, "\n%s\n  %s\n", c.Title, c.Description)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, markdown, csv")
	cmd.Flags().BoolVar(&details, "details", false, "print the description of each phase")
	return cmd
}
