package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trafficsignal/backend/services/signal-controller/internal/clock"
	"trafficsignal/backend/services/signal-controller/internal/config"
	"trafficsignal/backend/services/signal-controller/internal/service"
	"trafficsignal/backend/services/signal-controller/internal/signals"
	"trafficsignal/backend/services/signal-controller/internal/traffic"
)

type simulateOptions struct {
	Steps           int
	Step            time.Duration
	Start           time.Time
	PedestrianSteps []int
	EmergencyLane   int
	EmergencyFrom   int
	EmergencyTo     int
}

func simulateCmd(configPath *string) *cobra.Command {
	var (
		opts  simulateOptions
		start string
		seed  uint64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the decision engine offline on a simulated clock and print every decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Traffic.Seed = seed
			}

			opts.Start, err = time.ParseInLocation("2006-01-02T15:04", start, cfg.Location())
			if err != nil {
				return fmt.Errorf("simulate: --start must look like 2006-01-02T15:04: %w", err)
			}
			return runSimulation(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Steps, "steps", 20, "number of decisions")
	cmd.Flags().DurationVar(&opts.Step, "step", 10*time.Second, "simulated time between decisions")
	cmd.Flags().StringVar(&start, "start", "2024-01-01T08:00", "simulated start time")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "vehicle count seed")
	cmd.Flags().IntSliceVar(&opts.PedestrianSteps, "pedestrian-at", nil, "steps at which the crossing button is pressed")
	cmd.Flags().IntVar(&opts.EmergencyLane, "emergency-lane", -1, "lane held by an emergency vehicle (-1 = none)")
	cmd.Flags().IntVar(&opts.EmergencyFrom, "emergency-from", 0, "first step of the emergency")
	cmd.Flags().IntVar(&opts.EmergencyTo, "emergency-to", 0, "last step of the emergency")
	return cmd
}

func runSimulation(ctx context.Context, out io.Writer, cfg *config.Config, opts simulateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Steps <= 0 {
		return fmt.Errorf("simulate: steps must be positive, got %d", opts.Steps)
	}
	if opts.EmergencyLane != int(signals.NoLane) {
		if _, err := signals.ParseLane(opts.EmergencyLane); err != nil {
			return err
		}
	}

	clk := clock.NewManual(opts.Start)
	controller := service.NewControllerService(cfg.Intersection.ID, service.Dependencies{
		Source: traffic.NewSource(cfg.TrafficConfig(), clk),
		Engine: signals.NewEngine(cfg.EngineConfig(), clk),
		Logger: zap.NewNop(),
	})

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tTIME\tVEHICLES\tWEIGHTS\tGREEN\tSECONDS\tREASON\tPEDESTRIAN")

	for step := 0; step < opts.Steps; step++ {
		if step > 0 {
			clk.Advance(opts.Step)
		}

		if opts.EmergencyLane != int(signals.NoLane) && step == opts.EmergencyFrom {
			if err := controller.SetEmergency(ctx, opts.EmergencyLane); err != nil {
				return err
			}
		}
		if lo.Contains(opts.PedestrianSteps, step) {
			controller.RequestPedestrian(ctx)
		}

		status, err := controller.Status(ctx)
		if err != nil {
			return err
		}

		if opts.EmergencyLane != int(signals.NoLane) && step == opts.EmergencyTo {
			controller.ClearEmergency(ctx)
		}

		green, seconds := "-", 0
		if status.CurrentGreen != nil {
			green = fmt.Sprintf("%d", *status.CurrentGreen)
			seconds = status.Signals[*status.CurrentGreen]
		}
		weights := signals.Weights(status.DecidedAt.Hour())

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			step,
			status.DecidedAt.Format("15:04:05"),
			joinInts(status.Vehicles[:]),
			strings.Join(lo.Map(weights[:], func(w float64, _ int) string { return fmt.Sprintf("%.1f", w) }), ","),
			green,
			seconds,
			status.Reason,
			status.Pedestrian.Phase,
		)
	}
	return tw.Flush()
}

func joinInts(values []int) string {
	return strings.Join(lo.Map(values, func(v int, _ int) string { return fmt.Sprintf("%d", v) }), ",")
}
