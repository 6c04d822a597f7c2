package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"roller/engine"
	"roller/experiments"
	"roller/hole"
	"roller/searcher"
)

var (
	flagConfig     string
	flagMin        float64
	flagMax        float64
	flagUsed       float64
	flagIterations int
	flagGoroutines int
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "roller",
	Short: "Decision support for rolling wormholes",
	Long: `roller recommends the next round trip when collapsing a wormhole:
it keeps a belief over the hole's total mass, folds in what the hole
looks like, and searches the action catalog for the jump that collapses
the hole fast without stranding the pilot on the far side.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if flagVerbose {
			level = zerolog.InfoLevel
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
	},
	SilenceUsage: true,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Rank the next actions for a belief state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := searcher.NewPlanner(flagGoroutines,
			searcher.WithConfig(cfg),
			searcher.WithIterations(flagIterations),
			searcher.WithMetrics(),
		)
		root, err := p.Plan(flagMin, flagMax, flagUsed)
		if err != nil {
			return err
		}

		printResults(searcher.ActionResults(root), searcher.TripDistribution(root))
		m := p.Metrics()
		log.Info().Msgf("%d iterations in %s (%d collapses, %d strandings)",
			m.Iterations, m.Duration, m.Collapses, m.Strandings)
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the action catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Print(cfg.Catalog)
		return nil
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Drive a rolling session interactively",
	Long: `Read commands from stdin, one per line:
  jump <key>                   record a flown round trip
  obs <fresh|shrink|crit|collapsed>   record what the hole looks like
  plan                         rank the next actions
  status                       show the belief and the ledger
  quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := engine.NewSession(cfg, flagMin, flagMax, flagUsed,
			searcher.WithIterations(flagIterations))
		if err != nil {
			return err
		}
		return runSession(s, cmd.InOrStdin())
	},
}

var convergeCmd = &cobra.Command{
	Use:   "converge",
	Short: "Sweep iteration counts and report recommendation stability",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, summaries := experiments.RunConvergence(
			experiments.DefaultScenarios(),
			[]int{1_000, 10_000, 100_000},
			5,
			flagGoroutines,
		)

		w, err := experiments.NewWriter("experiments")
		if err != nil {
			return err
		}
		if err := w.WriteRunRecords(records); err != nil {
			return err
		}
		if err := w.WriteSummaries(summaries); err != nil {
			return err
		}
		fmt.Printf("wrote %d records to %s\n", len(records), w.BaseDir())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (thresholds, catalog)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log progress")
	rootCmd.PersistentFlags().IntVar(&flagGoroutines, "goroutines", 4, "search workers")
	rootCmd.PersistentFlags().IntVar(&flagIterations, "iterations", searcher.DefaultIterations, "search iterations")

	for _, cmd := range []*cobra.Command{planCmd, sessionCmd} {
		cmd.Flags().Float64Var(&flagMin, "min", 0, "lower bound on total mass (millions)")
		cmd.Flags().Float64Var(&flagMax, "max", 0, "upper bound on total mass (millions)")
		cmd.Flags().Float64Var(&flagUsed, "used", 0, "mass already through the hole (millions)")
		cmd.MarkFlagRequired("min")
		cmd.MarkFlagRequired("max")
	}

	rootCmd.AddCommand(planCmd, catalogCmd, sessionCmd, convergeCmd)
}

func loadConfig() (*hole.Config, error) {
	if flagConfig == "" {
		return hole.DefaultConfig(), nil
	}
	return hole.LoadConfig(flagConfig)
}

func printResults(results []searcher.ActionResult, shares []searcher.TripShare) {
	if len(results) == 0 {
		fmt.Println("no applicable actions; the hole is gone or the catalog is too heavy")
		return
	}

	fmt.Printf("%-14s %8s %8s %9s %6s %6s\n",
		"action", "score", "success", "avg trips", "mass", "safe")
	for _, r := range results {
		safe := ""
		if r.GuaranteedSafe {
			safe = "yes"
		}
		fmt.Printf("%-14s %8.3f %7.1f%% %9.1f %6.0f %6s\n",
			r.Key, r.StrategyScore, 100*r.SuccessRate, r.AvgSteps, r.Mass, safe)
	}

	if len(shares) > 0 {
		fmt.Printf("\ntrips to collapse:")
		for _, s := range shares {
			fmt.Printf("  %d: %.0f%%", s.Trips, 100*s.Pct)
		}
		fmt.Println()
	}
}

func runSession(s *engine.Session, in io.Reader) error {
	fmt.Printf("belief %s, %.0f used; 'plan' for a recommendation\n", s.Belief(), s.MassUsed())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "jump":
			if len(fields) != 2 {
				fmt.Println("usage: jump <key>")
				continue
			}
			jump, err := s.RecordJump(fields[1])
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("%s flown, %.0f used, remaining %s\n", jump.Key, jump.Used, s.Remaining())
		case "obs":
			if len(fields) != 2 {
				fmt.Println("usage: obs <fresh|shrink|crit|collapsed>")
				continue
			}
			obs, err := hole.ParseObservation(fields[1])
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := s.RecordObservation(obs); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("belief %s, remaining %s\n", s.Belief(), s.Remaining())
		case "plan":
			if s.Collapsed() {
				fmt.Println("the hole is gone; nothing to plan")
				continue
			}
			results, shares, err := s.Plan()
			if err != nil {
				fmt.Println(err)
				continue
			}
			printResults(results, shares)
		case "status":
			fmt.Printf("belief %s, %.0f used, remaining %s, %d jumps\n",
				s.Belief(), s.MassUsed(), s.Remaining(), len(s.History()))
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
