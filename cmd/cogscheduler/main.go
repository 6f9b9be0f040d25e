package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sohamukute/CogScheduler/core/cogsched"
	"github.com/sohamukute/CogScheduler/core/engine"
	"github.com/sohamukute/CogScheduler/core/llm"
	"github.com/sohamukute/CogScheduler/core/memory"
	"github.com/sohamukute/CogScheduler/server"
)

func main() {
	root := &cobra.Command{
		Use:   "cogscheduler",
		Short: "Cognitive-energy-aware daily scheduler",
		Long: `CogScheduler plans a day of study or work around the user's
circadian energy curve, accumulating fatigue and forcing recovery breaks
before burnout sets in.`,
	}

	root.AddCommand(serveCmd(), planCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newStore picks Supabase when configured, SQLite otherwise.
func newStore(dbPath string) (memory.Store, error) {
	if url := os.Getenv("SUPABASE_URL"); url != "" {
		return memory.NewSupabaseStore(url, os.Getenv("SUPABASE_KEY"))
	}
	return memory.OpenSQLite(dbPath)
}

// newParser builds the task parser chain. The regex fallback always runs
// last so conversation works without an API key.
func newParser() llm.Provider {
	providers := []llm.Provider{}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		providers = append(providers, llm.NewOpenAIProvider(key, os.Getenv("OPENAI_MODEL")))
	}
	providers = append(providers, llm.NewRegexProvider())
	return llm.NewChain(providers...)
}

func serveCmd() *cobra.Command {
	var addr string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			eng := engine.New(store, newParser(), cogsched.DefaultConfig())
			srv := &http.Server{
				Addr:    addr,
				Handler: server.New(eng).Router(),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				fmt.Printf("listening on %s\n", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", "cogscheduler.db", "sqlite database path")
	return cmd
}

var version = "dev" // set via -ldflags at release time

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cogscheduler %s\n", version)
		},
	}
}

// planInput is the JSON file format for offline planning.
type planInput struct {
	Profile       cogsched.Profile `json:"profile"`
	Tasks         []cogsched.Task  `json:"tasks"`
	AvailableFrom string           `json:"available_from"`
	AvailableTo   string           `json:"available_to"`
}

func planCmd() *cobra.Command {
	var inputPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Produce a one-off plan from a JSON request file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			var in planInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("decode input: %w", err)
			}
			if in.AvailableFrom == "" {
				in.AvailableFrom = "09:00"
			}
			if in.AvailableTo == "" {
				in.AvailableTo = "21:00"
			}
			if in.Profile.Chronotype == "" {
				in.Profile = cogsched.DefaultProfile()
			}

			eng := engine.New(memory.NewMemStore(), nil, cogsched.DefaultConfig())
			res, err := eng.Schedule(cmd.Context(), "local", cogsched.Request{
				Profile:       in.Profile,
				Tasks:         in.Tasks,
				AvailableFrom: in.AvailableFrom,
				AvailableTo:   in.AvailableTo,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			renderPlan(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "plan.json", "request JSON file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON instead of a table")
	return cmd
}

func renderPlan(cmd *cobra.Command, res *engine.Result) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Start", "End", "Block", "Load", "Energy", "Fatigue", "Why"})
	for _, b := range res.Plan.Blocks {
		load := fmt.Sprintf("%.1f", b.CognitiveLoad)
		if b.IsBreak {
			load = "-"
		}
		table.Append([]string{
			b.StartTime, b.EndTime, b.TaskTitle, load,
			fmt.Sprintf("%.0f%%", b.EnergyAtStart*100),
			fmt.Sprintf("%.0f%%", b.FatigueAtStart*100),
			b.Explanation,
		})
	}
	table.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "\nXP %d · %s · streak %d\n",
		res.Gamification.XP, res.Gamification.Level, res.Gamification.Streak)
	for _, w := range res.Plan.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
	}
}
