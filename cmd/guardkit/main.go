// guardkit is the developer-workflow CLI for the architecture context
// pipeline: it persists architecture specs into the knowledge store and
// surfaces overviews, impact analysis, and coach context from it.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"guardkit/pkg/agent"
	"guardkit/pkg/config"
	"guardkit/pkg/knowledge"
	"guardkit/pkg/logx"
	"guardkit/pkg/metrics"
	"guardkit/pkg/planning"
	"guardkit/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		printUsage()
		return 1
	}

	switch os.Args[1] {
	case "version", "-version", "--version":
		fmt.Printf("guardkit %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		return 0
	case "plan":
		return runPlan(os.Args[2:])
	case "overview":
		return runOverview(os.Args[2:])
	case "impact":
		return runImpact(os.Args[2:])
	case "coach":
		return runCoach(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: guardkit <command> [flags]

Commands:
  plan      Parse an architecture spec, persist it, and write artefacts
  overview  Show the persisted architecture overview
  impact    Analyze the architecture impact of a task or topic
  coach     Build the coach context for a task (optionally run a review)
  version   Print build version information

Run 'guardkit <command> -h' for command flags.
`)
}

// openStore opens the local knowledge store configured in cfg. The parent
// directory is created on first use.
func openStore(cfg *config.Config) (*knowledge.LocalStore, error) {
	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return knowledge.OpenLocalStore(cfg.Store.Path, cfg.Project, cfg.Store.Enabled)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		logx.Warnf("config load failed, using defaults: %v", err)
		return config.Default()
	}
	return cfg
}

func runPlan(args []string) int {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	configPath := fs.String("config", ".guardkit.yaml", "Config file path")
	specPath := fs.String("spec", "docs/architecture-spec.md", "Architecture spec markdown file")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logx.Warnf("metrics server: %v", err)
			}
		}()
	}

	store, err := openStore(cfg)
	if err != nil {
		logx.Warnf("knowledge store unavailable, artefacts only: %v", err)
		store = nil
	}
	var client knowledge.Client
	if store != nil {
		defer store.Close()
		client = store
	}

	sp := planning.NewSystemPlan(client, cfg.Project)
	result, err := planning.RunSystemPlan(context.Background(), sp, *specPath, cfg.DocsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Printf("Persisted %d entities (%d failed)\n", result.Persisted, result.Failed)
	fmt.Printf("Artefacts written to %s:\n", result.ArtefactDir)
	for _, f := range result.ArtefactFiles {
		fmt.Printf("  %s\n", f)
	}
	return 0
}

func runOverview(args []string) int {
	fs := flag.NewFlagSet("overview", flag.ExitOnError)
	configPath := fs.String("config", ".guardkit.yaml", "Config file path")
	format := fs.String("format", "text", "Output format: text, markdown, or json")
	section := fs.String("section", "all", "Section filter: all, system, components, decisions, crosscutting")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	sp := planning.NewSystemPlan(store, cfg.Project)
	overview := planning.GetSystemOverview(context.Background(), sp)
	fmt.Println(planning.FormatOverviewDisplay(overview, *format, *section))
	return 0
}

func runImpact(args []string) int {
	fs := flag.NewFlagSet("impact", flag.ExitOnError)
	configPath := fs.String("config", ".guardkit.yaml", "Config file path")
	depth := fs.String("depth", planning.DepthStandard, "Analysis depth: quick, standard, or deep")
	includeBDD := fs.Bool("include-bdd", false, "Include BDD scenarios (deep depth only)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: impact requires a task ID or topic argument")
		return 1
	}
	taskOrTopic := strings.Join(fs.Args(), " ")

	cfg := loadConfig(*configPath)
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	sp := planning.NewSystemPlan(store, cfg.Project)
	impact := planning.RunImpactAnalysis(context.Background(), sp, taskOrTopic, planning.ImpactOptions{
		Depth:      *depth,
		IncludeBDD: *includeBDD,
		TaskDirs:   cfg.TaskDirs(),
	})

	display := planning.FormatImpactDisplay(impact, *depth)
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		// Keep piped output plain ASCII.
		display = strings.ReplaceAll(display, "█", "#")
	}
	fmt.Println(display)
	return 0
}

func runCoach(args []string) int {
	fs := flag.NewFlagSet("coach", flag.ExitOnError)
	configPath := fs.String("config", ".guardkit.yaml", "Config file path")
	taskID := fs.String("task", "", "Task ID (TASK-...)")
	complexity := fs.Int("complexity", 0, "Task complexity 1-10 (0 uses the default)")
	review := fs.Bool("review", false, "Send the context to the coach model for a review")
	prompt := fs.String("prompt", "", "Task prompt for the review")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	sp := planning.NewSystemPlan(store, cfg.Project)
	archContext := planning.BuildCoachContext(context.Background(), sp, planning.CoachTask{
		ID:         *taskID,
		Complexity: *complexity,
	})
	if archContext == "" {
		fmt.Println("no architecture context for this task")
	} else {
		fmt.Println(archContext)
	}

	if !*review {
		return 0
	}
	coach := agent.NewCoachClientFromEnv(cfg.Coach.Model, cfg.Coach.MaxTokens)
	if coach == nil {
		fmt.Fprintln(os.Stderr, "Error: ANTHROPIC_API_KEY not set, cannot run review")
		return 1
	}
	taskPrompt := *prompt
	if taskPrompt == "" {
		taskPrompt = "Review task " + *taskID
	}
	reviewText, err := coach.Review(context.Background(), archContext, taskPrompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(reviewText)
	return 0
}
