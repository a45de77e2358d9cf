package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/deep-researcher/pkg/archive"
	"github.com/mikeboe/deep-researcher/pkg/clients"
	"github.com/mikeboe/deep-researcher/pkg/config"
	"github.com/mikeboe/deep-researcher/pkg/database"
	"github.com/mikeboe/deep-researcher/pkg/researcher"
	"github.com/mikeboe/deep-researcher/pkg/search"
)

var (
	topic    string
	maxLoops int
	policy   string
)

func main() {
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	rootCmd := &cobra.Command{
		Use:   "deep-researcher",
		Short: "A terminal-based deep research assistant",
		Long:  `deep-researcher iteratively researches a topic: it generates a search query, gathers web sources, summarizes the findings, reflects on knowledge gaps, and repeats up to a bounded number of loops before writing a final report.`,
		Run: func(cmd *cobra.Command, args []string) {
			overrides := map[string]string{}
			if cmd.Flags().Changed("max-loops") {
				overrides[config.KeyMaxResearchLoops] = fmt.Sprintf("%d", maxLoops)
			}
			if cmd.Flags().Changed("policy") {
				overrides[config.KeyRoutePolicy] = policy
			}
			cfg := config.LoadWithOverrides(overrides)

			if !cmd.Flags().Changed("topic") {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research topic: ")
				input, _ := reader.ReadString('\n')
				topic = strings.TrimSpace(input)
			}
			if topic == "" {
				slog.Error("Topic cannot be empty")
				os.Exit(1)
			}

			slog.Info("Starting research", "topic", topic, "max_loops", cfg.MaxResearchLoops, "model", cfg.Model)

			llm, err := clients.DeepSeek(clients.ModelType(cfg.Model), cfg.DeepSeekAPIKey)
			if err != nil {
				slog.Error("Error initializing LLM client", "error", err)
				os.Exit(1)
			}

			routePolicy := researcher.RequeryPolicy
			if cfg.RoutePolicy == "research" {
				routePolicy = researcher.ResearchPolicy
			}

			var searcher search.Client = search.NewTavily(cfg.TavilyAPIKey, cfg.SearchDepth)
			if cfg.SearchProvider == "arxiv" {
				searcher = search.NewArxiv()
			}

			engine := researcher.NewEngine(researcher.Config{
				MaxLoops:           cfg.MaxResearchLoops,
				MaxResults:         cfg.SearchMaxResults,
				MaxTokensPerSource: cfg.MaxTokensPerSource,
				Policy:             routePolicy,
			}, llm, searcher)

			// Archive gathered sources when a database and embedding key
			// are available; the loop runs fine without them.
			if cfg.DatabaseURL != "" && cfg.GoogleApiKey != "" {
				db, err := database.NewPostgresDB(context.Background(), cfg.DatabaseURL)
				if err != nil {
					slog.Error("Failed to connect to database", "error", err)
					os.Exit(1)
				}
				defer db.Close()

				arch, err := archive.New(context.Background(), db, cfg)
				if err != nil {
					slog.Error("Failed to initialize source archive", "error", err)
					os.Exit(1)
				}
				engine.Archive = arch
			}

			out, err := engine.Run(context.Background(), researcher.Input{Topic: topic})
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			reportFilename := fmt.Sprintf("report_%d.md", time.Now().Unix())
			if err := os.WriteFile(reportFilename, []byte(out.Summary), 0644); err != nil {
				slog.Warn("failed to save report locally", "error", err)
			} else {
				slog.Info("Report saved", "filename", reportFilename)
			}

			fmt.Println(out.Summary)
		},
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")
	rootCmd.Flags().IntVarP(&maxLoops, "max-loops", "n", 3, "Maximum number of research iterations")
	rootCmd.Flags().StringVarP(&policy, "policy", "p", "requery", "Routing policy after reflection: requery or research")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
