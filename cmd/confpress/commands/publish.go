package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"confpress/internal/config"
	"confpress/internal/docs"
	"confpress/internal/publish"
	"confpress/pkg/logger"
)

var (
	dryRun      bool
	docsDir     string
	spaceKey    string
	rootPage    string
	concurrency int
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish local markdown files to Confluence",
	Long: `Publish a local markdown directory tree to Confluence.

Directories become section pages, markdown files become child pages, and the
whole tree hangs under the configured root page. Pages whose content has not
changed since the last publish are skipped.`,
	Example: `  confpress publish                              # Publish per config.yaml
  confpress publish -d ./docs --dry-run          # Preview without writing
  confpress publish -s DOCS -r "Team Docs"       # Override space and root
  confpress publish --concurrency 8 -v           # More parallel uploads`,
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	log := logger.New(verbose)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// CLI flags override the config file
	if docsDir != "" {
		cfg.Local.DocsDir = docsDir
	}
	if spaceKey != "" {
		cfg.Confluence.SpaceKey = spaceKey
	}
	if rootPage != "" {
		cfg.Publish.RootPage = rootPage
	}
	if concurrency > 0 {
		cfg.Publish.Concurrency = concurrency
	}

	if cfg.Confluence.SpaceKey == "" {
		return fmt.Errorf("space key is required: provide via config file or use --space flag")
	}
	if cfg.Publish.RootPage == "" {
		return fmt.Errorf("root page is required: provide via config file or use --root flag")
	}

	// Gate for CI pipelines: with enabled_if_env set, publishing only
	// happens when that variable equals "1".
	if env := cfg.Publish.EnabledIfEnv; env != "" && os.Getenv(env) != "1" {
		log.Warn("publishing disabled: environment variable %s is not set to 1", env)
		fmt.Println("Publish skipped (disabled by environment).")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tree, err := docs.NewLoader(cfg.Local.DocsDir, cfg.Local.Exclude, log).Load()
	if err != nil {
		return fmt.Errorf("failed to load docs: %w", err)
	}
	if tree.Len() == 0 {
		fmt.Println("No markdown documents found, nothing to publish.")
		return nil
	}

	client := newConfluenceClient(cfg.Confluence.BaseURL, cfg.Confluence.Username, cfg.Confluence.APIToken, cfg.CallTimeout(), log)

	orchestrator := publish.New(client, log, publish.Options{
		Space:         cfg.Confluence.SpaceKey,
		RootTitle:     cfg.Publish.RootPage,
		CreateRoot:    cfg.Publish.CreateRoot,
		DryRun:        dryRun,
		Concurrency:   cfg.Publish.Concurrency,
		RetryAttempts: cfg.Publish.RetryAttempts,
		CallTimeout:   cfg.CallTimeout(),
	})

	report, err := orchestrator.Run(ctx, tree)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	if dryRun {
		fmt.Println("Dry run: no changes were made.")
		fmt.Println()
	}
	report.Render(cmd.OutOrStdout(), tree)

	if report.HasFailures() {
		return fmt.Errorf("publish completed with failures")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(publishCmd)

	// Local flags for publish command
	publishCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing to Confluence")
	publishCmd.Flags().StringVarP(&docsDir, "docs", "d", "", "path to local markdown documents directory (overrides config file)")
	publishCmd.Flags().StringVarP(&spaceKey, "space", "s", "", "Confluence space key (overrides config file)")
	publishCmd.Flags().StringVarP(&rootPage, "root", "r", "", "root page title to publish under (overrides config file)")
	publishCmd.Flags().IntVar(&concurrency, "concurrency", 0, "max sibling pages published in parallel (overrides config file)")
}
