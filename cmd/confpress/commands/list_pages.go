package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"confpress/internal/config"
	"confpress/internal/confluence"
	"confpress/pkg/logger"
)

var (
	space      string
	parentPage string
)

// listPagesCmd represents the list-pages command
var listPagesCmd = &cobra.Command{
	Use:   "list-pages",
	Short: "List page hierarchy from a Confluence space",
	Long: `List page hierarchy from a Confluence space with visual tree formatting.

This command connects to Confluence and retrieves the page hierarchy for a specified
space, displaying it with icons and tree formatting for easy navigation:
  🏢 Space indicators
  📁 Folders (pages with children)
  📄 Pages (leaf nodes)

You can optionally specify a parent page to start the hierarchy from.`,
	Example: `  confpress list-pages -s DOCS                    # List all pages in space
  confpress list-pages -s DOCS -p "API"           # List pages under parent
  confpress list-pages -s TEAM -v                 # List with verbose logging`,
	RunE: runListPages,
}

func runListPages(cmd *cobra.Command, args []string) error {
	log := logger.New(verbose)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if space == "" {
		space = cfg.Confluence.SpaceKey
	}
	if space == "" {
		return fmt.Errorf("space key is required: provide via config file or use --space flag")
	}

	client := newConfluenceClient(cfg.Confluence.BaseURL, cfg.Confluence.Username, cfg.Confluence.APIToken, cfg.CallTimeout(), log)

	pages, err := client.GetPageHierarchy(cmd.Context(), space, parentPage)
	if err != nil {
		return fmt.Errorf("failed to get page hierarchy: %w", err)
	}

	if parentPage != "" {
		fmt.Printf("🏢 Space '%s' → 📁 '%s':\n\n", space, parentPage)
	} else {
		fmt.Printf("🏢 Space '%s':\n\n", space)
	}

	printPageTree(pages, 0, true)
	return nil
}

func printPageTree(pages []confluence.PageInfo, indent int, isRoot bool) {
	for i, page := range pages {
		isLast := i == len(pages)-1

		// Build prefix with proper tree formatting
		prefix := ""
		if !isRoot {
			for j := 0; j < indent; j++ {
				prefix += "  "
			}
			if isLast {
				prefix += "└── "
			} else {
				prefix += "├── "
			}
		}

		// Choose icon based on whether page has children
		var icon string
		if len(page.Children) > 0 {
			icon = "📁"
		} else {
			icon = "📄"
		}

		if isRoot {
			fmt.Printf("%s %s %s (ID: %s)\n", icon, prefix, page.Title, page.ID)
		} else {
			fmt.Printf("%s%s %s (ID: %s)\n", prefix, icon, page.Title, page.ID)
		}

		if len(page.Children) > 0 {
			printPageTree(page.Children, indent+1, false)
		}
	}
}

func init() {
	rootCmd.AddCommand(listPagesCmd)

	// Local flags for list-pages command
	listPagesCmd.Flags().StringVarP(&space, "space", "s", "", "Confluence space key (overrides config file)")
	listPagesCmd.Flags().StringVarP(&parentPage, "parent", "p", "", "Parent page title to start from (optional)")
}
