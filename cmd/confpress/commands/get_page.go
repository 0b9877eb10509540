package commands

import (
	"context"
	"fmt"

	htmldoc "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"

	"confpress/internal/config"
	"confpress/internal/confluence"
	"confpress/pkg/logger"
)

var (
	getPageSpace     string
	getPageIDOrTitle string
	getPageFormat    string
)

// getPageCmd returns the raw page storage content for a page
var getPageCmd = &cobra.Command{
	Use:   "get-page",
	Short: "Return the contents of a Confluence page",
	Long: `Fetch the storage-format content of a Confluence page by ID or title.

Specify either a numeric page ID or a page title with --page. Titles are
looked up in the space given by --space or the config file.`,
	Example: `  confpress get-page -s DOCS -p 123456789
  confpress get-page -s DOCS -p "My Page Title"
  confpress get-page -s DOCS -p "My Page Title" -f markdown`,
	RunE: runGetPage,
}

func runGetPage(cmd *cobra.Command, args []string) error {
	if getPageIDOrTitle == "" {
		return fmt.Errorf("page flag is required for get-page command")
	}

	switch getPageFormat {
	case "", "storage", "html", "markdown":
		// ok (empty treated as storage)
	default:
		return fmt.Errorf("unsupported format: %s", getPageFormat)
	}

	log := logger.New(verbose)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if getPageSpace == "" {
		getPageSpace = cfg.Confluence.SpaceKey
	}
	if getPageSpace == "" {
		return fmt.Errorf("space key is required: provide via config file or use --space flag")
	}

	client := newConfluenceClient(cfg.Confluence.BaseURL, cfg.Confluence.Username, cfg.Confluence.APIToken, cfg.CallTimeout(), log)

	page, err := fetchPage(cmd.Context(), client, log, getPageSpace, getPageIDOrTitle)
	if err != nil {
		return err
	}
	if page == nil {
		return fmt.Errorf("page '%s' not found in space '%s'", getPageIDOrTitle, getPageSpace)
	}

	// Print header then the requested format
	fmt.Printf("# %s (ID: %s)\n\n", page.Title, page.ID)

	format := getPageFormat
	if format == "" {
		format = "storage"
	}

	content, err := generatePageOutput(page, format)
	if err != nil {
		return err
	}
	fmt.Println(content)
	return nil
}

// fetchPage tries a numeric input as a page ID first, then falls back to a
// title lookup in the space.
func fetchPage(ctx context.Context, client confluence.API, log *logger.Logger, space, idOrTitle string) (*confluence.Page, error) {
	if isNumeric(idOrTitle) {
		page, err := client.GetPage(ctx, idOrTitle)
		if err == nil {
			return page, nil
		}
		log.Debug("failed to get page by ID: %v", err)
	}

	pages, err := client.SearchPagesByTitle(ctx, space, idOrTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to find page by title: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}
	// Full fetch to pull the body; search results only carry version info.
	return client.GetPage(ctx, pages[0].ID)
}

// generatePageOutput returns the page content in the requested format.
// It does not include the header line with title/ID.
func generatePageOutput(page *confluence.Page, format string) (string, error) {
	switch format {
	case "storage":
		return page.Body.Storage.Value, nil
	case "html":
		if page.Body.View.Value != "" {
			return page.Body.View.Value, nil
		}
		return page.Body.Storage.Value, nil
	case "markdown":
		html := page.Body.View.Value
		if html == "" {
			html = page.Body.Storage.Value
		}
		md, err := htmldoc.ConvertString(html)
		if err != nil {
			return html, nil // fallback to raw HTML on conversion errors
		}
		return md, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func init() {
	rootCmd.AddCommand(getPageCmd)

	getPageCmd.Flags().StringVarP(&getPageSpace, "space", "s", "", "Confluence space key (overrides config file)")
	getPageCmd.Flags().StringVarP(&getPageIDOrTitle, "page", "p", "", "Page title or ID to fetch (required)")
	getPageCmd.Flags().StringVarP(&getPageFormat, "format", "f", "storage", "Output format: storage|html|markdown")

	if err := getPageCmd.MarkFlagRequired("page"); err != nil {
		panic(fmt.Sprintf("Failed to mark page flag as required: %v", err))
	}
}
