package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "confpress",
	Short: "Publish a markdown directory tree to Confluence",
	Long: `Confpress publishes a local markdown documentation tree to Confluence,
mirroring the directory structure as a page hierarchy under a root page.
Unchanged pages are detected by content fingerprint and skipped.`,
	Example: `  confpress publish                              # Publish docs/ per config.yaml
  confpress publish -d ./docs --dry-run          # Preview without writing
  confpress list-pages -s DOCS                   # List all pages in a space
  confpress get-page -s DOCS -p "API Guide"      # Fetch a page's content`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags available to all subcommands
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
