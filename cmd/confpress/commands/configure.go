package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"confpress/internal/config"
)

var (
	configureYes   bool
	configurePrint bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create or edit the configuration file interactively",
	Long: `Interactively create or edit the configuration file (config.yaml by default).

Prompts for the Confluence connection, the publish target (space, root page)
and the local docs directory. Existing values are offered as defaults.`,
	Example: `  confpress configure                   # Edit config.yaml interactively
  confpress configure -c prod.yaml      # Edit a different config file
  confpress configure --print           # Print resulting YAML without saving`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	path := configFile

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		cfg = loaded
	}

	questions := []*survey.Question{
		{
			Name:     "baseURL",
			Prompt:   &survey.Input{Message: "Confluence base URL:", Default: cfg.Confluence.BaseURL},
			Validate: survey.Required,
		},
		{
			Name:     "username",
			Prompt:   &survey.Input{Message: "Username (email):", Default: cfg.Confluence.Username},
			Validate: survey.Required,
		},
		{
			Name:   "spaceKey",
			Prompt: &survey.Input{Message: "Space key:", Default: cfg.Confluence.SpaceKey},
		},
		{
			Name:   "rootPage",
			Prompt: &survey.Input{Message: "Root page title:", Default: cfg.Publish.RootPage},
		},
		{
			Name:   "docsDir",
			Prompt: &survey.Input{Message: "Docs directory:", Default: cfg.Local.DocsDir},
		},
		{
			Name:   "concurrency",
			Prompt: &survey.Input{Message: "Concurrency:", Default: strconv.Itoa(cfg.Publish.Concurrency)},
		},
	}

	answers := struct {
		BaseURL     string
		Username    string
		SpaceKey    string
		RootPage    string
		DocsDir     string
		Concurrency string
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	// Token prompted separately so it is never echoed
	token := cfg.Confluence.APIToken
	tokenPrompt := &survey.Password{Message: "API token (leave empty to keep current):"}
	var newToken string
	if err := survey.AskOne(tokenPrompt, &newToken); err != nil {
		return err
	}
	if newToken != "" {
		token = newToken
	}

	createRoot := cfg.Publish.CreateRoot
	if err := survey.AskOne(&survey.Confirm{Message: "Create the root page if it does not exist?", Default: createRoot}, &createRoot); err != nil {
		return err
	}

	cfg.Confluence.BaseURL = answers.BaseURL
	cfg.Confluence.Username = answers.Username
	cfg.Confluence.APIToken = token
	cfg.Confluence.SpaceKey = answers.SpaceKey
	cfg.Publish.RootPage = answers.RootPage
	cfg.Publish.CreateRoot = createRoot
	cfg.Local.DocsDir = answers.DocsDir
	if n, err := strconv.Atoi(answers.Concurrency); err == nil && n > 0 {
		cfg.Publish.Concurrency = n
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if configurePrint {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		cmd.Print(string(out))
		return nil
	}

	if !configureYes {
		confirm := false
		prompt := &survey.Confirm{Message: "Save configuration to " + path + "?", Default: true}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			return err
		}
		if !confirm {
			fmt.Println("Aborted (no changes saved).")
			return nil
		}
	}

	if err := cfg.Save(path); err != nil {
		return err
	}
	cmd.Printf("Configuration saved to %s\n", path)
	return nil
}

func init() {
	rootCmd.AddCommand(configureCmd)
	configureCmd.Flags().BoolVar(&configureYes, "yes", false, "Automatically confirm saving changes")
	configureCmd.Flags().BoolVar(&configurePrint, "print", false, "Print resulting YAML instead of writing to file")
}
