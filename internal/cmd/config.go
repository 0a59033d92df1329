package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	embeddedconfig "github.com/yasskadd/scrabble/config"
	"github.com/yasskadd/scrabble/internal/fileutil"
)

var (
	configOutputPath string
	configForce      bool
)

// configCmd represents the config parent command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Scrabble client settings",
	Long: `Manage the client settings file.

Use the subcommands to create a settings file or to see which one is in use.`,
}

// configCreateCmd represents the config create subcommand
var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a default settings file",
	Long: `Create a settings file from the embedded defaults.

After creating the file, point server.root_certificate at the server's
root certificate and review the server URLs.

Examples:
  scrabble config create                      # Create ./settings.yaml
  scrabble config create --output /path/to    # Create /path/to/settings.yaml
  scrabble config create --force              # Overwrite existing file`,
	RunE: runConfigCreate,
}

// configShowCmd represents the config show subcommand
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the settings in use",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCreateCmd)
	configCmd.AddCommand(configShowCmd)

	configCreateCmd.Flags().StringVarP(&configOutputPath, "output", "o", ".",
		"Directory to write the settings file")
	configCreateCmd.Flags().BoolVarP(&configForce, "force", "f", false,
		"Overwrite existing settings file without prompting")
}

func runConfigCreate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := filepath.Join(configOutputPath, "settings.yaml")

	if _, err := os.Stat(path); err == nil && !configForce {
		fmt.Fprintf(out, "⚠️  Settings file already exists: %s\n", path)
		fmt.Fprintln(out, "Use --force to overwrite the existing file.")
		return nil
	}

	if err := fileutil.WriteAtomic(path, embeddedconfig.DefaultConfigYAML, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	fmt.Fprintf(out, "✅ Settings file created: %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Set server.root_certificate to the server's root certificate")
	fmt.Fprintln(out, "  2. Review server.socket_url and server.http_url")
	fmt.Fprintf(out, "  3. Run 'scrabble --config %s console'\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source:           %s (%s)\n", configResult.Source, configResult.SourcePath)
	fmt.Fprintf(out, "Socket URL:       %s\n", cfg.Server.SocketURL)
	fmt.Fprintf(out, "HTTP base URL:    %s\n", cfg.HTTPBaseURL())
	fmt.Fprintf(out, "Root certificate: %s\n", cfg.RootCertificatePath())
	fmt.Fprintf(out, "Windows:          %s, %s\n", cfg.Windows.Primary, cfg.Windows.Secondary)
	if cfg.Session.Cookie != "" {
		fmt.Fprintln(out, "Session cookie:   set in settings")
	}
	return nil
}
