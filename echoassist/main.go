package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fpt/go-echoassist/internal/app"
	"github.com/fpt/go-echoassist/internal/config"
	"github.com/fpt/go-echoassist/pkg/domain"
	pkgLogger "github.com/fpt/go-echoassist/pkg/logger"
)

var (
	settingsPath string
	envFile      string
	providerFlag string
	verbose      bool
	noHistory    bool

	settings *config.Settings
	a        *app.App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "echoassist",
		Short: "EchoAssist - multi-provider AI assistant for live conversations",
		Long: `EchoAssist routes questions, screenshots and conversation summaries to
Gemini, OpenAI, Anthropic, OpenRouter or a local Ollama server, with per-provider
rate limits, retries, daily token budgets and automatic fallback.

Credentials are read from the environment or a .env file:
  GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENROUTER_API_KEY, OLLAMA_HOST

Run without arguments to start the interactive session.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				if err := a.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
				}
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.StartInteractiveMode(cmd.Context(), a)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to settings file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to a .env file with API keys")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "Provider to use for this run")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (debug level)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not load or save conversation history")

	rootCmd.AddCommand(
		askCmd(),
		analyzeCmd(),
		helperCmd("notes", "Generate meeting notes from the conversation", func(ctx context.Context) (string, error) {
			return a.Manager.GenerateMeetingNotes(ctx)
		}),
		helperCmd("email", "Draft a follow-up email from the conversation", func(ctx context.Context) (string, error) {
			return a.Manager.GenerateFollowUpEmail(ctx)
		}),
		helperCmd("insights", "Analyse the conversation so far", func(ctx context.Context) (string, error) {
			return a.Manager.ConversationInsights(ctx)
		}),
		suggestCmd(),
		noteCmd(),
		providersCmd(),
		useCmd(),
		ledgerCmd(),
		&cobra.Command{
			Use:   "repl",
			Short: "Start the interactive session",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				app.StartInteractiveMode(cmd.Context(), a)
			},
		},
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	settings, err = config.LoadSettings(settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Warning: failed to load settings: %v\n", err)
		settings = config.GetDefaultSettings()
	}
	config.ApplyEnvOverrides(settings)
	if providerFlag != "" {
		settings.AI.DefaultProvider = strings.ToLower(providerFlag)
	}

	logLevel := pkgLogger.ParseLevel(settings.App.LogLevel)
	if verbose {
		logLevel = pkgLogger.LogLevelDebug
	}
	pkgLogger.SetGlobalLogLevel(logLevel)
	logger := pkgLogger.NewComponentLogger("echoassist")

	if err := config.ValidateSettings(settings); err != nil {
		logger.ErrorWithIcon("❌", "Settings validation failed", "error", err)
		return err
	}

	creds, err := config.LoadCredentials(envFile)
	if err != nil {
		logger.WarnWithIcon("⚠️", "Failed to load .env file", "error", err)
		creds = config.CredentialsFromEnv()
	}

	var historyDir string
	if !noHistory {
		if home, err := os.UserHomeDir(); err == nil {
			historyDir = filepath.Join(home, config.SettingsDir)
		}
	}

	a = app.New(cmd.Context(), settings, creds, logger, app.Options{HistoryDir: historyDir})
	return nil
}

func printResult(title string) func(string, error) error {
	return func(result string, err error) error {
		if err != nil {
			app.WriteError(os.Stderr, err)
			return err
		}
		app.WriteResponse(os.Stdout, title, result)
		return nil
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question using the conversation as context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult("Answer")(a.Manager.AnswerQuestion(cmd.Context(), strings.Join(args, " ")))
		},
	}
}

func analyzeCmd() *cobra.Command {
	var extra string
	cmd := &cobra.Command{
		Use:   "analyze <image.png>",
		Short: "Analyse a screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			image := domain.ImageData{MIMEType: mimeTypeFor(args[0]), Data: data}
			return printResult("Screenshot analysis")(a.Manager.AnalyzeScreenshot(cmd.Context(), image, extra))
		},
	}
	cmd.Flags().StringVarP(&extra, "context", "c", "", "Additional context for the analysis")
	return cmd
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}

func helperCmd(use, short string, fn func(ctx context.Context) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(short)(fn(cmd.Context()))
		},
	}
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest [situation]",
		Short: "Suggest what to say next",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult("Suggestions")(a.Manager.SuggestResponse(cmd.Context(), strings.Join(args, " ")))
		},
	}
}

func noteCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "note <text>",
		Short: "Record a line of conversation transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := domain.Role(strings.ToLower(role))
			if r != domain.RoleUser && r != domain.RoleAssistant && r != domain.RoleSystem {
				return fmt.Errorf("unknown role: %s", role)
			}
			a.Manager.AddToHistory(r, strings.Join(args, " "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", string(domain.RoleUser), "Speaker role (user, assistant, system)")
	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and their token usage",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app.WriteProvidersTable(os.Stdout, a.Manager.ProvidersInfo())
		},
	}
}

func useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <provider>",
		Short: "Make a provider the default for future runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.Manager.SetActiveProvider(args[0]) {
				return fmt.Errorf("provider not available: %s", args[0])
			}
			settings.AI.DefaultProvider = a.Manager.ActiveProvider()
			if err := config.SaveSettings(settingsPath, settings); err != nil {
				return err
			}
			fmt.Printf("✅ Default provider: %s\n", color.CyanString(settings.AI.DefaultProvider))
			return nil
		},
	}
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage persisted daily token counts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reset [provider]",
		Short: "Reset the token ledger of one provider, or of all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := ""
			if len(args) == 1 {
				provider = strings.ToLower(args[0])
			}
			if err := a.ResetLedger(cmd.Context(), provider); err != nil {
				return err
			}
			fmt.Println("🧹 Token ledger reset. Takes effect on the next run.")
			return nil
		},
	})
	return cmd
}
