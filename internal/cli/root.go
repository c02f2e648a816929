package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/apresai/mimic/internal/llm"
	"github.com/apresai/mimic/internal/observability"
	"github.com/apresai/mimic/internal/progress"
	"github.com/apresai/mimic/internal/session"
	"github.com/apresai/mimic/internal/youtube"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mimic",
	Short: "Chat with an AI persona built from a creator's YouTube videos",
	RunE:  runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mimic %s\n", Version)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Build a persona from video transcripts and start a chat session",
	RunE:  runChat,
}

var (
	flagName            string
	flagVideos          []string
	flagVideosFile      string
	flagProvider        string
	flagModel           string
	flagPlain           bool
	flagVerbose         bool
	flagAnthropicAPIKey string
	flagOpenAIAPIKey    string
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagName, "name", "N", "", "Name of the person whose speaking style to mimic")
	pf.StringArrayVarP(&flagVideos, "video", "u", nil, "Video URL or ID (repeatable; values may be comma- or newline-separated)")
	pf.StringVarP(&flagVideosFile, "videos-file", "f", "", "File with one video URL or ID per line")
	pf.StringVarP(&flagProvider, "provider", "P", "anthropic", "LLM provider: anthropic, openai")
	pf.StringVarP(&flagModel, "model", "m", "", "Model alias or ID (default: provider's default)")
	pf.BoolVar(&flagPlain, "plain", false, "Line-based chat instead of the full-screen TUI")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable detailed logging")
	pf.StringVar(&flagAnthropicAPIKey, "anthropic-api-key", "", "Anthropic API key (overrides ANTHROPIC_API_KEY env var)")
	pf.StringVar(&flagOpenAIAPIKey, "openai-api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
}

func Execute() error {
	return rootCmd.Execute()
}

func runChat(cmd *cobra.Command, args []string) error {
	if flagName == "" {
		return fmt.Errorf("--name (-N) is required")
	}

	refs, err := collectVideoRefs(flagVideos, flagVideosFile)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("at least one video is required: pass --video (-u) or --videos-file (-f)")
	}

	validProviders := map[string]bool{"anthropic": true, "claude": true, "openai": true}
	if !validProviders[flagProvider] {
		return fmt.Errorf("invalid provider %q: must be anthropic or openai", flagProvider)
	}

	// The API key check runs before any network work so a missing key
	// fails fast with a clear message.
	if err := checkAPIKey(flagProvider); err != nil {
		return err
	}

	client, err := llm.New(flagProvider, flagModel)
	if err != nil {
		return err
	}

	var onProgress progress.Callback
	var renderer *progress.BarRenderer
	if flagVerbose {
		// Verbose mode swaps the progress bar for structured debug logs.
		logger := observability.InitLogger(true)
		slog.SetDefault(logger)
		onProgress = logProgress(logger)
	} else {
		renderer = progress.NewBarRenderer(os.Stdout)
		onProgress = renderer.Handle
	}

	mgr := session.NewManager(client, youtube.NewClient(), onProgress)

	res, err := mgr.Initialize(cmd.Context(), refs, flagName)
	if renderer != nil {
		renderer.Finish()
	}
	if res != nil {
		for _, f := range res.Failures {
			fmt.Fprintf(os.Stderr, "  skipped %s: %s\n", f.Reference, f.Reason)
		}
	}
	if err != nil {
		return err
	}
	if res.VideosUsed < len(refs) {
		fmt.Printf("  Initialized with %d of %d videos.\n", res.VideosUsed, len(refs))
	}

	if flagPlain || !isatty.IsTerminal(os.Stdin.Fd()) {
		return runREPL(cmd.Context(), mgr)
	}
	return runChatTUI(mgr)
}

// collectVideoRefs merges --video values and the --videos-file contents
// into one ordered reference list. Values may pack multiple references
// separated by commas or newlines, mirroring a pasted list.
func collectVideoRefs(values []string, file string) ([]string, error) {
	var raw []string
	raw = append(raw, values...)

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read videos file: %w", err)
		}
		raw = append(raw, string(data))
	}

	var refs []string
	for _, v := range raw {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool {
			return r == '\n' || r == ',' || r == '\r'
		}) {
			part = strings.TrimSpace(part)
			if part != "" {
				refs = append(refs, part)
			}
		}
	}
	return refs, nil
}

// logProgress routes progress events to the logger, one line per event.
func logProgress(logger *slog.Logger) progress.Callback {
	return func(e progress.Event) {
		if e.Error != nil {
			logger.Error("Initialization failed", "stage", string(e.Stage), "error", e.Error)
			return
		}
		logger.Debug("Progress",
			"stage", string(e.Stage),
			"message", e.Message,
			"percent", e.Percent,
			"elapsed", e.Elapsed)
	}
}

func checkAPIKey(provider string) error {
	// Flag overrides are exported to the environment so the provider
	// SDKs pick them up.
	if flagAnthropicAPIKey != "" {
		os.Setenv("ANTHROPIC_API_KEY", flagAnthropicAPIKey)
	}
	if flagOpenAIAPIKey != "" {
		os.Setenv("OPENAI_API_KEY", flagOpenAIAPIKey)
	}

	envVar := llm.APIKeyEnvVar(provider)
	if os.Getenv(envVar) == "" {
		return fmt.Errorf("missing required environment variable %s\nYou can also pass it via --anthropic-api-key or --openai-api-key", envVar)
	}
	return nil
}
