package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"

	"github.com/fpt/go-echoassist/pkg/domain"
)

// SlashCommand represents a command that starts with /
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, a *App, w io.Writer, arg string) bool // Returns true if should exit
}

// getSlashCommands returns all available slash commands
func getSlashCommands() []SlashCommand {
	return []SlashCommand{
		{
			Name:        "help",
			Description: "Show available commands and usage information",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				showInteractiveHelp(w)
				return false
			},
		},
		{
			Name:        "provider",
			Description: "Switch the active AI provider",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				if arg == "" {
					selectProvider(a, w)
					return false
				}
				switchProvider(a, w, arg)
				return false
			},
		},
		{
			Name:        "status",
			Description: "Show providers, token usage and queue length",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				WriteProvidersTable(w, a.Manager.ProvidersInfo())
				return false
			},
		},
		{
			Name:        "model",
			Description: "Switch the active provider's vision or text model",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				switchModel(a, w, arg)
				return false
			},
		},
		{
			Name:        "history",
			Description: "Show the active provider's conversation history",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				WriteHistory(w, a.Manager.History())
				return false
			},
		},
		{
			Name:        "clear",
			Description: "Clear conversation history and start fresh",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				a.Manager.ClearHistory()
				fmt.Fprintln(w, "🧹 Conversation history cleared.")
				return false
			},
		},
		{
			Name:        "note",
			Description: "Add a line of conversation transcript without asking anything",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				if arg == "" {
					fmt.Fprintln(w, "Usage: /note <what was said>")
					return false
				}
				a.Manager.AddToHistory(domain.RoleUser, arg)
				return false
			},
		},
		{
			Name:        "suggest",
			Description: "Suggest what to say next",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				runHelper(ctx, w, "Suggestions", func(ctx context.Context) (string, error) {
					return a.Manager.SuggestResponse(ctx, arg)
				})
				return false
			},
		},
		{
			Name:        "notes",
			Description: "Generate meeting notes from the conversation",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				runHelper(ctx, w, "Meeting notes", a.Manager.GenerateMeetingNotes)
				return false
			},
		},
		{
			Name:        "email",
			Description: "Draft a follow-up email",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				runHelper(ctx, w, "Follow-up email", a.Manager.GenerateFollowUpEmail)
				return false
			},
		},
		{
			Name:        "insights",
			Description: "Analyse the conversation so far",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				runHelper(ctx, w, "Insights", a.Manager.ConversationInsights)
				return false
			},
		},
		{
			Name:        "quit",
			Description: "Exit the interactive session",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				fmt.Fprintln(w, "👋 Goodbye!")
				return true
			},
		},
		{
			Name:        "exit",
			Description: "Exit the interactive session (alias for quit)",
			Handler: func(ctx context.Context, a *App, w io.Writer, arg string) bool {
				fmt.Fprintln(w, "👋 Goodbye!")
				return true
			},
		},
	}
}

// handleSlashCommand processes commands that start with /
// Returns true if the command requests program exit, false otherwise
func handleSlashCommand(ctx context.Context, input string, a *App, w io.Writer) bool {
	if strings.TrimSpace(input) == "/" {
		return showCommandSelector(ctx, a, w)
	}

	name, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	commandName := strings.TrimPrefix(name, "/")
	commands := getSlashCommands()

	for _, cmd := range commands {
		if cmd.Name == commandName {
			return cmd.Handler(ctx, a, w, strings.TrimSpace(arg))
		}
	}

	fmt.Fprintf(w, "❌ Unknown command: /%s\n", commandName)
	fmt.Fprintln(w, "💡 Available commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  /%s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(w, "\n💡 Tip: Type just '/' to see an interactive command selector!")
	return false
}

// showCommandSelector shows an interactive command selector using promptui
func showCommandSelector(ctx context.Context, a *App, w io.Writer) bool {
	commands := getSlashCommands()

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description | faint }}",
		Inactive: "  {{ .Name | cyan }} - {{ .Description | faint }}",
		Selected: "{{ .Name | cyan }}",
	}

	searcher := func(input string, index int) bool {
		name := strings.ToLower(commands[index].Name)
		return strings.Contains(name, strings.ToLower(strings.TrimSpace(input)))
	}

	prompt := promptui.Select{
		Label:     "Choose a command",
		Items:     commands,
		Templates: templates,
		Size:      10,
		Searcher:  searcher,
	}

	i, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			fmt.Fprintln(w, "\nCancelled.")
			return false
		}
		fmt.Fprintf(w, "Command selection failed: %v\n", err)
		return false
	}
	return commands[i].Handler(ctx, a, w, "")
}

// selectProvider lets the user pick among registered providers.
func selectProvider(a *App, w io.Writer) {
	infos := a.Manager.ProvidersInfo()
	if len(infos) == 0 {
		fmt.Fprintln(w, domain.UserMessage(domain.ErrNoProviderAvailable))
		return
	}

	cursor := 0
	for i, info := range infos {
		if info.IsActive {
			cursor = i
		}
	}

	prompt := promptui.Select{
		Label: "AI provider",
		Items: infos,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}?",
			Active:   "▸ {{ .Name | cyan }} {{ .TextModel | faint }}",
			Inactive: "  {{ .Name | cyan }} {{ .TextModel | faint }}",
			Selected: "{{ .Name | cyan }}",
		},
		CursorPos: cursor,
	}
	i, _, err := prompt.Run()
	if err != nil {
		if err != promptui.ErrInterrupt {
			fmt.Fprintf(w, "Provider selection failed: %v\n", err)
		}
		return
	}
	switchProvider(a, w, infos[i].Name)
}

func switchProvider(a *App, w io.Writer, name string) {
	if !a.Manager.SetActiveProvider(name) {
		fmt.Fprintf(w, "❌ Provider not available: %s (available: %s)\n", name, strings.Join(a.Manager.AvailableProviders(), ", "))
		return
	}
	fmt.Fprintf(w, "🔀 Active provider: %s\n", color.CyanString(a.Manager.ActiveProvider()))
}

// runHelper runs fn with Ctrl+C cancelling the wait.
// modelSwitcher is implemented by providers whose models can change at runtime.
type modelSwitcher interface {
	SetVisionModel(model string)
	SetTextModel(model string)
}

func switchModel(a *App, w io.Writer, arg string) {
	tier, model, _ := strings.Cut(arg, " ")
	model = strings.TrimSpace(model)
	if (tier != "vision" && tier != "text") || model == "" {
		fmt.Fprintln(w, "Usage: /model vision|text <model or preset alias>")
		return
	}

	name := a.Manager.ActiveProvider()
	sw, ok := a.Manager.Provider(name).(modelSwitcher)
	if !ok {
		fmt.Fprintf(w, "❌ Provider %s does not support switching models\n", name)
		return
	}
	if tier == "vision" {
		sw.SetVisionModel(model)
	} else {
		sw.SetTextModel(model)
	}
	fmt.Fprintf(w, "✅ %s %s model set to %s\n", name, tier, model)
}

func runHelper(ctx context.Context, w io.Writer, title string, fn func(ctx context.Context) (string, error)) {
	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(w)
			cancel()
		case <-execCtx.Done():
		}
	}()

	result, err := fn(execCtx)
	if err != nil {
		if execCtx.Err() == context.Canceled {
			fmt.Fprintln(w, "🔄 Ready for next command.")
			return
		}
		WriteError(w, err)
		return
	}
	WriteResponse(w, title, result)
}

// StartInteractiveMode runs the readline-based REPL. Plain input is asked as
// a question with the conversation as context.
func StartInteractiveMode(ctx context.Context, a *App) {
	w := os.Stdout
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		AutoComplete:      createAutoCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		HistoryLimit:      2000,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == readline.CharCtrlZ {
				return r, false
			}
			return r, true
		},
	})
	if err != nil {
		fmt.Fprintf(w, "❌ Failed to initialize interactive mode: %v\n", err)
		fmt.Fprintln(w, "💡 Please use one-shot mode instead: echoassist ask \"your question\"")
		return
	}
	defer rl.Close()

	WriteSplashScreen(w, a.Manager.ActiveProvider())

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if handleSlashCommand(ctx, input, a, w) {
				break
			}
			continue
		}

		runHelper(ctx, w, "Answer", func(ctx context.Context) (string, error) {
			return a.Manager.AnswerQuestion(ctx, input)
		})
	}
}

// createAutoCompleter creates an autocompletion function for readline
func createAutoCompleter() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range getSlashCommands() {
		items = append(items, readline.PcItem("/"+cmd.Name))
	}
	return readline.NewPrefixCompleter(items...)
}

func showInteractiveHelp(w io.Writer) {
	fmt.Fprintln(w, "\n📚 Interactive Commands:")
	fmt.Fprintln(w, "  /                - Show interactive command selector")
	for _, cmd := range getSlashCommands() {
		fmt.Fprintf(w, "  /%-15s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(w, "\n💡 Anything not starting with '/' is asked as a question.")
}
