package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/fpt/go-echoassist/pkg/domain"
)

func WriteSplashScreen(w io.Writer, active string) {
	fmt.Fprintln(w, color.New(color.FgCyan, color.Bold).Sprint("EchoAssist"))
	if active == "" {
		fmt.Fprintln(w, color.RedString("🚫 %s", domain.UserMessage(domain.ErrNoProviderAvailable)))
	} else {
		fmt.Fprintf(w, "🧠 Provider: %s\n", color.CyanString(active))
	}
	fmt.Fprintln(w, "💬 Commands start with '/', everything else is a question.")
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// WriteResponse prints a titled result.
func WriteResponse(w io.Writer, title, body string) {
	fmt.Fprintln(w, color.New(color.FgHiCyan, color.Bold).Sprint(title))
	fmt.Fprintln(w, body)
}

// WriteError prints the host-facing sentence for err.
func WriteError(w io.Writer, err error) {
	fmt.Fprintln(w, color.RedString("❌ %s", domain.UserMessage(err)))
}

// WriteProvidersTable prints one row per registered provider.
func WriteProvidersTable(w io.Writer, infos []domain.ProviderInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, domain.UserMessage(domain.ErrNoProviderAvailable))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tPROVIDER\tVISION\tTEXT\tTOKENS\tHISTORY\tQUEUE")
	for _, info := range infos {
		marker := " "
		if info.IsActive {
			marker = color.GreenString("●")
		}
		queue := "-"
		if info.Serialized {
			queue = fmt.Sprint(info.QueueLength)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			marker, info.Name, info.VisionModel, info.TextModel,
			info.DailyTokensUsed, info.MaxDailyTokens, info.HistoryLength, queue)
	}
	tw.Flush()
}

// WriteHistory prints entries oldest first.
func WriteHistory(w io.Writer, entries []domain.ConversationEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "📜 No conversation history found.")
		return
	}
	for _, e := range entries {
		role := color.YellowString(string(e.Role))
		if e.Role == domain.RoleAssistant {
			role = color.CyanString(string(e.Role))
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", e.Timestamp.Format("15:04:05"), role, e.Content)
	}
}
