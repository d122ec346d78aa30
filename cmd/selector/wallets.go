package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nearwallets/selector/pkg/store"
)

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "List the configured wallet modules",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		sel, _, err := buildSelector(ctx, cmd)
		if err != nil {
			fail("Error initializing selector: %v", err)
		}

		state := sel.State()
		if len(state.Modules) == 0 {
			fmt.Println("No wallet modules configured.")
			return
		}

		fmt.Print(renderMarkdown(walletsMarkdown(state)))
	},
}

func walletsMarkdown(state store.State) string {
	var b strings.Builder
	b.WriteString("# Wallets\n\n")
	for _, m := range state.Modules {
		name := m.Metadata.Name
		if name == "" {
			name = m.ID
		}
		b.WriteString(fmt.Sprintf("## %s\n\n", name))
		b.WriteString(fmt.Sprintf("- id: `%s`\n", m.ID))
		b.WriteString(fmt.Sprintf("- type: %s\n", m.Type))
		if !m.Metadata.Available {
			b.WriteString("- **unavailable**\n")
		}
		if m.Metadata.Deprecated {
			b.WriteString("- deprecated\n")
		}
		if m.ID == state.SelectedWalletID {
			b.WriteString("- selected\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderMarkdown pretty-prints through glamour on a terminal and falls back to
// the raw markdown when output is piped.
func renderMarkdown(markdown string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return markdown
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

func init() {
	rootCmd.AddCommand(walletsCmd)
}
