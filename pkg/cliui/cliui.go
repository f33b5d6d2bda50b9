// Package cliui provides reusable terminal UI helpers (styles, a thinking
// spinner, markdown answers and citation lists) for gentax CLI commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/gentaxai/gentax/pkg/evidence"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")

	KeyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	NameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	CitationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))

	// RoleStyles colour transcript turns by role.
	RoleStyles = map[string]lipgloss.Style{
		"system":    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		"user":      lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
		"assistant": lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	}

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const defaultWrap = 100

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		DimStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or a default when it is not a terminal.
func TerminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWrap
	}
	return w
}

// RenderMarkdown renders markdown for terminal display using glamour,
// wrapping at width. On failure the raw content is returned with the error.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = defaultWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// FormatCitation renders one citation as "[id] source#chunkN".
func FormatCitation(c evidence.Citation) string {
	return fmt.Sprintf("[%s] %s#chunk%s", c.ID, c.Source, c.ChunkID)
}

// WriteCitations prints a "Sources" list, or nothing when there are none.
func WriteCitations(w io.Writer, citations []evidence.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", DimStyle.Render("Sources"))
	for _, c := range citations {
		fmt.Fprintf(w, "    %s\n", CitationStyle.Render(FormatCitation(c)))
	}
	fmt.Fprintln(w)
}

// RoleLabel styles a transcript role name.
func RoleLabel(role string) string {
	if s, ok := RoleStyles[role]; ok {
		return s.Render(role)
	}
	return DimStyle.Render(role)
}
