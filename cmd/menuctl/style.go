package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/YspCoder/menuctl/pkg/richmenu"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

func (a *app) ok(format string, args ...interface{}) {
	fmt.Fprintln(a.out, okStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (a *app) field(label string, value interface{}) {
	fmt.Fprintf(a.out, "%s %v\n", labelStyle.Render(label), value)
}

func check(ok bool) string {
	if ok {
		return okStyle.Render("✓")
	}
	return errStyle.Render("✗")
}

// renderMenuTable prints one line per menu: ID, size, areas, name.
func renderMenuTable(w io.Writer, menus []richmenu.RichMenu, defaultID string) {
	if len(menus) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no rich menus"))
		return
	}
	header := lipgloss.NewStyle().Bold(true).Underline(true)
	fmt.Fprintf(w, "%-44s %-10s %-6s %s\n", header.Render("ID"), header.Render("SIZE"), header.Render("AREAS"), header.Render("NAME"))
	for _, m := range menus {
		name := m.Name
		if m.RichMenuID != "" && m.RichMenuID == defaultID {
			name += " " + warnStyle.Render("(default)")
		}
		fmt.Fprintf(w, "%-44s %-10s %-6d %s\n", idStyle.Render(m.RichMenuID), m.Size, len(m.Areas), name)
	}
}

func printError(err error) {
	var apiErr *richmenu.Error
	if !errors.As(err, &apiErr) {
		fmt.Fprintln(os.Stderr, errStyle.Render("✗ "+err.Error()))
		return
	}

	fmt.Fprintln(os.Stderr, errStyle.Render("✗ "+apiErr.Message))
	var lines []string
	if apiErr.StatusCode > 0 {
		lines = append(lines, fmt.Sprintf("status: %d (%s)", apiErr.StatusCode, apiErr.Kind))
	}
	if apiErr.Local {
		lines = append(lines, "rejected locally, nothing was sent to LINE")
	}
	if d := apiErr.DetailString(); d != "" {
		lines = append(lines, "detail: "+d)
	}
	if apiErr.Err != nil {
		lines = append(lines, "cause: "+apiErr.Err.Error())
	}
	if apiErr.Kind == richmenu.KindUnauthenticated && apiErr.Local {
		lines = append(lines, "set LINE_CHANNEL_ACCESS_TOKEN or run: menuctl config set token <value>")
	}
	if len(lines) > 0 {
		fmt.Fprintln(os.Stderr, dimStyle.Render("  "+strings.Join(lines, "\n  ")))
	}
}
