package tui

import (
	"fmt"                      // Formatted output
	"kodbank/internal/session" // Session state
	"strings"                  // String building
)

// View renders the visible panel.
func (m Model) View() string {
	state := m.client.Snapshot()
	now := m.now()
	var b strings.Builder

	b.WriteString("Kodbank\n\n")
	if state.Banner.Visible(now) {
		prefix := "✓"
		if state.Banner.Kind == session.BannerError {
			prefix = "✗"
		}
		fmt.Fprintf(&b, "%s %s\n\n", prefix, state.Banner.Text)
	}

	switch state.View {
	case session.ViewLogin:
		m.renderForm(&b, state, loginFields)
		b.WriteString("\n" + button(state.Busy(session.ControlLogin), "Login", "Logging in..."))
		b.WriteString("\n\nenter: login • tab: next field • ctrl+r: register • ctrl+c: quit\n")
	case session.ViewRegister:
		m.renderForm(&b, state, registerFields)
		b.WriteString("\n" + button(state.Busy(session.ControlRegister), "Register", "Registering..."))
		b.WriteString("\n\nenter: register • tab: next field • ctrl+l: back to login • ctrl+c: quit\n")
	case session.ViewDashboard:
		if now.Before(state.ConfettiUntil) && m.confetti != "" {
			b.WriteString(m.confetti + "\n")
		}
		b.WriteString(state.Welcome + "\n\n")
		fmt.Fprintf(&b, "Balance: %s\n\n", state.Balance)
		b.WriteString(button(state.Busy(session.ControlBalance), "Check Balance", "Fetching..."))
		b.WriteString("\n\nb: check balance • o: logout • q: quit\n")
	}
	return b.String()
}

func (m Model) renderForm(b *strings.Builder, state session.State, fields []field) {
	for i, f := range fields {
		cursor := "  "
		if i == m.focus {
			cursor = "> "
		}
		value := f.get(state)
		if f.masked {
			value = strings.Repeat("•", len([]rune(value)))
		}
		fmt.Fprintf(b, "%s%-9s %s\n", cursor, f.label+":", value)
	}
}

func button(busy bool, label, busyLabel string) string {
	if busy {
		return "[ " + busyLabel + " ]"
	}
	return "[ " + label + " ]"
}
