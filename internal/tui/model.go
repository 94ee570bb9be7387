// Package tui renders a session.Client as a terminal application with the
// login, register and dashboard views.
package tui

import (
	"context"                  // Request lifetime
	"kodbank/internal/session" // Session lifecycle
	"math/rand/v2"             // Confetti placement
	"strings"                  // String manipulation
	"time"                     // Timers

	tea "github.com/charmbracelet/bubbletea" // Terminal UI framework
)

type (
	outcomeMsg struct{ outcome session.Outcome }
	deferredMsg struct{ action session.Action }
	// refreshMsg only triggers a redraw, so expired banners and confetti disappear.
	refreshMsg struct{}
)

type field struct {
	label  string
	masked bool
	get    func(session.State) string
	set    func(*session.Client, string)
}

var loginFields = []field{
	{"Username", false,
		func(s session.State) string { return s.Login.Username },
		func(c *session.Client, v string) { c.UpdateLoginForm(func(f *session.LoginForm) { f.Username = v }) }},
	{"Password", true,
		func(s session.State) string { return s.Login.Password },
		func(c *session.Client, v string) { c.UpdateLoginForm(func(f *session.LoginForm) { f.Password = v }) }},
}

var registerFields = []field{
	{"User ID", false,
		func(s session.State) string { return s.Register.UID },
		func(c *session.Client, v string) { c.UpdateRegisterForm(func(f *session.RegisterForm) { f.UID = v }) }},
	{"Username", false,
		func(s session.State) string { return s.Register.Username },
		func(c *session.Client, v string) { c.UpdateRegisterForm(func(f *session.RegisterForm) { f.Username = v }) }},
	{"Email", false,
		func(s session.State) string { return s.Register.Email },
		func(c *session.Client, v string) { c.UpdateRegisterForm(func(f *session.RegisterForm) { f.Email = v }) }},
	{"Password", true,
		func(s session.State) string { return s.Register.Password },
		func(c *session.Client, v string) { c.UpdateRegisterForm(func(f *session.RegisterForm) { f.Password = v }) }},
	{"Phone", false,
		func(s session.State) string { return s.Register.Phone },
		func(c *session.Client, v string) { c.UpdateRegisterForm(func(f *session.RegisterForm) { f.Phone = v }) }},
}

// Model is the Bubble Tea model.
type Model struct {
	ctx      context.Context
	client   *session.Client
	now      func() time.Time
	focus    int
	confetti string
	width    int
}

// New returns a model driving client. ctx bounds every request the UI starts.
func New(ctx context.Context, client *session.Client) Model {
	return Model{ctx: ctx, client: client, now: time.Now, width: 60}
}

// Init verifies the stored token once at startup.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		m.client.VerifyOnLoad(m.ctx)
		return refreshMsg{}
	}
}

func (m Model) fields(v session.View) []field {
	switch v {
	case session.ViewLogin:
		return loginFields
	case session.ViewRegister:
		return registerFields
	}
	return nil
}

// Update handles keys and the results of finished commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case outcomeMsg:
		cmd := m.schedule(msg.outcome)
		return m, cmd
	case deferredMsg:
		action := msg.action
		return m, func() tea.Msg {
			m.client.Run(m.ctx, action)
			return refreshMsg{}
		}
	case refreshMsg:
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		state := m.client.Snapshot()
		if state.View == session.ViewDashboard {
			return m.updateDashboard(msg)
		}
		return m.updateForm(msg, state)
	}
	return m, nil
}

// schedule turns an outcome into one-shot timers.
func (m *Model) schedule(out session.Outcome) tea.Cmd {
	if out.Ignored {
		return nil
	}
	cmds := []tea.Cmd{
		tea.Tick(session.BannerTimeout, func(time.Time) tea.Msg { return refreshMsg{} }),
	}
	if out.Deferred.Action != session.ActionNone {
		action := out.Deferred.Action
		cmds = append(cmds, tea.Tick(out.Deferred.After, func(time.Time) tea.Msg { return deferredMsg{action} }))
	}
	if out.Celebrate {
		m.confetti = confettiLine(m.width)
		cmds = append(cmds, tea.Tick(session.ConfettiDuration, func(time.Time) tea.Msg { return refreshMsg{} }))
	}
	return tea.Batch(cmds...)
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "b":
		if m.client.Snapshot().Busy(session.ControlBalance) {
			return m, nil
		}
		return m, func() tea.Msg { return outcomeMsg{m.client.CheckBalance(m.ctx)} }
	case "o":
		m.focus = 0
		return m, func() tea.Msg {
			m.client.Logout(m.ctx)
			return refreshMsg{}
		}
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg, state session.State) (tea.Model, tea.Cmd) {
	fields := m.fields(state.View)
	if m.focus >= len(fields) {
		m.focus = 0
	}
	switch msg.String() {
	case "ctrl+r":
		m.client.ShowRegister()
		m.focus = 0
		return m, nil
	case "ctrl+l":
		m.client.ShowLogin()
		m.focus = 0
		return m, nil
	case "tab", "down":
		m.focus = (m.focus + 1) % len(fields)
		return m, nil
	case "shift+tab", "up":
		m.focus = (m.focus + len(fields) - 1) % len(fields)
		return m, nil
	case "enter":
		return m, m.submit(state)
	case "backspace":
		f := fields[m.focus]
		if v := []rune(f.get(state)); len(v) > 0 {
			f.set(m.client, string(v[:len(v)-1]))
		}
		return m, nil
	}
	switch msg.Type {
	case tea.KeyRunes:
		f := fields[m.focus]
		f.set(m.client, f.get(state)+string(msg.Runes))
	case tea.KeySpace:
		f := fields[m.focus]
		f.set(m.client, f.get(state)+" ")
	}
	return m, nil
}

func (m Model) submit(state session.State) tea.Cmd {
	switch state.View {
	case session.ViewLogin:
		if state.Busy(session.ControlLogin) {
			return nil
		}
		form := state.Login
		return func() tea.Msg { return outcomeMsg{m.client.Login(m.ctx, form.Username, form.Password)} }
	case session.ViewRegister:
		if state.Busy(session.ControlRegister) {
			return nil
		}
		form := state.Register
		return func() tea.Msg { return outcomeMsg{m.client.Register(m.ctx, form)} }
	}
	return nil
}

var confettiGlyphs = []rune("*+•✦✧·")

// confettiLine scatters a few glyphs over a line of the given width.
func confettiLine(width int) string {
	if width <= 0 {
		width = 60
	}
	line := []rune(strings.Repeat(" ", width))
	for i := 0; i < width/3; i++ {
		line[rand.IntN(width)] = confettiGlyphs[rand.IntN(len(confettiGlyphs))]
	}
	return string(line)
}
