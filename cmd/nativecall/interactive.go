package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/nativecall/abi"
	"github.com/wippyai/nativecall/jit"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D6B")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D6B"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

// interactiveModel collects arguments field by field into an ArgsBuilder.
// Leaving a field stores it, so a bad literal is reported next to its field
// and the other fields keep their values.
type interactiveModel struct {
	title    string
	targets  []target
	selected int
	state    modelState

	builder   *jit.ArgsBuilder
	inputs    []textinput.Model
	fieldErrs []error
	focusIdx  int

	result abi.Value
	err    error
}

type callResultMsg struct {
	result abi.Value
	err    error
}

func newInteractiveModel(title string, targets []target) *interactiveModel {
	return &interactiveModel{
		title:   title,
		targets: targets,
		state:   stateSelectFunc,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.targets)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.targets) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction()
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				m.storeField(m.focusIdx)
				if next := m.firstUnset(); next >= 0 {
					m.focus(next)
					return m, nil
				}
				return m, m.callFunction()

			case stateShowResult:
				m.reset()
				return m, nil
			}

		case "tab":
			if m.state == stateInputArgs {
				m.storeField(m.focusIdx)
				m.focus((m.focusIdx + 1) % len(m.inputs))
				return m, nil
			}

		case "esc":
			if m.state != stateSelectFunc {
				m.reset()
				return m, nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateInputArgs {
		var cmd tea.Cmd
		m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) current() target {
	return m.targets[m.selected]
}

func (m *interactiveModel) prepareInputs() {
	fn := m.current().fn
	sig := fn.Signature()

	m.builder = fn.ArgsBuilder()
	m.inputs = make([]textinput.Model, sig.Arity())
	m.fieldErrs = make([]error, sig.Arity())
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = sig.Param(i).String()
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		m.inputs[i] = ti
	}
	m.focusIdx = 0
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

func (m *interactiveModel) focus(i int) {
	m.inputs[m.focusIdx].Blur()
	m.focusIdx = i
	m.inputs[i].Focus()
}

// storeField parses field i and sets it in the builder. An empty field is
// left unset.
func (m *interactiveModel) storeField(i int) {
	text := strings.TrimSpace(m.inputs[i].Value())
	if text == "" {
		m.fieldErrs[i] = nil
		return
	}
	v, err := abi.ParseValue(m.current().fn.Signature().Param(i), text)
	if err != nil {
		m.fieldErrs[i] = fmt.Errorf("not a valid %s", m.current().fn.Signature().Param(i))
		return
	}
	m.fieldErrs[i] = m.builder.Set(i, v)
}

func (m *interactiveModel) firstUnset() int {
	for i := 0; i < m.builder.Len(); i++ {
		if !m.builder.IsSet(i) || m.fieldErrs[i] != nil {
			return i
		}
	}
	return -1
}

// callFunction consumes the builder and returns the call as a command.
func (m *interactiveModel) callFunction() tea.Cmd {
	if m.builder == nil {
		m.builder = m.current().fn.ArgsBuilder()
	}
	args, ok := m.builder.IntoArgs()
	m.builder = nil
	if !ok {
		return func() tea.Msg {
			return callResultMsg{err: fmt.Errorf("not every argument is set")}
		}
	}
	return func() tea.Msg {
		result, err := args.Invoke(context.Background())
		return callResultMsg{result: result, err: err}
	}
}

func (m *interactiveModel) reset() {
	m.state = stateSelectFunc
	m.builder = nil
	m.inputs = nil
	m.fieldErrs = nil
	m.result = abi.Value{}
	m.err = nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Native Call"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString("\n\n")

	if len(m.targets) == 0 {
		b.WriteString(errorStyle.Render("No callable functions."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, t := range m.targets {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatTarget(t)))
			} else {
				b.WriteString("  " + formatTarget(t))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		t := m.current()
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(t.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(t.fn.Signature().Param(i).String()))
			if m.fieldErrs[i] != nil {
				b.WriteString(" ")
				b.WriteString(errorStyle.Render(m.fieldErrs[i].Error()))
			} else if m.builder != nil && m.builder.IsSet(i) {
				b.WriteString(" ✓")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		t := m.current()
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(t.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(formatResult(m.result)))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatTarget(t target) string {
	sig := t.fn.Signature()
	params := make([]string, sig.Arity())
	for i, p := range sig.Params() {
		params[i] = typeStyle.Render(p.String())
	}
	s := funcStyle.Render(t.name) + "(" + strings.Join(params, ", ") + ")"
	if sig.HasReturn() {
		s += " -> " + typeStyle.Render(sig.Return().String())
	}
	return s
}

func runInteractive(title string, targets []target) error {
	p := tea.NewProgram(newInteractiveModel(title, targets), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
