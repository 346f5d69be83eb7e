package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/monocrate/pkg/bump"
)

var (
	promptQuestionStyle = lipgloss.NewStyle().Bold(true)
	promptCursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	promptChosenStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	promptHelpStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

// errPromptAborted is returned when the operator quits a prompt.
var errPromptAborted = fmt.Errorf("prompt aborted: %w", context.Canceled)

// teaPrompter asks bump questions in the terminal.
type teaPrompter struct {
	in  io.Reader
	out io.Writer
}

func newTeaPrompter() *teaPrompter {
	return &teaPrompter{in: os.Stdin, out: os.Stderr}
}

// Ask runs one bubbletea program per question.
func (p *teaPrompter) Ask(ctx context.Context, q bump.Question) (bump.Answer, error) {
	var m answerModel
	switch q.Kind {
	case bump.YesNo:
		m = newConfirmModel(q.Text)
	case bump.MultiSelect:
		m = newSelectModel(q.Text, q.Choices)
	default:
		return bump.Answer{}, fmt.Errorf("unsupported question kind %s", q.Kind)
	}

	prog := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(p.in), tea.WithOutput(p.out))
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return bump.Answer{}, ctx.Err()
		}
		return bump.Answer{}, fmt.Errorf("prompt: %w", err)
	}
	return final.(answerModel).answer()
}

// answerModel is a bubbletea model that ends with an answer.
type answerModel interface {
	tea.Model
	answer() (bump.Answer, error)
}

// =============================================================================
// confirmModel - yes/no
// =============================================================================

type confirmModel struct {
	question string
	yes      bool
	done     bool
	aborted  bool
}

func newConfirmModel(question string) confirmModel {
	return confirmModel{question: question}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.aborted = true
		return m, tea.Quit
	case "y", "Y":
		m.yes, m.done = true, true
		return m, tea.Quit
	case "n", "N":
		m.yes, m.done = false, true
		return m, tea.Quit
	case "left", "right", "h", "l", "tab":
		m.yes = !m.yes
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		answer := "no"
		if m.yes {
			answer = "yes"
		}
		return promptQuestionStyle.Render(m.question) + " " + promptChosenStyle.Render(answer) + "\n"
	}
	if m.aborted {
		return ""
	}

	yes, no := "yes", "no"
	if m.yes {
		yes = promptCursorStyle.Render("[yes]")
	} else {
		no = promptCursorStyle.Render("[no]")
	}
	return promptQuestionStyle.Render(m.question) + "  " + yes + " / " + no + "\n" +
		promptHelpStyle.Render("y/n answer  ←/→ toggle  ⏎ confirm  esc abort") + "\n"
}

func (m confirmModel) answer() (bump.Answer, error) {
	if m.aborted || !m.done {
		return bump.Answer{}, errPromptAborted
	}
	return bump.Confirmed(m.yes), nil
}

// =============================================================================
// selectModel - pick any number of choices
// =============================================================================

type selectModel struct {
	question string
	choices  []string
	cursor   int
	chosen   map[int]bool
	done     bool
	aborted  bool
}

func newSelectModel(question string, choices []string) selectModel {
	return selectModel{question: question, choices: choices, chosen: make(map[int]bool)}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.aborted = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case " ", "space", "x":
		if len(m.choices) > 0 {
			m.chosen[m.cursor] = !m.chosen[m.cursor]
		}
	case "a":
		all := len(m.selected()) < len(m.choices)
		for i := range m.choices {
			m.chosen[i] = all
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m selectModel) selected() []string {
	var out []string
	for i, c := range m.choices {
		if m.chosen[i] {
			out = append(out, c)
		}
	}
	return out
}

func (m selectModel) View() string {
	if m.done {
		picked := "none"
		if sel := m.selected(); len(sel) > 0 {
			picked = strings.Join(sel, ", ")
		}
		return promptQuestionStyle.Render(m.question) + " " + promptChosenStyle.Render(picked) + "\n"
	}
	if m.aborted {
		return ""
	}

	var b strings.Builder
	b.WriteString(promptQuestionStyle.Render(m.question))
	b.WriteString("\n")
	for i, c := range m.choices {
		box := "[ ]"
		if m.chosen[i] {
			box = promptChosenStyle.Render("[x]")
		}
		line := fmt.Sprintf("  %s %s", box, c)
		if i == m.cursor {
			line = promptCursorStyle.Render("▸") + line[1:]
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(promptHelpStyle.Render("↑/↓ move  space toggle  a all  ⏎ confirm  esc abort"))
	b.WriteString("\n")
	return b.String()
}

func (m selectModel) answer() (bump.Answer, error) {
	if m.aborted || !m.done {
		return bump.Answer{}, errPromptAborted
	}
	return bump.Selection(m.selected()...), nil
}
