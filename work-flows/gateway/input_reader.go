package gateway

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

const defaultHistorySize = 50

// InputReader returns one trimmed line per call and io.EOF when input ends.
type InputReader interface {
	ReadLine(prompt string) (string, error)
}

// LineReader reads newline-terminated input from any reader. It is used when
// stdin is piped and in tests.
type LineReader struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	return &LineReader{reader: bufio.NewReader(in), out: out}
}

func (r *LineReader) ReadLine(prompt string) (string, error) {
	if r.out != nil && prompt != "" {
		fmt.Fprint(r.out, prompt)
	}
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// InteractiveReader edits each line in a bubbletea text input with
// up/down history.
type InteractiveReader struct {
	history    []string
	maxHistory int
}

// NewInputReader picks the interactive reader on a terminal and a LineReader
// on piped stdin.
func NewInputReader(out io.Writer) InputReader {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return NewLineReader(os.Stdin, out)
	}
	return &InteractiveReader{
		history:    make([]string, 0, defaultHistorySize),
		maxHistory: defaultHistorySize,
	}
}

func (r *InteractiveReader) ReadLine(prompt string) (string, error) {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "Type a message or /help"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 80

	p := tea.NewProgram(newLineModel(ti, r.history), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", err
	}

	result, ok := final.(lineModel)
	if !ok {
		return "", fmt.Errorf("unexpected input model: %T", final)
	}
	if result.eof {
		return "", io.EOF
	}

	input := strings.TrimSpace(result.input.Value())
	if input != "" {
		r.remember(input)
	}
	return input, nil
}

func (r *InteractiveReader) remember(input string) {
	if n := len(r.history); n > 0 && r.history[n-1] == input {
		return
	}
	r.history = append(r.history, input)
	if len(r.history) > r.maxHistory {
		r.history = r.history[1:]
	}
}

type lineModel struct {
	input   textinput.Model
	history []string
	// -1 while editing a fresh line
	cursor int
	stash  string
	done   bool
	eof    bool
}

func newLineModel(input textinput.Model, history []string) lineModel {
	return lineModel{input: input, history: history, cursor: -1}
}

func (m lineModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m lineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.Type {
	case tea.KeyEnter:
		m.done = true
		return m, tea.Quit
	case tea.KeyCtrlC:
		m.input.SetValue("")
		m.done = true
		return m, tea.Quit
	case tea.KeyCtrlD:
		m.input.SetValue("")
		m.done, m.eof = true, true
		return m, tea.Quit
	case tea.KeyUp:
		if len(m.history) == 0 {
			return m, nil
		}
		if m.cursor == -1 {
			m.stash = m.input.Value()
			m.cursor = len(m.history) - 1
		} else if m.cursor > 0 {
			m.cursor--
		}
		m.input.SetValue(m.history[m.cursor])
		m.input.CursorEnd()
		return m, nil
	case tea.KeyDown:
		if m.cursor == -1 {
			return m, nil
		}
		if m.cursor < len(m.history)-1 {
			m.cursor++
			m.input.SetValue(m.history[m.cursor])
		} else {
			m.cursor = -1
			m.input.SetValue(m.stash)
		}
		m.input.CursorEnd()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m lineModel) View() string {
	if m.done {
		return ""
	}
	return m.input.View()
}
