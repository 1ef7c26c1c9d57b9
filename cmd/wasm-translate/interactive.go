package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-translator/environ"
	"github.com/wippyai/wasm-translator/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserModel struct {
	err      error
	info     *environ.ModuleInfo
	filename string
	funcs    []funcInfo
	visible  []int
	filter   textinput.Model
	selected int
	state    browserState
}

type funcInfo struct {
	name     string
	sig      string
	exports  []string
	index    wasm.Index
	bodySize int
	imported bool
}

type browserState int

const (
	stateList browserState = iota
	stateDetail
)

func newBrowserModel(filename string) *browserModel {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "name"
	ti.Width = 40
	ti.Focus()
	return &browserModel{
		filename: filename,
		filter:   ti,
		state:    stateList,
	}
}

type loadedMsg struct {
	err  error
	info *environ.ModuleInfo
}

func (m *browserModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *browserModel) loadModule() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	info, _, err := environ.Translate(data)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{info: info}
}

func collectFuncs(info *environ.ModuleInfo) []funcInfo {
	exports := make(map[wasm.Index][]string)
	for _, exp := range info.Exports {
		if exp.Kind == wasm.KindFunc {
			exports[exp.Index] = append(exports[exp.Index], exp.Name)
		}
	}

	funcs := make([]funcInfo, info.FunctionCount())
	for i := range funcs {
		idx := wasm.Index(i)
		fi := funcInfo{
			index:    idx,
			name:     info.FunctionName(idx),
			exports:  exports[idx],
			imported: info.IsImportedFunction(idx),
		}
		if fi.name == "" {
			fi.name = fmt.Sprintf("func[%d]", idx)
		}
		if sig, ok := info.FunctionType(idx); ok {
			fi.sig = sig.String()
		}
		if body, ok := info.Body(idx); ok {
			fi.bodySize = len(body.Data)
		}
		funcs[i] = fi
	}
	return funcs
}

func (m *browserModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, f := range m.funcs {
		if query == "" || strings.Contains(strings.ToLower(f.name), query) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browserModel) current() (funcInfo, bool) {
	if m.selected >= len(m.visible) {
		return funcInfo{}, false
	}
	return m.funcs[m.visible[m.selected]], true
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "up":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateList && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if _, ok := m.current(); ok && m.state == stateList {
				m.state = stateDetail
			}
			return m, nil

		case "esc":
			if m.state == stateDetail {
				m.state = stateList
				return m, nil
			}
			return m, tea.Quit
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.info = msg.info
		m.funcs = collectFuncs(msg.info)
		m.applyFilter()
		return m, nil
	}

	if m.state != stateList {
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(describe(m.err) + "\n\nPress esc to quit.")
	}

	if m.info == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Translate"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateList:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		for i, idx := range m.visible {
			line := m.formatFunc(m.funcs[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no matching functions"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter details • esc quit"))

	case stateDetail:
		f, _ := m.current()
		b.WriteString(fmt.Sprintf("%s\n\n", funcStyle.Render(f.name)))
		b.WriteString(fmt.Sprintf("index:     %d\n", f.index))
		b.WriteString(fmt.Sprintf("signature: %s\n", typeStyle.Render(f.sig)))
		if f.imported {
			b.WriteString("imported:  yes\n")
		} else {
			b.WriteString(fmt.Sprintf("body:      %d bytes\n", f.bodySize))
		}
		if len(f.exports) > 0 {
			b.WriteString(fmt.Sprintf("exports:   %s\n", resultStyle.Render(strings.Join(f.exports, ", "))))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • ctrl+c quit"))
	}

	return b.String()
}

func (m *browserModel) formatFunc(f funcInfo) string {
	kind := "defined"
	if f.imported {
		kind = "import"
	}
	return fmt.Sprintf("%s %s %s", funcStyle.Render(f.name), typeStyle.Render(f.sig), helpStyle.Render(kind))
}

func runInteractive(filename string) error {
	m := newBrowserModel(filename)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.err
}
