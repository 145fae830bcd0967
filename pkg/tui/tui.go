// Package tui provides a terminal user interface for score2cnc
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/james-see/score2cnc/pkg/converter"
	"github.com/james-see/score2cnc/pkg/score"
)

// Machine-shop color scheme: safety amber on steel
var (
	amber     = lipgloss.Color("#FFB000")
	steel     = lipgloss.Color("#A7B1BC")
	coolant   = lipgloss.Color("#4FC3F7")
	panelGray = lipgloss.Color("#2B2F33")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			Background(panelGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(steel).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(coolant).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF3B30")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// Action is what a menu item does with the picked score
type Action int

const (
	ActionGCode Action = iota
	ActionPreview
	ActionInspect
	ActionExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Action      Action
	OutputExt   string
}

var menuItems = []MenuItem{
	{Title: "Score → G-code", Description: "Turn a three-part score into a CNC program", Action: ActionGCode, OutputExt: ".nc"},
	{Title: "Score → MIDI preview", Description: "Render the quantized motion plan back to MIDI", Action: ActionPreview, OutputExt: ".mid"},
	{Title: "Inspect score", Description: "Show parts, grid and motion without writing anything", Action: ActionInspect},
	{Title: "Exit", Description: "Exit the application", Action: ActionExit},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	cfg          converter.Config
	selectedFile string
	item         MenuItem
	result       *converter.Result
	report       *converter.Report
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	result *converter.Result
	report *converter.Report
	err    error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model converting with cfg
func New(cfg converter.Config) Model {
	fp := filepicker.New()
	fp.AllowedTypes = score.SupportedExtensions()
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Line
	s.Style = lipgloss.NewStyle().Foreground(amber)

	return Model{
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
		cfg:        cfg,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs to receive all messages while it is open
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.result = msg.result
		m.report = msg.report
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		m.item = menuItems[m.menuIndex]
		if m.item.Action == ActionExit {
			return m, tea.Quit
		}
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.result = nil
		m.report = nil
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performConversion() tea.Cmd {
	item, input, cfg := m.item, m.selectedFile, m.cfg
	return func() tea.Msg {
		conv := converter.New(cfg)

		if item.Action == ActionInspect {
			s, err := score.Load(input)
			if err != nil {
				return conversionDoneMsg{err: err}
			}
			report, err := conv.Inspect(s)
			return conversionDoneMsg{report: report, err: err}
		}

		output := strings.TrimSuffix(input, filepath.Ext(input)) + item.OutputExt
		res, err := conv.ConvertFile(input, output)
		return conversionDoneMsg{result: res, err: err}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(coolant).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	s.WriteString(statusStyle.Render(fmt.Sprintf("tempo %g qpm • X %g..%g Y %g..%g Z %g..%g mm",
		m.cfg.Tempo,
		m.cfg.Envelope[converter.AxisX].Min, m.cfg.Envelope[converter.AxisX].Max,
		m.cfg.Envelope[converter.AxisY].Min, m.cfg.Envelope[converter.AxisY].Max,
		m.cfg.Envelope[converter.AxisZ].Min, m.cfg.Envelope[converter.AxisZ].Max)))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT SCORE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Processing %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render("  " + m.item.Title))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	switch {
	case m.err != nil:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s failed: %s", m.item.Title, m.err.Error())))
	case m.report != nil:
		s.WriteString(titleStyle.Render(" INSPECTION "))
		s.WriteString("\n\n")
		_, _ = m.report.WriteTo(&s)
		s.WriteString(fmt.Sprintf("Play time:    %s", playTime(m.report.Seconds)))
	case m.result != nil:
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:     %s\n", filepath.Base(m.result.Input)))
		s.WriteString(fmt.Sprintf("Output:    %s (%s)\n", filepath.Base(m.result.Output), humanize.Bytes(uint64(m.result.Bytes))))
		s.WriteString(fmt.Sprintf("Spans:     %s\n", humanize.Comma(int64(len(m.result.Plan.Spans)))))
		s.WriteString(fmt.Sprintf("Play time: %s", playTime(m.result.Plan.Seconds())))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func playTime(seconds float64) string {
	return durafmt.Parse(time.Duration(seconds * float64(time.Second))).LimitFirstN(2).String()
}

func asciiLogo() string {
	logo := `
   ____   ____ ___  ____  _____ ____   ____ _   _  ____
  / ___| / ___/ _ \|  _ \| ____|___ \ / ___| \ | |/ ___|
  \___ \| |  | | | | |_) |  _|   __) | |   |  \| | |
   ___) | |__| |_| |  _ <| |___ / __/| |___| |\  | |___
  |____/ \____\___/|_| \_\_____|_____|\____|_| \_|\____|
`
	return lipgloss.NewStyle().Foreground(amber).Render(logo)
}

// Run starts the TUI application
func Run(cfg converter.Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
