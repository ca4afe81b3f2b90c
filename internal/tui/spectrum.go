// SPDX-License-Identifier: MIT

// Package tui holds the terminal interfaces: a device picker and a live
// spectrum view fed by the analyzer.
package tui

import (
	"fmt"
	"math"
	"strings"

	"solstice/internal/peak"
	"solstice/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8A8A8"))
)

// reportMsg carries one analyzer report into the program.
type reportMsg transport.Report

// doneMsg signals that the analyzer returned.
type doneMsg struct{ err error }

// SpectrumModel draws the latest spectrogram column as a bar chart with
// the dominant frequency underneath.
type SpectrumModel struct {
	title      string
	sampleRate float64
	windowSize int

	width  int
	height int
	ready  bool

	last    transport.Report
	columns int
	peak    *peak.Peak
	done    bool
	err     error
}

// NewSpectrumModel creates a view for columns of windowSize-point
// transforms at sampleRate.
func NewSpectrumModel(title string, sampleRate float64, windowSize int) SpectrumModel {
	return SpectrumModel{
		title:      title,
		sampleRate: sampleRate,
		windowSize: windowSize,
	}
}

func (m SpectrumModel) Init() tea.Cmd {
	return nil
}

func (m SpectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true

	case reportMsg:
		m.last = transport.Report(msg)
		m.columns++
		switch {
		case msg.Peak != nil:
			m.peak = &peak.Peak{Bin: msg.Peak.Bin, Frequency: msg.Peak.Frequency, Magnitude: msg.Peak.Magnitude}
		case len(msg.Values) > 0:
			if p, err := peak.Find(msg.Values, m.sampleRate, m.windowSize); err == nil {
				m.peak = &p
			}
		}

	case doneMsg:
		m.done = true
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keyQuit) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SpectrumModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	rows := max(1, m.height-6)
	if len(m.last.Values) > 0 {
		sb.WriteString(barStyle.Render(Bars(m.last.Values, max(1, m.width), rows)))
	} else {
		sb.WriteString(strings.Repeat("\n", rows-1))
	}
	sb.WriteString("\n\n")

	status := fmt.Sprintf("column %d @ %.2fs", m.last.Index, m.last.Time)
	if m.peak != nil {
		status += fmt.Sprintf(" • peak %.1f Hz (bin %d)", m.peak.Frequency, m.peak.Bin)
	}
	switch {
	case m.err != nil:
		status += fmt.Sprintf(" • stopped: %v", m.err)
	case m.done:
		status += " • finished"
	}
	sb.WriteString(statusStyle.Render(status))
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("q: Quit"))
	return sb.String()
}

// Bars renders values as a width x rows block chart. Bins are grouped so
// each character column shows the largest value of its group, scaled
// between the column's minimum and maximum.
func Bars(values []float64, width, rows int) string {
	if len(values) == 0 || width < 1 || rows < 1 {
		return ""
	}
	width = min(width, len(values))

	heights := make([]int, width)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	for c := 0; c < width; c++ {
		start := c * len(values) / width
		end := (c + 1) * len(values) / width
		top := values[start]
		for _, v := range values[start:end] {
			top = math.Max(top, v)
		}
		if span > 0 {
			heights[c] = int(math.Round((top - lo) / span * float64(rows)))
		}
	}

	var sb strings.Builder
	for r := rows; r >= 1; r-- {
		for _, h := range heights {
			if h >= r {
				sb.WriteRune('█')
			} else {
				sb.WriteByte(' ')
			}
		}
		if r > 1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// ProgramTransport forwards reports into a running program.
type ProgramTransport struct {
	p *tea.Program
}

var _ transport.Transport = (*ProgramTransport)(nil)

func NewProgramTransport(p *tea.Program) *ProgramTransport {
	return &ProgramTransport{p: p}
}

func (t *ProgramTransport) Send(r transport.Report) error {
	t.p.Send(reportMsg(r))
	return nil
}

func (t *ProgramTransport) Close() error { return nil }

// RunSpectrum shows m full screen while analyse feeds it through a
// ProgramTransport. It returns when the user quits.
func RunSpectrum(m SpectrumModel, analyse func(sink transport.Transport) error) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		err := analyse(NewProgramTransport(p))
		p.Send(doneMsg{err: err})
	}()
	_, err := p.Run()
	return err
}
