// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	"solstice/internal/audio"
	"solstice/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBars(t *testing.T) {
	got := Bars([]float64{0, 1, 2, 3}, 4, 3)
	want := "   █\n  ██\n ███"
	assert.Equal(t, want, got)
}

func TestBarsGroupsBins(t *testing.T) {
	// Eight bins in two columns: each column shows its group maximum.
	got := Bars([]float64{0, 0, 4, 0, 0, 1, 0, 0}, 2, 4)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "█ ", lines[0])
	assert.Equal(t, "██", lines[3])
}

func TestBarsFlatAndEmpty(t *testing.T) {
	assert.Equal(t, "", Bars(nil, 10, 3))
	assert.Equal(t, "  \n  ", Bars([]float64{-12, -12}, 5, 2))
}

func TestSpectrumModel(t *testing.T) {
	var m tea.Model = NewSpectrumModel("live", 1000, 8)
	assert.Equal(t, "Initializing...", m.View())

	m, _ = m.Update(tea.WindowSizeMsg{Width: 20, Height: 12})
	m, _ = m.Update(reportMsg(transport.Report{Index: 3, Time: 1.5, Values: []float64{0, 1, 9, 2}}))

	view := m.View()
	assert.Contains(t, view, "column 3 @ 1.50s")
	// Bin 2 of an 8-point transform at 1000 Hz.
	assert.Contains(t, view, "peak 250.0 Hz (bin 2)")

	m, _ = m.Update(doneMsg{})
	assert.Contains(t, m.View(), "finished")

	m, _ = m.Update(doneMsg{err: errors.New("device lost")})
	assert.Contains(t, m.View(), "stopped: device lost")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSpectrumModelPeakReport(t *testing.T) {
	var m tea.Model = NewSpectrumModel("live", 44100, 1024)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 20, Height: 12})
	m, _ = m.Update(reportMsg(transport.Report{Mode: "peak", Peak: &transport.Peak{Bin: 10, Frequency: 430.7}}))
	assert.Contains(t, m.View(), "peak 430.7 Hz (bin 10)")
}

func TestDeviceListModelPick(t *testing.T) {
	devices := []audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{ID: 1, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
		{ID: 2, Name: "Interface", MaxInputChannels: 4, DefaultSampleRate: 96000},
	}
	var m tea.Model = NewDeviceListModel(devices)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})

	view := m.View()
	assert.NotContains(t, view, "Speakers")
	assert.Contains(t, view, "Mic")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "Configure Device: Interface")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	sel, ok := m.(DeviceListModel).Chosen()
	require.True(t, ok)
	assert.Equal(t, Selection{DeviceID: 2, SampleRate: 88200}, sel)
}

func TestDeviceListModelQuit(t *testing.T) {
	var m tea.Model = NewDeviceListModel(nil)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	assert.Contains(t, m.View(), "No input devices found.")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := m.(DeviceListModel).Chosen()
	assert.False(t, ok)
}
