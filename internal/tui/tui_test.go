// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"vibe/internal/analysis"
	"vibe/internal/audio"
	"vibe/internal/scheduler"

	tea "github.com/charmbracelet/bubbletea"
)

func loudFrame(seq uint64, t time.Time) scheduler.Frame {
	f := scheduler.Frame{Seq: seq, Time: t}
	for i := range f.Bands {
		f.Bands[i] = 1
	}
	return f
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestFrameSink_LatestWins(t *testing.T) {
	sink := NewFrameSink()
	for seq := uint64(1); seq <= 3; seq++ {
		if err := sink.Send(scheduler.Frame{Seq: seq}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	if f := <-sink.Frames(); f.Seq != 3 {
		t.Errorf("received frame %d, want the latest (3)", f.Seq)
	}
	select {
	case f := <-sink.Frames():
		t.Errorf("unexpected extra frame %d", f.Seq)
	default:
	}

	_ = sink.Close()
	_ = sink.Close()
	if msg := waitForFrame(sink.Frames())(); msg != (framesClosedMsg{}) {
		t.Errorf("closed sink produced %T, want framesClosedMsg", msg)
	}
}

func TestVisualizer_RendersFrames(t *testing.T) {
	sink := NewFrameSink()
	m := NewVisualizerModel(sink, Status{Source: "Monitor of Speakers", Gain: "frame"}, true, nil)

	if m.View() != "Initializing..." {
		t.Error("expected placeholder before the first resize")
	}

	model, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 25})
	start := time.Unix(1700000000, 0)
	model, cmd := model.Update(frameMsg(loudFrame(1, start)))
	if cmd == nil {
		t.Fatal("expected a command waiting for the next frame")
	}
	model, _ = model.Update(frameMsg(loudFrame(2, start.Add(scheduler.Period))))

	v := model.(VisualizerModel)
	if v.canvas.Width() != 80 || v.canvas.Height() != 24 {
		t.Errorf("canvas = %dx%d, want 80x24 beside the status line", v.canvas.Width(), v.canvas.Height())
	}
	if v.fps < 59 || v.fps > 61 {
		t.Errorf("fps = %.1f, want about 60", v.fps)
	}

	view := v.View()
	for _, want := range []string{"█", "Monitor of Speakers", "gain: frame", "60 fps"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if lines := strings.Count(view, "\n"); lines != 24 {
		t.Errorf("view has %d canvas rows, want 24", lines)
	}
}

func TestVisualizer_ToggleStatus(t *testing.T) {
	m := NewVisualizerModel(NewFrameSink(), Status{Source: "file.wav"}, true, nil)
	model, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})

	v := model.(VisualizerModel)
	if v.showStatus || v.canvas.Height() != 20 {
		t.Errorf("status hidden = %v, canvas height %d", !v.showStatus, v.canvas.Height())
	}
	if strings.Contains(v.View(), "file.wav") {
		t.Error("status line still rendered")
	}
}

func TestVisualizer_QuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		m := NewVisualizerModel(NewFrameSink(), Status{}, true, nil)
		if _, cmd := m.Update(msg); !isQuit(cmd) {
			t.Errorf("key %q did not quit", msg.String())
		}
	}

	m := NewVisualizerModel(NewFrameSink(), Status{}, true, nil)
	if _, cmd := m.Update(framesClosedMsg{}); !isQuit(cmd) {
		t.Error("closing the frame stream did not quit")
	}
}

func TestVisualizer_RecordToggle(t *testing.T) {
	recording := false
	toggle := func() (bool, error) {
		recording = !recording
		return recording, nil
	}

	m := NewVisualizerModel(NewFrameSink(), Status{}, true, toggle)
	model, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	if !strings.Contains(model.View(), "REC") {
		t.Error("recording indicator missing")
	}

	failing := NewVisualizerModel(NewFrameSink(), Status{}, true, func() (bool, error) {
		return false, errors.New("disk full")
	})
	model, _ = failing.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if !strings.Contains(model.View(), "disk full") {
		t.Error("toggle error not shown")
	}
}

var testDevices = []audio.Device{
	{ID: 0, Name: "Speakers", MaxOutputChannels: 2, IsDefaultOutput: true},
	{ID: 1, Name: "Microphone", MaxInputChannels: 1},
	{ID: 2, Name: "Monitor of Speakers", MaxInputChannels: 2, IsLoopback: true},
}

func TestDeviceList_StartsOnLoopback(t *testing.T) {
	model, _ := NewDeviceListModel().Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	model, _ = model.Update(devicesMsg{testDevices})

	m := model.(DeviceListModel)
	if m.selectedIndex != 2 {
		t.Errorf("selected %d, want the loopback device", m.selectedIndex)
	}
	if !strings.Contains(m.View(), "[loopback]") {
		t.Error("loopback tag missing from the list")
	}
}

func TestDeviceList_ChooseDevice(t *testing.T) {
	model, _ := NewDeviceListModel().Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	model, _ = model.Update(devicesMsg{testDevices})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m := model.(DeviceListModel); m.activeScreen != DetailScreen {
		t.Fatal("enter did not open the detail screen")
	}

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !isQuit(cmd) {
		t.Error("choosing a device did not quit the picker")
	}
	d, ok := model.(DeviceListModel).Chosen()
	if !ok || d.ID != 1 {
		t.Errorf("chosen = %+v, %v; want the microphone", d, ok)
	}
}

func TestDeviceList_OutputOnlyCannotBeChosen(t *testing.T) {
	model, _ := NewDeviceListModel().Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	model, _ = model.Update(devicesMsg{testDevices})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if isQuit(cmd) {
		t.Error("an output-only device was accepted")
	}
	if _, ok := model.(DeviceListModel).Chosen(); ok {
		t.Error("output-only device reported as chosen")
	}
	if !strings.Contains(model.View(), "no capture channels") {
		t.Error("detail screen does not explain why the device cannot be used")
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if model.(DeviceListModel).activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}
}
