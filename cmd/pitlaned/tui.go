package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"pitlane/pkg/engine"
	"pitlane/pkg/protocol"
)

// runTUI shows the live lap table until the user quits or ctx ends.
func runTUI(ctx context.Context, hub *engine.Hub) error {
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	m := newLapTable(sub)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := p.Run()
	if err == tea.ErrProgramKilled {
		return nil
	}
	return err
}

type slotRow struct {
	lap      int
	lane     int
	last     float64
	best     float64
	throttle byte
	brake    bool
}

type lapTable struct {
	events <-chan engine.Event
	rows   [protocol.NumSlots]slotRow
	status string
}

type eventMsg engine.Event

type streamClosedMsg struct{}

func newLapTable(events <-chan engine.Event) lapTable {
	return lapTable{events: events, status: "waiting for powerbase"}
}

func (m lapTable) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m lapTable) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m lapTable) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case streamClosedMsg:
		return m, tea.Quit
	case eventMsg:
		m.apply(engine.Event(msg))
		return m, m.waitForEvent()
	}
	return m, nil
}

func (m *lapTable) apply(ev engine.Event) {
	switch data := ev.Data.(type) {
	case engine.LapEvent:
		if data.Slot < 1 || data.Slot > protocol.NumSlots {
			return
		}
		row := &m.rows[data.Slot-1]
		row.lap = data.Lap
		row.lane = data.Lane
		row.last = data.Seconds
		row.best = data.BestSeconds
		m.status = "racing"
	case engine.ControllerEvent:
		if data.Slot < 1 || data.Slot > protocol.NumSlots {
			return
		}
		row := &m.rows[data.Slot-1]
		row.throttle = data.Throttle
		row.brake = data.Brake
	case engine.HeartbeatEvent:
		m.status = "HEARTBEAT FAILED: " + data.Message
	}
}

func (m lapTable) View() string {
	var b strings.Builder
	b.WriteString("pitlane  (q to quit)\n\n")
	b.WriteString("slot  lap  lane   last    best  throttle\n")
	for i, row := range m.rows {
		brake := " "
		if row.brake {
			brake = "B"
		}
		b.WriteString(fmt.Sprintf("  %d   %3d   %s   %s  %s   %3d %s\n",
			i+1, row.lap, laneLabel(row.lane),
			formatSeconds(row.last), formatSeconds(row.best),
			row.throttle, brake))
	}
	b.WriteString("\n" + m.status + "\n")
	return b.String()
}

func laneLabel(lane int) string {
	switch lane {
	case 1:
		return "L1"
	case 2:
		return "L2"
	}
	return "--"
}

func formatSeconds(s float64) string {
	if s == 0 {
		return "  --- "
	}
	return fmt.Sprintf("%6.2f", s)
}
