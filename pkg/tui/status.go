// Package tui renders the live on-duty view of an open shift.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fieldcrew/shiftlog/pkg/core/clock"
	"github.com/fieldcrew/shiftlog/pkg/core/model"
)

const (
	colorOnDuty = "#22C55E"
	colorPaused = "#F59E0B"
	colorMuted  = "#6B7280"
	colorAlert  = "#EF4444"
)

// PauseFunc toggles pause on the shift and returns its new state
type PauseFunc func(ctx context.Context, session *model.ShiftRecord) (*model.ShiftRecord, error)

// tickInterval is how often the timer refreshes
const tickInterval = time.Second

// tickMsg is sent by the clock watcher to refresh the timer
type tickMsg time.Time

type pauseResultMsg struct {
	session *model.ShiftRecord
	err     error
}

// StatusModel shows the elapsed worked time of an open shift, refreshed once per second
type StatusModel struct {
	ctx     context.Context
	session *model.ShiftRecord
	now     clock.Now
	toggle  PauseFunc
	loc     *time.Location

	elapsed      clock.Result
	err          error
	busy         bool
	endRequested bool
}

// NewStatusModel creates the status view. toggle may be nil to disable the pause key.
func NewStatusModel(ctx context.Context, session *model.ShiftRecord, now clock.Now, toggle PauseFunc, loc *time.Location) StatusModel {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	m := StatusModel{ctx: ctx, session: session, now: now, toggle: toggle, loc: loc}
	m.refresh()
	return m
}

// watchTicks feeds a tickMsg to send on every clock tick until ctx is done
func watchTicks(ctx context.Context, interval time.Duration, send func(tea.Msg)) {
	clock.Watch(ctx, interval, func(t time.Time) {
		send(tickMsg(t))
	})
}

// Init does nothing; RunStatus drives the ticks
func (m StatusModel) Init() tea.Cmd {
	return nil
}

func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, nil

	case pauseResultMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.session = msg.session
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "p", "P":
			if m.toggle == nil || m.busy {
				return m, nil
			}
			m.busy = true
			ctx, session, toggle := m.ctx, m.session, m.toggle
			return m, func() tea.Msg {
				updated, err := toggle(ctx, session)
				return pauseResultMsg{session: updated, err: err}
			}
		case "e", "E":
			m.endRequested = true
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *StatusModel) refresh() {
	m.elapsed = clock.Elapsed(clock.Input{
		Start:       m.session.StartTime,
		End:         m.session.EndTime,
		Now:         m.now(),
		TotalPaused: m.session.TotalPaused(),
		IsPaused:    m.session.IsPaused,
		PausedAt:    m.session.PausedAt,
	})
}

func (m StatusModel) View() string {
	state, color := "ON DUTY", colorOnDuty
	if m.session.IsPaused {
		state, color = "PAUSED", colorPaused
	}

	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Bold(true).
		Render("● " + state)

	timer := lipgloss.NewStyle().
		Bold(true).
		Padding(1, 4).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Render(clock.FormatHMS(m.elapsed.Worked))

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))

	var details []string
	details = append(details, fmt.Sprintf("Site:    %s", m.session.LocationName))
	if m.session.Address != "" {
		details = append(details, fmt.Sprintf("Address: %s", m.session.Address))
	}
	details = append(details, fmt.Sprintf("Started: %s", m.session.StartTime.In(m.loc).Format("Mon 02 Jan 15:04")))
	if m.session.TotalPausedMs > 0 {
		details = append(details, fmt.Sprintf("Paused:  %s", clock.FormatHMS(m.session.TotalPaused())))
	}

	lines := []string{header, timer, strings.Join(details, "\n")}

	if m.elapsed.Anomaly {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color(colorAlert)).
			Render("Device clock looks wrong, elapsed time was clamped"))
	}
	if m.err != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color(colorAlert)).
			Render("Error: "+m.err.Error()))
	}

	help := "e end shift • q quit"
	if m.toggle != nil {
		pauseKey := "p pause"
		if m.session.IsPaused {
			pauseKey = "p resume"
		}
		help = pauseKey + " • " + help
	}
	lines = append(lines, muted.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

// EndRequested reports whether the user asked to end the shift before leaving the view
func (m StatusModel) EndRequested() bool {
	return m.endRequested
}

// Session returns the shift as last seen by the view, including pause changes made in it
func (m StatusModel) Session() *model.ShiftRecord {
	return m.session
}

// Worked returns the worked time at the last refresh
func (m StatusModel) Worked() time.Duration {
	return m.elapsed.Worked
}

// RunStatus runs the status view until the user quits or ctx is cancelled
func RunStatus(ctx context.Context, session *model.ShiftRecord, now clock.Now, toggle PauseFunc, loc *time.Location) (StatusModel, error) {
	p := tea.NewProgram(NewStatusModel(ctx, session, now, toggle, loc), tea.WithContext(ctx))

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	go watchTicks(watchCtx, tickInterval, p.Send)

	final, err := p.Run()
	if err != nil {
		return StatusModel{}, fmt.Errorf("failed to run status view: %w", err)
	}
	return final.(StatusModel), nil
}
