package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/robodog/pkg/avoid"
	"github.com/gwillem/robodog/pkg/control"
	"github.com/gwillem/robodog/pkg/monitoring"
)

type RunCommand struct {
	Hz       int   `long:"hz" default:"50" description:"Scheduler tick rate"`
	Simulate bool  `long:"sim" description:"Ignore configured ports and simulate all hardware"`
	Headless bool  `long:"headless" description:"Run without the terminal UI, logging to stderr"`
	Seed     int64 `long:"seed" description:"Seed of the simulated rangefinder (0 picks one)"`
}

const (
	headerHeight = 2 // title + blank line
	panelHeight  = 6 // display + status rows
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

const distanceSeries = "distance"

var stateColors = map[avoid.State]string{
	avoid.Clear:   "46",  // green
	avoid.Warning: "226", // yellow
	avoid.Danger:  "196", // red
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	lcdStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("28")).Foreground(lipgloss.Color("120")).Width(20)
)

type runModel struct {
	k        *kernel
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	snap     control.Snapshot
	quitting bool
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg control.Snapshot
type logMsg string

func waitForState(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 12
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-panelHeight-footerHeight-borderSize, 8)
	return width, height
}

func initialRunModel(k *kernel) runModel {
	chart := streamlinechart.New(80, 12,
		streamlinechart.WithYRange(0, 150),
	)
	chart.SetDataSetStyles(distanceSeries, runes.ThinLineStyle, lipgloss.NewStyle().Foreground(lipgloss.Color("51")))

	return runModel{
		k:     k,
		chart: &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.k.ctrl),
		waitForLog(m.k.ctrl),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "[", "]":
			if m.k.ranger != nil {
				delta := -5.0
				if key == "]" {
					delta = 5
				}
				m.k.ranger.Move(delta)
			}
		default:
			m.k.press(key)
		}

	case stateMsg:
		snap := control.Snapshot(msg)
		if snap.Ticks != m.snap.Ticks && snap.Reading.OK {
			m.chart.PushDataSet(distanceSeries, snap.Reading.Distance)
			m.chart.DrawAll()
		}
		m.snap = snap
		if m.k.hub != nil {
			m.k.hub.SetStatus(statusOf(snap))
		}
		return m, waitForState(m.k.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.k.ctrl)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Robot stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("robodog"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.k.ctrl.Hz()))
	if m.k.pwm != nil || m.k.ranger != nil {
		sb.WriteString(statusStyle.Render("  [simulated]"))
	}
	if m.k.hub != nil {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  ws %s (%d operators)", m.k.addr, m.k.hub.OperatorCount())))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	lcd := lcdStyle.Render(strings.Join(m.k.display.Lines(), "\n"))
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, lcd, "  ", m.renderStatus()))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 40))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Keys 1-4 select a mode, A-Z send a command, [ ] move the obstacle, q quits")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m runModel) renderStatus() string {
	s := m.snap
	stateStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(stateColors[s.State]))

	lights := make([]string, 4)
	for i := range lights {
		if m.k.lights.Lit() == i+1 {
			lights[i] = "●"
		} else {
			lights[i] = statusStyle.Render("○")
		}
	}

	rows := []string{
		fmt.Sprintf("mode     %s (%s)", s.Mode, s.Posture),
		fmt.Sprintf("state    %s  %s", stateStyle.Render(s.State.String()), s.Move),
		fmt.Sprintf("distance %s  near-count %d", s.Reading, s.Count),
		fmt.Sprintf("speed    %d/10  actions %d  commands %d", s.Speed, s.Actions, s.Commands),
		fmt.Sprintf("lights   %s  beeps %d", strings.Join(lights, " "), m.k.buzzer.Count()),
	}
	return strings.Join(rows, "\n")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, found, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}

	k, err := buildKernel(cfg, kernelOptions{Simulate: c.Simulate, Hz: c.Hz, Seed: c.Seed})
	if err != nil {
		return fmt.Errorf("build robot: %w", err)
	}
	defer k.Close()

	if !found {
		fmt.Printf("No %s found, running simulated. Run 'robodog setup' to assign ports.\n", opts.Config)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if c.Headless {
		return c.runHeadless(ctx, k)
	}

	// Keep stray log output from corrupting the alt screen.
	monitoring.SetLogger(nil)

	k.start(ctx, k.ctrl.Logf)
	done := k.serve(ctx)

	p := tea.NewProgram(initialRunModel(k), tea.WithAltScreen())
	_, runErr := p.Run()

	// The deferred Close must not pull the hardware from under a running tick.
	cancel()
	if err := <-done; err != nil {
		log.Printf("Controller error: %v", err)
	}
	if runErr != nil {
		return fmt.Errorf("run TUI: %w", runErr)
	}
	return nil
}

func (c *RunCommand) runHeadless(ctx context.Context, k *kernel) error {
	k.start(ctx, log.Printf)

	go func() {
		for line := range k.ctrl.Logs() {
			log.Println(line)
		}
	}()
	go func() {
		for snap := range k.ctrl.States() {
			if k.hub != nil {
				k.hub.SetStatus(statusOf(snap))
			}
		}
	}()

	return <-k.serve(ctx)
}
