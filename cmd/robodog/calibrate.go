package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/robodog/pkg/robot"
)

type CalibrateCommand struct{}

func (c *CalibrateCommand) Execute(args []string) error {
	cfg, _, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	if cfg.Actuator.Port == "" {
		fmt.Fprintln(os.Stderr, "No leg servo bus configured. Run 'robodog setup' first.")
		os.Exit(1)
	}

	fmt.Println(subHeaderStyle.Render("━━━ Calibrating leg servos ━━━"))
	fmt.Println()

	bus, err := openLegBus(cfg.Actuator.Port)
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}
	defer bus.Close()

	ctx := context.Background()
	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	found, err := bus.Scan(scanCtx, 1, 4)
	cancel()
	if err != nil {
		return fmt.Errorf("scan bus: %w", err)
	}

	servoMap := make(map[robot.Leg]*feetech.Servo)
	for _, fs := range found {
		leg, _, ok := cfg.Actuator.Servos.ByID(fs.ID)
		if !ok {
			continue
		}
		servo := feetech.NewServo(bus, fs.ID, fs.Model)
		// Torque off so the legs can be moved by hand.
		servo.Disable(ctx)
		servoMap[leg] = servo
	}
	if len(servoMap) != 4 {
		return fmt.Errorf("found %d of 4 leg servos on %s", len(servoMap), cfg.Actuator.Port)
	}

	fmt.Println("Move each leg to its minimum AND maximum positions.")
	fmt.Println("The minimum becomes 0 degrees, the maximum 180 degrees.")
	fmt.Println()

	model := newCalibrationModel(servoMap)
	for _, leg := range robot.AllLegs() {
		pos, _ := servoMap[leg].Position(ctx)
		model.cur[leg] = pos
		model.min[leg] = pos
		model.max[leg] = pos
	}

	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("run calibration: %w", err)
	}
	cm := finalModel.(calibrationModel)

	for _, leg := range robot.AllLegs() {
		sc := cfg.Actuator.Servos[leg]
		sc.RangeMin = cm.min[leg]
		sc.RangeMax = cm.max[leg]
		cfg.Actuator.Servos[leg] = sc
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Println(successStyle.Render("Leg servos calibrated."))
	return nil
}

// calibrationModel tracks the raw position range of every leg servo.
type calibrationModel struct {
	servos   map[robot.Leg]*feetech.Servo
	cur      map[robot.Leg]int
	min      map[robot.Leg]int
	max      map[robot.Leg]int
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(servos map[robot.Leg]*feetech.Servo) calibrationModel {
	return calibrationModel{
		servos: servos,
		cur:    make(map[robot.Leg]int),
		min:    make(map[robot.Leg]int),
		max:    make(map[robot.Leg]int),
	}
}

func pollTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return pollTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for leg, servo := range m.servos {
			pos, err := servo.Position(ctx)
			if err != nil {
				continue
			}
			m.cur[leg] = pos
			m.min[leg] = min(m.min[leg], pos)
			m.max[leg] = max(m.max[leg], pos)
		}
		return m, pollTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableLegStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	legs := robot.AllLegs()
	rows := make([][]string, 0, len(legs))
	ranges := make([]int, 0, len(legs))
	for _, leg := range legs {
		r := m.max[leg] - m.min[leg]
		ranges = append(ranges, r)
		rows = append(rows, []string{
			leg.String(),
			strconv.Itoa(m.cur[leg]),
			strconv.Itoa(m.min[leg]),
			strconv.Itoa(m.max[leg]),
			strconv.Itoa(r),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Leg", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableLegStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 1000 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))
	return sb.String()
}

type ProfileCommand struct {
	Leg    string `long:"leg" description:"Leg to edit (front_right, front_left, rear_left, rear_right)"`
	Import string `long:"import" description:"Replace all gait profiles with a calibration JSON file"`
}

func (c *ProfileCommand) Execute(args []string) error {
	cfg, _, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}

	if c.Import != "" {
		cal, err := robot.LoadCalibration(c.Import)
		if err != nil {
			return err
		}
		cfg.Gait.Calibration = cal
		if err := cfg.SaveTo(opts.Config); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println(successStyle.Render("Imported gait profiles from " + c.Import))
		return nil
	}

	leg, ok := robot.ParseLeg(c.Leg)
	if !ok {
		var options []huh.Option[robot.Leg]
		for _, l := range robot.AllLegs() {
			options = append(options, huh.NewOption(l.String(), l))
		}
		err := huh.NewForm(huh.NewGroup(
			huh.NewSelect[robot.Leg]().
				Title("Which leg?").
				Options(options...).
				Value(&leg),
		)).Run()
		if err != nil {
			fmt.Println()
			return nil
		}
	}

	if cfg.Gait.Calibration == nil {
		cfg.Gait.Calibration = robot.DefaultCalibration()
	}
	p := cfg.Gait.Calibration[leg]

	fields := []struct {
		title string
		value *float64
	}{
		{"Stand", &p.Stand},
		{"Sit", &p.Sit},
		{"Lift high", &p.LiftHigh},
		{"Lift low", &p.LiftLow},
		{"Push high", &p.PushHigh},
		{"Push low", &p.PushLow},
	}

	text := make([]string, len(fields))
	inputs := make([]huh.Field, len(fields))
	for i, f := range fields {
		text[i] = strconv.FormatFloat(*f.value, 'f', -1, 64)
		inputs[i] = huh.NewInput().
			Title(f.title).
			Value(&text[i]).
			Validate(validAngle)
	}

	if err := huh.NewForm(huh.NewGroup(inputs...).Title("Gait profile of " + leg.String())).Run(); err != nil {
		fmt.Println()
		return nil
	}

	for i, f := range fields {
		*f.value, _ = strconv.ParseFloat(strings.TrimSpace(text[i]), 64)
	}
	if !p.Valid() {
		return fmt.Errorf("profile out of range [%g, %g]", robot.MinAngle, robot.MaxAngle)
	}
	cfg.Gait.Calibration[leg] = p

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Println(successStyle.Render("Saved gait profile of " + leg.String()))
	return nil
}

func validAngle(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if !(robot.Limits{Min: robot.MinAngle, Max: robot.MaxAngle}).Contains(v) {
		return fmt.Errorf("must be within [%g, %g]", robot.MinAngle, robot.MaxAngle)
	}
	return nil
}
