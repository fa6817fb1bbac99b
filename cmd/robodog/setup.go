package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/robodog/pkg/robot"
	"github.com/gwillem/robodog/pkg/sensor"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const legBusBaud = 1_000_000

type SetupCommand struct {
	SkipWiggle bool `long:"skip-wiggle" description:"Keep servo ids 1-4 as leg channels without identifying each leg"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("robodog setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, _, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}

	fmt.Println("Scanning serial ports...")
	fmt.Println()

	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}

	var rest []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		if cfg.Actuator.Port == "" || cfg.Actuator.Port == port {
			if servos, ok := probeLegBus(port); ok {
				fmt.Printf("  Found leg servo bus on %s\n", port)
				cfg.Actuator.Port = port
				cfg.Actuator.Baud = legBusBaud
				if !c.SkipWiggle {
					cfg.Actuator.Servos = identifyLegs(port, servos)
				}
				continue
			}
		}
		if d, ok := probeRangefinder(port); ok {
			fmt.Printf("  Found rangefinder on %s (%.1f cm)\n", port, d)
			cfg.Sensor.Port = port
			continue
		}
		rest = append(rest, port)
	}

	if cfg.Actuator.Port == "" {
		fmt.Println(dimStyle.Render("  No leg servo bus found, legs will be simulated."))
	}
	if cfg.Sensor.Port == "" {
		fmt.Println(dimStyle.Render("  No rangefinder found, distance will be simulated."))
	}
	fmt.Println()

	if err := chooseLinks(cfg, rest); err != nil {
		return err
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the robot with: " + headerStyle.Render("robodog run"))
	return nil
}

func openLegBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: legBusBaud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

// probeLegBus reports the servos on port when it carries exactly ids 1-4.
func probeLegBus(port string) ([]feetech.FoundServo, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := openLegBus(port)
	if err != nil {
		return nil, false
	}
	defer bus.Close()

	servos, err := bus.Scan(ctx, 1, 4)
	if err != nil {
		return nil, false
	}
	return servos, isLegSet(servos)
}

func isLegSet(servos []feetech.FoundServo) bool {
	if len(servos) != 4 {
		return false
	}
	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for i := 1; i <= 4; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}

// probeRangefinder takes a few measurements and reports the first valid one.
func probeRangefinder(port string) (float64, bool) {
	rf, err := sensor.Open(port, 0)
	if err != nil {
		return 0, false
	}
	defer rf.Close()

	for i := 0; i < 3; i++ {
		if d := rf.RawMeasureDistance(); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// identifyLegs wiggles each servo and asks which leg moved.
func identifyLegs(port string, found []feetech.FoundServo) robot.Servos {
	servos := robot.DefaultServos()

	bus, err := openLegBus(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reopening bus: %v\n", err)
		return servos
	}
	defer bus.Close()

	remaining := robot.AllLegs()
	for _, fs := range found {
		servo := feetech.NewServo(bus, fs.ID, fs.Model)
		wiggle(servo)

		var options []huh.Option[robot.Leg]
		for _, leg := range remaining {
			options = append(options, huh.NewOption(leg.String(), leg))
		}

		var leg robot.Leg
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[robot.Leg]().
					Title(fmt.Sprintf("Which leg is servo %d?", fs.ID)).
					Description("The leg that just wiggled").
					Options(options...).
					Value(&leg),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Println()
			os.Exit(0)
		}

		sc := servos[leg]
		sc.ID = fs.ID
		servos[leg] = sc
		for i, l := range remaining {
			if l == leg {
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	return servos
}

func wiggle(servo *feetech.Servo) {
	ctx := context.Background()

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return
	}
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return
	}

	wiggleAmount := 30
	moveTimeMs := 500
	for _, pos := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, pos, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}

	servo.Disable(ctx)
}

// chooseLinks asks for the command link port, the websocket address and the
// telemetry database.
func chooseLinks(cfg *robot.Config, ports []string) error {
	fmt.Println(subHeaderStyle.Render("━━━ Command links ━━━"))
	fmt.Println()

	options := []huh.Option[string]{huh.NewOption("None", "")}
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}

	serialPort := cfg.Link.SerialPort
	wsAddr := cfg.Link.WebSocket
	dbPath := cfg.Telemetry.Path

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Serial command link").
				Description("Port of the Bluetooth UART module").
				Options(options...).
				Value(&serialPort),
			huh.NewInput().
				Title("Websocket listen address").
				Description("Empty disables the operator hub, e.g. :8080").
				Value(&wsAddr),
			huh.NewInput().
				Title("Telemetry database").
				Description("Empty disables event recording, e.g. robodog.db").
				Value(&dbPath),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	cfg.Link.SerialPort = serialPort
	cfg.Link.WebSocket = strings.TrimSpace(wsAddr)
	cfg.Telemetry.Path = strings.TrimSpace(dbPath)
	return nil
}
