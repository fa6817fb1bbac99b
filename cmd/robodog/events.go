package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/robodog/pkg/telemetry"
)

type EventsCommand struct {
	DB    string `long:"db" description:"Telemetry database (defaults to the configured path)"`
	Run   string `long:"run" description:"Run id (defaults to the latest run)"`
	Kind  string `long:"kind" description:"Only list events of this kind (mode, decision, command, cancel)"`
	Limit int    `long:"limit" default:"50" description:"Show at most the last N events"`
}

func (c *EventsCommand) Execute(args []string) error {
	path := c.DB
	if path == "" {
		cfg, _, err := loadConfig(opts.Config)
		if err != nil {
			return err
		}
		path = cfg.Telemetry.Path
	}
	if path == "" {
		return fmt.Errorf("no telemetry database configured, pass --db")
	}

	db, err := telemetry.Load(path)
	if err != nil {
		return err
	}
	defer db.Close()

	run := c.Run
	if run == "" {
		runs, err := db.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		run = runs[len(runs)-1]
	}

	rows, err := db.Events(run, c.Kind)
	if err != nil {
		return err
	}
	if c.Limit > 0 && len(rows) > c.Limit {
		rows = rows[len(rows)-c.Limit:]
	}

	fmt.Println(headerStyle.Render("Run " + run))
	fmt.Println(renderEvents(rows))
	return nil
}

var kindColors = map[string]string{
	"mode":     "12",
	"decision": "14",
	"command":  "10",
	"cancel":   "9",
}

func renderEvents(rows []telemetry.Row) string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		dist := "--"
		if r.Distance != nil {
			dist = strconv.FormatFloat(*r.Distance, 'f', 1, 64)
		}
		cells = append(cells, []string{
			r.Time.Format("15:04:05.000"),
			r.Kind,
			r.Mode,
			r.Detail,
			dist,
		})
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Time", "Kind", "Mode", "Detail", "Dist (cm)").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
			}
			if col == 1 && row >= 0 && row < len(cells) {
				return cellStyle.Foreground(lipgloss.Color(kindColors[cells[row][1]]))
			}
			return cellStyle
		})
	return strings.TrimRight(t.Render(), "\n")
}
