// Package interactive provides the interactive command-line interface for
// bamlink-monitor.
package interactive

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/spoolbuddy/bamlink-go/pkg/discovery"
	"github.com/spoolbuddy/bamlink-go/pkg/manager"
	"github.com/spoolbuddy/bamlink-go/pkg/persistence"
	"github.com/spoolbuddy/bamlink-go/pkg/printer"
)

// Monitor handles interactive mode for bamlink-monitor.
type Monitor struct {
	mgr   *manager.Manager
	disco *discovery.Service
	store *persistence.Store
	log   *slog.Logger
	rl    *readline.Instance
}

// New creates a new interactive monitor console.
func New(mgr *manager.Manager, disco *discovery.Service, store *persistence.Store, log *slog.Logger) (*Monitor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bamlink> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Monitor{
		mgr:   mgr,
		disco: disco,
		store: store,
		log:   log,
		rl:    rl,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
func (m *Monitor) Stdout() io.Writer {
	return m.rl.Stdout()
}

// Run starts the interactive command loop. It returns when the user exits.
func (m *Monitor) Run() {
	defer m.rl.Close()

	events, cancel := m.mgr.Subscribe()
	defer cancel()
	go m.printEvents(events)

	m.printHelp()

	for {
		line, err := m.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			m.printHelp()

		case "status", "st":
			m.cmdStatus()

		case "connect", "c":
			m.cmdConnect(args)

		case "disconnect", "d":
			m.cmdDisconnect(args)

		case "state", "s":
			m.cmdState(args)

		case "printers", "p":
			m.cmdPrinters()

		case "pushall":
			m.cmdSend("pushall", args, printer.RequestFullState())

		case "version", "v":
			m.cmdSend("version", args, printer.RequestVersion())

		case "setslot":
			m.cmdSetSlot(args)

		case "quit", "exit", "q":
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(m.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (m *Monitor) printHelp() {
	fmt.Fprintln(m.rl.Stdout(), `
Printer Monitor Commands:
  Sessions:
    status                    - Show connection status of all sessions
    connect <serial> <address> <access-code> [name]
                              - Start a session to a printer
    disconnect <serial>       - Stop a printer session
    state <serial>            - Show last known printer state
    printers                  - List registered and discovered printers

  Commands:
    pushall <serial>          - Request a complete state push
    version <serial>          - Request firmware/module versions
    setslot <serial> <unit> <tray> <slot> <key> <type> <color> <min> <max>
                              - Assign a filament to an AMS tray

  General:
    help                      - Show this help
    quit                      - Exit monitor`)
}

func (m *Monitor) cmdStatus() {
	if m.disco != nil {
		fmt.Fprintln(m.rl.Stdout(), "Discovery: listening")
	} else {
		fmt.Fprintln(m.rl.Stdout(), "Discovery: off")
	}

	statuses := m.mgr.ConnectionStatuses()
	if len(statuses) == 0 {
		fmt.Fprintln(m.rl.Stdout(), "No sessions")
		return
	}

	serials := make([]string, 0, len(statuses))
	for serial := range statuses {
		serials = append(serials, serial)
	}
	sort.Strings(serials)

	for _, serial := range serials {
		status := "disconnected"
		if statuses[serial] {
			status = "connected"
		}
		fmt.Fprintf(m.rl.Stdout(), "  %s  %s\n", serial, status)
	}
}

func (m *Monitor) cmdConnect(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: connect <serial> <address> <access-code> [name]")
		return
	}
	cfg := printer.Config{
		Serial:     args[0],
		Address:    args[1],
		AccessCode: args[2],
	}
	if len(args) > 3 {
		cfg.Name = strings.Join(args[3:], " ")
	}

	if err := m.mgr.Connect(cfg); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if err := m.store.Upsert(persistence.Printer{
		Serial:     cfg.Serial,
		Address:    cfg.Address,
		AccessCode: cfg.AccessCode,
		Name:       cfg.Name,
	}); err != nil {
		m.log.Warn("failed to update printer registry", "serial", cfg.Serial, "error", err)
	}
	fmt.Fprintf(m.rl.Stdout(), "Session started for %s\n", cfg.Serial)
}

func (m *Monitor) cmdDisconnect(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: disconnect <serial>")
		return
	}
	_ = m.mgr.Disconnect(args[0])
	fmt.Fprintf(m.rl.Stdout(), "Session stopped for %s\n", args[0])
}

func (m *Monitor) cmdState(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: state <serial>")
		return
	}
	state, ok := m.mgr.GetState(args[0])
	if !ok {
		fmt.Fprintf(m.rl.Stdout(), "No session for %s\n", args[0])
		return
	}
	if state == nil {
		fmt.Fprintln(m.rl.Stdout(), "No state received yet")
		return
	}
	printState(m.rl.Stdout(), state)
}

func (m *Monitor) cmdPrinters() {
	reg, err := m.store.Load()
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if reg == nil || len(reg.Printers) == 0 {
		fmt.Fprintln(m.rl.Stdout(), "No printers registered")
		return
	}
	for _, p := range reg.Printers {
		configured := "discovered"
		if p.AccessCode != "" {
			configured = "configured"
		}
		fmt.Fprintf(m.rl.Stdout(), "  %s  %-12s %-15s %s (%s)\n",
			p.Serial, configured, p.Address, p.Name, p.Model)
	}
}

func (m *Monitor) cmdSend(name string, args []string, cmd printer.Command) {
	if len(args) != 1 {
		fmt.Fprintf(m.rl.Stdout(), "Usage: %s <serial>\n", name)
		return
	}
	if err := m.mgr.SendCommand(args[0], cmd); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(m.rl.Stdout(), "Command queued")
}

func (m *Monitor) cmdSetSlot(args []string) {
	if len(args) != 9 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: setslot <serial> <unit> <tray> <slot> <key> <type> <color> <min> <max>")
		return
	}

	nums := make([]int, 0, 5)
	for _, i := range []int{1, 2, 3, 7, 8} {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			fmt.Fprintf(m.rl.Stdout(), "Invalid number %q: %v\n", args[i], err)
			return
		}
		nums = append(nums, n)
	}

	cmd := printer.SetTraySlot(printer.TraySlot{
		Unit:          nums[0],
		Tray:          nums[1],
		TargetSlot:    nums[2],
		MaterialKey:   args[4],
		MaterialType:  args[5],
		Color:         args[6],
		NozzleTempMin: nums[3],
		NozzleTempMax: nums[4],
	})
	if err := m.mgr.SendCommand(args[0], cmd); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(m.rl.Stdout(), "Command queued")
}

func (m *Monitor) printEvents(events <-chan printer.Event) {
	for event := range events {
		switch event.Type {
		case printer.EventConnected:
			fmt.Fprintf(m.rl.Stdout(), "[%s] connected\n", event.Serial)
		case printer.EventDisconnected:
			fmt.Fprintf(m.rl.Stdout(), "[%s] disconnected\n", event.Serial)
		case printer.EventStateUpdated:
			if event.State != nil {
				fmt.Fprintf(m.rl.Stdout(), "[%s] %s\n", event.Serial, summarizeState(event.State))
			}
		case printer.EventError:
			fmt.Fprintf(m.rl.Stdout(), "[%s] error: %s\n", event.Serial, event.Message)
		}
	}
}

func summarizeState(state *printer.State) string {
	var b strings.Builder
	b.WriteString(state.Phase.String())
	if state.JobName != nil {
		fmt.Fprintf(&b, " %q", *state.JobName)
	}
	if state.Progress != nil {
		fmt.Fprintf(&b, " %d%%", *state.Progress)
	}
	if state.LayerNum != nil && state.TotalLayerNum != nil {
		fmt.Fprintf(&b, " layer %d/%d", *state.LayerNum, *state.TotalLayerNum)
	}
	return b.String()
}

func printState(w io.Writer, state *printer.State) {
	fmt.Fprintf(w, "Phase: %s\n", state.Phase.String())
	if state.JobName != nil {
		fmt.Fprintf(w, "Job: %s\n", *state.JobName)
	}
	if state.Progress != nil {
		fmt.Fprintf(w, "Progress: %d%%\n", *state.Progress)
	}
	if state.LayerNum != nil && state.TotalLayerNum != nil {
		fmt.Fprintf(w, "Layer: %d/%d\n", *state.LayerNum, *state.TotalLayerNum)
	}

	if len(state.AmsTrays) > 0 {
		fmt.Fprintln(w, "AMS trays:")
		for _, tray := range state.AmsTrays {
			fmt.Fprintf(w, "  unit %d tray %d: %s\n", tray.UnitID, tray.TrayID, formatTray(tray))
		}
	}
	if state.ExternalTray != nil {
		fmt.Fprintf(w, "External tray: %s\n", formatTray(*state.ExternalTray))
	}
}

func formatTray(tray printer.AmsTray) string {
	var parts []string
	if tray.Material != nil {
		parts = append(parts, *tray.Material)
	}
	if tray.Color != nil {
		parts = append(parts, "#"+*tray.Color)
	}
	if tray.KCoefficient != nil {
		parts = append(parts, fmt.Sprintf("k=%.3f", *tray.KCoefficient))
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, " ")
}
