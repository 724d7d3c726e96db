// Command bamlink-log is a tool for viewing and analyzing protocol capture
// files.
//
// Capture files are created by bamlink-monitor when run with the
// -protocol-log flag.
//
// Usage:
//
//	bamlink-log <command> [flags] <file.blog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSONL format
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	bamlink-log view session.blog
//
//	# View only incoming messages for one printer
//	bamlink-log view --serial 01S00C123400001 --direction in session.blog
//
//	# Export to JSONL
//	bamlink-log export session.blog > session.jsonl
//
//	# Show statistics
//	bamlink-log stats session.blog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spoolbuddy/bamlink-go/cmd/bamlink-log/commands"
)

const usage = `bamlink-log - Printer Protocol Capture Analyzer

Usage:
  bamlink-log <command> [flags] <file.blog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSONL format
  stats    Show statistics about the capture file

Use "bamlink-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bamlink-log view - View capture file in human-readable format

Usage:
  bamlink-log view [flags] <file.blog>

Flags:
`)
		fs.PrintDefaults()
	}

	serial := fs.String("serial", "", "Filter by printer serial")
	connID := fs.String("conn-id", "", "Filter by connection ID")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, state, error, discovery)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path := requirePath(fs)

	filter, err := commands.BuildFilter(*serial, *connID, *direction, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := commands.View(os.Stdout, path, filter); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bamlink-log export - Export capture file to JSONL format

Usage:
  bamlink-log export [flags] <file.blog>

Flags:
`)
		fs.PrintDefaults()
	}

	serial := fs.String("serial", "", "Filter by printer serial")
	connID := fs.String("conn-id", "", "Filter by connection ID")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, state, error, discovery)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path := requirePath(fs)

	filter, err := commands.BuildFilter(*serial, *connID, *direction, *category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := commands.Export(os.Stdout, path, filter); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bamlink-log stats - Show statistics about the capture file

Usage:
  bamlink-log stats <file.blog>
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path := requirePath(fs)

	if err := commands.Stats(os.Stdout, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func requirePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}
