// Package cli parses command-line configuration for the midiseq demo
// binary (cmd/midiseq). The sequencer library itself never reads flags or
// environment variables — this package exists only for the exerciser.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds settings parsed from command-line arguments and environment
// variables.
type Config struct {
	FilePath string        // path to the Standard MIDI File to load
	Timeout  time.Duration // stop playback after this long (0 = unbounded)
	LogLevel string        // "debug", "info", "warn", or "error"
	Headless bool          // suppress per-event notifier printing
	DumpOnly bool          // print the track summary and exit without playing
	ShowHelp bool
}

// ParseArgs parses args (as in os.Args[1:]) into a Config.
func ParseArgs(args []string) (*Config, error) {
	reordered := reorderArgs(args)

	fs := flag.NewFlagSet("midiseq", flag.ContinueOnError)
	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "stop playback after N seconds")
	fs.IntVar(&timeoutSec, "t", 0, "shorthand for -timeout")
	fs.StringVar(&config.LogLevel, "log-level", "info", "debug, info, warn, or error")
	fs.StringVar(&config.LogLevel, "l", "info", "shorthand for -log-level")
	fs.BoolVar(&config.Headless, "headless", false, "suppress per-event notifier output")
	fs.BoolVar(&config.DumpOnly, "dump", false, "print the track summary and exit")
	fs.BoolVar(&config.ShowHelp, "help", false, "show this help")
	fs.BoolVar(&config.ShowHelp, "h", false, "shorthand for -help")

	if err := fs.Parse(reordered); err != nil {
		return nil, err
	}

	if !config.Headless {
		if v := os.Getenv("MIDISEQ_HEADLESS"); v != "" {
			config.Headless = v == "1" || strings.ToLower(v) == "true"
		}
	}
	if timeoutSec == 0 {
		if v := os.Getenv("MIDISEQ_TIMEOUT"); v != "" {
			if t, err := strconv.Atoi(v); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}
	if config.LogLevel == "info" {
		if v := os.Getenv("MIDISEQ_LOG_LEVEL"); v != "" {
			config.LogLevel = strings.ToLower(v)
		}
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if fs.NArg() > 0 {
		config.FilePath = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs moves flags before the trailing positional argument so that
// `midiseq song.mid -headless` and `midiseq -headless song.mid` both parse.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if arg != "-h" && arg != "--help" && arg != "-help" &&
					arg != "--headless" && arg != "-headless" &&
					arg != "--dump" && arg != "-dump" {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp prints usage information to stdout.
func PrintHelp() {
	fmt.Fprint(os.Stdout, `midiseq - Standard MIDI File player and inspector

Usage:
  midiseq [options] <file.mid>

Options:
  -t, --timeout <seconds>   stop playback after N seconds (default: unbounded)
  -l, --log-level <level>   debug, info, warn, or error (default: info)
  --headless                suppress per-event notifier output
  --dump                    print the track summary and exit
  -h, --help                show this help

Environment Variables:
  MIDISEQ_HEADLESS=1        same as --headless
  MIDISEQ_TIMEOUT=<seconds> same as --timeout
  MIDISEQ_LOG_LEVEL=<level> same as --log-level

Examples:
  midiseq song.mid
  midiseq --dump song.mid
  midiseq --timeout 30 song.mid
`)
}
