package main

import (
	"fmt"
	"log/slog"
)

// consolePort is a driver.Port backend that prints outgoing bytes
// instead of talking to real hardware. It never fails to open or send,
// so it exists purely to exercise pkg/driver and pkg/sequencer without a
// hardware dependency.
type consolePort struct {
	id    int
	log   *slog.Logger
	quiet bool
	open  bool
}

func (p *consolePort) OpenPort(id int) error {
	p.open = true
	return nil
}

func (p *consolePort) ClosePort() error {
	p.open = false
	return nil
}

func (p *consolePort) IsOpen() bool { return p.open }

func (p *consolePort) PortName(id int) (string, error) {
	return fmt.Sprintf("console:%d", p.id), nil
}

func (p *consolePort) Send(data []byte) error {
	if !p.quiet {
		fmt.Printf("track %d -> % x\n", p.id, data)
	}
	return nil
}

func (p *consolePort) SetInputCallback(fn func(timestampMs int64, data []byte)) {}

func (p *consolePort) PortCount() (int, error) { return 1, nil }
