package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"
	"github.com/valerio/go-busmon/busmon/breakpoint"
	"github.com/valerio/go-busmon/busmon/console"
	"github.com/valerio/go-busmon/busmon/control"
	"github.com/valerio/go-busmon/busmon/display"
	"github.com/valerio/go-busmon/busmon/hw"
	"github.com/valerio/go-busmon/busmon/memory"
	"github.com/valerio/go-busmon/busmon/monitor"
	"github.com/valerio/go-busmon/busmon/script"
	"github.com/valerio/go-busmon/busmon/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "busmon"
	app.Description = "A bus monitor for a 6502 debug probe board"
	app.Usage = "busmon [options]"
	app.Version = monitor.Version
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "sim",
			Usage: "Use the in-memory board simulator instead of GPIO",
		},
		cli.StringFlag{
			Name:  "gpiomem",
			Usage: "GPIO register device",
			Value: "/dev/gpiomem",
		},
		cli.StringFlag{
			Name:  "serial",
			Usage: "Serial device for the console (default: this terminal)",
		},
		cli.IntFlag{
			Name:  "baud",
			Usage: "Serial console speed",
			Value: console.DefaultBaud,
		},
		cli.BoolFlag{
			Name:  "embedded",
			Usage: "Enable memory, register and disassembly commands",
		},
		cli.BoolFlag{
			Name:  "lcd",
			Usage: "Show the instruction address on a terminal LCD panel (needs --serial)",
		},
		cli.BoolFlag{
			Name:  "halt",
			Usage: "Stay in single step mode at startup instead of free running",
		},
		cli.StringFlag{
			Name:  "script",
			Usage: "Lua script to run before the console starts",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log diagnostics at debug level",
		},
		cli.IntFlag{
			Name:  "settle-us",
			Usage: "Microseconds to wait after a step before reading the address",
			Value: int(timing.StepSettle / time.Microsecond),
		},
		cli.IntFlag{
			Name:  "poll-us",
			Usage: "Microseconds between status polls while free running",
			Value: int(timing.PollInterval / time.Microsecond),
		},
	}
	app.Action = runMonitor

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running monitor", "error", err)
		os.Exit(1)
	}
}

type closer interface{ Close() error }

func closeLogged(name string, c closer) {
	if err := c.Close(); err != nil {
		slog.Warn("Failed to close", "resource", name, "error", err)
	}
}

func openPort(c *cli.Context) (console.Port, closer, error) {
	if dev := c.String("serial"); dev != "" {
		p, err := console.OpenSerial(dev, c.Int("baud"))
		return p, p, err
	}
	p, err := console.OpenStdio()
	return p, p, err
}

func openBus(c *cli.Context) (hw.Bus, timing.Delayer, func(), error) {
	if c.Bool("sim") {
		slog.Info("Using simulated board")
		return hw.NewSimulator(), timing.NewNoOpDelayer(), func() {}, nil
	}
	delay := timing.NewBusyWait()
	bus, err := hw.OpenGPIO(c.String("gpiomem"), hw.DefaultPinMap, delay)
	if err != nil {
		return nil, nil, nil, err
	}
	return bus, delay, func() { closeLogged("gpio", bus) }, nil
}

func runMonitor(c *cli.Context) error {
	if c.Bool("lcd") && c.String("serial") == "" {
		return errors.New("--lcd takes over this terminal, use --serial for the console")
	}
	if c.Int("settle-us") < 0 || c.Int("poll-us") < 0 {
		return errors.New("--settle-us and --poll-us must not be negative")
	}

	port, portCloser, err := openPort(c)
	if err != nil {
		return err
	}
	defer closeLogged("console", portCloser)

	con := console.New(port)
	out := con.Writer()

	level := new(slog.LevelVar)
	if c.Bool("verbose") {
		level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(console.NewLogHandler(out, level)))

	bus, delay, closeBus, err := openBus(c)
	if err != nil {
		return err
	}
	defer closeBus()

	cfg := control.DefaultConfig()
	cfg.Delay = delay
	cfg.StepSettle = time.Duration(c.Int("settle-us")) * time.Microsecond
	cfg.PollInterval = time.Duration(c.Int("poll-us")) * time.Microsecond

	ctrlOpts := []control.Option{
		control.WithInput(con),
		control.WithConfig(cfg),
	}
	if c.Bool("embedded") {
		ctrlOpts = append(ctrlOpts, control.WithFormatter(memory.AddressFormatter(delay)))
	}

	quit := make(chan struct{})
	if c.Bool("lcd") {
		panel, err := display.OpenPanel()
		if err != nil {
			return err
		}
		defer closeLogged("display", panel)
		ctrlOpts = append(ctrlOpts, control.WithDisplay(display.NewAddressDisplay(panel)))
		go panel.Run(func() { close(quit) })
	}

	store := breakpoint.NewStore(out)
	ctrl := control.New(bus, store, out, ctrlOpts...)

	var monOpts []monitor.Option
	if c.Bool("embedded") {
		monOpts = append(monOpts, monitor.WithMemory(memory.New(ctrl, delay)))
	}
	mon := monitor.New(ctrl, store, out, monOpts...)
	con.Attach(mon)

	if err := mon.Start(c.Bool("halt")); err != nil {
		return err
	}

	if path := c.String("script"); path != "" {
		if err := runScript(mon, out, path); err != nil {
			return err
		}
	}

	done := make(chan error, 1)
	go func() { done <- con.Run() }()
	select {
	case err := <-done:
		return err
	case <-quit:
		slog.Info("Display closed, exiting")
		return nil
	}
}

func runScript(mon *monitor.Monitor, out io.Writer, path string) error {
	e := script.New(mon, out)
	defer e.Close()
	if err := e.RunFile(path); err != nil {
		return fmt.Errorf("startup script: %w", err)
	}
	return nil
}
