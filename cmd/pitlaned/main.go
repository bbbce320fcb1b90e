package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"pitlane/pkg/bridge/ws"
	"pitlane/pkg/config"
	"pitlane/pkg/curve"
	"pitlane/pkg/engine"
	"pitlane/pkg/logger"
	"pitlane/pkg/power"
	"pitlane/pkg/protocol"
	"pitlane/pkg/timing"
	"pitlane/pkg/transport"
)

// powerOffWait bounds the shutdown power-off sequence; it usually runs
// during process teardown and must not hang the exit.
const powerOffWait = 200 * time.Millisecond

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		return runServer([]string{}, stdout, stderr)
	}

	switch args[0] {
	case "server":
		return runServer(args[1:], stdout, stderr)
	case "mock":
		return runMock(args[1:], stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintln(stderr, "unknown command:", args[0])
		printUsage(stderr)
		return 2
	}
}

func runServer(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", config.DefaultConfigPath, "TOML config path")
	addr := fs.String("addr", "", "bridge TCP address (overrides config)")
	bridgeAddr := fs.String("bridge", "", "websocket bridge address (overrides config)")
	logPath := fs.String("log", "", "JSONL output path (default: stdout)")
	useTUI := fs.Bool("tui", false, "show the live lap table")
	noUpload := fs.Bool("no-profile-upload", false, "skip the throttle-profile upload at startup")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	if *addr != "" {
		cfg.Transport.Addr = *addr
	}
	if *bridgeAddr != "" {
		cfg.Bridge.Addr = *bridgeAddr
	}

	interval, err := cfg.HeartbeatInterval()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	reconnect, err := cfg.ReconnectInterval()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}

	var out io.Writer = stdout
	if *logPath != "" {
		file, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintln(stderr, "failed to open log file:", err)
			return 1
		}
		defer file.Close()
		out = file
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hub := engine.NewHub()
	go hub.Run(ctx)

	notifications := make(chan transport.Notification, cfg.Transport.Buf)
	link := transport.StartListener(ctx, cfg.Transport.Addr, notifications,
		transport.WithReconnectInterval(reconnect),
		transport.WithBufferSize(cfg.Transport.ReaderBuf),
		transport.WithErrorHandler(func(err error) {
			fmt.Fprintln(stderr, "transport:", err)
		}),
	)

	laps := &timing.Set{}
	dispatcher := engine.NewDispatcher(hub, laps,
		engine.WithDispatchErrorHandler(func(err error) {
			fmt.Fprintln(stderr, "decode:", err)
		}),
	)
	go dispatcher.Run(ctx, notifications)

	controls := power.NewControls()
	if err := seedControls(controls, cfg.Slots); err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	controls.SetMode(protocol.PowerOnRacing)

	if !*noUpload {
		go func() {
			if err := power.UploadProfiles(ctx, link, controls.Curves()); err != nil {
				fmt.Fprintln(stderr, "profile upload:", err)
			}
		}()
	}

	hb := power.NewHeartbeat(link, power.WithInterval(interval))
	hb.Start(controls)
	go forwardHeartbeatErrors(ctx, hb, hub)

	logWriter := logger.NewJSONLWriter(out)
	go logWriter.Consume(ctx, hub.Subscribe())

	bridge := ws.NewServer(cfg.Bridge.Addr, hub, ws.WithSendBuffer(cfg.Bridge.SendBuf))
	go func() {
		if err := bridge.Run(ctx); err != nil {
			fmt.Fprintln(stderr, "bridge:", err)
		}
	}()

	if *useTUI {
		if err := runTUI(ctx, hub); err != nil {
			fmt.Fprintln(stderr, "tui:", err)
		}
		stop()
	} else {
		<-ctx.Done()
	}

	// Track power must not stay latched on after exit.
	hb.Stop()
	offCtx, cancel := context.WithTimeout(context.Background(), powerOffWait)
	defer cancel()
	if err := power.SendPowerOffSequence(offCtx, link); err != nil {
		fmt.Fprintln(stderr, "power off:", err)
	}
	return 0
}

// seedControls applies the per-slot startup configuration.
func seedControls(controls *power.Controls, slots []config.SlotConfig) error {
	for _, s := range slots {
		profile, err := curve.ParseProfile(s.Profile)
		if err != nil {
			return fmt.Errorf("slot %d: %w", s.ID, err)
		}
		err = controls.SetSlot(s.ID, power.SlotControl{
			Power:   byte(s.Power),
			Ghost:   s.Ghost,
			Profile: profile,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func forwardHeartbeatErrors(ctx context.Context, hb *power.Heartbeat, hub *engine.Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-hb.Errors():
			hub.Publish(engine.HeartbeatErrorEvent(e.Message))
		}
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pitlaned server [--config pitlane.toml] [--addr host:port] [--bridge host:port] [--log file.jsonl] [--tui] [--no-profile-upload]")
	fmt.Fprintln(w, "  pitlaned mock [--addr host:port] [--cars n] [--pace 5s]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  server   connect to the powerbase bridge and run the pipeline")
	fmt.Fprintln(w, "  mock     serve a fake powerbase for development")
}
