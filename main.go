package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/flavioribeiro/nalscan/h264"
	"github.com/flavioribeiro/nalscan/internal/controllers"
	"github.com/flavioribeiro/nalscan/internal/entities"
	"github.com/flavioribeiro/nalscan/internal/web"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax:\n"+
			"  %[1]s report <input> <output>\n"+
			"  %[1]s send <input> <address> <port> <count>\n"+
			"  %[1]s listen <port> [output]\n"+
			"  %[1]s serve <input>\n\nflags:\n", os.Args[0])
		pflag.PrintDefaults()
	}

	logLevel := pflag.String("log-level", "info", "log level (debug, info, warn, error)")
	portBase := pflag.Int("rtp-port-base", 5000, "local UDP port used to send RTP packets")
	sendInterval := pflag.Duration("send-interval", time.Second/30, "pause between two sent packets")
	httpPort := pflag.Int32("http-port", 8080, "HTTP port of the serve mode")
	pflag.Parse()

	var c entities.Config
	if err := envconfig.Process("nalscan", &c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if pflag.CommandLine.Changed("log-level") {
		c.LogLevel = *logLevel
	}
	if pflag.CommandLine.Changed("rtp-port-base") {
		c.RTPPortBase = *portBase
	}
	if pflag.CommandLine.Changed("send-interval") {
		c.RTPSendInterval = *sendInterval
	}
	if pflag.CommandLine.Changed("http-port") {
		c.HTTPPort = *httpPort
	}

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch mode, modeArgs := args[0], args[1:]; mode {
	case "report":
		err = runReport(&c, modeArgs)
	case "send":
		err = runSend(ctx, &c, modeArgs)
	case "listen":
		err = runListen(ctx, &c, modeArgs)
	case "serve":
		err = runServe(&c, modeArgs)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	fx.In
	L         *zap.SugaredLogger
	Reports   *controllers.ReportController
	RTP       *controllers.RTPController
	Streaming *controllers.StreamingController
}

func newApp(c *entities.Config) (*app, error) {
	var a app
	fxApp := fx.New(
		web.Dependencies(c),
		fx.Invoke(func(in app) { a = in }),
	)
	if err := fxApp.Err(); err != nil {
		return nil, err
	}
	return &a, nil
}

func openInput(closer *astikit.Closer, path string) (*h264.Scanner, error) {
	scanner, err := h264.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open input file %s: %w", path, err)
	}
	closer.Add(func() { scanner.Close() })
	return scanner, nil
}

func runReport(c *entities.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("report takes <input> <output>, got %d arguments", len(args))
	}

	a, err := newApp(c)
	if err != nil {
		return err
	}
	closer := astikit.NewCloser()
	defer closer.Close()
	closer.Add(func() { a.L.Sync() })

	scanner, err := openInput(closer, args[0])
	if err != nil {
		return err
	}

	out, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("cannot create report file %s: %w", args[1], err)
	}
	closer.Add(func() { out.Close() })

	n, err := a.Reports.Write(scanner, out)
	if err != nil {
		return err
	}
	fmt.Printf("%d NAL units processed.\n", n)
	return nil
}

func runSend(ctx context.Context, c *entities.Config, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("send takes <input> <address> <port> <count>, got %d arguments", len(args))
	}
	port, err := strconv.ParseUint(args[2], 10, 16)
	if err != nil {
		return fmt.Errorf("%w: port %q: %w", entities.ErrInvalidDestination, args[2], err)
	}
	count, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("invalid count %q: %w", args[3], err)
	}

	a, err := newApp(c)
	if err != nil {
		return err
	}
	closer := astikit.NewCloser()
	defer closer.Close()
	closer.Add(func() { a.L.Sync() })

	scanner, err := openInput(closer, args[0])
	if err != nil {
		return err
	}

	session, err := a.RTP.CreateSession(args[1], uint16(port))
	if err != nil {
		return err
	}
	closer.Add(func() { session.Close() })

	sent, err := a.Streaming.Send(ctx, scanner, session, count)
	a.L.Infow("sending done",
		"sent", sent,
		"requested", count,
	)
	return err
}

func runListen(ctx context.Context, c *entities.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("listen takes <port> [output], got %d arguments", len(args))
	}
	port, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[0], err)
	}

	a, err := newApp(c)
	if err != nil {
		return err
	}
	closer := astikit.NewCloser()
	defer closer.Close()
	closer.Add(func() { a.L.Sync() })

	session, err := a.RTP.Listen(int(port))
	if err != nil {
		return err
	}
	closer.Add(func() { session.Close() })

	var out *os.File
	if len(args) == 2 {
		if out, err = os.Create(args[1]); err != nil {
			return fmt.Errorf("cannot create output file %s: %w", args[1], err)
		}
		closer.Add(func() { out.Close() })
	}

	// a nil *os.File must not end up in the io.Writer
	if out == nil {
		_, err = a.Streaming.Receive(ctx, session, nil)
	} else {
		_, err = a.Streaming.Receive(ctx, session, out)
	}
	return err
}

func runServe(c *entities.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("serve takes <input>, got %d arguments", len(args))
	}

	// fail fast on a bad input instead of on the first offer
	scanner, err := h264.Open(args[0])
	if err != nil {
		return fmt.Errorf("cannot open input file %s: %w", args[0], err)
	}
	scanner.Close()
	c.InputPath = args[0]

	fx.New(
		web.Dependencies(c),
		fx.Invoke(func(*http.Server) {}),
	).Run()
	return nil
}
