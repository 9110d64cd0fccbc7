package tracker

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/peterbourgon/ff"

	"github.com/gymtrack/occupancy-data/api"
	"github.com/gymtrack/occupancy-data/sensor"
	"github.com/gymtrack/occupancy-data/store"
	"github.com/gymtrack/occupancy-data/timeslot"
	"github.com/gymtrack/occupancy-data/tracker"
)

// Build flags to be overwritten at build-time and passed to Run()
type BuildFlags struct {
	Version string
}

type cliFlags struct {
	serverOpts api.ServerOptions
	sensorOpts sensor.ClientOptions
	storeOpts  store.Options

	pollInterval  time.Duration
	resolution    time.Duration
	lookbackWeeks int
}

func parseFlags() cliFlags {
	cli := cliFlags{}
	fs := flag.NewFlagSet("tracker", flag.ExitOnError)

	fs.StringVar(&cli.sensorOpts.URL, "upstream-url", "", "URL of the occupancy sensor API to poll")
	fs.StringVar(&cli.sensorOpts.Tenant, "tenant", "", "Value for the X-Tenant header sent on every upstream request")
	fs.DurationVar(&cli.sensorOpts.Timeout, "upstream-timeout", 4*time.Second, "Timeout for each upstream request")

	fs.StringVar(&cli.storeOpts.Path, "db-path", "./db/data.db", "Path of the SQLite database file")

	fs.DurationVar(&cli.pollInterval, "poll-interval", 15*time.Minute, "Interval between sensor polls")
	fs.DurationVar(&cli.resolution, "slot-resolution", timeslot.DefaultResolution, "Time-of-day resolution of weekly slots and history timestamps")
	fs.IntVar(&cli.lookbackWeeks, "lookback-weeks", 4, "How many past weeks a weekday rollup aggregates over")

	// Server options
	fs.StringVar(&cli.serverOpts.Host, "host", "localhost", "Hostname to bind to")
	fs.UintVar(&cli.serverOpts.Port, "port", 3030, "Port to listen on")
	fs.DurationVar(&cli.serverOpts.ShutdownGracePeriod, "shutdown-grace-period", 15*time.Second, "Grace period to wait for server shutdown before using the force")
	fs.BoolVar(&cli.serverOpts.Prometheus, "prometheus", false, "Whether to expose the /metrics endpoint")

	flag.Set("logtostderr", "true")
	glogVFlag := flag.Lookup("v")
	verbosity := fs.Int("v", 0, "Log verbosity {0-10}")

	fs.String("config", "", "config file (optional)")
	ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("GT"),
	)
	flag.CommandLine.Parse(nil)
	glogVFlag.Value.Set(strconv.Itoa(*verbosity))

	if cli.sensorOpts.URL == "" {
		glog.Fatal("Missing required -upstream-url flag")
	}

	return cli
}

func Run(build BuildFlags) {
	cli := parseFlags()
	cli.serverOpts.APIHandlerOptions.ServerName = "tracker/" + build.Version

	glog.Infof("Occupancy tracker starting up... version=%q", build.Version)
	ctx := contextUntilSignal(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	db, err := store.Open(cli.storeOpts)
	if err != nil {
		glog.Fatalf("Error opening store. err=%q", err)
	}
	defer db.Close()

	reader := sensor.NewReader(cli.sensorOpts)

	poller := tracker.NewPoller(tracker.PollerOptions{
		Interval:   cli.pollInterval,
		Resolution: cli.resolution,
	}, reader, db)
	poller.Start(ctx)

	query := tracker.NewReconstructor(db, tracker.QueryOptions{
		Resolution:    cli.resolution,
		LookbackWeeks: cli.lookbackWeeks,
	})

	glog.Info("Starting server...")
	err = api.ListenAndServe(ctx, cli.serverOpts, query, reader, poller)
	if err != nil {
		glog.Fatalf("Error starting api server. err=%q", err)
	}
}

func contextUntilSignal(parent context.Context, sigs ...os.Signal) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		defer cancel()
		waitSignal(sigs...)
	}()
	return ctx
}

func waitSignal(sigs ...os.Signal) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, sigs...)
	defer signal.Stop(sigc)

	signal := <-sigc
	switch signal {
	case syscall.SIGINT:
		glog.Infof("Got Ctrl-C, shutting down")
	case syscall.SIGTERM:
		glog.Infof("Got SIGTERM, shutting down")
	default:
		glog.Infof("Got signal %d, shutting down", signal)
	}
}
