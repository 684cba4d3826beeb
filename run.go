package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/exec"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/journal"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/serviceinfo"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/shutdown"
)

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <service-name> [<notify-file> <executable> [args]]",
		Short: "Run the service manager in the foreground",
		Long: "Run the service manager in the foreground.\n" +
			"This is what the system's service manager runs. With -debug, the service\n" +
			"runs as a console application and is described by the arguments instead\n" +
			"of the installed service information.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, err := c.runConfig(name, args[1:])
			if err != nil {
				return &servicemanager.SetupError{Msg: "cannot run service", Err: err}
			}

			code, err := c.supervise(name, cfg)
			if err != nil {
				return err
			}

			return exitCode(code)
		},
	}
}

// runConfig returns the configuration to run the named service with: the
// installed record, or the command line in debug mode.
func (c *cli) runConfig(name string, args []string) (serviceinfo.Config, error) {
	if !c.settings.Debug {
		return c.store.Load(name)
	}

	if len(args) < 2 {
		return serviceinfo.Config{}, errors.New("missing notify file or executable")
	}

	cfg, err := c.settings.config(args[0], args[1:])
	if err != nil {
		return cfg, err
	}

	// The log file of the installed service is used unless one is given.
	if cfg.LogFile == "" {
		if rec, err := c.store.Record(name); err == nil {
			cfg.LogFile, _ = rec.Get(serviceinfo.KeyLogFile)
		}
	}

	return cfg, nil
}

// supervise runs the loop for the named service until it stops and returns
// its exit code.
func (c *cli) supervise(name string, cfg serviceinfo.Config) (int, error) {
	lock, err := c.store.Lock(name)
	if err != nil {
		if errors.Is(err, serviceinfo.ErrLockedElsewhere) {
			return 1, &servicemanager.SetupError{Msg: "service manager is already running", Err: err}
		}
		return 1, &servicemanager.SetupError{Msg: "cannot lock service", Err: err}
	}
	defer lock.Unlock()

	var sinks []servicemanager.Journaler

	if cfg.LogFile != "" {
		f, err := journal.OpenFile(cfg.LogFile)
		if err != nil {
			return 1, &servicemanager.SetupError{Msg: "cannot open log", Err: err}
		}
		defer f.Close()

		sinks = append(sinks, f)
	}
	if c.settings.Debug {
		sinks = append(sinks, journal.NewHumanWriter(os.Stdout))
	}
	if c.settings.Verbose {
		sinks = append(sinks, journal.NewSlogWriter(c.log.With("service", name)))
	}

	j := journal.MultiWriter(sinks...)
	src := shutdown.NewSource()

	loop, err := servicemanager.NewLoop(cfg, exec.System, src, j)
	if err != nil {
		return 1, err
	}

	service, err := shutdown.IsService()
	if err != nil {
		return 1, err
	}
	if service {
		return shutdown.RunService(name, src, func() int { return runLoop(loop, src, j) })
	}

	stop := shutdown.Notify(src)
	defer stop()

	return runLoop(loop, src, j), nil
}

// runLoop runs the loop alongside the marker watcher.
func runLoop(loop *servicemanager.Loop, src *shutdown.Source, j servicemanager.Journaler) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var code int

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		servicemanager.TryWatch(ctx, loop.Markers(), src, j)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		code = loop.Run()
		return nil
	})
	g.Wait()

	return code
}
