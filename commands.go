package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/control"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/exec"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/journal"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/marker"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/serviceinfo"
)

var (
	// reloadInterval is how often reload checks whether the service has
	// deleted the reload marker.
	reloadInterval = time.Second
	// waitforInterval is how often waitfor checks for the pid file.
	waitforInterval = 500 * time.Millisecond
	// waitforSettle is how long waitfor waits after the pid file appears.
	waitforSettle = 2 * time.Second
)

// statusLogLines is the number of log lines status prints.
const statusLogLines = 10

func (c *cli) installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <service-name> <notify-file> <executable> [args]",
		Short: "Install the service",
		Long: "Install the service.\n" +
			"NotifyFile.stop is created when the process needs to stop and\n" +
			"NotifyFile.reload when it needs to reload its configuration.",
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.settings.Debug {
				return errors.New("the -debug option is not allowed for install")
			}

			name := args[0]

			cfg, err := c.settings.config(args[1], args[2:])
			if err != nil {
				return err
			}
			if cfg.PIDFile == "" {
				cfg.PIDFile = c.store.DefaultPIDFile(name)
			}

			if err := c.store.Create(name, cfg); err != nil {
				return err
			}

			svc, err := c.service(name, cfg)
			if err == nil {
				err = c.manager.Install(svc)
			}
			if err != nil {
				c.store.Remove(name)
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Service successfully installed.")
			return nil
		},
	}
}

func (c *cli) uninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <service-name>",
		Short: "Stop and uninstall the service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			// A broken record must not prevent the uninstall.
			cfg, _ := c.store.Load(name)

			svc, err := c.service(name, cfg)
			if err != nil {
				return err
			}

			c.stopTolerant(cmd, svc)

			if err := c.manager.Uninstall(svc); err != nil {
				return err
			}
			if err := c.store.Remove(name); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Service successfully uninstalled.")
			return nil
		},
	}
}

func (c *cli) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <service-name>",
		Short: "Start the service manager and the service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := c.loadService(args[0])
			if err != nil {
				return err
			}

			return c.manager.Start(cmd.Context(), svc, cmd.OutOrStdout())
		},
	}
}

func (c *cli) stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <service-name>",
		Short: "Stop the service manager and the service",
		Long: "Stop the service manager and the service.\n" +
			"The service is responsible for noticing NotifyFile.stop and exiting\n" +
			"in a timely manner.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := c.loadService(args[0])
			if err != nil {
				return err
			}

			return c.manager.Stop(cmd.Context(), svc, cmd.OutOrStdout())
		},
	}
}

func (c *cli) restartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart <service-name>",
		Short: "Restart the service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := c.loadService(args[0])
			if err != nil {
				return err
			}

			c.stopTolerant(cmd, svc)

			return c.manager.Start(cmd.Context(), svc, cmd.OutOrStdout())
		},
	}
}

// stopTolerant stops svc and only logs failures. A service that isn't running
// is not a failure.
func (c *cli) stopTolerant(cmd *cobra.Command, svc control.Service) {
	err := c.manager.Stop(cmd.Context(), svc, cmd.OutOrStdout())
	if err != nil && !errors.Is(err, control.ErrNotRunning) {
		c.log.Warn("failed to stop service", "service", svc.Name, "err", err)
	}
}

func (c *cli) reloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload <service-name>",
		Short: "Ask the service to reload its configuration",
		Long: "Ask the service to reload its configuration.\n" +
			"The service is responsible for deleting NotifyFile.reload once the\n" +
			"configuration is reloaded. A service that can't reload must exit instead.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.store.Load(args[0])
			if err != nil {
				return err
			}

			path := marker.For(cfg.Notify).Reload
			if err := marker.Signal(path); err != nil {
				return errors.Wrapf(err, "failed to create %q", path)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, "Service reloading...")

			err = marker.WaitCleared(cmd.Context(), path, reloadInterval, func() {
				fmt.Fprint(out, ".")
			})
			fmt.Fprintln(out)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Service successfully reloaded.")
			return nil
		},
	}
}

func (c *cli) waitforCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "waitfor <service-name>",
		Short: "Wait until the service has started",
		Long: "Wait until the service has started.\n" +
			"Useful for handling dependencies inside a service itself.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.store.Load(args[0])
			if err != nil {
				return err
			}
			if cfg.PIDFile == "" {
				return errors.Errorf("service %q has no pid file", args[0])
			}

			ctx := cmd.Context()

			ticker := time.NewTicker(waitforInterval)
			defer ticker.Stop()

			for !fileExists(cfg.PIDFile) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitforSettle):
				return nil
			}
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <service-name>",
		Short: "Print basic service manager information",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := c.loadService(args[0])
			if err != nil {
				return err
			}

			st, err := c.manager.Status(svc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service is %s.\n", st)

			if cfg.PIDFile != "" {
				if s, err := os.Stat(cfg.PIDFile); err == nil {
					fmt.Fprintf(out, "Service was started %s.\n", s.ModTime().Format(time.ANSIC))
				}

				if supervisor, child, err := control.ReadPIDFile(cfg.PIDFile); err == nil {
					fmt.Fprintf(out, "Service manager PID:  %d\n", supervisor)
					fmt.Fprintf(out, "Service PID:  %d\n", child)
				}
			}

			if cfg.LogFile != "" {
				lines, err := journal.Tail(cfg.LogFile, statusLogLines)
				if err != nil {
					c.log.Debug("cannot read log file", "file", cfg.LogFile, "err", err)
				} else if len(lines) > 0 {
					fmt.Fprintln(out)
					for _, line := range lines {
						fmt.Fprintln(out, line)
					}
				}
			}

			if st != control.StatusRunning {
				return exitCode(1)
			}
			return nil
		},
	}
}

func (c *cli) configfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configfile <service-name>",
		Short: "Print the location of the service information file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.store.Exists(args[0]) {
				return errors.Wrapf(serviceinfo.ErrNotFound, "service %q", args[0])
			}

			fmt.Fprintln(cmd.OutOrStdout(), c.store.Path(args[0]))
			return nil
		},
	}
}

func (c *cli) addactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addaction <service-name> <action-name> <description> <executable> [args]",
		Short: "Add a custom action to the service",
		Long: "Add a custom action to the service, such as configtest.\n" +
			"The action then runs with: servicemanager <action-name> <service-name>",
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := serviceinfo.Action{
				Name:        args[1],
				Description: args[2],
				Command:     args[3:],
			}

			if err := c.store.AddAction(args[0], action); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Successfully registered the custom action.")
			return nil
		},
	}
}

// customAction runs the custom action named by the first argument.
func (c *cli) customAction(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		return cmd.Help()
	case 1:
		return errors.Errorf("missing service name for action %q", args[0])
	}

	cfg, err := c.store.Load(args[1])
	if err != nil {
		return err
	}

	code, err := servicemanager.RunAction(cmd.Context(), cfg, args[0], exec.System)
	if err != nil {
		return err
	}

	return exitCode(code)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
