package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/control"
	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/serviceinfo"
)

func init() {
	// Actions are matched without regard to case.
	cobra.EnableCaseInsensitive = true
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(normalizeArgs(args))
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr exitCodeError
	if errors.As(err, &exitErr) {
		return int(exitErr)
	}

	fmt.Fprintln(stderr, "error:", err)
	return 1
}

// exitCodeError carries a non-zero exit code out of a command without
// printing anything.
type exitCodeError int

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func exitCode(code int) error {
	if code == 0 {
		return nil
	}
	return exitCodeError(code)
}

// normalizeArgs rewrites single-dash long options in front of the service
// name into the double-dash form. Everything after the service name belongs
// to the supervised executable and is left alone.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)

	var positional int
	for i, arg := range out {
		if positional >= 2 || arg == "--" {
			break
		}

		switch {
		case strings.HasPrefix(arg, "--"):
		case strings.HasPrefix(arg, "-") && len(arg) > 2:
			out[i] = "-" + arg
		case strings.HasPrefix(arg, "-"):
		default:
			positional++
		}
	}

	return out
}

// cli holds what every action needs. It is filled in before any action runs.
type cli struct {
	settings settings
	store    *serviceinfo.Store
	manager  control.Manager
	log      *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "servicemanager [options] <action> <service-name> [args]",
		Short: "Run an executable as a system service",
		Long: "servicemanager installs an executable as a system service and supervises it.\n" +
			"The executable is told to stop or reload through NotifyFile.stop and\n" +
			"NotifyFile.reload marker files. Any action that isn't listed below runs the\n" +
			"custom action of that name registered with addaction.\n\n" +
			"Use an English, hyphenated, lowercase name for service-name to maximize\n" +
			"compatibility across platforms.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: c.init,
		RunE:              c.customAction,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.String("pid", "", "write the supervisor and service PIDs to this file (install and run)")
	flags.String("log", "", "append management messages to this file (install and run)")
	flags.String("wait", "", "milliseconds to wait for a stop or reload before terminating (install and run)")
	flags.Lookup("wait").NoOptDefVal = "infinite"
	flags.String("dir", "", "starting directory of the service (install and run)")
	flags.Bool("debug", false, "run the service as a console application (run only)")
	flags.String("nixuser", "", "run the service as this user (install and run)")
	flags.String("nixgroup", "", "run the service as this group (install and run)")
	flags.StringArray("winflag", nil, "windows priority class or creation flag (install and run)")
	flags.String("storage-dir", serviceinfo.DefaultDir(), "directory of the service information files")
	flags.String("init-dir", "", "directory of init scripts or launchd daemons")
	flags.Bool("verbose", false, "log structured diagnostics to stderr")

	root.AddCommand(
		c.installCmd(),
		c.uninstallCmd(),
		c.startCmd(),
		c.stopCmd(),
		c.restartCmd(),
		c.reloadCmd(),
		c.waitforCmd(),
		c.statusCmd(),
		c.configfileCmd(),
		c.runCmd(),
		c.addactionCmd(),
	)

	// Arguments after the service name are passed through untouched.
	root.Flags().SetInterspersed(false)
	for _, sub := range root.Commands() {
		sub.Flags().SetInterspersed(false)
	}

	return root
}

func (c *cli) init(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd.Flags())
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if s.Verbose {
		level = slog.LevelDebug
	}

	c.settings = s
	c.store = serviceinfo.NewStore(s.StorageDir)
	c.manager = control.New(control.Options{InitDir: s.InitDir})
	c.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return nil
}

// service describes the named service to the control plane.
func (c *cli) service(name string, cfg serviceinfo.Config) (control.Service, error) {
	exe, err := os.Executable()
	if err != nil {
		return control.Service{}, errors.Wrap(err, "failed to find own executable")
	}

	return control.Service{
		Name:       name,
		Executable: exe,
		PIDFile:    cfg.PIDFile,
		Dir:        cfg.Dir,
	}, nil
}

// loadService loads the named service's record and describes it to the
// control plane.
func (c *cli) loadService(name string) (serviceinfo.Config, control.Service, error) {
	cfg, err := c.store.Load(name)
	if err != nil {
		return cfg, control.Service{}, err
	}

	svc, err := c.service(name, cfg)
	return cfg, svc, err
}
