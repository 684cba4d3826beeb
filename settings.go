package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"git.unix.lgbt/diamondburned/servicemanager/servicemanager/serviceinfo"
)

// EnvPrefix prefixes the environment variables that override options, e.g.
// SERVICEMANAGER_STORAGE_DIR.
const EnvPrefix = "servicemanager"

// settings are the command line options after environment overrides.
type settings struct {
	PIDFile string
	LogFile string
	Wait    string
	Dir     string
	Debug   bool
	Verbose bool

	User     string
	Group    string
	WinFlags []string

	StorageDir string
	InitDir    string
}

func loadSettings(flags *pflag.FlagSet) (settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return settings{}, errors.Wrap(err, "failed to bind flags")
	}

	winFlags, err := flags.GetStringArray("winflag")
	if err != nil {
		return settings{}, errors.Wrap(err, "failed to read winflag")
	}

	return settings{
		PIDFile:    v.GetString("pid"),
		LogFile:    v.GetString("log"),
		Wait:       v.GetString("wait"),
		Dir:        v.GetString("dir"),
		Debug:      v.GetBool("debug"),
		Verbose:    v.GetBool("verbose"),
		User:       v.GetString("nixuser"),
		Group:      v.GetString("nixgroup"),
		WinFlags:   winFlags,
		StorageDir: v.GetString("storage-dir"),
		InitDir:    v.GetString("init-dir"),
	}, nil
}

// config builds the service configuration given by the options. notify and
// argv come from positional arguments.
func (s settings) config(notify string, argv []string) (serviceinfo.Config, error) {
	cfg := serviceinfo.Config{
		Notify:  notify,
		Dir:     s.Dir,
		Command: argv,
		PIDFile: s.PIDFile,
		LogFile: s.LogFile,
		User:    s.User,
		Group:   s.Group,
	}

	var err error

	cfg.Wait, err = serviceinfo.ParseWait(s.Wait)
	if err != nil {
		return cfg, errors.Wrap(err, "invalid -wait")
	}

	cfg.Priority, cfg.CreateFlags, err = serviceinfo.ParseWinFlags(s.WinFlags)
	if err != nil {
		return cfg, errors.Wrap(err, "invalid -winflag")
	}

	return cfg, nil
}
