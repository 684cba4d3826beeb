package serviceinfo

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// InfiniteWait makes the supervisor wait indefinitely for the child to
// acknowledge a stop or reload request.
const InfiniteWait time.Duration = -1

// infiniteMillis is the 32-bit INFINITE sentinel older records may carry.
const infiniteMillis = math.MaxUint32

// Record keys.
const (
	KeyNotify      = "notify"
	KeyDir         = "dir"
	KeyCommand     = "cmd"
	KeyPIDFile     = "pid"
	KeyLogFile     = "log"
	KeyWait        = "wait"
	KeyPriority    = "win_priority"
	KeyCreateFlags = "win_createflags"
	KeyUser        = "nix_user"
	KeyGroup       = "nix_group"

	actionPrefix     = "action_"
	actionDescPrefix = "actiondesc_"
)

// ErrMissingKey is returned when a required key is absent from a record.
var ErrMissingKey = errors.New("missing required key")

// Action is a user-defined command stored alongside the service.
type Action struct {
	Name        string
	Description string
	Command     []string
}

// Config is the typed form of a service-info record.
type Config struct {
	// Notify is the base path of the marker files.
	Notify  string
	Dir     string
	Command []string
	PIDFile string
	LogFile string
	// Wait is the grace budget for stop and reload requests. It is
	// InfiniteWait if negative.
	Wait time.Duration

	// POSIX identity of the child.
	User  string
	Group string

	// Windows priority class and extra creation flags of the child.
	Priority    uint32
	CreateFlags uint32

	Actions []Action
}

// Action looks up a custom action by name, ignoring case.
func (c Config) Action(name string) (Action, bool) {
	for _, action := range c.Actions {
		if strings.EqualFold(action.Name, name) {
			return action, true
		}
	}
	return Action{}, false
}

// Validate checks that the fields the run-loop needs are present.
func (c Config) Validate() error {
	if c.Notify == "" {
		return errors.Wrapf(ErrMissingKey, "key %q", KeyNotify)
	}
	if len(c.Command) == 0 {
		return errors.Wrapf(ErrMissingKey, "key %q", KeyCommand)
	}
	return nil
}

// Decode converts a record into a Config.
func Decode(rec *Record) (Config, error) {
	var cfg Config
	var err error

	cfg.Notify, _ = rec.Get(KeyNotify)
	cfg.Dir, _ = rec.Get(KeyDir)
	cfg.PIDFile, _ = rec.Get(KeyPIDFile)
	cfg.LogFile, _ = rec.Get(KeyLogFile)
	cfg.User, _ = rec.Get(KeyUser)
	cfg.Group, _ = rec.Get(KeyGroup)

	if cmd, ok := rec.Get(KeyCommand); ok {
		cfg.Command, err = SplitArgs(cmd)
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid key %q", KeyCommand)
		}
	}

	wait, _ := rec.Get(KeyWait)
	cfg.Wait, err = ParseWait(wait)
	if err != nil {
		return cfg, errors.Wrapf(err, "invalid key %q", KeyWait)
	}

	if cfg.Priority, err = parseFlags(rec, KeyPriority); err != nil {
		return cfg, err
	}
	if cfg.CreateFlags, err = parseFlags(rec, KeyCreateFlags); err != nil {
		return cfg, err
	}

	cfg.Actions, err = decodeActions(rec)
	if err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func decodeActions(rec *Record) ([]Action, error) {
	var actions []Action

	for _, line := range rec.lines {
		if len(line.Key) <= len(actionPrefix) ||
			!strings.EqualFold(line.Key[:len(actionPrefix)], actionPrefix) {
			continue
		}

		name := line.Key[len(actionPrefix):]
		if hasAction(actions, name) {
			continue
		}

		argv, err := SplitArgs(line.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid action %q", name)
		}

		desc, _ := rec.Get(actionDescPrefix + name)

		actions = append(actions, Action{
			Name:        name,
			Description: desc,
			Command:     argv,
		})
	}

	return actions, nil
}

func hasAction(actions []Action, name string) bool {
	for _, action := range actions {
		if strings.EqualFold(action.Name, name) {
			return true
		}
	}
	return false
}

func parseFlags(rec *Record, key string) (uint32, error) {
	v, ok := rec.Get(key)
	if !ok || v == "" {
		return 0, nil
	}

	u, err := strconv.ParseUint(v, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid key %q", key)
	}

	return uint32(u), nil
}

// ParseWait parses a wait value in milliseconds. Decimal, 0x-prefixed hex
// and 0-prefixed octal are accepted. An empty value and the 32-bit INFINITE
// sentinel yield InfiniteWait.
func ParseWait(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "infinite") {
		return InfiniteWait, nil
	}

	ms, err := strconv.ParseUint(v, 0, 32)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse wait")
	}
	if ms == infiniteMillis {
		return InfiniteWait, nil
	}

	return time.Duration(ms) * time.Millisecond, nil
}

// FormatWait is the inverse of ParseWait. An infinite wait is written as an
// empty value.
func FormatWait(d time.Duration) string {
	if d < 0 {
		return ""
	}
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// Encode converts cfg into a record. Keys are written in a fixed order
// followed by the platform keys and the custom actions.
func Encode(cfg Config) *Record {
	var rec Record

	rec.Add(KeyNotify, cfg.Notify)
	rec.Add(KeyDir, cfg.Dir)
	rec.Add(KeyCommand, JoinArgs(cfg.Command))
	rec.Add(KeyPIDFile, cfg.PIDFile)
	rec.Add(KeyLogFile, cfg.LogFile)
	rec.Add(KeyWait, FormatWait(cfg.Wait))

	encodePlatform(&rec, cfg)

	for _, action := range cfg.Actions {
		addAction(&rec, action)
	}

	return &rec
}

func addAction(rec *Record, action Action) {
	rec.Add(actionPrefix+action.Name, JoinArgs(action.Command))
	rec.Add(actionDescPrefix+action.Name, action.Description)
}
