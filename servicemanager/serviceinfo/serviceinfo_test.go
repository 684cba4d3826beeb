package serviceinfo

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseFirstMatchWins(t *testing.T) {
	const input = "" +
		"Notify=/tmp/first\r\n" +
		"garbage line\n" +
		"notify=/tmp/second\n" +
		"=novalue\n" +
		"CMD='/bin/true'\n" +
		"unknown=ignored\n"

	rec, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	v, ok := rec.Get("NOTIFY")
	require.True(t, ok)
	require.Equal(t, "/tmp/first", v)

	v, ok = rec.Get("cmd")
	require.True(t, ok)
	require.Equal(t, "'/bin/true'", v)

	_, ok = rec.Get("pid")
	require.False(t, ok)

	require.Len(t, rec.Lines(), 4)
}

func TestArgsRoundTrip(t *testing.T) {
	tests := [][]string{
		{"/usr/bin/app"},
		{"/usr/bin/app", "--flag", "value with spaces"},
		{"/opt/it's here/app", `back\slash`, `"double"`},
		{"app", "a'b'c", "#notacomment"},
	}

	for _, argv := range tests {
		joined := JoinArgs(argv)

		split, err := SplitArgs(joined)
		require.NoError(t, err, joined)
		require.Equal(t, argv, split, joined)
	}
}

func TestJoinArgs(t *testing.T) {
	require.Equal(t, `'/bin/app' 'it'\''s'`, JoinArgs([]string{"/bin/app", "it's"}))
}

func TestParseWait(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"", InfiniteWait, false},
		{"4294967295", InfiniteWait, false},
		{"0xFFFFFFFF", InfiniteWait, false},
		{"0", 0, false},
		{"3000", 3 * time.Second, false},
		{"0x10", 16 * time.Millisecond, false},
		{"010", 8 * time.Millisecond, false},
		{"-1", 0, true},
		{"soon", 0, true},
	}

	for _, test := range tests {
		got, err := ParseWait(test.in)
		if test.err {
			require.Error(t, err, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		require.Equal(t, test.want, got, test.in)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := Config{
		Notify:  "/var/run/app/notify",
		Dir:     "/srv/app",
		Command: []string{"/srv/app/bin/app", "--config", "/etc/app's.conf"},
		PIDFile: "/var/run/app.pid",
		LogFile: "/var/log/app.log",
		Wait:    5 * time.Second,
		Actions: []Action{
			{Name: "configtest", Description: "Test config", Command: []string{"/srv/app/bin/app", "-t"}},
		},
	}
	setPlatformFields(&cfg)

	var buf bytes.Buffer
	_, err := Encode(cfg).WriteTo(&buf)
	require.NoError(t, err)

	rec, err := Parse(&buf)
	require.NoError(t, err)

	got, err := Decode(rec)
	require.NoError(t, err)

	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatal("config mismatch (-want +got):\n" + diff)
	}
}

func TestEncodeOrder(t *testing.T) {
	rec := Encode(Config{Notify: "n", Command: []string{"c"}, Wait: InfiniteWait})

	var keys []string
	for _, line := range rec.Lines() {
		keys = append(keys, line.Key)
	}

	require.Equal(t, []string{"notify", "dir", "cmd", "pid", "log", "wait"}, keys[:6])
	require.Len(t, keys, 8)
}

func TestDecodeMissing(t *testing.T) {
	rec, err := Parse(strings.NewReader("cmd='/bin/true'\n"))
	require.NoError(t, err)

	_, err = Decode(rec)
	require.ErrorIs(t, err, ErrMissingKey)
	require.Contains(t, err.Error(), `"notify"`)

	rec, err = Parse(strings.NewReader("notify=/tmp/x\n"))
	require.NoError(t, err)

	_, err = Decode(rec)
	require.ErrorIs(t, err, ErrMissingKey)
	require.Contains(t, err.Error(), `"cmd"`)
}

func TestDecodeActions(t *testing.T) {
	const input = "" +
		"notify=/tmp/x\n" +
		"cmd='/bin/true'\n" +
		"action_Check='/bin/check' '-v'\n" +
		"actiondesc_Check=Checks things\n" +
		"action_check='/bin/ignored'\n" +
		"action_=empty name\n"

	rec, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	cfg, err := Decode(rec)
	require.NoError(t, err)
	require.Len(t, cfg.Actions, 1)

	action, ok := cfg.Action("CHECK")
	require.True(t, ok)
	require.Equal(t, "Checks things", action.Description)
	require.Equal(t, []string{"/bin/check", "-v"}, action.Command)

	_, ok = cfg.Action("missing")
	require.False(t, ok)
}

func TestStore(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("app")
	require.ErrorIs(t, err, ErrNotFound)

	cfg := Config{
		Notify:  "/tmp/app",
		Command: []string{"/bin/app"},
		PIDFile: store.DefaultPIDFile("app"),
		Wait:    InfiniteWait,
	}
	require.NoError(t, store.Create("app", cfg))
	require.True(t, store.Exists("app"))

	got, err := store.Load("app")
	require.NoError(t, err)
	require.Equal(t, cfg.PIDFile, got.PIDFile)
	require.Equal(t, InfiniteWait, got.Wait)

	before, err := os.ReadFile(store.Path("app"))
	require.NoError(t, err)

	action := Action{Name: "configtest", Description: "Test", Command: []string{"/bin/app", "-t"}}
	require.NoError(t, store.AddAction("app", action))
	require.ErrorIs(t, store.AddAction("app", action), ErrActionExists)

	after, err := os.ReadFile(store.Path("app"))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(after, before), "record must only be appended to")
	require.Equal(t,
		"action_configtest='/bin/app' '-t'\nactiondesc_configtest=Test\n",
		string(after[len(before):]))

	got, err = store.Load("app")
	require.NoError(t, err)
	require.Len(t, got.Actions, 1)

	require.ErrorIs(t, store.AddAction("missing", action), ErrNotFound)

	require.NoError(t, store.Remove("app"))
	require.False(t, store.Exists("app"))
	require.NoError(t, store.Remove("app"))
}

func TestStoreRejectsLineBreaks(t *testing.T) {
	store := NewStore(t.TempDir())

	err := store.Create("app", Config{
		Notify:  "/tmp/app",
		Command: []string{"/bin/echo", "a\nnotify=/tmp/other"},
	})
	require.ErrorIs(t, err, ErrInvalidValue)
	require.False(t, store.Exists("app"))

	cfg := Config{Notify: "/tmp/app", Command: []string{"/bin/app"}}
	require.ErrorIs(t, store.Create("app", Config{Notify: "/tmp/a\rpp", Command: cfg.Command}), ErrInvalidValue)
	require.NoError(t, store.Create("app", cfg))

	before, err := os.ReadFile(store.Path("app"))
	require.NoError(t, err)

	actions := []Action{
		{Name: "check", Description: "line1\nwait=abc", Command: []string{"/bin/check"}},
		{Name: "check", Description: "Check", Command: []string{"/bin/check", "x\r\n"}},
	}
	for _, action := range actions {
		require.ErrorIs(t, store.AddAction("app", action), ErrInvalidValue)
	}

	after, err := os.ReadFile(store.Path("app"))
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))

	got, err := store.Load("app")
	require.NoError(t, err)
	require.Equal(t, cfg.Command, got.Command)
	require.Empty(t, got.Actions)
}

func TestWriteToValidates(t *testing.T) {
	var rec Record
	rec.Add(KeyNotify, "/tmp/app")
	rec.Add(KeyDir, "/srv\n")

	var buf bytes.Buffer
	_, err := rec.WriteTo(&buf)
	require.ErrorIs(t, err, ErrInvalidValue)
	require.Zero(t, buf.Len())

	rec = Record{}
	rec.Add("a=b", "c")
	require.Error(t, rec.Validate())
}

func TestFormatWait(t *testing.T) {
	require.Equal(t, "", FormatWait(InfiniteWait))
	require.Equal(t, "1500", FormatWait(1500*time.Millisecond))

	rec := Encode(Config{Notify: "/tmp/app", Command: []string{"/bin/app"}, Wait: InfiniteWait})
	v, ok := rec.Get(KeyWait)
	require.True(t, ok)
	require.Equal(t, "", v)

	cfg, err := Decode(rec)
	require.NoError(t, err)
	require.Equal(t, InfiniteWait, cfg.Wait)
}

func TestStoreInvalidName(t *testing.T) {
	store := NewStore(t.TempDir())
	cfg := Config{Notify: "/tmp/x", Command: []string{"/bin/x"}}

	require.Error(t, store.Create("", cfg))
	require.Error(t, store.Create("../escape", cfg))
}

func TestInstanceLock(t *testing.T) {
	store := NewStore(t.TempDir())

	lock, err := store.Lock("app")
	require.NoError(t, err)

	_, err = store.Lock("app")
	require.ErrorIs(t, err, ErrLockedElsewhere)

	require.NoError(t, lock.Unlock())

	lock, err = store.Lock("app")
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}
