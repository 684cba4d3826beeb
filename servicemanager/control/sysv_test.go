//go:build !windows && !darwin

package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSysVInstallUninstall(t *testing.T) {
	dir := t.TempDir()
	m := New(Options{InitDir: dir})

	svc := Service{Name: "web", Executable: "/usr/bin/servicemanager"}
	require.NoError(t, m.Install(svc))

	path := filepath.Join(dir, "web")
	s, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0744), s.Mode().Perm())

	require.NoError(t, m.Uninstall(svc))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Uninstalling twice is fine.
	require.NoError(t, m.Uninstall(svc))
}

func TestSysVInstallMissingDir(t *testing.T) {
	m := New(Options{InitDir: filepath.Join(t.TempDir(), "nonexistent")})

	err := m.Install(Service{Name: "web", Executable: "/bin/true"})
	require.Error(t, err)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, OpInstall, cerr.Op)
}

func TestSysVStatus(t *testing.T) {
	dir := t.TempDir()
	m := New(Options{InitDir: dir})

	pidFile := filepath.Join(dir, "web.pid")
	svc := Service{Name: "web", PIDFile: pidFile}

	st, err := m.Status(svc)
	require.NoError(t, err)
	require.Equal(t, StatusStopped, st)

	content := fmt.Sprintf("%d\n%d\n", os.Getpid(), os.Getpid())
	require.NoError(t, os.WriteFile(pidFile, []byte(content), 0644))

	st, err = m.Status(svc)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, st)
}

func TestSysVStopNotRunning(t *testing.T) {
	dir := t.TempDir()
	m := New(Options{InitDir: dir})

	var progress bytes.Buffer
	err := m.Stop(context.Background(), Service{
		Name:    "web",
		PIDFile: filepath.Join(dir, "web.pid"),
	}, &progress)

	require.ErrorIs(t, err, ErrNotRunning)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, OpStop, cerr.Op)
	require.Equal(t, "web", cerr.Name)
	require.Empty(t, progress.String())
}

func TestSysVStartAlreadyRunning(t *testing.T) {
	dir := t.TempDir()
	m := New(Options{InitDir: dir})

	pidFile := filepath.Join(dir, "web.pid")
	content := fmt.Sprintf("%d\n", os.Getpid())
	require.NoError(t, os.WriteFile(pidFile, []byte(content), 0644))

	var progress bytes.Buffer
	err := m.Start(context.Background(), Service{
		Name:       "web",
		Executable: "/bin/false",
		PIDFile:    pidFile,
	}, &progress)

	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.Contains(t, err.Error(), fmt.Sprintf("process %d", os.Getpid()))
}

func TestSysVStartExitsEarly(t *testing.T) {
	dir := t.TempDir()
	m := New(Options{InitDir: dir})

	var progress bytes.Buffer
	err := m.Start(context.Background(), Service{
		Name:       "web",
		Executable: "/bin/false",
		PIDFile:    filepath.Join(dir, "web.pid"),
	}, &progress)

	require.Error(t, err)
	require.Contains(t, err.Error(), "exited early")
}
