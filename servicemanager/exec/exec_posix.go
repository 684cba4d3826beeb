//go:build !windows && !linux

package exec

import "syscall"

func platformAttr(attr *syscall.SysProcAttr) {}
