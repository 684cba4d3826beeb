package exec

import "syscall"

// platformAttr makes the child receive SIGTERM if the thread that spawned it
// dies. Callers that rely on this must lock their goroutine to its OS thread
// for as long as the child runs. See https://github.com/golang/go/issues/27505.
func platformAttr(attr *syscall.SysProcAttr) {
	attr.Pdeathsig = syscall.SIGTERM
}
