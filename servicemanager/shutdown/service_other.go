//go:build !windows

package shutdown

import "github.com/pkg/errors"

// IsService always reports false outside of Windows.
func IsService() (bool, error) { return false, nil }

// RunService is only supported on Windows.
func RunService(name string, src *Source, fn func() int) (int, error) {
	return 1, errors.New("service dispatcher is only available on windows")
}
