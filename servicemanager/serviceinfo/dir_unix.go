//go:build !windows && !darwin

package serviceinfo

// DefaultDir returns the directory holding service-info records.
func DefaultDir() string {
	return "/var/lib/servicemanager"
}
