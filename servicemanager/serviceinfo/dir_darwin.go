package serviceinfo

// DefaultDir returns the directory holding service-info records.
func DefaultDir() string {
	return "/Library/Application Support/servicemanager"
}
