//go:build !windows

package serviceinfo

func setPlatformFields(cfg *Config) {
	cfg.User = "nobody"
	cfg.Group = "nogroup"
}
