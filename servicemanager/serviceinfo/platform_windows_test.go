package serviceinfo

func setPlatformFields(cfg *Config) {
	cfg.Priority = 0x20
	cfg.CreateFlags = 0x400
}
