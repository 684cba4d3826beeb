//go:build !windows

package serviceinfo

func encodePlatform(rec *Record, cfg Config) {
	rec.Add(KeyUser, cfg.User)
	rec.Add(KeyGroup, cfg.Group)
}
