package minidump

func newPlatformWriter(cfg Config, n *namer) Writer {
	// no explicit target: the dump describes the calling process and thread.
	return &unixWriter{
		namer:      n,
		platformID: PlatformMacOS,
		sanitize:   cfg.SanitizeStack,
	}
}
