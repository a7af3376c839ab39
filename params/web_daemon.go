package params

import "time"

type WebDaemonConfig struct {
	ListenerConfig

	// SocketPath is where map surfaces connect their websocket.
	SocketPath string

	// StyleCacheSize bounds the per-connection cache used to skip
	// re-sending unchanged feature styles.
	StyleCacheSize int

	// SourceCacheTTL keeps fetched geometry documents for reuse by other
	// connections. Zero disables the cache; concurrent fetches are still shared.
	SourceCacheTTL time.Duration

	// FetchTimeout bounds remote geometry fetches.
	FetchTimeout time.Duration
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:3000",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: DefaultWebListenerConfig(),
		SocketPath:     "/socket",
		StyleCacheSize: 10_000,
		SourceCacheTTL: 5 * time.Minute,
		FetchTimeout:   30 * time.Second,
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	d := DefaultWebDaemonConfig()
	d.Address = "localhost:3333"
	d.StyleCacheSize = 100
	d.SourceCacheTTL = 0
	d.FetchTimeout = 5 * time.Second
	return d
}
