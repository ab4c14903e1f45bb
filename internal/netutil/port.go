package netutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// Listen binds preferred, or the first free fallback when preferred is busy
// and autoFallback is set. Binding directly avoids a probe-then-bind race.
func Listen(preferred string, fallbacks []string, autoFallback bool) (net.Listener, error) {
	ln, err := net.Listen("tcp", preferred)
	if err == nil {
		return ln, nil
	}
	if !autoFallback || len(fallbacks) == 0 {
		return nil, fmt.Errorf("listen %s: %w", preferred, err)
	}
	slog.Warn("preferred listen address unavailable, trying fallbacks",
		"addr", preferred,
		"error", err,
		"fallbacks", len(fallbacks),
	)

	for _, addr := range fallbacks {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			slog.Debug("fallback listen address unavailable", "addr", addr, "error", err)
			continue
		}
		return ln, nil
	}
	return nil, errors.New("no available relay listen addresses")
}
