// Package netutil resolves the controller's listen address. Several
// sc_controller instances can share a machine, so the preferred port may be
// taken and the config carries a candidate list to fall through.
package netutil

import (
	"errors"
	"fmt"
	"net"
)

// SelectBindAddr returns the first usable address: the preferred one when it
// is free, otherwise the candidates in order. With autoFallback disabled a
// busy preferred address is an error rather than a silent port change.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	if preferred != "" {
		free, err := IsAddrAvailable(preferred)
		if err != nil {
			return "", err
		}
		if free {
			return preferred, nil
		}
		if !autoFallback {
			return "", fmt.Errorf("preferred bind address in use: %s", preferred)
		}
	}

	for _, addr := range candidates {
		free, err := IsAddrAvailable(addr)
		if err != nil {
			return "", err
		}
		if free {
			return addr, nil
		}
	}

	return "", errors.New("no free bind address among candidates")
}

// IsAddrAvailable probes an address by briefly listening on it. A failed
// listen means the address is taken, not broken, so it reports false with a
// nil error.
func IsAddrAvailable(addr string) (bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, nil
	}
	if closeErr := ln.Close(); closeErr != nil {
		return false, closeErr
	}
	return true, nil
}
