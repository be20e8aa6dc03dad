//go:build !linux && !windows

package trigger

func listBridges() ([]Match, error) { return nil, ErrDiscoveryUnsupported }
