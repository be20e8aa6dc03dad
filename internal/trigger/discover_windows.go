package trigger

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// listBridges asks the SetupAPI enumerator for COM ports with a bridge VID:PID.
func listBridges() ([]Match, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}
	var found []Match
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if m, ok := matchUSB(p.Name, p.VID, p.PID); ok {
			found = append(found, m)
		}
	}
	sortMatches(found)
	return found, nil
}
