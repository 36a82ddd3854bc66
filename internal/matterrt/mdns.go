package matterrt

import (
	"fmt"

	"github.com/hashicorp/mdns"
)

// advertiseMDNS registers the two standard Matter DNS-SD services for
// a bridge — `_matterc._udp` (commissionable) while uncommissioned,
// `_matter._tcp` (operational) once a fabric exists — and returns a
// shutdown function. No Go Matter-specific mDNS responder exists in
// the ecosystem; hashicorp/mdns is the nearest general-purpose DNS-SD
// library (see DESIGN.md).
func advertiseMDNS(bridgeID string, port int, commissionable bool) (func(), error) {
	serviceType := "_matter._tcp"
	if commissionable {
		serviceType = "_matterc._udp"
	}

	instance := fmt.Sprintf("hamh-%s", bridgeID)
	info := []string{fmt.Sprintf("bridge_id=%s", bridgeID)}

	service, err := mdns.NewMDNSService(instance, serviceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("matterrt: building mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("matterrt: starting mdns responder: %w", err)
	}

	return func() {
		_ = server.Shutdown()
	}, nil
}
