// Package mapper implements the filter and device-type mapping
// pipeline: it decides which upstream entities survive a bridge's
// include/exclude rules, assigns each survivor a Matter device type
// from a closed vocabulary, and numbers the resulting endpoints.
package mapper

import (
	"strings"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// MatchesFilter reports whether entity passes filter: the include list
// must match (or be empty), and no exclude rule may match.
func MatchesFilter(filter model.BridgeFilter, entity model.EntityDescriptor) bool {
	includeOK := len(filter.Include) == 0
	for _, rule := range filter.Include {
		if includeOK {
			break
		}
		includeOK = matchesRule(rule, entity)
	}

	excludeHit := false
	for _, rule := range filter.Exclude {
		if matchesRule(rule, entity) {
			excludeHit = true
			break
		}
	}

	return includeOK && !excludeHit
}

func matchesRule(rule model.EntityFilter, entity model.EntityDescriptor) bool {
	switch rule.Kind {
	case model.FilterKindPattern:
		return wildcardMatch(rule.Value, entity.EntityID)
	case model.FilterKindDomain:
		return entity.Domain == rule.Value
	case model.FilterKindPlatform:
		return entity.Platform == rule.Value && entity.Platform != ""
	case model.FilterKindEntityCategory:
		return entity.EntityCategory == rule.Value && entity.EntityCategory != ""
	case model.FilterKindArea:
		return entity.Area == rule.Value && entity.Area != ""
	case model.FilterKindLabel:
		for _, l := range entity.Labels {
			if l == rule.Value {
				return true
			}
		}
		return false
	case model.FilterKindEntityID:
		return entity.EntityID == rule.Value
	case model.FilterKindDeviceID:
		return entity.DeviceID == rule.Value && entity.DeviceID != ""
	default:
		return false
	}
}

// wildcardMatch reports whether text matches pattern, where `*` matches
// any (possibly empty) run of characters and `?` matches exactly one.
// Implemented as a linear-space dynamic program over two alternating
// boolean rows, one per pattern character, so cost is
// O(len(pattern) * len(text)) time and O(len(text)) space.
func wildcardMatch(pattern, text string) bool {
	p := []rune(pattern)
	t := []rune(text)

	dp := make([]bool, len(t)+1)
	dp[0] = true

	for _, ch := range p {
		next := make([]bool, len(t)+1)
		switch ch {
		case '*':
			any := false
			for j := 0; j <= len(t); j++ {
				any = any || dp[j]
				next[j] = any
			}
		case '?':
			for j := 0; j < len(t); j++ {
				if dp[j] {
					next[j+1] = true
				}
			}
		default:
			for j := 0; j < len(t); j++ {
				if dp[j] && t[j] == ch {
					next[j+1] = true
				}
			}
		}
		dp = next
	}

	return dp[len(t)]
}

// MapDescriptorToDeviceType assigns a Matter device type from the
// closed vocabulary, or "" if the domain has no mapping and the
// descriptor should be dropped.
func MapDescriptorToDeviceType(desc model.EntityDescriptor) string {
	switch desc.Domain {
	case "automation", "button", "humidifier", "input_boolean", "input_button", "scene", "script", "switch":
		return model.DeviceOnOffPlugInUnit
	case "binary_sensor":
		return mapBinarySensor(desc.Attributes)
	case "climate":
		return model.DeviceThermostat
	case "cover":
		return model.DeviceWindowCovering
	case "fan":
		return model.DeviceFan
	case "light":
		return mapLight(desc.Attributes)
	case "lock":
		return model.DeviceDoorLock
	case "media_player":
		return model.DeviceSpeaker
	case "sensor":
		return mapSensor(desc.Attributes)
	case "vacuum":
		return model.DeviceRoboticVacuumCleaner
	default:
		return ""
	}
}

func deviceClass(attrs map[string]any) string {
	dc, _ := attrs["device_class"].(string)
	return dc
}

func mapBinarySensor(attrs map[string]any) string {
	switch deviceClass(attrs) {
	case "opening", "door", "window":
		return model.DeviceContactSensor
	case "motion", "occupancy":
		return model.DeviceOccupancySensor
	case "moisture", "water", "leak":
		return model.DeviceWaterLeakDetector
	default:
		return model.DeviceOnOffSensor
	}
}

func mapLight(attrs map[string]any) string {
	raw, _ := attrs["supported_color_modes"].([]any)
	modes := make(map[string]bool, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			modes[s] = true
		}
	}

	if modes["xy"] || modes["hs"] || modes["rgb"] || modes["rgbw"] || modes["rgbww"] {
		return model.DeviceExtendedColorLight
	}
	if modes["color_temp"] {
		return model.DeviceColorTemperatureLight
	}
	if modes["brightness"] {
		return model.DeviceDimmableLight
	}
	return model.DeviceOnOffLight
}

func mapSensor(attrs map[string]any) string {
	switch deviceClass(attrs) {
	case "temperature":
		return model.DeviceTemperatureSensor
	case "humidity":
		return model.DeviceHumiditySensor
	case "illuminance":
		return model.DeviceIlluminanceSensor
	default:
		return ""
	}
}

// displayName derives a human-readable label from an entity id, e.g.
// "light.living_room_lamp" -> "living room lamp".
func displayName(entityID string) string {
	_, name, found := strings.Cut(entityID, ".")
	if !found {
		name = entityID
	}
	return strings.ReplaceAll(name, "_", " ")
}

// BuildBridgeDevices filters descriptors against filter, maps survivors
// to device types, and assigns sequential endpoint ids starting at 1.
// If any mapped device is a RoboticVacuumCleaner, the vacuum-
// exclusivity rule drops every non-vacuum device and endpoint
// numbering is reapplied, since Matter commissioners refuse mixed
// aggregators containing a vacuum.
func BuildBridgeDevices(filter model.BridgeFilter, descriptors []model.EntityDescriptor) []model.BridgeDevice {
	devices := make([]model.BridgeDevice, 0, len(descriptors))
	for _, desc := range descriptors {
		if !MatchesFilter(filter, desc) {
			continue
		}
		deviceType := MapDescriptorToDeviceType(desc)
		if deviceType == "" {
			continue
		}
		devices = append(devices, model.BridgeDevice{
			EntityID:     desc.EntityID,
			DeviceType:   deviceType,
			DisplayName:  displayName(desc.EntityID),
			Area:         desc.Area,
			Capabilities: []string{},
			Reachable:    true,
		})
	}

	hasVacuum := false
	for _, d := range devices {
		if d.DeviceType == model.DeviceRoboticVacuumCleaner {
			hasVacuum = true
			break
		}
	}
	if hasVacuum {
		onlyVacuums := devices[:0:0]
		for _, d := range devices {
			if d.DeviceType == model.DeviceRoboticVacuumCleaner {
				onlyVacuums = append(onlyVacuums, d)
			}
		}
		devices = onlyVacuums
	}

	for i := range devices {
		devices[i].EndpointID = uint16(i + 1)
	}
	return devices
}
