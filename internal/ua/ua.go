// Package ua parses User-Agent headers for signup audit events.
package ua

import (
	"fmt"
	"strconv"

	surfer "github.com/avct/uasurfer"
)

// Info carries the attributes stored on a SignupEvent.
type Info struct {
	Browser   string
	Version   string
	OS        string
	OSVersion string
	Device    string // Desktop, Mobile, Tablet or Other
	IsBot     bool
}

// Parse converts a raw header into an Info. An empty header yields an
// empty Info.
func Parse(raw string) Info {
	if raw == "" {
		return Info{}
	}
	agent := surfer.Parse(raw)

	info := Info{
		Browser:   trimPrefix(agent.Browser.Name.String(), "Browser"),
		Version:   versionString(agent.Browser.Version),
		OS:        trimPrefix(agent.OS.Name.String(), "OS"),
		OSVersion: versionString(agent.OS.Version),
		IsBot:     agent.IsBot(),
	}

	switch agent.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}

	return info
}

// trimPrefix drops the enum prefix uasurfer puts on its String values,
// e.g. BrowserChrome becomes Chrome.
func trimPrefix(name, prefix string) string {
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}

func versionString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}
