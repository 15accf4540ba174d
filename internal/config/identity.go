package config

import (
	"os/user"

	"github.com/san-kum/spotlab/internal/dynamo"
)

// hostPlatforms maps the lab computers' user names to the vehicle they fly.
var hostPlatforms = map[string]dynamo.Platform{
	"spot-red":   dynamo.Chaser,
	"spot-black": dynamo.Target,
	"spot-blue":  dynamo.Obstacle,
}

// PlatformForUser reports which vehicle a lab account controls.
func PlatformForUser(name string) (dynamo.Platform, bool) {
	p, ok := hostPlatforms[name]
	return p, ok
}

// HostPlatform identifies the vehicle this process runs on from the current
// user. Unknown users fly the chaser in simulation.
func HostPlatform() (dynamo.Platform, string, bool) {
	u, err := user.Current()
	if err != nil {
		return dynamo.Chaser, "", false
	}
	p, ok := PlatformForUser(u.Username)
	if !ok {
		return dynamo.Chaser, u.Username, false
	}
	return p, u.Username, true
}
