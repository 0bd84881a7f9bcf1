package protocol

import "strings"

// Scene names understood by the LED firmware
const (
	SceneOff      = "off"
	SceneParty    = "party"
	SceneRomantic = "romantic"
	SceneRelax    = "relax"
)

// KnownScenes lists the scenes the firmware implements, in firmware order.
var KnownScenes = []string{SceneOff, SceneParty, SceneRomantic, SceneRelax}

// IsKnownScene reports whether the firmware has an effect for name.
// Unknown names are still sent; the firmware falls back to relax.
func IsKnownScene(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range KnownScenes {
		if s == name {
			return true
		}
	}
	return false
}
