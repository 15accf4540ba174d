package config

import "sort"

// Presets adjust the defaults for common ways of running the lab.
var Presets = map[string]func(*Run){
	"simulation": func(r *Run) {
		r.Mode = ModeSimulation
		r.Realtime = false
	},
	"realtime-sim": func(r *Run) {
		r.Mode = ModeSimulation
		r.Realtime = true
	},
	"experiment": func(r *Run) {
		r.Mode = ModeExperiment
		r.Realtime = true
		r.Storage = []string{"csv", "sqlite"}
	},
}

// ApplyPreset applies the named preset to r. It reports false for an unknown
// name and leaves r untouched.
func ApplyPreset(r *Run, name string) bool {
	apply, ok := Presets[name]
	if !ok {
		return false
	}
	apply(r)
	return true
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
