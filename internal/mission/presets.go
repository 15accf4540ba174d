package mission

// DefaultPreset is the mission flown when none is named.
const DefaultPreset = "standard"

// Presets are the built-in missions.
var Presets = map[string]*Mission{
	"standard": {
		Name:        "standard",
		Description: "full proximity-operations run",
		Phases: []Phase{
			{Name: "initialization", Duration: 5, Control: false, Setpoint: SetpointZero},
			{Name: "pucks", Duration: 5, Control: false, Setpoint: SetpointZero},
			{Name: "approach", Duration: 40, Control: true, Setpoint: SetpointInit},
			{Name: "experiment", Duration: 170, Control: true, Setpoint: SetpointInit},
			{Name: "home", Duration: 30, Control: true, Setpoint: SetpointHome},
			{Name: "shutdown", Duration: 20, Control: false, Setpoint: SetpointZero},
		},
	},
	"short": {
		Name:        "short",
		Description: "compressed timeline for bench checks",
		Phases: []Phase{
			{Name: "initialization", Duration: 1, Control: false, Setpoint: SetpointZero},
			{Name: "pucks", Duration: 1, Control: false, Setpoint: SetpointZero},
			{Name: "approach", Duration: 10, Control: true, Setpoint: SetpointInit},
			{Name: "experiment", Duration: 20, Control: true, Setpoint: SetpointInit},
			{Name: "home", Duration: 10, Control: true, Setpoint: SetpointHome},
			{Name: "shutdown", Duration: 2, Control: false, Setpoint: SetpointZero},
		},
	},
	"station-keep": {
		Name:        "station-keep",
		Description: "hold the drop pose",
		Phases: []Phase{
			{Name: "initialization", Duration: 5, Control: false, Setpoint: SetpointZero},
			{Name: "hold", Duration: 120, Control: true, Setpoint: SetpointDrop},
			{Name: "shutdown", Duration: 5, Control: false, Setpoint: SetpointZero},
		},
	},
}
