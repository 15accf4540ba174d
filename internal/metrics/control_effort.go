package metrics

import "math"

// ControlEffort is the mean summed magnitude of the achievable force/torque.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s Sample) {
	for _, val := range s.Signal.Achievable {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// DutyUtilisation is the mean duty per thruster across the run.
type DutyUtilisation struct {
	sum     float64
	samples int
}

func NewDutyUtilisation() *DutyUtilisation { return &DutyUtilisation{} }

func (d *DutyUtilisation) Name() string { return "duty_utilisation" }

func (d *DutyUtilisation) Observe(s Sample) {
	d.sum += s.Duty.Sum() / float64(len(s.Duty))
	d.samples++
}

func (d *DutyUtilisation) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return d.sum / float64(d.samples)
}

func (d *DutyUtilisation) Reset() {
	d.sum = 0
	d.samples = 0
}
