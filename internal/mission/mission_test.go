package mission

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/spotlab/internal/dynamo"
)

var _ = Describe("Mission", func() {
	poses := Poses{
		Drop: [3]float64{0.5, 0.5, 0},
		Init: [3]float64{1.2, 0.9, 1.57},
		Home: [3]float64{0.3, 1.7, 0},
	}

	Describe("standard preset", func() {
		var m *Mission

		BeforeEach(func() {
			var err error
			m, err = Resolve("")
			Expect(err).NotTo(HaveOccurred())
		})

		It("lasts 270 seconds over six phases", func() {
			Expect(m.Phases).To(HaveLen(6))
			Expect(m.Duration()).To(Equal(270.0))
		})

		It("disables control in initialization, pucks and shutdown", func() {
			for i, want := range []bool{false, false, true, true, true, false} {
				Expect(m.ControlEnabled(i)).To(Equal(want), "phase %d", i)
			}
			Expect(m.ControlEnabled(-1)).To(BeFalse())
			Expect(m.ControlEnabled(6)).To(BeFalse())
		})

		It("selects setpoints per phase", func() {
			Expect(m.Target(0, poses)).To(Equal(dynamo.State{}))
			Expect(m.Target(2, poses)).To(Equal(dynamo.State{X: 1.2, Y: 0.9, Yaw: 1.57}))
			Expect(m.Target(3, poses)).To(Equal(dynamo.State{X: 1.2, Y: 0.9, Yaw: 1.57}))
			Expect(m.Target(4, poses)).To(Equal(dynamo.State{X: 0.3, Y: 1.7}))
			Expect(m.Target(5, poses)).To(Equal(dynamo.State{}))
		})

		It("is a copy of the preset", func() {
			m.Phases[0].Duration = 99
			again, _ := Resolve(DefaultPreset)
			Expect(again.Phases[0].Duration).To(Equal(5.0))
		})
	})

	Describe("files", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "mission")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
		})

		It("round-trips through YAML", func() {
			path := filepath.Join(dir, "m.yaml")
			Expect(Presets["station-keep"].Save(path)).To(Succeed())

			m, err := Resolve(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Name).To(Equal("station-keep"))
			Expect(m.Target(1, poses)).To(Equal(dynamo.State{X: 0.5, Y: 0.5}))
		})

		It("defaults a missing setpoint to zero", func() {
			path := filepath.Join(dir, "m.yaml")
			Expect(os.WriteFile(path, []byte("name: t\nphases:\n  - name: a\n    duration: 2\n    control: true\n"), 0644)).To(Succeed())
			m, err := Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Phases[0].Setpoint).To(Equal(SetpointZero))
		})

		It("rejects bad phases", func() {
			path := filepath.Join(dir, "bad.yaml")
			Expect(os.WriteFile(path, []byte("phases:\n  - name: a\n    duration: 2\n    setpoint: orbit\n"), 0644)).To(Succeed())
			_, err := Load(path)
			Expect(err).To(MatchError(ErrUnknownSetpoint))

			Expect(os.WriteFile(path, []byte("phases:\n  - name: a\n    duration: -1\n"), 0644)).To(Succeed())
			_, err = Load(path)
			Expect(err).To(MatchError(ErrInvalidDuration))

			Expect(os.WriteFile(path, []byte("name: empty\n"), 0644)).To(Succeed())
			_, err = Load(path)
			Expect(err).To(MatchError(ErrEmptyMission))
		})

		It("reports unknown names", func() {
			_, err := Resolve("no-such-mission")
			Expect(err).To(MatchError(ErrUnknownMission))
		})
	})
})
