package mission

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Sequencer", func() {
	var (
		seq     *Sequencer
		entered []int
	)

	BeforeEach(func() {
		var err error
		seq, err = NewSequencer([]float64{5, 5, 40, 170, 30, 20})
		Expect(err).NotTo(HaveOccurred())
		entered = nil
		seq.OnEnter = func(phase int, _ float64) { entered = append(entered, phase) }
	})

	It("precomputes cumulative start times", func() {
		Expect(seq.Starts()).To(Equal([]float64{0, 5, 10, 50, 220, 250}))
		Expect(seq.Total()).To(Equal(270.0))
	})

	It("starts before the first phase", func() {
		Expect(seq.Current()).To(Equal(-1))
		Expect(seq.Is(0)).To(BeFalse())
	})

	DescribeTable("maps elapsed time to a phase",
		func(elapsed float64, want int) {
			Expect(seq.Track(elapsed)).To(Equal(want))
			Expect(seq.Is(want)).To(BeTrue())
		},
		Entry("inside initialization", 4.9, 0),
		Entry("at zero", 0.0, 0),
		Entry("just into pucks", 5.1, 1),
		Entry("exactly on a boundary", 10.0, 2),
		Entry("experiment", 100.0, 3),
		Entry("terminal phase", 260.0, 5),
		Entry("past the end", 1e6, 5),
	)

	It("never moves backward", func() {
		seq.Track(60)
		Expect(seq.Current()).To(Equal(3))
		Expect(seq.Track(1)).To(Equal(3))
		Expect(seq.Is(3)).To(BeTrue())
	})

	It("fires each boundary exactly once", func() {
		for t := 0.0; t < 270; t += 0.05 {
			seq.Track(t)
		}
		Expect(entered).To(Equal([]int{0, 1, 2, 3, 4, 5}))
	})

	It("fires skipped boundaries in order", func() {
		seq.Track(60)
		Expect(entered).To(Equal([]int{0, 1, 2, 3}))
		seq.Track(61)
		Expect(entered).To(HaveLen(4))
	})

	It("stays monotonic over increasing time", func() {
		last := -1
		for t := 0.0; t < 300; t += 0.37 {
			cur := seq.Track(t)
			Expect(cur).To(BeNumerically(">=", last))
			last = cur
		}
		Expect(seq.Terminal()).To(BeTrue())
	})

	It("reports completion at the total duration", func() {
		Expect(seq.Done(269.99)).To(BeFalse())
		Expect(seq.Done(270)).To(BeTrue())
	})

	It("resets", func() {
		seq.Track(100)
		seq.Reset()
		Expect(seq.Current()).To(Equal(-1))
		Expect(seq.Track(6)).To(Equal(1))
	})

	It("rejects empty and non-positive timelines", func() {
		_, err := NewSequencer(nil)
		Expect(err).To(MatchError(ErrEmptyMission))
		_, err = NewSequencer([]float64{5, 0})
		Expect(err).To(MatchError(ContainSubstring("duration must be positive")))
	})
})
