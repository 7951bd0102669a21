package harness

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/skidbuffer/sim/hooking"
	"github.com/sarchlab/skidbuffer/skid"
	"go.uber.org/mock/gomock"
)

func newTestHarness() *Harness {
	reg, err := skid.MakeBuilder().Build("Skid")
	Expect(err).NotTo(HaveOccurred())

	return NewHarness(reg)
}

var _ = Describe("Harness", func() {
	var (
		mockCtrl *gomock.Controller
		h        *Harness
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		h = newTestHarness()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should return one observation per stimulus entry in order", func() {
		stimulus := []skid.Input{
			{UpstreamValid: true, UpstreamData: 1},
			{DownstreamReady: true},
			{UpstreamValid: true, UpstreamData: 2, DownstreamReady: true},
		}

		observations := h.Run(stimulus)

		Expect(observations).To(HaveLen(3))
		for i, obs := range observations {
			Expect(obs.Cycle).To(Equal(uint64(i)))
			Expect(obs.Input).To(Equal(stimulus[i]))
		}
		Expect(observations[1].OutData).To(Equal(skid.Data(1)))
		Expect(observations[1].OutputFire).To(BeTrue())
		Expect(h.Cycle()).To(Equal(uint64(3)))
	})

	It("should accept an empty stimulus", func() {
		Expect(h.Run(nil)).To(BeEmpty())

		_, ok := h.LastObservation()
		Expect(ok).To(BeFalse())
	})

	It("should keep counting cycles across runs", func() {
		h.Run([]skid.Input{{}, {}})
		obs := h.Run([]skid.Input{{}})

		Expect(obs[0].Cycle).To(Equal(uint64(2)))

		last, ok := h.LastObservation()
		Expect(ok).To(BeTrue())
		Expect(last).To(Equal(obs[0]))
	})

	It("should expose the register state and next outputs", func() {
		h.Step(skid.Input{UpstreamValid: true, UpstreamData: 9})

		Expect(h.Name()).To(Equal("Skid"))
		Expect(h.Register().Size()).To(Equal(1))
		Expect(h.State()).To(Equal(skid.State{Valid: true, Data: 9}))
		Expect(h.Outputs(false).InReady).To(BeFalse())
		Expect(h.Outputs(true).InReady).To(BeTrue())
	})

	It("should deliver every observation to hooks", func() {
		hook := NewMockHook(mockCtrl)
		h.AcceptHook(hook)

		var seen []Observation
		hook.EXPECT().Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(BeIdenticalTo(HookPosObservation))
				Expect(ctx.Domain).To(BeIdenticalTo(h))
				seen = append(seen, ctx.Item.(Observation))
			}).Times(2)

		observations := h.Run([]skid.Input{{Reset: true}, {}})

		Expect(seen).To(Equal(observations))
	})

	It("should let register hooks read the harness", func() {
		var (
			seen      skid.State
			seenCycle uint64
		)

		h.Register().AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == skid.HookPosAccept {
				seen = h.State()
				seenCycle = h.Cycle()
			}
		}))

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)

			h.Step(skid.Input{UpstreamValid: true, UpstreamData: 7})
		}()

		Eventually(done).Should(BeClosed())
		Expect(seen).To(Equal(skid.State{Valid: true, Data: 7}))
		Expect(seenCycle).To(Equal(uint64(1)))
	})
})

var _ = Describe("ObservationLogger", func() {
	It("should log one line per cycle", func() {
		buf := new(bytes.Buffer)
		h := newTestHarness()
		h.AcceptHook(NewObservationLogger(log.New(buf, "", 0)))

		h.Run([]skid.Input{
			{Reset: true},
			{UpstreamValid: true, UpstreamData: 0xAAAABBBB, DownstreamReady: true},
			{DownstreamReady: true},
			{},
		})

		Expect(buf.String()).To(Equal(
			"cycle 0: rst=1 in_valid=0 in_data=0x00000000 in_ready=1 " +
				"out_valid=0 out_data=0x00000000 out_ready=0 [reset]\n" +
				"cycle 1: rst=0 in_valid=1 in_data=0xAAAABBBB in_ready=1 " +
				"out_valid=0 out_data=0x00000000 out_ready=1 [accept]\n" +
				"cycle 2: rst=0 in_valid=0 in_data=0x00000000 in_ready=1 " +
				"out_valid=1 out_data=0xAAAABBBB out_ready=1 [retire]\n" +
				"cycle 3: rst=0 in_valid=0 in_data=0x00000000 in_ready=1 " +
				"out_valid=0 out_data=0x00000000 out_ready=0\n",
		))
	})
})
