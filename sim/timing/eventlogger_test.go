package timing

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/skidbuffer/sim/hooking"
	"go.uber.org/mock/gomock"
)

var _ = Describe("EventLogger", func() {
	var (
		mockCtrl *gomock.Controller
		buf      *bytes.Buffer
		logger   *EventLogger
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		buf = new(bytes.Buffer)
		logger = NewEventLogger(log.New(buf, "", 0))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should log events before they are handled", func() {
		tc := NewTickingComponent("Comp", NewMockEngine(mockCtrl), 1*Hz,
			NewMockTicker(mockCtrl))
		evt := MakeTickEvent(tc, 2)

		logger.Func(hooking.HookCtx{Pos: HookPosBeforeEvent, Item: evt})

		Expect(buf.String()).To(Equal(
			"2.0000000000, timing.TickEvent -> Comp\n"))
	})

	It("should ignore other hook positions", func() {
		logger.Func(hooking.HookCtx{Pos: HookPosAfterEvent, Item: nil})

		Expect(buf.String()).To(BeEmpty())
	})
})
