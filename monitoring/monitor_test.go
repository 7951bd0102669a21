package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/skidbuffer/harness"
	"github.com/sarchlab/skidbuffer/skid"
	"go.uber.org/mock/gomock"
)

func newHarness(name string) *harness.Harness {
	reg, err := skid.MakeBuilder().Build(name)
	Expect(err).NotTo(HaveOccurred())

	return harness.NewHarness(reg)
}

var _ = Describe("Monitor", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		m        *Monitor
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		m.router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		m = NewMonitor()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("without an engine", func() {
		It("should report unavailable", func() {
			Expect(get("/api/now").Code).To(Equal(http.StatusServiceUnavailable))
			Expect(get("/api/pause").Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Context("with an engine", func() {
		BeforeEach(func() {
			m.RegisterEngine(engine)
		})

		It("should pause the engine", func() {
			engine.EXPECT().Pause()

			Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		})

		It("should continue the engine", func() {
			engine.EXPECT().Continue()

			Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		})

		It("should tell the time", func() {
			engine.EXPECT().Now().Return(1.5e-9)

			rsp := get("/api/now")

			Expect(rsp.Body.String()).To(Equal("{\"now\":0.0000000015}"))
		})
	})

	Context("with harnesses", func() {
		var a, b *harness.Harness

		BeforeEach(func() {
			a = newHarness("A")
			b = newHarness("B")
			m.RegisterHarness(a)
			m.RegisterHarness(b)
		})

		It("should list components", func() {
			Expect(get("/api/list_components").Body.String()).
				To(Equal(`["A","B"]`))
		})

		It("should report the register state", func() {
			b.Step(skid.Input{UpstreamValid: true, UpstreamData: 0x12})

			var rsp stateRsp
			body := get("/api/state/B").Body.Bytes()
			Expect(json.Unmarshal(body, &rsp)).To(Succeed())

			Expect(rsp.Name).To(Equal("B"))
			Expect(rsp.Cycle).To(Equal(uint64(1)))
			Expect(rsp.Phase).To(Equal("FULL"))
			Expect(rsp.Data).To(Equal("0x12"))
			Expect(rsp.DataWidth).To(Equal(32))
			Expect(rsp.LastObservation).NotTo(BeNil())
			Expect(rsp.LastObservation.InputFire).To(BeTrue())
		})

		It("should omit the last observation before the first cycle", func() {
			var rsp stateRsp
			Expect(json.Unmarshal(get("/api/state/A").Body.Bytes(), &rsp)).
				To(Succeed())

			Expect(rsp.Phase).To(Equal("EMPTY"))
			Expect(rsp.LastObservation).To(BeNil())
		})

		It("should return 404 for unknown components", func() {
			Expect(get("/api/state/C").Code).To(Equal(http.StatusNotFound))
			Expect(get("/api/component/C").Code).To(Equal(http.StatusNotFound))
		})

		It("should serialize a component", func() {
			rsp := get("/api/component/A")

			Expect(rsp.Code).To(Equal(http.StatusOK))
			Expect(rsp.Body.Len()).To(BeNumerically(">", 0))
		})

		It("should reject malformed field requests", func() {
			Expect(get("/api/field/notjson").Code).
				To(Equal(http.StatusBadRequest))
		})

		It("should list buffers, fullest first", func() {
			b.Step(skid.Input{UpstreamValid: true})

			var rsp []bufferRsp
			Expect(json.Unmarshal(get("/api/buffers").Body.Bytes(), &rsp)).
				To(Succeed())

			Expect(rsp).To(Equal([]bufferRsp{
				{Buffer: "B", Level: 1, Cap: 1},
				{Buffer: "A", Level: 0, Cap: 1},
			}))
		})

		It("should page buffers", func() {
			var rsp []bufferRsp
			body := get("/api/buffers?sort=level&limit=1&offset=1").Body.Bytes()
			Expect(json.Unmarshal(body, &rsp)).To(Succeed())

			Expect(rsp).To(HaveLen(1))
			Expect(rsp[0].Buffer).To(Equal("B"))
		})

		It("should serve the registers while the harness steps", func() {
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)

				for i := 0; i < 1000; i++ {
					a.Step(skid.Input{
						UpstreamValid:   i%2 == 0,
						UpstreamData:    skid.Data(i),
						DownstreamReady: i%3 == 0,
					})
				}
			}()

			for i := 0; i < 50; i++ {
				Expect(get("/api/buffers").Code).To(Equal(http.StatusOK))
				Expect(get("/api/component/A").Code).To(Equal(http.StatusOK))
				Expect(get("/api/state/A").Code).To(Equal(http.StatusOK))
			}

			Eventually(done).Should(BeClosed())
			Expect(a.Cycle()).To(Equal(uint64(1000)))
		})

		It("should reject bad buffer parameters", func() {
			Expect(get("/api/buffers?sort=name").Code).
				To(Equal(http.StatusBadRequest))
			Expect(get("/api/buffers?limit=x").Code).
				To(Equal(http.StatusBadRequest))
			Expect(get("/api/buffers?offset=-1").Code).
				To(Equal(http.StatusBadRequest))
		})
	})

	It("should track progress bars", func() {
		h := newHarness("A")
		bar := m.CreateProgressBar("run", 3)
		h.AcceptHook(bar)

		h.Run([]skid.Input{{}, {}})

		var rsp []progressBarRsp
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &rsp)).
			To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("run"))
		Expect(rsp[0].Total).To(Equal(uint64(3)))
		Expect(rsp[0].Finished).To(Equal(uint64(2)))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should count items in flight on a register", func() {
		h := newHarness("A")
		bar := m.CreateProgressBar("items", 2)
		h.Register().AcceptHook(bar)

		h.Step(skid.Input{UpstreamValid: true, UpstreamData: 1})
		Expect(bar.snapshot().InProgress).To(Equal(uint64(1)))
		Expect(bar.snapshot().Finished).To(BeZero())

		h.Step(skid.Input{UpstreamValid: true, UpstreamData: 2,
			DownstreamReady: true})
		Expect(bar.snapshot().InProgress).To(Equal(uint64(1)))
		Expect(bar.snapshot().Finished).To(Equal(uint64(1)))

		h.Step(skid.Input{Reset: true})
		Expect(bar.snapshot().InProgress).To(BeZero())
		Expect(bar.snapshot().Finished).To(Equal(uint64(1)))

		h.Step(skid.Input{Reset: true})
		Expect(bar.snapshot().InProgress).To(BeZero())
	})

	It("should report resource usage", func() {
		rsp := get("/api/resource")

		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should collect a profile", func() {
		m.profileDuration = 10 * time.Millisecond

		Expect(get("/api/profile").Code).To(Equal(http.StatusOK))
	})

	It("should serve the web page", func() {
		rsp := get("/")

		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should start and stop a server", func() {
		url, err := m.WithPortNumber(0).StartServer()
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.Get(url + "/api/list_components")
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		Expect(m.StopServer()).To(Succeed())
	})
})

var _ = Describe("sortAndSelectBuffers", func() {
	buffers := func() []bufferRsp {
		return []bufferRsp{
			{Buffer: "a", Level: 0, Cap: 1},
			{Buffer: "b", Level: 1, Cap: 1},
			{Buffer: "c", Level: 1, Cap: 1},
		}
	}

	It("should keep everything without a limit", func() {
		Expect(sortAndSelectBuffers(buffers(), "percent", 0, 0)).To(HaveLen(3))
	})

	It("should clamp the page to the list", func() {
		Expect(sortAndSelectBuffers(buffers(), "level", 5, 2)).To(HaveLen(1))
		Expect(sortAndSelectBuffers(buffers(), "level", 1, 9)).To(BeEmpty())
	})

	It("should keep ties in registration order", func() {
		selected := sortAndSelectBuffers(buffers(), "level", 2, 0)

		Expect(selected[0].Buffer).To(Equal("b"))
		Expect(selected[1].Buffer).To(Equal("c"))
	})
})
