package scene_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
	"github.com/RazorBest/Pendulum-Sandbox/internal/scene"
	"github.com/RazorBest/Pendulum-Sandbox/internal/updatable"
)

func bob(mass, length, angle float64) pendulum.BobParams {
	return pendulum.BobParams{Mass: mass, Length: length, Angle: angle}
}

var _ = Describe("Scene", func() {
	var (
		s     *scene.Scene
		clock *updatable.ManualClock
	)

	BeforeEach(func() {
		clock = updatable.NewManualClock(time.Unix(0, 0))
		s = scene.New(scene.WithClock(clock))
	})

	Describe("pendulum registry", func() {
		It("adds and removes pendulums", func() {
			Expect(s.AddPendulum(2, 300, 100, 0.01)).To(Succeed())
			Expect(s.AddPendulum(1, 100, 100, 0.01)).To(Succeed())
			Expect(s.IDs()).To(Equal([]int{1, 2}))

			Expect(s.RemovePendulum(1)).To(Succeed())
			Expect(s.IDs()).To(Equal([]int{2}))
		})

		It("rejects duplicate and unknown ids", func() {
			Expect(s.AddPendulum(1, 0, 0, 0.01)).To(Succeed())
			Expect(s.AddPendulum(1, 0, 0, 0.01)).To(MatchError(scene.ErrDuplicatePendulum))
			Expect(s.RemovePendulum(7)).To(MatchError(scene.ErrUnknownPendulum))
			Expect(s.AddBob(7, 1, pendulum.DefaultBobParams())).To(MatchError(scene.ErrUnknownPendulum))
			Expect(s.SetPivot(7, 0, 0)).To(MatchError(scene.ErrUnknownPendulum))
		})

		It("rejects invalid time steps and friction", func() {
			Expect(s.AddPendulum(1, 0, 0, 0)).To(MatchError(pendulum.ErrInvalidParameter))
			Expect(s.AddPendulum(1, 0, 0, math.NaN())).To(MatchError(pendulum.ErrInvalidParameter))
			Expect(s.SetFriction(-1)).To(MatchError(pendulum.ErrInvalidParameter))
			Expect(s.SetFriction(0.05)).To(Succeed())
			Expect(s.Friction()).To(Equal(0.05))
		})

		It("allocates the next free id", func() {
			id, err := s.NewPendulum(0, 0, 0.01)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(1))

			Expect(s.AddPendulum(7, 0, 0, 0.01)).To(Succeed())
			id, err = s.NewPendulum(0, 0, 0.01)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(8))
			Expect(s.IDs()).To(Equal([]int{1, 7, 8}))

			_, err = s.NewPendulum(0, 0, -1)
			Expect(err).To(MatchError(pendulum.ErrInvalidParameter))
		})

		It("builds chains in order", func() {
			Expect(s.AddPendulum(1, 0, 0, 0.01)).To(Succeed())
			Expect(s.AddBob(1, 10, bob(1, 100, 0))).To(Succeed())
			Expect(s.AddBob(1, 20, bob(1, 100, 0))).To(Succeed())
			Expect(s.InsertBob(1, 15, 1, bob(1, 100, 0))).To(Succeed())

			bobs, err := s.Bobs(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(bobs).To(HaveLen(3))
			Expect([]int{bobs[0].ID, bobs[1].ID, bobs[2].ID}).To(Equal([]int{10, 15, 20}))

			Expect(s.RemoveBob(1, 15)).To(Succeed())
			Expect(s.RemoveBob(1, 15)).To(MatchError(pendulum.ErrUnknownID))
		})
	})

	Describe("structural edits while running", func() {
		BeforeEach(func() {
			Expect(s.AddPendulum(1, 0, 0, 0.01)).To(Succeed())
			Expect(s.AddBob(1, 1, bob(1, 100, 0.5))).To(Succeed())
			s.Start()
		})

		It("queues edits until the next step boundary", func() {
			Expect(s.AddBob(1, 2, bob(1, 100, 0))).To(Succeed())
			Expect(s.Pending()).To(Equal(1))

			bobs, _ := s.Bobs(1)
			Expect(bobs).To(HaveLen(1))

			r := s.Tick()
			Expect(r.Applied).To(Equal(1))
			Expect(s.Pending()).To(BeZero())
			bobs, _ = s.Bobs(1)
			Expect(bobs).To(HaveLen(2))
		})

		It("applies queued edits in submission order", func() {
			Expect(s.AddPendulum(5, 0, 0, 0.01)).To(Succeed())
			Expect(s.AddBob(5, 1, bob(1, 50, 0))).To(Succeed())
			Expect(s.IDs()).To(Equal([]int{1}))

			r := s.Step()
			Expect(r.Applied).To(Equal(2))
			Expect(r.QueueErrors).To(BeEmpty())
			Expect(s.IDs()).To(Equal([]int{1, 5}))
		})

		It("rejects conflicting edits when they are queued", func() {
			Expect(s.AddBob(9, 1, bob(1, 50, 0))).To(MatchError(scene.ErrUnknownPendulum))
			Expect(s.AddBob(1, 1, bob(1, 50, 0))).To(MatchError(pendulum.ErrDuplicateID))
			Expect(s.RemoveBob(1, 7)).To(MatchError(pendulum.ErrUnknownID))
			Expect(s.InsertBob(1, 2, 5, bob(1, 50, 0))).To(MatchError(pendulum.ErrInvalidParameter))
			Expect(s.AddPendulum(1, 0, 0, 0.01)).To(MatchError(scene.ErrDuplicatePendulum))
			Expect(s.RemovePendulum(9)).To(MatchError(scene.ErrUnknownPendulum))
			Expect(s.Pending()).To(BeZero())

			r := s.Tick()
			Expect(r.Applied).To(BeZero())
			Expect(r.QueueErrors).To(BeEmpty())
		})

		It("checks queued edits against the edits ahead of them", func() {
			Expect(s.AddBob(1, 2, bob(1, 50, 0))).To(Succeed())
			Expect(s.AddBob(1, 2, bob(1, 50, 0))).To(MatchError(pendulum.ErrDuplicateID))
			Expect(s.RemoveBob(1, 2)).To(Succeed())
			Expect(s.RemoveBob(1, 2)).To(MatchError(pendulum.ErrUnknownID))

			Expect(s.RemovePendulum(1)).To(Succeed())
			Expect(s.AddBob(1, 3, bob(1, 50, 0))).To(MatchError(scene.ErrUnknownPendulum))
			Expect(s.AddPendulum(1, 0, 0, 0.01)).To(Succeed())
			Expect(s.AddBob(1, 1, bob(1, 50, 0))).To(Succeed())

			r := s.Step()
			Expect(r.Applied).To(Equal(5))
			Expect(r.QueueErrors).To(BeEmpty())
			bobs, _ := s.Bobs(1)
			Expect(bobs).To(HaveLen(1))
			Expect(bobs[0].Length).To(Equal(50.0))
		})

		It("allocates ids past queued pendulums", func() {
			Expect(s.AddPendulum(4, 0, 0, 0.01)).To(Succeed())
			id, err := s.NewPendulum(0, 0, 0.01)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(5))
			Expect(s.AddBob(id, 1, bob(1, 50, 0))).To(Succeed())

			s.Tick()
			Expect(s.IDs()).To(Equal([]int{1, 4, 5}))
		})

		It("validates bob parameters immediately", func() {
			Expect(s.AddBob(1, 2, bob(0, 100, 0))).To(MatchError(pendulum.ErrInvalidParameter))
			Expect(s.Pending()).To(BeZero())
		})

		It("applies parameter updates at once", func() {
			Expect(s.SetBob(1, 1, pendulum.BobUpdate{Angle: pendulum.Float(1)})).To(Succeed())
			bobs, _ := s.Bobs(1)
			Expect(bobs[0].Angle).To(Equal(1.0))
		})

		It("flushes the queue on stop", func() {
			Expect(s.AddBob(1, 2, bob(1, 100, 0))).To(Succeed())
			r := s.Stop()
			Expect(r.Applied).To(Equal(1))
			Expect(s.Running()).To(BeFalse())
		})
	})

	Describe("real-time stepping", func() {
		BeforeEach(func() {
			Expect(s.AddPendulum(1, 0, 0, 0.01)).To(Succeed())
			Expect(s.AddBob(1, 1, bob(1, 100, 0.5))).To(Succeed())
			Expect(s.AddPendulum(2, 0, 0, 0.005)).To(Succeed())
			Expect(s.AddBob(2, 1, bob(1, 100, 0.5))).To(Succeed())
		})

		It("does not advance while stopped", func() {
			clock.Advance(time.Second)
			r := s.Tick()
			Expect(r.Steps).To(BeEmpty())
		})

		It("runs each chain at its own cadence", func() {
			s.Start()
			s.Tick()

			clock.Advance(30 * time.Millisecond)
			r := s.Tick()
			Expect(r.Steps).To(HaveKeyWithValue(1, 3))
			Expect(r.Steps).To(HaveKeyWithValue(2, 6))
			Expect(r.Errors).To(BeEmpty())
		})

		It("holds still while paused", func() {
			s.Start()
			s.SetPaused(true)
			clock.Advance(time.Second)
			Expect(s.Tick().Steps).To(BeEmpty())

			s.SetPaused(false)
			Expect(s.Tick().Steps).To(BeEmpty())
			clock.Advance(10 * time.Millisecond)
			Expect(s.Tick().Steps).To(HaveKeyWithValue(1, 1))
		})

		It("caps the backlog replayed after a stall", func() {
			s.Start()
			s.Tick()

			clock.Advance(time.Minute)
			r := s.Tick()
			Expect(r.Steps).To(HaveKeyWithValue(1, 100))
			Expect(r.Steps).To(HaveKeyWithValue(2, 200))

			Expect(s.Tick().Steps).To(BeEmpty())
			clock.Advance(10 * time.Millisecond)
			Expect(s.Tick().Steps).To(HaveKeyWithValue(1, 1))
		})

		It("rescales the cap when the time step changes", func() {
			Expect(s.SetParam(1, "dt", 0.1)).To(Succeed())
			s.Start()
			s.Tick()

			clock.Advance(time.Minute)
			Expect(s.Tick().Steps).To(HaveKeyWithValue(1, 10))
		})

		It("honours an explicit cap", func() {
			s = scene.New(scene.WithClock(clock), scene.WithMaxCatchUp(3))
			Expect(s.AddPendulum(1, 0, 0, 0.001)).To(Succeed())
			Expect(s.AddBob(1, 1, bob(1, 100, 0.5))).To(Succeed())
			s.Start()
			s.Tick()

			clock.Advance(time.Second)
			Expect(s.Tick().Steps).To(HaveKeyWithValue(1, 3))
		})

		It("matches a chain stepped on its own", func() {
			ref, err := pendulum.New(0, 0, 0.01)
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.AddBob(1, bob(1, 100, 0.5))).To(Succeed())
			Expect(s.SetFriction(0.02)).To(Succeed())

			for i := 0; i < 50; i++ {
				s.Step()
				Expect(ref.Advance(0.02)).To(Succeed())
			}

			bobs, _ := s.Bobs(1)
			Expect(bobs).To(Equal(ref.Bobs()))
		})
	})

	Describe("fault isolation", func() {
		BeforeEach(func() {
			Expect(s.AddPendulum(1, 0, 0, 0.001)).To(Succeed())
			Expect(s.AddBob(1, 1, bob(1, 100, 0.5))).To(Succeed())
			Expect(s.AddPendulum(2, 0, 0, 0.001)).To(Succeed())
			Expect(s.AddBob(2, 1, bob(1, 1e10, 0.5))).To(Succeed())
			s.Checkpoint()
			Expect(s.SetParam(2, "scale", 1e-300)).To(Succeed())
		})

		It("keeps healthy chains running", func() {
			r := s.Step()
			Expect(r.Faults()).To(Equal([]int{2}))
			Expect(r.Steps).To(HaveKeyWithValue(1, 1))
			Expect(r.Errors).To(HaveKey(2))

			r = s.Step()
			Expect(r.Steps).To(HaveKeyWithValue(1, 1))
			Expect(r.Errors).To(BeEmpty())

			snap, err := s.ChainSnapshot(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Fault).To(MatchError(pendulum.ErrNumericDivergence))
			Expect(snap.Bobs[0].Angle).To(Equal(0.5))
		})

		It("clears the fault on reset", func() {
			s.Step()
			Expect(s.SetParam(2, "scale", pendulum.DefaultScale)).To(Succeed())
			Expect(s.ResetChain(2)).To(Succeed())

			snap, _ := s.ChainSnapshot(2)
			Expect(snap.Fault).NotTo(HaveOccurred())
			Expect(s.Step().Steps).To(HaveKey(2))
		})
	})

	Describe("concurrent readers", func() {
		BeforeEach(func() {
			for _, id := range []int{1, 2} {
				Expect(s.AddPendulum(id, 100, 100, 0.01)).To(Succeed())
				Expect(s.AddBob(id, 1, bob(1, 100, 1.2))).To(Succeed())
				Expect(s.AddBob(id, 2, bob(2, 60, -0.4))).To(Succeed())
			}
			s.Start()
			s.Tick()
		})

		It("never sees a half-applied step", func() {
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				for i := 0; i < 300; i++ {
					clock.Advance(20 * time.Millisecond)
					Expect(s.Tick().Errors).To(BeEmpty())
					Expect(s.Step().Errors).To(BeEmpty())
				}
			}()

			reads := 0
			for running := true; running; reads++ {
				select {
				case <-done:
					running = false
				default:
				}

				snaps := s.Snapshot()
				Expect(snaps).To(HaveLen(2))
				Expect(snaps[1].Bobs).To(Equal(snaps[0].Bobs), "chains stepped in lockstep")

				for _, snap := range snaps {
					ref, err := pendulum.New(snap.Pivot.X, snap.Pivot.Y, snap.TimeStep)
					Expect(err).NotTo(HaveOccurred())
					for _, b := range snap.Bobs {
						Expect(ref.AddBob(b.ID, pendulum.BobParams{
							Mass:            b.Mass,
							Length:          b.Length,
							Angle:           b.Angle,
							AngularVelocity: b.AngularVelocity,
						})).To(Succeed())
					}
					Expect(snap.Points).To(Equal(ref.Positions()))
					Expect(snap.Kinetic).To(Equal(ref.KineticEnergy()))
					Expect(snap.Potential).To(Equal(ref.PotentialEnergy()))
				}

				_, _ = s.HitTest(100, 100)
				_, _, _ = s.Energies(1)
				_, _ = s.TotalProbe().Energies()
			}
			Expect(reads).To(BeNumerically(">", 0))

			snaps := s.Snapshot()
			Expect(snaps[0].Bobs[0].Angle).NotTo(Equal(1.2))
		})
	})

	Describe("snapshots and picking", func() {
		BeforeEach(func() {
			Expect(s.AddPendulum(1, 100, 100, 0.01)).To(Succeed())
			Expect(s.AddBob(1, 1, bob(2, 100, 0))).To(Succeed())
			Expect(s.AddPendulum(2, 100, 100, 0.01)).To(Succeed())
			Expect(s.AddBob(2, 1, bob(2, 50, 0))).To(Succeed())
		})

		It("copies positions and energies", func() {
			snaps := s.Snapshot()
			Expect(snaps).To(HaveLen(2))
			Expect(snaps[0].ID).To(Equal(1))
			Expect(snaps[0].Points).To(Equal([]pendulum.Point{{X: 100, Y: 100}, {X: 100, Y: 200}}))
			Expect(snaps[0].Kinetic).To(BeZero())
			Expect(snaps[0].Potential).To(BeNumerically("~", 0, 1e-12))
			Expect(snaps[0].TimeStep).To(Equal(0.01))
		})

		It("hit-tests in ascending id order", func() {
			hit, ok := s.HitTest(100, 100)
			Expect(ok).To(BeTrue())
			Expect(hit.Pendulum).To(Equal(1))
			Expect(hit.Pivot).To(BeTrue())

			hit, ok = s.HitTest(100, 150)
			Expect(ok).To(BeTrue())
			Expect(hit.Pendulum).To(Equal(1))
			Expect(hit.Rod).To(BeTrue())

			_, ok = s.HitTest(500, 500)
			Expect(ok).To(BeFalse())
		})

		It("keeps a single selection", func() {
			Expect(s.Select(1)).To(Succeed())
			Expect(s.Select(2)).To(Succeed())
			snaps := s.Snapshot()
			Expect(snaps[0].Selected).To(BeFalse())
			Expect(snaps[1].Selected).To(BeTrue())

			id, ok := s.SelectNext()
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(1))

			Expect(s.RemovePendulum(1)).To(Succeed())
			_, ok = s.Selected()
			Expect(ok).To(BeFalse())
		})

		It("reads energies through probes", func() {
			Expect(s.SetBob(1, 1, pendulum.BobUpdate{Angle: pendulum.Float(math.Pi / 2)})).To(Succeed())

			k, u := s.Probe(1).Energies()
			Expect(k).To(BeZero())
			Expect(u).To(BeNumerically("~", 2*pendulum.Gravity*1, 1e-9))

			_, total := s.TotalProbe().Energies()
			Expect(total).To(BeNumerically("~", u, 1e-9))

			k, u = s.Probe(42).Energies()
			Expect(k).To(BeZero())
			Expect(u).To(BeZero())
		})
	})
})
