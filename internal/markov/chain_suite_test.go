package markov_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctmc/internal/markov"
)

var _ = Describe("Chain", func() {
	var chain *markov.Chain

	BeforeEach(func() {
		var err error
		chain, err = markov.NewMatrix([][]float64{
			{0, 3, 1},
			{1, 0, 2},
			{4, 1, 0},
		}, markov.WithSeed(42))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("keeps every rescaled rate within the cap", func() {
			r := chain.RateMatrix(0)
			for i := 0; i < 3; i++ {
				sum := 0.0
				for j := 0; j < 3; j++ {
					Expect(math.Abs(r.At(i, j))).To(BeNumerically("<=", chain.MaxRate()+1e-12))
					sum += r.At(i, j)
				}
				Expect(sum).To(BeNumerically("~", 0, 1e-12))
			}
		})

		It("records the scale that was divided out", func() {
			Expect(chain.Scale()).To(HaveLen(1))
			Expect(chain.Scale()[0]).To(BeNumerically("~", 5, 1e-12))
		})

		It("exposes the rates as an N×S×S array", func() {
			a := chain.Rates()
			Expect(a.Shape).To(Equal([]int{1, 3, 3}))
			Expect(a.Data).To(HaveLen(9))
		})
	})

	Describe("steady state", func() {
		It("is a fixed point of the dynamics", func() {
			res, err := chain.NESS(markov.DefaultNESSOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())

			d, err := chain.TimeDerivative(res.State)
			Expect(err).NotTo(HaveOccurred())
			for _, v := range d[0] {
				Expect(v).To(BeNumerically("~", 0, 1e-8))
			}
		})

		It("is cached until the rates change", func() {
			Expect(chain.NESSStatus()).To(Equal(markov.NotComputed))
			_, err := chain.NESS(markov.DefaultNESSOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(chain.NESSStatus()).To(Equal(markov.Computed))

			r, err := markov.Matrix([][]float64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}})
			Expect(err).NotTo(HaveOccurred())
			Expect(chain.SetRateMatrix(r, 1)).To(Succeed())
			Expect(chain.NESSStatus()).To(Equal(markov.Stale))
			Expect(chain.MEPSStatus()).To(Equal(markov.NotComputed))
		})
	})

	Describe("entropy production", func() {
		It("never goes negative", func() {
			for i := 0; i < 100; i++ {
				epr, err := chain.EPR(chain.RandomState())
				Expect(err).NotTo(HaveOccurred())
				Expect(epr[0]).To(BeNumerically(">=", -1e-12))
			}
		})

		It("is minimised by MEPS below the steady state value", func() {
			ness, err := chain.NESS(markov.DefaultNESSOptions())
			Expect(err).NotTo(HaveOccurred())
			nessEPR, err := chain.EPR(ness.State)
			Expect(err).NotTo(HaveOccurred())

			res, err := chain.MEPS(markov.DefaultMEPSOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())
			Expect(res.State[0].Positive()).To(BeTrue())

			mepsEPR, err := chain.EPR(res.State)
			Expect(err).NotTo(HaveOccurred())
			Expect(mepsEPR[0]).To(BeNumerically("<=", nessEPR[0]))
		})
	})

	Describe("divergence", func() {
		It("is reflexive", func() {
			b, err := chain.LocalState(nil, nil)
			Expect(err).NotTo(HaveOccurred())
			d, err := chain.DKL(b, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(d[0]).To(BeZero())
		})

		It("refuses distributions with different support", func() {
			_, err := markov.KL(markov.State{0.5, 0.5, 0}, markov.State{0.2, 0.3, 0.5})
			Expect(err).To(MatchError(markov.ErrSupportMismatch))
		})
	})
})
