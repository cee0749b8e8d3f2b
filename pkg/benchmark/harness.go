package benchmark

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/suutaku/go-sdvc/pkg/adapter"
	"github.com/suutaku/go-sdvc/pkg/keys"
	"github.com/suutaku/go-sdvc/pkg/scheme/bbsplus"
	"github.com/suutaku/go-sdvc/pkg/scheme/csdjwt"
	"github.com/suutaku/go-sdvc/pkg/scheme/merkle"
	"github.com/suutaku/go-sdvc/pkg/scheme/sdjwt"
)

// failed marks a measurement a scheme could not complete.
const failed int64 = -1

// Constructor builds a fresh adapter for a given claim count.
type Constructor struct {
	Name string
	New  func(claimCount int, holder *keys.Pair, rng io.Reader) (adapter.Adapter, error)
}

// DefaultConstructors lists every scheme under comparison.
func DefaultConstructors() []Constructor {
	return []Constructor{
		{Name: sdjwt.Name, New: func(n int, holder *keys.Pair, rng io.Reader) (adapter.Adapter, error) {
			return sdjwt.New(n, holder, rng)
		}},
		{Name: csdjwt.Name, New: func(n int, holder *keys.Pair, rng io.Reader) (adapter.Adapter, error) {
			return csdjwt.New(n, holder, rng)
		}},
		{Name: merkle.Name, New: func(n int, holder *keys.Pair, rng io.Reader) (adapter.Adapter, error) {
			return merkle.New(n, holder, rng)
		}},
		{Name: bbsplus.Name, New: func(n int, holder *keys.Pair, rng io.Reader) (adapter.Adapter, error) {
			return bbsplus.New(n, holder, rng)
		}},
	}
}

// Harness sweeps the claim count from 1 to a maximum and measures every
// scheme at each step. A failing scheme records -1 for the affected
// metrics and the sweep continues with the remaining schemes.
type Harness struct {
	constructors []Constructor
	holder       *keys.Pair
	rng          io.Reader
	iterations   int
	writer       *Writer
	logger       *zap.Logger
}

// NewHarness wires the sweep. iterations is the number of repetitions
// averaged per measurement.
func NewHarness(constructors []Constructor, holder *keys.Pair, rng io.Reader, iterations int, writer *Writer, logger *zap.Logger) *Harness {
	return &Harness{
		constructors: constructors,
		holder:       holder,
		rng:          rng,
		iterations:   iterations,
		writer:       writer,
		logger:       logger,
	}
}

// SchemeNames returns the column order of the measurement files.
func SchemeNames(constructors []Constructor) []string {
	names := make([]string, 0, len(constructors))
	for _, c := range constructors {
		names = append(names, c.Name)
	}
	return names
}

// Run executes the sweep for claim counts 1..maxClaims. Presentation
// metrics are measured every tenth claim count, sweeping the number of
// disclosures in ten steps.
func (h *Harness) Run(maxClaims int) error {
	for _, metric := range []string{
		MetricInitialization,
		MetricKeypairLength,
		MetricVCIssuance,
		MetricVCVerification,
		MetricVCLength,
	} {
		if err := h.writer.AddFile(metric); err != nil {
			return err
		}
	}

	template, err := LoadRawCredential()
	if err != nil {
		return err
	}

	for n := 1; n <= maxClaims; n++ {
		raw := WithMockClaims(template, n)

		adapters, initDurations, keypairLengths := h.initialize(n)
		if err := h.writer.WriteRecord(MetricInitialization, initDurations); err != nil {
			return err
		}
		if err := h.writer.WriteRecord(MetricKeypairLength, keypairLengths); err != nil {
			return err
		}

		vcs, err := h.measureCredentials(adapters, raw)
		if err != nil {
			return err
		}

		if n%10 == 0 {
			if err := h.measurePresentations(adapters, vcs, n); err != nil {
				return err
			}
		}
		h.logger.Info("claim count finished", zap.Int("claims", n))
	}
	return nil
}

// initialize times each scheme's constructor and records the combined
// issuer key material length.
func (h *Harness) initialize(claimCount int) ([]adapter.Adapter, []int64, []int64) {
	adapters := make([]adapter.Adapter, len(h.constructors))
	durations := make([]int64, len(h.constructors))
	lengths := make([]int64, len(h.constructors))
	for i, c := range h.constructors {
		var a adapter.Adapter
		d, err := Time(h.iterations, func() error {
			built, err := c.New(claimCount, h.holder, h.rng)
			if err != nil {
				return err
			}
			a = built
			return nil
		})
		if err != nil {
			h.logger.Warn("initialization failed",
				zap.String("scheme", c.Name), zap.Error(err))
			durations[i], lengths[i] = failed, failed
			continue
		}
		adapters[i] = a
		durations[i] = d.Microseconds()

		pub, priv, err := a.IssuerKeyMaterial()
		if err != nil {
			h.logger.Warn("key material export failed",
				zap.String("scheme", c.Name), zap.Error(err))
			lengths[i] = failed
			continue
		}
		lengths[i] = int64(len(pub) + len(priv))
	}
	return adapters, durations, lengths
}

// measureCredentials times issuance and verification per scheme and
// keeps the issued credentials for the presentation sweep.
func (h *Harness) measureCredentials(adapters []adapter.Adapter, raw map[string]interface{}) ([]map[string]interface{}, error) {
	issuance := make([]int64, len(adapters))
	verification := make([]int64, len(adapters))
	envLengths := make([]int64, len(adapters))
	vcs := make([]map[string]interface{}, len(adapters))

	for i, a := range adapters {
		if a == nil {
			issuance[i], verification[i], envLengths[i] = failed, failed, failed
			continue
		}
		var vc map[string]interface{}
		var env string
		d, err := Time(h.iterations, func() error {
			issued, issuedEnv, err := a.IssueCredential(raw)
			if err != nil {
				return err
			}
			vc, env = issued, issuedEnv
			return nil
		})
		if err != nil {
			h.logger.Warn("credential issuance failed",
				zap.String("scheme", a.Name()), zap.Error(err))
			issuance[i], verification[i], envLengths[i] = failed, failed, failed
			continue
		}
		issuance[i] = d.Microseconds()
		envLengths[i] = int64(len(env))
		vcs[i] = vc

		d, err = Time(h.iterations, func() error { return a.VerifyCredential(vc) })
		if err != nil {
			h.logger.Warn("credential verification failed",
				zap.String("scheme", a.Name()), zap.Error(err))
			verification[i] = failed
			continue
		}
		verification[i] = d.Microseconds()
	}

	if err := h.writer.WriteRecord(MetricVCIssuance, issuance); err != nil {
		return nil, err
	}
	if err := h.writer.WriteRecord(MetricVCLength, envLengths); err != nil {
		return nil, err
	}
	if err := h.writer.WriteRecord(MetricVCVerification, verification); err != nil {
		return nil, err
	}
	return vcs, nil
}

// measurePresentations sweeps the disclosure count in ten steps at one
// claim count and records issuance, envelope length and verification.
func (h *Harness) measurePresentations(adapters []adapter.Adapter, vcs []map[string]interface{}, claimCount int) error {
	step := claimCount / 10
	issuanceMetric := fmt.Sprintf("%d_%s", claimCount, MetricVPIssuance)
	lengthMetric := fmt.Sprintf("%d_%s", claimCount, MetricVPLength)
	verificationMetric := fmt.Sprintf("%d_%s", claimCount, MetricVPVerification)
	for _, metric := range []string{issuanceMetric, lengthMetric, verificationMetric} {
		if err := h.writer.AddFile(metric); err != nil {
			return err
		}
	}

	for disclosures := 1; disclosures <= claimCount; disclosures += step {
		disclosed := MockDisclosures(disclosures)
		issuance := make([]int64, len(adapters))
		lengths := make([]int64, len(adapters))
		verification := make([]int64, len(adapters))

		for i, a := range adapters {
			if a == nil || vcs[i] == nil {
				issuance[i], lengths[i], verification[i] = failed, failed, failed
				continue
			}
			var env string
			d, err := Time(h.iterations, func() error {
				_, issuedEnv, err := a.IssuePresentation(vcs[i], disclosed)
				if err != nil {
					return err
				}
				env = issuedEnv
				return nil
			})
			if err != nil {
				h.logger.Warn("presentation issuance failed",
					zap.String("scheme", a.Name()), zap.Error(err))
				issuance[i], lengths[i], verification[i] = failed, failed, failed
				continue
			}
			issuance[i] = d.Microseconds()
			lengths[i] = int64(len(env))

			d, err = Time(h.iterations, func() error { return a.VerifyPresentation(env) })
			if err != nil {
				h.logger.Warn("presentation verification failed",
					zap.String("scheme", a.Name()), zap.Error(err))
				verification[i] = failed
				continue
			}
			verification[i] = d.Microseconds()
		}

		if err := h.writer.WriteRecord(issuanceMetric, issuance); err != nil {
			return err
		}
		if err := h.writer.WriteRecord(lengthMetric, lengths); err != nil {
			return err
		}
		if err := h.writer.WriteRecord(verificationMetric, verification); err != nil {
			return err
		}
	}
	return nil
}
