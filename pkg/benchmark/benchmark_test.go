package benchmark

import (
	"crypto/rand"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/suutaku/go-sdvc/pkg/claims"
	"github.com/suutaku/go-sdvc/pkg/keys"
)

func TestTimeAverages(t *testing.T) {
	calls := 0
	d, err := Time(5, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, calls)
	require.GreaterOrEqual(t, d.Nanoseconds(), int64(0))
}

func TestTimeRejectsZeroIterations(t *testing.T) {
	_, err := Time(0, func() error { return nil })
	require.Error(t, err)
}

func TestTimePropagatesError(t *testing.T) {
	boom := os.ErrClosed
	_, err := Time(3, func() error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestWriterLayout(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []string{"SD-JWT", "CSD-JWT"})
	require.NoError(t, err)

	require.NoError(t, w.AddFile("metric"))
	require.Error(t, w.AddFile("metric"))
	require.NoError(t, w.WriteRecord("metric", []int64{12, -1}))
	require.Error(t, w.WriteRecord("metric", []int64{12}))
	require.Error(t, w.WriteRecord("unknown", []int64{1, 2}))
	require.NoError(t, w.Close())

	f, err := os.Open(filepath.Join(dir, "metric.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"SD-JWT", "CSD-JWT"},
		{"12", "-1"},
	}, rows)
}

func TestTemplateAndMockClaims(t *testing.T) {
	doc, err := LoadRawCredential()
	require.NoError(t, err)
	require.Contains(t, doc, claims.Field)

	mocked := WithMockClaims(doc, 3)
	set, err := claims.Extract(mocked)
	require.NoError(t, err)
	require.Len(t, set, 3)
	require.Equal(t, "Claim Value 2", set["Claim Key 2"])

	require.Equal(t, []string{"Claim Key 1", "Claim Key 2"}, MockDisclosures(2))
}

func TestHarnessSweep(t *testing.T) {
	dir := t.TempDir()
	constructors := DefaultConstructors()
	w, err := NewWriter(dir, SchemeNames(constructors))
	require.NoError(t, err)

	holder, err := keys.GenerateES256(rand.Reader)
	require.NoError(t, err)

	h := NewHarness(constructors, holder, rand.Reader, 1, w, zaptest.NewLogger(t))
	require.NoError(t, h.Run(10))
	require.NoError(t, w.Close())

	for _, metric := range []string{
		MetricInitialization,
		MetricKeypairLength,
		MetricVCIssuance,
		MetricVCVerification,
		MetricVCLength,
		"10_" + MetricVPIssuance,
		"10_" + MetricVPLength,
		"10_" + MetricVPVerification,
	} {
		f, err := os.Open(filepath.Join(dir, metric+".csv"))
		require.NoError(t, err, metric)
		rows, err := csv.NewReader(f).ReadAll()
		f.Close()
		require.NoError(t, err, metric)
		require.Equal(t, SchemeNames(constructors), rows[0], metric)
		require.Greater(t, len(rows), 1, metric)
		for _, row := range rows[1:] {
			require.Len(t, row, len(constructors), metric)
			for _, cell := range row {
				require.NotEqual(t, "-1", cell, metric)
			}
		}
	}
}
