package cmd

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/suutaku/go-sdvc/pkg/benchmark"
	"github.com/suutaku/go-sdvc/pkg/keys"
)

const (
	defaultIterations = 1
	defaultMaxClaims  = 100
	defaultOutDir     = "results"

	iterationsEnv = "SDVC_ITERATIONS"
)

func commandRun() *cobra.Command {
	cc := &cobra.Command{
		Use:   "run",
		Short: "Run the measurement sweep and write CSV results",
		Run:   runSweep,
	}
	cc.Flags().IntP("iterations", "i", defaultIterations, "repetitions averaged per measurement")
	cc.Flags().IntP("max-claims", "n", defaultMaxClaims, "largest claim count of the sweep")
	cc.Flags().StringP("out", "o", defaultOutDir, "output directory for CSV files")
	viper.BindPFlag("iterations", cc.Flags().Lookup("iterations"))
	viper.BindEnv("iterations", iterationsEnv)
	return cc
}

func runSweep(cmd *cobra.Command, args []string) {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	iterations := viper.GetInt("iterations")
	maxClaims, _ := cmd.Flags().GetInt("max-claims")
	outDir, _ := cmd.Flags().GetString("out")
	if iterations <= 0 {
		logger.Fatal("iterations must be positive", zap.Int("iterations", iterations))
	}

	constructors := benchmark.DefaultConstructors()
	writer, err := benchmark.NewWriter(outDir, benchmark.SchemeNames(constructors))
	if err != nil {
		logger.Fatal("output setup failed", zap.Error(err))
	}

	holder, err := keys.GenerateES256(rand.Reader)
	if err != nil {
		logger.Fatal("holder key generation failed", zap.Error(err))
	}

	logger.Info("starting sweep",
		zap.Int("iterations", iterations),
		zap.Int("maxClaims", maxClaims),
		zap.String("out", outDir),
		zap.Strings("schemes", benchmark.SchemeNames(constructors)))

	h := benchmark.NewHarness(constructors, holder, rand.Reader, iterations, writer, logger)
	if err := h.Run(maxClaims); err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}
	if err := writer.Close(); err != nil {
		logger.Fatal("flush failed", zap.Error(err))
	}
	logger.Info("sweep finished", zap.String("out", outDir))
}
