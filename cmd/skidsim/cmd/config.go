package cmd

import (
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sarchlab/skidbuffer/skid"
)

// Environment variables that provide defaults for the run command.
const (
	envScenario  = "SKIDSIM_SCENARIO"
	envDataWidth = "SKIDSIM_DATA_WIDTH"
	envFreqMHz   = "SKIDSIM_FREQ_MHZ"
)

type config struct {
	Scenario  string
	DataWidth int
	FreqMHz   float64
}

func defaultConfig() config {
	return config{
		Scenario:  "directed",
		DataWidth: skid.DefaultDataWidth,
		FreqMHz:   1000,
	}
}

// loadDotEnv loads variables from path into the environment. Variables that
// are already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return errors.Wrapf(err, "loading %s", path)
}

// configFromEnv returns the default config overridden by the environment.
func configFromEnv() (config, error) {
	c := defaultConfig()

	if v, ok := os.LookupEnv(envScenario); ok && v != "" {
		c.Scenario = v
	}

	if v, ok := os.LookupEnv(envDataWidth); ok && v != "" {
		width, err := strconv.Atoi(v)
		if err != nil {
			return c, errors.Wrapf(err, "parsing %s", envDataWidth)
		}

		c.DataWidth = width
	}

	if v, ok := os.LookupEnv(envFreqMHz); ok && v != "" {
		freq, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, errors.Wrapf(err, "parsing %s", envFreqMHz)
		}

		c.FreqMHz = freq
	}

	return c, nil
}
