package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:	Decoding session configuration.
 *
 * Description:	Everything has a default so a configuration file only
 *		needs to mention what is different.  Example:
 *
 *			sample_rate: 22050
 *			min_baud: 512
 *			max_baud: 2400
 *			sync_max_bit_errors: 2
 *			normalize: true
 *			silence_flush_buffers: 32
 *
 *		Anything unreasonable is an error.  We don't quietly
 *		substitute something else.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidSampleRate   = errors.New("sample rate must be positive")
	ErrInvalidBaudRange    = errors.New("invalid baud range")
	ErrInvalidRunLength    = errors.New("max run of same value must be at least 1")
	ErrInvalidFrameWords   = errors.New("frame words out of range")
	ErrInvalidSyncErrors   = errors.New("sync bit errors out of range")
	ErrInvalidSearchBudget = errors.New("search budget out of range")
	ErrInvalidSilence      = errors.New("invalid silence flush setting")
)

const DEFAULT_SAMPLES_PER_SEC = 24000

const DEFAULT_MIN_BAUD = 300

const DEFAULT_MAX_BAUD = 4000

const DEFAULT_FRAME_WORDS = 16 /* One batch. */

const DEFAULT_SEARCH_BUDGET = 256 /* Bits per call while looking for sync. */

const MAX_SYNC_BIT_ERRORS = 4

type Config struct {
	SampleRate        int `yaml:"sample_rate"`
	MinBaud           int `yaml:"min_baud"`
	MaxBaud           int `yaml:"max_baud"`
	MaxRunOfSameValue int `yaml:"max_run_of_same_value"`

	FrameWords       int `yaml:"frame_words"`
	SyncMaxBitErrors int `yaml:"sync_max_bit_errors"`
	SearchBudget     int `yaml:"search_budget"`

	// Slice the input to -1/0/+1 before clock recovery.
	Normalize bool `yaml:"normalize"`

	// Flush and resync after this many buffers of nothing but dead
	// zone.  Zero to disable.  Needs Normalize.
	SilenceFlushBuffers int `yaml:"silence_flush_buffers"`
}

func DefaultConfig() Config {
	return Config{
		SampleRate:          DEFAULT_SAMPLES_PER_SEC,
		MinBaud:             DEFAULT_MIN_BAUD,
		MaxBaud:             DEFAULT_MAX_BAUD,
		MaxRunOfSameValue:   MAX_CONSEC_SAME,
		FrameWords:          DEFAULT_FRAME_WORDS,
		SyncMaxBitErrors:    0,
		SearchBudget:        DEFAULT_SEARCH_BUDGET,
		Normalize:           false,
		SilenceFlushBuffers: 0,
	}
}

// ParseConfig reads YAML over the defaults.
func ParseConfig(data []byte) (Config, error) {
	var c = DefaultConfig()

	var err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, fmt.Errorf("parsing config: %w", err)
	}

	err = c.Validate()
	if err != nil {
		return c, err
	}

	return c, nil
}

func LoadConfig(path string) (Config, error) {
	var data, err = os.ReadFile(path) //nolint:gosec // User supplied config path
	if err != nil {
		return DefaultConfig(), fmt.Errorf("reading config %s: %w", path, err)
	}

	var c, parseErr = ParseConfig(data)
	if parseErr != nil {
		return c, fmt.Errorf("%s: %w", path, parseErr)
	}

	return c, nil
}

func (c Config) Validate() error {
	var err = validateTiming(c.SampleRate, c.MinBaud, c.MaxBaud, c.MaxRunOfSameValue)
	if err != nil {
		return err
	}

	if c.FrameWords < 1 || c.FrameWords > MAX_CODEWORDS {
		return fmt.Errorf("%w: %d, must be 1 to %d", ErrInvalidFrameWords, c.FrameWords, MAX_CODEWORDS)
	}

	if c.SyncMaxBitErrors < 0 || c.SyncMaxBitErrors > MAX_SYNC_BIT_ERRORS {
		return fmt.Errorf("%w: %d, must be 0 to %d", ErrInvalidSyncErrors, c.SyncMaxBitErrors, MAX_SYNC_BIT_ERRORS)
	}

	// Less than one window and we could never see a whole sync word in one call.
	if c.SearchBudget < 32 {
		return fmt.Errorf("%w: %d, must be at least 32", ErrInvalidSearchBudget, c.SearchBudget)
	}

	if c.SilenceFlushBuffers < 0 {
		return fmt.Errorf("%w: %d buffers", ErrInvalidSilence, c.SilenceFlushBuffers)
	}

	if c.SilenceFlushBuffers > 0 && !c.Normalize {
		return fmt.Errorf("%w: silence detection needs normalize", ErrInvalidSilence)
	}

	return nil
}

func validateTiming(samplesPerSec int, minBaud int, maxBaud int, maxRunOfSameValue int) error {
	if samplesPerSec <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, samplesPerSec)
	}

	if minBaud <= 0 || maxBaud <= 0 || minBaud >= maxBaud {
		return fmt.Errorf("%w: min %d, max %d", ErrInvalidBaudRange, minBaud, maxBaud)
	}

	// Need at least two samples per symbol to see anything.
	if samplesPerSec < 2*maxBaud {
		return fmt.Errorf("%w: max %d baud needs a sample rate of at least %d, not %d", ErrInvalidBaudRange, maxBaud, 2*maxBaud, samplesPerSec)
	}

	if maxRunOfSameValue < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRunLength, maxRunOfSameValue)
	}

	return nil
}
