package testlog

import (
	"testing"

	"github.com/danmuck/doipscope/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Msgf("test=%s", t.Name())
}

// Logger returns a debug logger that writes through t.Log.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	writer := zerolog.ConsoleWriter{
		Out:          zerolog.NewTestWriter(t),
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return zerolog.New(writer).Level(zerolog.DebugLevel)
}
