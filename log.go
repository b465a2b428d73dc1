package catmint

import (
	"github.com/pion/logging"
)

const logScope = "catmint"

func loggerFor(factory logging.LoggerFactory) logging.LeveledLogger {
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	return factory.NewLogger(logScope)
}
