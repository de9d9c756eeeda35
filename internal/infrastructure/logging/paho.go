package logging

import (
	"context"
	"fmt"
	"log/slog"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// pahoAdapter routes paho's internal log output into slog at a fixed level.
type pahoAdapter struct {
	logger *Logger
	level  slog.Level
}

func (a pahoAdapter) Println(v ...interface{}) {
	a.logger.Log(context.Background(), a.level, fmt.Sprint(v...), "source", "paho")
}

func (a pahoAdapter) Printf(format string, v ...interface{}) {
	a.logger.Log(context.Background(), a.level, fmt.Sprintf(format, v...), "source", "paho")
}

// EnableMQTTTrace wires the MQTT library's internal loggers into the given
// Logger. Errors and criticals always map to error level; warnings to warn.
// When verbose is true the library's debug stream is enabled as well, which
// traces every packet sent and received.
func EnableMQTTTrace(logger *Logger, verbose bool) {
	pahomqtt.ERROR = pahoAdapter{logger: logger, level: slog.LevelError}
	pahomqtt.CRITICAL = pahoAdapter{logger: logger, level: slog.LevelError}
	pahomqtt.WARN = pahoAdapter{logger: logger, level: slog.LevelWarn}
	if verbose {
		pahomqtt.DEBUG = pahoAdapter{logger: logger, level: slog.LevelDebug}
	}
}
