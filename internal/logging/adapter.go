package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog logger through the key-value Logger interface
// the internal packages declare (Debug/Info/Warn/Error with alternating
// key-value pairs). It satisfies fetch.Logger, runner.Logger,
// config.Logger and pipeline.Logger.
type Adapter struct {
	logger zerolog.Logger
}

// NewAdapter wraps a zerolog logger.
func NewAdapter(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// Debug logs at debug level.
func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.log(a.logger.Debug(), msg, keysAndValues)
}

// Info logs at info level.
func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.log(a.logger.Info(), msg, keysAndValues)
}

// Warn logs at warn level.
func (a *Adapter) Warn(msg string, keysAndValues ...interface{}) {
	a.log(a.logger.Warn(), msg, keysAndValues)
}

// Error logs at error level.
func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	a.log(a.logger.Error(), msg, keysAndValues)
}

func (a *Adapter) log(event *zerolog.Event, msg string, keysAndValues []interface{}) {
	event.Fields(fieldMap(keysAndValues)).Msg(msg)
}

// fieldMap converts alternating key-value pairs into a field map. A
// trailing key without a value is kept with a nil value rather than
// dropped, so mistakes stay visible in the output.
func fieldMap(keysAndValues []interface{}) map[string]interface{} {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		if i+1 < len(keysAndValues) {
			fields[key] = keysAndValues[i+1]
		} else {
			fields[key] = nil
		}
	}
	return fields
}
