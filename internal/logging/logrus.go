package logging

import "github.com/sirupsen/logrus"

// LogrusAdapter adapts a *logrus.Logger to the Logger capability
// interface, converting the variadic key/value pairs into logrus fields.
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter wraps l. If l is nil, logrus.StandardLogger() is used.
func NewLogrusAdapter(l *logrus.Logger) *LogrusAdapter {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogrusAdapter{entry: logrus.NewEntry(l)}
}

func (a *LogrusAdapter) fields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

func (a *LogrusAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.entry.WithFields(a.fields(keysAndValues)).Debug(msg)
}

func (a *LogrusAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.entry.WithFields(a.fields(keysAndValues)).Info(msg)
}

func (a *LogrusAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.entry.WithFields(a.fields(keysAndValues)).Warn(msg)
}

func (a *LogrusAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.entry.WithFields(a.fields(keysAndValues)).Error(msg)
}
