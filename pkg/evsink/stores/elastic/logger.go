package elastic

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RoundTripLogger logs HTTP round trips of the Elasticsearch and OpenSearch
// clients. Successful requests are logged at debug level, failed ones at warn.
type RoundTripLogger struct {
	Logger logrus.FieldLogger
}

// LogRoundTrip implements the client logger interface.
func (l *RoundTripLogger) LogRoundTrip(request *http.Request, response *http.Response, err error, start time.Time, duration time.Duration) error {
	const logMessage = "Search store request"
	level := logrus.DebugLevel
	entry := l.Logger.WithFields(logrus.Fields{"start": start, "duration": duration})
	if request != nil {
		entry = entry.WithFields(logrus.Fields{
			"method": request.Method,
			"url":    request.URL.Redacted(),
		})
	} else {
		level = logrus.WarnLevel
	}
	if response != nil {
		entry = entry.WithFields(logrus.Fields{
			"status":     response.Status,
			"statusCode": response.StatusCode,
		})
	} else {
		level = logrus.WarnLevel
	}
	if err != nil {
		entry = entry.WithError(err)
		level = logrus.WarnLevel
	}
	entry.Log(level, logMessage)
	return nil
}

// RequestBodyEnabled reports whether request bodies are passed to LogRoundTrip.
func (l *RoundTripLogger) RequestBodyEnabled() bool {
	return false
}

// ResponseBodyEnabled reports whether response bodies are passed to LogRoundTrip.
func (l *RoundTripLogger) ResponseBodyEnabled() bool {
	return false
}
