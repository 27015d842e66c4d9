package handler

import (
	"net/http"

	"github.com/gabfadel/gab-health/pkg/response"

	"github.com/sirupsen/logrus"
)

// writeError maps application errors onto their status. Anything else is
// logged and reported as a 500 with fallback as the message.
func writeError(w http.ResponseWriter, r *http.Request, log *logrus.Logger, err error, fallback string) {
	if !response.FromError(w, err, fallback) {
		log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Errorf("%s: %+v", fallback, err)
	}
}
