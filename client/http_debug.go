package client

import (
	"net/http"
	"net/http/httputil"
	"os"
	"regexp"

	"github.com/rs/zerolog"
)

// debugTransport logs full request and response dumps at debug level. It is
// meant for troubleshooting API communication; enable it with
// TASKDESK_DEBUG=true or WithDebugLogging.
type debugTransport struct {
	base http.RoundTripper
	log  zerolog.Logger
}

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if reqDump, err := httputil.DumpRequestOut(req, true); err == nil {
		dt.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_dump", redact(string(reqDump))).Msg("HTTP request")
	}

	resp, err := dt.base.RoundTrip(req)
	if err != nil {
		dt.log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		dt.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).Str("response_dump", redact(string(respDump))).Msg("HTTP response")
	}
	return resp, nil
}

// RedactedValue replaces credentials in debug dumps.
const RedactedValue = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	// Authorization: Bearer <token>
	regexp.MustCompile(`(?i)(authorization:\s*bearer\s+)\S+`),
	// "token":"..." and "password":"..." in JSON bodies
	regexp.MustCompile(`(?i)("(?:token|password)"\s*:\s*")[^"]*(")`),
}

// redact masks bearer tokens and password or token JSON fields.
func redact(dump string) string {
	dump = sensitivePatterns[0].ReplaceAllString(dump, "${1}"+RedactedValue)
	return sensitivePatterns[1].ReplaceAllString(dump, "${1}"+RedactedValue+"${2}")
}

// debugLoggingRequested reports whether TASKDESK_DEBUG or DEBUG is "true".
func debugLoggingRequested() bool {
	return os.Getenv("TASKDESK_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}
