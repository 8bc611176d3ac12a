// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides RedactingLogger, the access logger used in production.
// Respondent emails travel in query strings (exports, searches) and tokens in
// the websocket "token" parameter, so both are scrubbed before logging, along
// with phone numbers and sensitive headers.
package middleware

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are masked in addition to Authorization, Cookie and
	// Set-Cookie. Case-insensitive.
	MaskHeaders []string
	// MaskParams are query parameters whose values are always masked, in
	// addition to "token", "password" and "email".
	MaskParams []string
}

var (
	emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	jwtRE   = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`)
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
)

// Redact masks emails, phone numbers and JWTs inside s. UUIDs (survey and
// response ids) are kept verbatim; their last group can be all digits.
func Redact(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range uuidRE.FindAllStringIndex(s, -1) {
		b.WriteString(redactPII(s[last:m[0]]))
		b.WriteString(s[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(redactPII(s[last:]))
	return b.String()
}

func redactPII(s string) string {
	if s == "" {
		return s
	}
	s = jwtRE.ReplaceAllString(s, "[REDACTED:token]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger is Logger with scrubbing of query strings and headers.
// The request-scoped logger it attaches is the same as Logger's.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := lowerSet([]string{"authorization", "cookie", "set-cookie"}, opts.MaskHeaders)
	maskParams := lowerSet([]string{"token", "password", "email"}, opts.MaskParams)

	fields := func(c *gin.Context) (string, string) {
		return routePath(c), truncate(redactQuery(c.Request.URL.RawQuery, maskParams), maxQueryLogLength)
	}
	extra := func(c *gin.Context, ev *zerolog.Event) {
		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, masked := maskHeaders[strings.ToLower(k)]; masked {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = Redact(strings.Join(vv, ", "))
		}
		ev.Interface("headers", headers)
	}
	return accessLog(fields, extra)
}

// redactQuery masks listed parameters wholesale and scrubs the rest.
func redactQuery(raw string, mask map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return Redact(raw)
	}
	for k, vv := range vals {
		_, masked := mask[strings.ToLower(k)]
		for i := range vv {
			if masked {
				vv[i] = "[REDACTED]"
			} else {
				vv[i] = Redact(vv[i])
			}
		}
	}
	// Encode escapes the brackets; the decoded form is easier to read.
	out, err := url.QueryUnescape(vals.Encode())
	if err != nil {
		return vals.Encode()
	}
	return out
}

func lowerSet(base, extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range append(base, extra...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}
