// Package privacy redacts credentials and query strings from text that leaves
// the process through telemetry, logs or error context.
package privacy

import (
	"net/url"
	"regexp"
	"strings"
)

// Redacted replaces every removed value.
const Redacted = "[REDACTED]"

var (
	urlPattern = regexp.MustCompile(`\b(?:https?|tcp|ssl|wss?|mqtts?)://\S+`)

	secretPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(api[_-]?key[=:])\S+`),
		regexp.MustCompile(`(?i)(token[=:])\S+`),
		regexp.MustCompile(`(?i)(password[=:])\S+`),
		regexp.MustCompile(`(?i)(x-tester-id[=:]\s*)\S+`),
	}
)

// ScrubMessage redacts URLs and key=value secrets found in message.
func ScrubMessage(message string) string {
	scrubbed := urlPattern.ReplaceAllStringFunc(message, RedactURL)
	for _, re := range secretPatterns {
		scrubbed = re.ReplaceAllString(scrubbed, "${1}"+Redacted)
	}
	return scrubbed
}

// RedactURL keeps scheme, host and path of raw and drops the password and
// query. Unparseable input is replaced entirely.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i] + "?" + Redacted
		}
		if err != nil {
			return Redacted
		}
		return raw
	}

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.Username())
		if _, ok := u.User.Password(); ok {
			b.WriteString(":" + Redacted)
		}
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())
	if u.RawQuery != "" || u.ForceQuery {
		b.WriteString("?" + Redacted)
	}
	return b.String()
}
