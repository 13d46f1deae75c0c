package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a statement to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches password=xxx, pwd=xxx, pass=xxx (until next delimiter).
	// Covers libpq key-value strings and SQL Server ADO strings.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches user:pass@host in URL-style connection strings.
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)

	// Matches go-sql-driver DSNs: user:pass@tcp(host:port)/db
	mysqlDSNPattern = regexp.MustCompile(`([^\s:@/]+):[^@\s]+@(tcp|unix)\(`)

	// Matches password literals in DDL: IDENTIFIED BY 'x', PASSWORD = 'x', PASSWORD 'x'.
	ddlPasswordPattern = regexp.MustCompile(`(?i)(identified\s+by|password)(\s*=?\s*)'[^']*'`)
)

// SanitizeConnectionString removes sensitive data from connection strings
// Use this before logging any connection string
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = mysqlDSNPattern.ReplaceAllString(sanitized, "${1}:"+RedactedText+"@${2}(")

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Drivers echo the connection string or failing statement back in errors.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := SanitizeConnectionString(err.Error())
	sanitized = ddlPasswordPattern.ReplaceAllString(sanitized, "${1}${2}'"+RedactedText+"'")

	return sanitized
}

// SanitizeQuery truncates and sanitizes a SQL statement for logging
func SanitizeQuery(query string) string {
	return SanitizeQueryWithLimit(query, MaxQueryLogLength)
}

// SanitizeQueryWithLimit is SanitizeQuery with a caller-chosen length cap.
// A non-positive maxLen falls back to MaxQueryLogLength.
func SanitizeQueryWithLimit(query string, maxLen int) string {
	if query == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = MaxQueryLogLength
	}

	// Redact before truncating so a cut never exposes half a literal
	sanitized := ddlPasswordPattern.ReplaceAllString(query, "${1}${2}'"+RedactedText+"'")
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)

	return TruncateString(sanitized, maxLen)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
