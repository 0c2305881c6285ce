package audit

import (
	"encoding/json"
	"regexp"
)

// SecretKind names a class of secret removed from audit payloads
type SecretKind string

const (
	SecretJWT         SecretKind = "jwt"
	SecretBearer      SecretKind = "bearer"
	SecretPrivateKey  SecretKind = "private_key"
	SecretURLPassword SecretKind = "url_password"
	SecretURLQuery    SecretKind = "url_signature"
	SecretAWSKey      SecretKind = "aws_key"
)

type redactionRule struct {
	kind        SecretKind
	pattern     *regexp.Regexp
	replacement string
}

// Payloads are JSON text, so query separators may appear as & and
// replacements must not introduce quotes or backslashes.
var redactionRules = []redactionRule{
	{
		kind:        SecretPrivateKey,
		pattern:     regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[^"]*?-----END [A-Z ]*PRIVATE KEY-----`),
		replacement: "[REDACTED:private_key]",
	},
	{
		kind:        SecretJWT,
		pattern:     regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`),
		replacement: "[REDACTED:jwt]",
	},
	{
		kind:        SecretBearer,
		pattern:     regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/]{16,}=*`),
		replacement: "${1}[REDACTED]",
	},
	{
		kind:        SecretURLPassword,
		pattern:     regexp.MustCompile(`(?i)([a-z][a-z0-9+.\-]*://[^\s"/:@]+:)[^\s"/@]+@`),
		replacement: "${1}[REDACTED]@",
	},
	{
		kind:        SecretURLQuery,
		pattern:     regexp.MustCompile(`(?i)((?:[?&]|\\u0026)(?:x-amz-signature|x-amz-credential|x-amz-security-token|x-goog-signature|signature|sig|token|access_token)=)[^&"\s\\]+`),
		replacement: "${1}[REDACTED]",
	},
	{
		kind:        SecretAWSKey,
		pattern:     regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),
		replacement: "[REDACTED:aws_key]",
	},
}

// RedactPayload masks credentials and signatures that callers paste into
// request payloads (signed URLs, bearer tokens, connection strings).
// It returns the payload unchanged when nothing matched and reports the
// kinds that were removed.
func RedactPayload(payload json.RawMessage) (json.RawMessage, []SecretKind) {
	if len(payload) == 0 {
		return payload, nil
	}

	text := string(payload)
	var found []SecretKind
	for _, rule := range redactionRules {
		if !rule.pattern.MatchString(text) {
			continue
		}
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
		found = append(found, rule.kind)
	}
	if len(found) == 0 {
		return payload, nil
	}
	if !json.Valid([]byte(text)) {
		// Never store a half-masked payload
		return json.RawMessage(`{"redacted":true}`), found
	}
	return json.RawMessage(text), found
}
