package ingest

import "regexp"

// Friction-signal patterns matched against message text. Assistant messages
// are checked for errors, retries and discoveries; user messages for
// corrections. Anchors bind to the start of the message.
var (
	errorPattern = regexp.MustCompile(`(?i)` +
		`error[:\s]|\bfailed\b|\bfailure\b|not found|doesn't exist|` +
		`\binvalid\b|\bcannot\b|unable to`)

	retryPattern = regexp.MustCompile(`(?i)` +
		`let me try|let me check|let me fix|let me look|that didn't work|` +
		`try a different|try another|instead,?\s+(?:let|i'll)|` +
		`actually,?\s+(?:the|let|i)|the issue is|the problem is|i see the issue`)

	correctionPattern = regexp.MustCompile(`(?i)` +
		`^no[,.\s]|^wrong|^that's wrong|^actually[,\s]|you can't|that's not|` +
		`that won't work|that doesn't|not what i|i said\b|i meant\b`)

	discoveryPattern = regexp.MustCompile(`(?i)` +
		`i see[\s!]|i found|the (?:issue|problem|root cause|reason) (?:is|was)|` +
		`now i understand|that's because|the fix is|\bresolved\b|` +
		`working now|successfully`)
)

func hasError(text string) bool    { return errorPattern.MatchString(text) }
func isRetry(text string) bool     { return retryPattern.MatchString(text) }
func isCorrection(text string) bool { return correctionPattern.MatchString(text) }
func isDiscovery(text string) bool { return discoveryPattern.MatchString(text) }
