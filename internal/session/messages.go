package session

// User-facing texts for the error codes the store recognizes. Unknown codes
// are surfaced verbatim so the backend can introduce new ones without a
// client release.
var friendlyMessages = map[string]string{
	"INVALID_CREDENTIALS": "Invalid credentials",
	"INVALID_INPUT":       "Please enter a valid email and password",
	"NETWORK_ERROR":       "Unable to reach the server. Check your connection and try again",
	"TOKEN_EXPIRED":       "Your session has expired. Please sign in again",
	"REFRESH_FAILED":      "Your session could not be renewed. Please sign in again",
	"REQUEST_FAILED":      "Something went wrong. Please try again",
	"NOT_ADMIN":           "Only admin users are allowed to sign in here",
	"NOT_CUSTOMER":        "Only customer accounts are allowed to sign in here",
	"NOT_TAASKR":          "Only taaskr accounts are allowed to sign in here",
}

// messageFor resolves the most specific available text: server-supplied
// detail, else the mapped friendly string, else the raw code.
func messageFor(code, detail string) string {
	if detail != "" {
		return detail
	}
	if text, ok := friendlyMessages[code]; ok {
		return text
	}
	return code
}
