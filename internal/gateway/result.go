package gateway

// Code tags a request outcome the backend never produced itself: transport
// failures, refresh-path failures, and undecodable responses. Backend error
// envelopes are passed through in Result.Body instead.
type Code string

const (
	// CodeNetworkError marks a transport failure before any response arrived.
	CodeNetworkError Code = "NETWORK_ERROR"
	// CodeTokenExpired marks a refresh call rejected by the backend.
	CodeTokenExpired Code = "TOKEN_EXPIRED"
	// CodeRefreshFailed marks a transport failure during the refresh call.
	CodeRefreshFailed Code = "REFRESH_FAILED"
	// CodeRequestFailed marks a non-2xx response without a usable body.
	CodeRequestFailed Code = "REQUEST_FAILED"
)

// Result is the normalized outcome of one logical request. The client never
// returns an error for any case in the failure taxonomy; callers branch on
// the tag, the status, and the decoded body.
type Result struct {
	// Code is set for locally synthesized failures and empty whenever the
	// backend produced a decodable body (success or error envelope alike).
	Code Code
	// Status is the HTTP status of the final response, zero when the
	// transport failed before a response was obtained.
	Status int
	// Body holds the decoded JSON payload. A 2xx response with an empty
	// body yields a nil Body; callers must treat that as success.
	Body any
	// Detail carries the underlying failure description for transport
	// errors.
	Detail string
}

// OK reports whether the request succeeded: no synthesized failure and a
// 2xx status.
func (r Result) OK() bool {
	return r.Code == "" && r.Status >= 200 && r.Status < 300
}

// Object returns the body as a JSON object, or nil when the body is absent
// or not an object.
func (r Result) Object() map[string]any {
	obj, _ := r.Body.(map[string]any)
	return obj
}

// ErrorCode extracts the most specific machine-readable code: a synthesized
// tag, else the backend envelope's "error" field, else empty.
func (r Result) ErrorCode() string {
	if r.Code != "" {
		return string(r.Code)
	}
	if obj := r.Object(); obj != nil {
		if code, ok := obj["error"].(string); ok {
			return code
		}
	}
	return ""
}

// ErrorDetail extracts human-readable detail text supplied by the backend,
// checking the conventional envelope fields in order.
func (r Result) ErrorDetail() string {
	obj := r.Object()
	if obj == nil {
		return r.Detail
	}
	for _, key := range []string{"detail", "message"} {
		if text, ok := obj[key].(string); ok && text != "" {
			return text
		}
	}
	return r.Detail
}
