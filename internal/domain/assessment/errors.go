package assessment

import "errors"

// ErrMalformedResult reports a response that does not match the expected schema.
var ErrMalformedResult = errors.New("malformed assessment result")
