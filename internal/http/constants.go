package http

// Generic HTTP / JSON strings
const (
	HTTPErrorMethodNotAllowedText = "method not allowed"
	HTTPErrorInvalidJSONText      = "invalid JSON"
	HTTPErrorForbiddenText        = "forbidden"
	HTTPErrorForbiddenHostText    = "forbidden host"
	HTTPErrorForbiddenOriginText  = "forbidden origin"
)

const (
	RefreshInProgressText = "refresh already in progress"
	InvalidAddressText    = "invalid address"
	InvalidStepText       = "step must not be negative"
	InvalidAnchorText     = "anchor width and height must be positive"
)

// Query parameters of the render entry point.
const (
	QueryNavigation = "nav"
	QueryTheme      = "theme"
	QueryWait       = "wait"
)

const corsMaxAgeSeconds = 600
