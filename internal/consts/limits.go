package consts

import "time"

// Request body limits
const (
	// MaxJSONBodyBytes bounds JSON request bodies on the API
	MaxJSONBodyBytes = 1 << 20
	// MaxPhotoBytes bounds an uploaded meal photo
	MaxPhotoBytes = 10 << 20
	// MaxFormulaLength bounds a calculator formula accepted over the API
	MaxFormulaLength = 4096
)

// LLM defaults
const (
	// DefaultMaxTokens matches the completion budget of the analysis prompts
	DefaultMaxTokens = 1000
	// DefaultTemperature keeps nutrition estimates stable between calls
	DefaultTemperature = 0.2
)

// History
const (
	// DefaultHistoryDays is the length of the weekly history view
	DefaultHistoryDays = 7
	// MaxHistoryDays caps the history window a client can request
	MaxHistoryDays = 366
)

// Timeouts for various operations
const (
	Timeout5Seconds  = 5 * time.Second
	Timeout10Seconds = 10 * time.Second
	Timeout30Seconds = 30 * time.Second
	Timeout60Seconds = 60 * time.Second
	Timeout2Minutes  = 2 * time.Minute
)
