package model

import "github.com/m-mizutani/goerr/v2"

// Validation errors
var (
	ErrInvalidInput  = goerr.New("invalid input")
	ErrInvalidRecord = goerr.New("invalid notification record")
)

// Context keys for error values
const (
	FieldKey   = "field"
	RuleKey    = "rule"
	MessageKey = "message" // client facing validation message
)
