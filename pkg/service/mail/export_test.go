package mail

// BuildMIME is exported for testing
var BuildMIME = buildMIME
