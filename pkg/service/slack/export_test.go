package slack

// BuildBlocks is exported for testing
var BuildBlocks = buildBlocks
