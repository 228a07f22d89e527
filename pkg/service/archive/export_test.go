package archive

// ObjectName is exported for testing
var ObjectName = objectName
