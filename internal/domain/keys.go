package domain

// KeyPrefix namespaces all Redis keys written by the service.
const KeyPrefix = "permitnav:"
