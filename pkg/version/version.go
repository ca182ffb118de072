package version

// Version is the current version of goalctl.
const Version = "0.1.0"
