package ternlab

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var rawVersion string

// Version is the release version of ternlab.
var Version = strings.TrimSpace(rawVersion)
