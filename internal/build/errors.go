package build

import "errors"

// Sentinel errors classifying fatal pipeline failures. They are wrapped with
// context at the call site.
var (
	ErrDiscovery    = errors.New("docxref: discovery error")
	ErrExternalMaps = errors.New("docxref: external xref map error")
	ErrOutput       = errors.New("docxref: output error")
)
