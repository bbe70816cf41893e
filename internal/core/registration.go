package core

import (
	"regexp"
	"strings"

	"generic-exporter/internal/types"
)

// Registration file names follow LCK..<package>__<normalized peer id>,
// e.g. LCK..node-exporter__generic-exporter_0.
const (
	RegistrationPrefix    = "LCK.."
	RegistrationSeparator = "__"
)

var peerIDDisallowed = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// NormalizePeerID replaces every character outside [A-Za-z0-9_-] with an
// underscore. The mapping is lossy: "unit/0" and "unit.0" collide.
func NormalizePeerID(peerID string) string {
	return peerIDDisallowed.ReplaceAllString(peerID, "_")
}

func RegistrationFilename(record types.RegistrationRecord) string {
	return RegistrationPrefix + record.PackageName + RegistrationSeparator + NormalizePeerID(record.PeerID)
}

// ParseRegistrationFilename splits a registration file name on the first
// separator after the prefix. The registry and the spec compiler reject
// package names containing the separator; normalized peer ids may hold it. Names that do not fit the layout are rejected.
func ParseRegistrationFilename(name string) (types.RegistrationRecord, bool) {
	rest, ok := strings.CutPrefix(name, RegistrationPrefix)
	if !ok {
		return types.RegistrationRecord{}, false
	}
	packageName, peerID, ok := strings.Cut(rest, RegistrationSeparator)
	if !ok || packageName == "" || peerID == "" {
		return types.RegistrationRecord{}, false
	}
	return types.RegistrationRecord{PeerID: peerID, PackageName: packageName}, true
}
