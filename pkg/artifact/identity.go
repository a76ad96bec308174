package artifact

import (
	"path/filepath"
	"strings"
	"time"
)

const identityTimeLayout = "20060102_150405"

// Identity names every artifact of one request. Two uploads of the same
// filename within the same second share an identity and overwrite each
// other.
type Identity struct {
	Key  string
	Stem string
}

func NewIdentity(filename string, now time.Time) Identity {
	name := SanitizeFilename(filename)
	ts := now.Format(identityTimeLayout)
	return Identity{
		Key:  ts + "_" + name,
		Stem: ts + "_" + strings.TrimSuffix(name, filepath.Ext(name)),
	}
}

func (i Identity) ImageName() string {
	return i.Key
}

func (i Identity) JSONName() string {
	return i.Stem + ".json"
}

// SanitizeFilename keeps only the final path element of a client supplied
// name so it can never address anything outside the artifact directories.
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload"
	}
	return name
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, "/\\") && name == filepath.Base(name)
}
