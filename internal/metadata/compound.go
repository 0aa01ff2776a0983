package metadata

import "strings"

// Compound metadata carries a human-readable name and a stable id through a
// single UTM-style string field, encoded as "name|id". Either side may be
// absent; an empty string means "no metadata at all".

// Encode joins a name/id pair into a compound token. When only one side is
// present the token is that side alone.
func Encode(name, id string) string {
	name = strings.TrimSpace(name)
	id = strings.TrimSpace(id)
	switch {
	case name != "" && id != "":
		return name + "|" + id
	case name != "":
		return name
	default:
		return id
	}
}

// Decode splits a compound token on the first "|". Missing or blank parts
// come back as empty strings.
func Decode(value string) (name, id string) {
	if value == "" {
		return "", ""
	}
	namePart, idPart, _ := strings.Cut(value, "|")
	return strings.TrimSpace(namePart), strings.TrimSpace(idPart)
}
