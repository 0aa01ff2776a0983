package metadata

import "strings"

// originToken is the literal separator Hotmart inserts between segments of
// the sck/xcod origin tracking blob. It is opaque vendor data; we parse on
// read and never rely on any segment being present.
const originToken = "hQwK21wXxR"

// OriginAttribution is the decoded form of a Hotmart origin blob.
type OriginAttribution struct {
	Source       string
	CampaignName string
	CampaignID   string
	AdsetName    string
	AdsetID      string
	CreativeName string
	CreativeID   string
	Placement    string
}

// Empty reports whether no fragment decoded to a usable value.
func (o OriginAttribution) Empty() bool {
	return o.Source == "" &&
		o.CampaignName == "" && o.CampaignID == "" &&
		o.AdsetName == "" && o.AdsetID == "" &&
		o.CreativeName == "" && o.CreativeID == "" &&
		o.Placement == ""
}

// DecodeOriginBlob parses a raw sck/xcod value. Segments are split on the
// separator token; segments containing "|" are compound metadata decoded
// positionally as campaign, adset, creative. A fourth plain segment is the
// placement, and anything before the first token occurrence is the source
// prefix. Returns nil when nothing usable decodes — that signals "no
// attribution metadata", not an error.
func DecodeOriginBlob(raw string) *OriginAttribution {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var source string
	if idx := strings.Index(raw, originToken); idx > 0 {
		source = strings.TrimSpace(raw[:idx])
	}

	var segments []string
	for _, part := range strings.Split(raw, originToken) {
		part = strings.TrimSpace(part)
		if part != "" {
			segments = append(segments, part)
		}
	}

	var metaSegments []string
	for _, part := range segments {
		if strings.Contains(part, "|") {
			metaSegments = append(metaSegments, part)
		}
	}

	attr := OriginAttribution{Source: source}
	if len(metaSegments) > 0 {
		attr.CampaignName, attr.CampaignID = Decode(metaSegments[0])
	}
	if len(metaSegments) > 1 {
		attr.AdsetName, attr.AdsetID = Decode(metaSegments[1])
	}
	if len(metaSegments) > 2 {
		attr.CreativeName, attr.CreativeID = Decode(metaSegments[2])
	}
	if len(segments) > 3 {
		attr.Placement = segments[3]
	}

	if attr.Empty() {
		return nil
	}
	return &attr
}
