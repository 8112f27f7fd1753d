package billing

import "encoding/json"

// encodeMetadata serializes gateway metadata for the opaque payment blob.
// Metadata is informational; a marshal failure degrades to an empty blob.
func encodeMetadata(meta map[string]string) string {
	b, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return string(b)
}
