package backend

import (
	"encoding/json"
	"fmt"
)

// uploadIDKeys lists the response keys that may carry the durable identity,
// in preference order. Older backend builds answered with "id" or "name".
var uploadIDKeys = []string{"documentId", "id", "name"}

// NormalizeUploadResponse folds the varying upload response shapes into one
// UploadResult. DocumentID is left empty when no key carries a value; the
// "undefined" sentinel is passed through untouched for the caller to reject.
func NormalizeUploadResponse(raw map[string]interface{}) UploadResult {
	res := UploadResult{Raw: raw}
	for _, key := range uploadIDKeys {
		if id := scalarString(raw[key]); id != "" {
			res.DocumentID = id
			break
		}
	}
	res.Filename = scalarString(raw["filename"])
	res.Name = scalarString(raw["name"])
	res.FileExt = scalarString(raw["file_ext"])
	if n, ok := raw["numPages"].(float64); ok {
		res.NumPages = int(n)
	}
	return res
}

// ParseUploadResponse decodes a JSON upload response and normalizes it.
func ParseUploadResponse(data []byte) (UploadResult, error) {
	raw := map[string]interface{}{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
		}
	}
	return NormalizeUploadResponse(raw), nil
}
