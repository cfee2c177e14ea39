package crawler

import (
	"encoding/json"
)

// MarshalReport encodes a crawl or search report as JSON.
// Indent affects formatting only, and the output always ends with a newline.
func MarshalReport(report any, indent bool) []byte {
	var (
		data []byte
		err  error
	)

	if indent {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}

	if err != nil {
		data = []byte(`{"error":"failed to marshal report"}`)
	}

	return ensureNewline(data)
}

func ensureNewline(data []byte) []byte {
	if len(data) == 0 || data[len(data)-1] != '\n' {
		return append(data, '\n')
	}

	return data
}
