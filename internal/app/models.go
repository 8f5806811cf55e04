package app

import (
	"encoding/json"
	"fmt"
)

// Record is an untyped JSON object, the unit of input and output. Loaded
// records hold numbers as json.Number.
type Record = map[string]interface{}

// OutputRecord is what the synchronous pipeline saves. Field order is the
// serialized key order. OriginalData is the input object as JSON text.
type OutputRecord struct {
	Timestamp    string          `json:"timestamp"`
	OriginalData json.RawMessage `json:"original_data"`
	Processed    bool            `json:"processed"`
}

// LoadStatus tells apart the three ways loading the input can end.
type LoadStatus int

const (
	LoadStatusLoaded LoadStatus = iota
	LoadStatusAbsent
	LoadStatusMalformed
)

func (s LoadStatus) String() string {
	switch s {
	case LoadStatusLoaded:
		return "loaded"
	case LoadStatusAbsent:
		return "absent"
	case LoadStatusMalformed:
		return "malformed"
	}
	return fmt.Sprintf("LoadStatus(%d)", int(s))
}

// LoadResult is the outcome of LoadData. Record is never nil: absent and
// malformed inputs both yield an empty record, and Err explains the latter.
// Raw is the input text and is set only for LoadStatusLoaded.
type LoadResult struct {
	Status LoadStatus
	Record Record
	Raw    json.RawMessage
	Path   string
	Err    error
}
