package wire

import "fmt"

// MalformedError reports a buffer that cannot be decoded as protobuf fields.
// It is localized: fields decoded before the reported offset remain valid.
type MalformedError struct {
	// Offset is the byte offset where decoding failed.
	Offset int

	// Field is the field number being decoded when the failure occurred
	// (0 if the tag itself could not be read).
	Field uint32

	// Reason describes what was wrong with the bytes.
	Reason string
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	if e.Field > 0 {
		return fmt.Sprintf("malformed wire format at offset %d (field %d): %s", e.Offset, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed wire format at offset %d: %s", e.Offset, e.Reason)
}
