package indexer

import "errors"

// ErrMarkerMissing marks a candidate skipped by the header sniff.
var ErrMarkerMissing = errors.New("not a Pluto notebook: marker not found in header")

// IndexResetError reports that the index directory could not be cleared.
type IndexResetError struct {
	Dir string
	Err error
}

func (e *IndexResetError) Error() string {
	return "reset index " + e.Dir + ": " + e.Err.Error()
}

func (e *IndexResetError) Unwrap() error {
	return e.Err
}

// CollisionError reports two notebooks mapping to the same indexed name.
type CollisionError struct {
	Name   string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	if e.First == "" {
		return "index name collision: " + e.Name + " (" + e.Second + ")"
	}
	return "index name collision: " + e.Name + " (" + e.First + ", " + e.Second + ")"
}
