package alog

import (
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects a subset of Records when replaying a log. Zero-value
// fields match everything for that criterion.
type Filter struct {
	// DeviceID restricts to an exact device id match.
	DeviceID string

	// Action restricts to an exact action match.
	Action string

	// SuccessOnly, when true, restricts to successful records only.
	SuccessOnly bool

	// FailuresOnly, when true, restricts to failed records only. Setting
	// both SuccessOnly and FailuresOnly matches nothing.
	FailuresOnly bool

	// Since restricts to records at or after this time.
	Since *time.Time

	// Until restricts to records strictly before this time.
	Until *time.Time
}

func (f Filter) matches(r Record) bool {
	if f.DeviceID != "" && r.DeviceID != f.DeviceID {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if f.SuccessOnly && !r.Success {
		return false
	}
	if f.FailuresOnly && r.Success {
		return false
	}
	if f.Since != nil && r.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !r.Timestamp.Before(*f.Until) {
		return false
	}
	return true
}

// Reader streams Records back out of a CBOR-encoded action-log file,
// mirroring the reference controller's Reader/NewFilteredReader split.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path and returns a Reader over every record.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and returns a Reader that only yields
// records matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, decoder: newDecoder(f), filter: filter}, nil
}

// Next returns the next Record matching the filter, or io.EOF once the
// file is exhausted.
func (r *Reader) Next() (Record, error) {
	for {
		var rec Record
		if err := r.decoder.Decode(&rec); err != nil {
			if err == io.EOF {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		if r.filter.matches(rec) {
			return rec, nil
		}
	}
}

// All drains the Reader and returns every matching Record.
func (r *Reader) All() ([]Record, error) {
	var out []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
