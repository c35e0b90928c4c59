package backupimport

import (
	"bytes"
	"encoding/json"

	"github.com/openbookapp/openbook-library/internal/backup/export"
	domainerrors "github.com/openbookapp/openbook-library/internal/errors"
)

// envelope holds the top-level fields undecoded so each check can report its own error.
type envelope struct {
	Version   json.RawMessage `json:"version"`
	Lists     json.RawMessage `json:"lists"`
	Books     json.RawMessage `json:"books"`
	ListBooks json.RawMessage `json:"listBooks"`
}

// decode parses and validates data in order: syntax, version, then shape.
func decode(data []byte) (*export.Document, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, domainerrors.MalformedDocument(err)
	}

	// A top-level value that is not an object has no version.
	var env envelope
	_ = json.Unmarshal(data, &env)

	version, err := parseVersion(env.Version)
	if err != nil {
		return nil, err
	}

	doc := &export.Document{Version: version}
	if err := decodeArray(env.Lists, "lists", &doc.Lists); err != nil {
		return nil, err
	}
	if err := decodeArray(env.Books, "books", &doc.Books); err != nil {
		return nil, err
	}
	if err := decodeArray(env.ListBooks, "listBooks", &doc.ListBooks); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseVersion(raw json.RawMessage) (int, error) {
	var v float64
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil || v <= 0 {
		return 0, domainerrors.UnsupportedVersionf("backup version missing (supported: %d)", export.FormatVersion)
	}
	if v > export.FormatVersion {
		return 0, domainerrors.UnsupportedVersionf("backup version %v is newer than supported version %d", v, export.FormatVersion)
	}
	return int(v), nil
}

func decodeArray[T any](raw json.RawMessage, field string, out *[]T) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return domainerrors.InvalidDocumentf("%s must be an array", field)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return domainerrors.InvalidDocumentf("%s: %v", field, err)
	}
	return nil
}
