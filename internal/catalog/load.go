package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/mod/semver"

	"github.com/abhisek/campus/internal/validate"
)

// SupportedFormatMajor is the import document major version this build reads.
const SupportedFormatMajor = "v1"

// Document is the on-disk import format for a formation.
type Document struct {
	FormatVersion string    `json:"format_version"`
	Formation     Formation `json:"formation"`
}

// Decode reads a formation document, checks it against DocumentSchema and
// the supported format version, then normalizes and validates the formation.
func Decode(r io.Reader) (Formation, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Formation{}, fmt.Errorf("read document: %w", err)
	}

	if err := validate.JSON(DocumentSchema, raw); err != nil {
		return Formation{}, err
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Formation{}, fmt.Errorf("decode document: %w", err)
	}

	if err := CheckFormatVersion(doc.FormatVersion); err != nil {
		return Formation{}, err
	}

	f := doc.Formation
	Normalize(&f)
	if err := Validate(f); err != nil {
		return Formation{}, err
	}
	return f, nil
}

// CheckFormatVersion accepts any valid semantic version whose major
// component matches SupportedFormatMajor.
func CheckFormatVersion(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("format_version %q is not a valid semantic version", v)
	}
	if major := semver.Major(v); major != SupportedFormatMajor {
		return fmt.Errorf("format_version %s not supported (want %s.x)", v, SupportedFormatMajor)
	}
	return nil
}
