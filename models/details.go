package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Attribute is one labelled key/value row of a detail section.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Section is a named group of attributes, in source order.
type Section struct {
	Name       string      `json:"name"`
	Attributes []Attribute `json:"attributes"`
}

// Get returns the value stored under key.
func (s *Section) Get(key string) (string, bool) {
	for _, a := range s.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// set overwrites an existing key in place or appends a new one.
func (s *Section) set(key, value string) {
	for i := range s.Attributes {
		if s.Attributes[i].Key == key {
			s.Attributes[i].Value = value
			return
		}
	}
	s.Attributes = append(s.Attributes, Attribute{Key: key, Value: value})
}

// DetailSections maps section name to its attributes while preserving both
// section insertion order and key insertion order. The zero value is empty
// and ready to use.
type DetailSections struct {
	sections []Section
}

// Len returns the number of sections.
func (d DetailSections) Len() int { return len(d.sections) }

// Sections returns the sections in insertion order.
func (d DetailSections) Sections() []Section { return d.sections }

// Section returns the named section, or nil.
func (d *DetailSections) Section(name string) *Section {
	for i := range d.sections {
		if d.sections[i].Name == name {
			return &d.sections[i]
		}
	}
	return nil
}

// Reset starts the named section afresh. A section that already exists keeps
// its position but loses its attributes.
func (d *DetailSections) Reset(name string) {
	if s := d.Section(name); s != nil {
		s.Attributes = nil
		return
	}
	d.sections = append(d.sections, Section{Name: name})
}

// Set records key=value in the named section, creating the section if needed.
func (d *DetailSections) Set(section, key, value string) {
	s := d.Section(section)
	if s == nil {
		d.sections = append(d.sections, Section{Name: section})
		s = &d.sections[len(d.sections)-1]
	}
	s.set(key, value)
}

// Replace installs attrs as the content of the named section.
func (d *DetailSections) Replace(name string, attrs []Attribute) {
	d.Reset(name)
	s := d.Section(name)
	for _, a := range attrs {
		s.set(a.Key, a.Value)
	}
}

// Clone returns an independent copy.
func (d DetailSections) Clone() DetailSections {
	out := DetailSections{sections: make([]Section, len(d.sections))}
	for i, s := range d.sections {
		out.sections[i] = Section{
			Name:       s.Name,
			Attributes: append([]Attribute(nil), s.Attributes...),
		}
	}
	return out
}

// MarshalJSON encodes the sections as a JSON object, keeping source order.
func (d DetailSections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d.sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, s.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, a := range s.Attributes {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, a.Key); err != nil {
				return nil, err
			}
			v, err := json.Marshal(a.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

// UnmarshalJSON decodes an object of objects, keeping document order.
func (d *DetailSections) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	d.sections = nil

	if err := expectDelim(dec, '{'); err != nil {
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			return nil
		}
		return err
	}
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return err
		}
		d.Reset(name)
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		for dec.More() {
			key, err := stringToken(dec)
			if err != nil {
				return err
			}
			var value string
			if err := dec.Decode(&value); err != nil {
				return fmt.Errorf("details_sections: value of %q: %w", key, err)
			}
			d.Set(name, key, value)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("details_sections: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("details_sections: expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("details_sections: %w", err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("details_sections: expected key, got %v", tok)
	}
	return s, nil
}

// Canonical important-field names.
const (
	FieldLivingArea = "Woonoppervlakte"
	FieldVolume     = "Inhoud"
	FieldBuildYear  = "Bouwjaar"
	FieldRooms      = "Aantal kamers"
	FieldBathrooms  = "Aantal badkamers"
	FieldBedrooms   = "Aantal slaapkamers"
	FieldEnergy     = "Energielabel"
)

// ImportantFieldOrder lists the canonical fields in display order.
var ImportantFieldOrder = []string{
	FieldLivingArea,
	FieldVolume,
	FieldBuildYear,
	FieldRooms,
	FieldBathrooms,
	FieldBedrooms,
	FieldEnergy,
}

// ImportantFields holds the canonical attributes resolved from DetailSections.
// Unresolved fields are "".
type ImportantFields struct {
	LivingArea  string `json:"Woonoppervlakte"`
	Volume      string `json:"Inhoud"`
	BuildYear   string `json:"Bouwjaar"`
	Rooms       string `json:"Aantal kamers"`
	Bathrooms   string `json:"Aantal badkamers"`
	Bedrooms    string `json:"Aantal slaapkamers"`
	EnergyLabel string `json:"Energielabel"`
}

// Field returns a pointer to the struct field behind a canonical name.
func (f *ImportantFields) Field(name string) *string {
	switch name {
	case FieldLivingArea:
		return &f.LivingArea
	case FieldVolume:
		return &f.Volume
	case FieldBuildYear:
		return &f.BuildYear
	case FieldRooms:
		return &f.Rooms
	case FieldBathrooms:
		return &f.Bathrooms
	case FieldBedrooms:
		return &f.Bedrooms
	case FieldEnergy:
		return &f.EnergyLabel
	}
	return nil
}

// Pairs returns the fields as attributes, in display order.
func (f ImportantFields) Pairs() []Attribute {
	out := make([]Attribute, 0, len(ImportantFieldOrder))
	for _, name := range ImportantFieldOrder {
		out = append(out, Attribute{Key: name, Value: *f.Field(name)})
	}
	return out
}

// IsEmpty reports whether no field was resolved.
func (f ImportantFields) IsEmpty() bool {
	return f == ImportantFields{}
}
