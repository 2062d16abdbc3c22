package services

import (
	"regexp"

	"makelaarsland-notifier/models"
)

// fieldAliases lists, per canonical field, the labels it may appear under.
var fieldAliases = map[string][]string{
	models.FieldLivingArea: {"Woonoppervlakte", "Oppervlakte", "Gebruiksoppervlakte"},
	models.FieldVolume:     {"Inhoud"},
	models.FieldBuildYear:  {"Bouwjaar"},
	models.FieldRooms:      {"Aantal kamers", "Kamers"},
	models.FieldBathrooms:  {"Aantal badkamers", "Badkamers"},
	models.FieldBedrooms:   {"Aantal slaapkamers", "Slaapkamers"},
	models.FieldEnergy:     {"Energielabel", "Energielabel woning", "Energie label"},
}

var bedroomsRegexp = regexp.MustCompile(`(\d+)\s*slaapkamers`)

// ExtractImportantInfo resolves the canonical fields from sections. The first
// section (in insertion order) holding any alias wins, then the first
// matching key within it.
func ExtractImportantInfo(sections models.DetailSections) models.ImportantFields {
	var fields models.ImportantFields

	for _, name := range models.ImportantFieldOrder {
		*fields.Field(name) = lookupAlias(sections, fieldAliases[name])
	}

	if fields.Bedrooms == "" {
		if m := bedroomsRegexp.FindStringSubmatch(fields.Rooms); m != nil {
			fields.Bedrooms = m[1]
		}
	}

	if fields.EnergyLabel == "" {
		if s := sections.Section("Energielabel"); s != nil {
			if v, ok := s.Get("Energieklasse"); ok {
				fields.EnergyLabel = v
			}
		}
	}

	return fields
}

func lookupAlias(sections models.DetailSections, aliases []string) string {
	for _, s := range sections.Sections() {
		for _, a := range s.Attributes {
			for _, alias := range aliases {
				if a.Key == alias {
					return a.Value
				}
			}
		}
	}
	return ""
}
