package services

import (
	"strings"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/utils"
)

const referenceBaseURL = "https://huispedia.nl"

// ReferenceURL links a complete address to its public Huispedia page, e.g.
// https://huispedia.nl/utrecht/3555gr/h.-diemerstraat/37. It returns "" for
// incomplete addresses.
func ReferenceURL(addr models.Address) string {
	if !addr.IsComplete() {
		return ""
	}
	return strings.Join([]string{
		referenceBaseURL,
		utils.Slug(addr.City),
		strings.ToLower(addr.Postcode),
		utils.Slug(addr.Street),
		strings.ToLower(addr.HouseNumber),
	}, "/")
}
