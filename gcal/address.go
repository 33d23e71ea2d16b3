package gcal

import "regexp"

// Matches "Street, City, ST ZIP" with an optional ZIP+4 suffix.
var addressRe = regexp.MustCompile(`^(.+?),\s*(.+?),\s*([A-Z]{2})\s*(\d{5}(?:-\d{4})?)$`)

// SplitAddress breaks the raw address into street/city/state/zip when it
// follows the "Street, City, ST ZIP" convention. Addresses in any other
// shape are left whole in the Address field.
func (c *Customer) SplitAddress() {
	if c.Address == "" {
		return
	}
	m := addressRe.FindStringSubmatch(c.Address)
	if m == nil {
		return
	}
	c.Address = m[1]
	c.City = m[2]
	c.State = m[3]
	c.Zip = m[4]
}
