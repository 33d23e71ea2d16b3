package gcal

import (
	"regexp"
	"strings"

	calendar "google.golang.org/api/calendar/v3"
)

// descriptionPrefix marks events created through the booking form; their
// description starts with a structured "Event Name ..." block.
const descriptionPrefix = "Event Name"

// Matches +1 312-922-2388, (812) 929-2381, 400-942-5598 and similar.
var phoneRe = regexp.MustCompile(`(\+\d{1,3}[- ]?)?\(?\d{3}\)?[- ]?\d{3}[- ]?\d{4}|\d{3}[- ]?\d{3}[- ]?\d{4}`)

// Customer is the record extracted from a booking event. The address starts
// as the raw location string and is split into components before a contact
// request is built from it.
type Customer struct {
	FirstName  string
	SecondName string
	Email      string
	Phone      string
	Address    string
	City       string
	State      string
	Zip        string
	Note       string
}

// RetrieveCustomer extracts a customer from the event using one of the two
// recognized formats. A manually entered booking has a summary starting
// with the delimiter; a structured booking has a description starting with
// the "Event Name" prefix. Anything else is a normal skip, not an error.
func RetrieveCustomer(event *calendar.Event, delimiter string) (Customer, bool) {
	if event == nil {
		return Customer{}, false
	}
	if strings.TrimSpace(event.Summary) == "" {
		return Customer{}, false
	}
	if strings.HasPrefix(event.Summary, delimiter) {
		return parseDelimited(event)
	}
	if strings.HasPrefix(event.Description, descriptionPrefix) {
		return parseStructured(event)
	}
	return Customer{}, false
}

// parseDelimited handles "<delim> First Second ... 400-942-5598 ..."
// summaries.
func parseDelimited(event *calendar.Event) (Customer, bool) {
	tokens := strings.Fields(event.Summary)
	if len(tokens) < 3 {
		return Customer{}, false
	}
	customer := Customer{
		FirstName:  tokens[1],
		SecondName: tokens[2],
	}
	if phone := ParsePhone(event.Summary); phone != "" {
		customer.Phone = phone
	}
	if strings.TrimSpace(event.Location) != "" {
		customer.Address = event.Location
	}
	return customer, true
}

// parseStructured handles booking-form events: names from the summary,
// phone from the description, email from the second attendee when it is not
// the organizer.
func parseStructured(event *calendar.Event) (Customer, bool) {
	tokens := strings.Fields(event.Summary)
	if len(tokens) < 2 {
		return Customer{}, false
	}
	customer := Customer{
		FirstName:  tokens[0],
		SecondName: tokens[1],
		Phone:      ParsePhone(event.Description),
	}
	if len(event.Attendees) > 1 && !event.Attendees[1].Organizer {
		customer.Email = event.Attendees[1].Email
	}
	if event.Location != "" {
		customer.Address = event.Location
	}
	return customer, true
}

// ParsePhone returns the first phone number found in text, or "" when there
// is none.
func ParsePhone(text string) string {
	return phoneRe.FindString(text)
}
