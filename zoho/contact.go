package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"calsync-cloud/gcal"
)

const contactsEndpoint = "contacts"

// Billing defaults for new customers. These ids come from the Zoho
// organization setup.
const (
	defaultPaymentTerms   = 15
	defaultCurrencyID     = "5971371000000000097"
	defaultTaxID          = "5971371000000092060"
	defaultTaxAuthorityID = "5971371000000092052"
)

type ContactPerson struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type Address struct {
	AddressLine1 string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
}

type ContactRequest struct {
	ContactName     string          `json:"contact_name"`
	ContactType     string          `json:"contact_type"`
	PaymentTerms    int             `json:"payment_terms"`
	CurrencyID      string          `json:"currency_id"`
	LanguageCode    string          `json:"language_code"`
	IsTaxable       bool            `json:"is_taxable"`
	TaxID           string          `json:"tax_id"`
	TaxAuthorityID  string          `json:"tax_authority_id"`
	ContactPersons  []ContactPerson `json:"contact_persons"`
	BillingAddress  Address         `json:"billing_address"`
	ShippingAddress Address         `json:"shipping_address"`
	Notes           string          `json:"notes,omitempty"`
}

type Contact struct {
	ContactID int64 `json:"contact_id"`
}

type ContactResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Contact *Contact `json:"contact"`
}

// Duplicate reports whether the response was normalized from a
// contact-already-exists rejection.
func (r *ContactResponse) Duplicate() bool {
	return r.Code == CodeDuplicateContact || r.Code == codeDuplicateLegacy
}

// NewContactRequest maps an extracted customer onto the Zoho contact
// payload. The raw address is split into components first; billing and
// shipping share the same address.
func NewContactRequest(customer gcal.Customer) ContactRequest {
	customer.SplitAddress()

	name := strings.TrimSpace(strings.Join(nonEmpty(customer.FirstName, customer.SecondName), " "))
	if name == "" {
		name = customer.Email
	}

	address := Address{
		AddressLine1: customer.Address,
		City:         customer.City,
		State:        customer.State,
		Zip:          customer.Zip,
	}

	return ContactRequest{
		ContactName:    name,
		ContactType:    "customer",
		PaymentTerms:   defaultPaymentTerms,
		CurrencyID:     defaultCurrencyID,
		LanguageCode:   "en",
		IsTaxable:      true,
		TaxID:          defaultTaxID,
		TaxAuthorityID: defaultTaxAuthorityID,
		ContactPersons: []ContactPerson{{
			FirstName: customer.FirstName,
			LastName:  customer.SecondName,
			Email:     customer.Email,
			Phone:     customer.Phone,
		}},
		BillingAddress:  address,
		ShippingAddress: address,
		Notes:           customer.Note,
	}
}

// AddContact creates the contact in Zoho. A contact-already-exists
// rejection is normalized into a successful response carrying the duplicate
// code; every other non-success outcome is classified and returned as an
// error.
func (c *Client) AddContact(ctx context.Context, req ContactRequest) (*ContactResponse, error) {
	log.Printf("Adding new contact to Zoho: %s", req.ContactName)

	status, body, err := c.postJSON(ctx, contactsEndpoint, req)
	if err != nil {
		return nil, err
	}
	if isSuccessStatus(status) {
		var resp ContactResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode contact response: %w", err)
		}
		return &resp, nil
	}

	errResp := parseError(body)
	if errResp.Code == CodeDuplicateContact || errResp.Code == codeDuplicateLegacy {
		log.Printf("Contact %s already exists in Zoho", req.ContactName)
		return &ContactResponse{Code: errResp.Code, Message: "contact already exists"}, nil
	}
	return nil, classifyFailure(status, body)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
