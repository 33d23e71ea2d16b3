package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calsync-cloud/gcal"
	"calsync-cloud/security"
)

type stubCredentials struct{}

func (stubCredentials) AccessToken(ctx context.Context, provider security.Provider) (string, error) {
	return "test-token", nil
}

func (stubCredentials) OrganizationID() (string, error) {
	return "org-1", nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.Client(), stubCredentials{})
	client.baseURL = server.URL
	return client
}

func TestAddContact_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.Header.Get("X-com-zoho-invoice-organizationid"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ContactRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Alex Farabaugh", req.ContactName)
		assert.Equal(t, "customer", req.ContactType)

		w.Write([]byte(`{"code":0,"message":"The contact has been added.","contact":{"contact_id":987654}}`))
	})

	resp, err := client.AddContact(context.Background(), NewContactRequest(gcal.Customer{
		FirstName:  "Alex",
		SecondName: "Farabaugh",
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	require.NotNil(t, resp.Contact)
	assert.EqualValues(t, 987654, resp.Contact.ContactID)
	assert.False(t, resp.Duplicate())
}

func TestAddContact_DuplicateIsSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":3062,"message":"Contact already exists"}`))
	})

	resp, err := client.AddContact(context.Background(), ContactRequest{ContactName: "Alex Farabaugh"})
	require.NoError(t, err, "a duplicate contact is a normal outcome, not an error")
	assert.True(t, resp.Duplicate())
	assert.Nil(t, resp.Contact)
}

func TestAddContact_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":1038,"message":"API call limit reached"}`))
	})

	_, err := client.AddContact(context.Background(), ContactRequest{ContactName: "Alex"})
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestAddContact_AuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":14,"message":"Invalid value passed for authtoken"}`))
	})

	_, err := client.AddContact(context.Background(), ContactRequest{ContactName: "Alex"})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestAddContact_GenericFailureHasFriendlyMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":1001,"message":"Name is mandatory"}`))
	})

	_, err := client.AddContact(context.Background(), ContactRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1001, apiErr.Code)
	assert.Contains(t, apiErr.Error(), "mandatory parameter is missing")
}

func TestCreateEstimate_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/estimates", r.URL.Path)

		var req EstimateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "987654", req.CustomerID)
		require.Len(t, req.LineItems, 1)
		assert.Equal(t, "item-1", req.LineItems[0].ItemID)
		assert.EqualValues(t, 70, req.LineItems[0].Rate)

		w.Write([]byte(`{"code":0,"message":"Estimate created","estimate":{"estimate_id":"est-1"}}`))
	})

	resp, err := client.CreateEstimate(context.Background(), EstimateRequest{
		CustomerID: "987654",
		LineItems:  []LineItem{{ItemID: "item-1", Rate: 70, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	require.NotNil(t, resp.Estimate)
	assert.Equal(t, "est-1", resp.Estimate.EstimateID)
}

func TestCreateEstimate_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":1002,"message":"Invalid customer"}`))
	})

	_, err := client.CreateEstimate(context.Background(), EstimateRequest{CustomerID: "nope"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1002, apiErr.Code)
}

func TestNewContactRequest_Mapping(t *testing.T) {
	req := NewContactRequest(gcal.Customer{
		FirstName:  "Alex",
		SecondName: "Farabaugh",
		Email:      "alex@example.com",
		Phone:      "400-942-5598",
		Address:    "1601 Willow Road, Menlo Park, CA 94025",
		Note:       "Distance: 12.4 km, 7.70 mi, duration: 17 mins",
	})

	assert.Equal(t, "Alex Farabaugh", req.ContactName)
	assert.Equal(t, "customer", req.ContactType)
	assert.True(t, req.IsTaxable)
	assert.Equal(t, "en", req.LanguageCode)

	require.Len(t, req.ContactPersons, 1)
	assert.Equal(t, "Alex", req.ContactPersons[0].FirstName)
	assert.Equal(t, "400-942-5598", req.ContactPersons[0].Phone)

	assert.Equal(t, "1601 Willow Road", req.BillingAddress.AddressLine1)
	assert.Equal(t, "Menlo Park", req.BillingAddress.City)
	assert.Equal(t, "CA", req.BillingAddress.State)
	assert.Equal(t, "94025", req.BillingAddress.Zip)
	assert.Equal(t, req.BillingAddress, req.ShippingAddress)

	assert.Equal(t, "Distance: 12.4 km, 7.70 mi, duration: 17 mins", req.Notes)
}

func TestNewContactRequest_NameFallsBackToEmail(t *testing.T) {
	req := NewContactRequest(gcal.Customer{Email: "maya.chen@example.com"})
	assert.Equal(t, "maya.chen@example.com", req.ContactName)
}
