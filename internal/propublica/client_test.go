package propublica

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(NewClientParams{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestGetOrganization(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/organizations/340714585.json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{
			"organization": {
				"name": "CLEVELAND CLINIC",
				"city": "Cleveland",
				"state": "OH",
				"revenue_amount": 12000000000,
				"latest_object_id": "202401042216783"
			},
			"filings_with_data": [
				{"pdf_url": "https://example.test/pdf/340714585_202212_990_202301234567890.pdf"}
			]
		}`)
	})

	data, err := client.GetOrganization(context.Background(), "34-0714585")
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	if data.Organization.Name != "CLEVELAND CLINIC" || data.Organization.State != "OH" {
		t.Fatalf("organization = %+v", data.Organization)
	}
	if data.Organization.RevenueAmount == nil || *data.Organization.RevenueAmount != 12000000000 {
		t.Fatalf("revenue = %v", data.Organization.RevenueAmount)
	}

	ids := ExtractObjectIDs(data)
	want := []string{"202401042216783", "202301234567890"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestGetOrganizationNotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Status404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "ErrorField",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"error": "No organization found"}`)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestServer(t, tc.handler)
			_, err := client.GetOrganization(context.Background(), "999999999")
			if !errors.Is(err, ErrOrgNotFound) {
				t.Fatalf("err = %v, want ErrOrgNotFound", err)
			}
		})
	}
}

func TestGetOrganizationNumericObjectID(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organization": {"name": "X", "latest_object_id": 202401042216783}}`)
	})

	data, err := client.GetOrganization(context.Background(), "340714585")
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	if string(data.Organization.LatestObjectID) != "202401042216783" {
		t.Fatalf("latest_object_id = %q", data.Organization.LatestObjectID)
	}
}

func TestSearchOrganizations(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" || r.URL.Query().Get("q") != "cleveland clinic" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"organizations": [
			{"ein": 340714585, "name": "CLEVELAND CLINIC", "city": "Cleveland", "state": "OH"},
			{"ein": 341567805, "name": "CLEVELAND CLINIC FOUNDATION", "city": "Cleveland", "state": "OH"}
		]}`)
	})

	results, err := client.SearchOrganizations(context.Background(), "cleveland clinic")
	if err != nil {
		t.Fatalf("SearchOrganizations: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if string(results[0].EIN) != "340714585" {
		t.Fatalf("EIN = %q", results[0].EIN)
	}
}

func TestExtractObjectIDsDeduplicates(t *testing.T) {
	data := OrgData{
		Organization: Organization{LatestObjectID: "202301234567890"},
		FilingsWithData: []OrgFiling{
			{PDFURL: "https://example.test/x_202301234567890.pdf"},
			{PDFURL: "https://example.test/y_202201234567890.pdf"},
			{PDFURL: ""},
		},
	}

	ids := ExtractObjectIDs(data)
	want := []string{"202301234567890", "202201234567890"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
