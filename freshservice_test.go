package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestFreshserviceClient(t *testing.T, handler http.Handler) (*FreshserviceClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := &FreshserviceClient{
		baseURL:    srv.URL + "/api/v2",
		apiKey:     "test-api-key-1234",
		httpClient: srv.Client(),
		pageDelay:  0,
	}
	return client, srv
}

func ticketPage(start, count int) []HelpDeskTicket {
	tickets := make([]HelpDeskTicket, 0, count)
	for i := 0; i < count; i++ {
		tickets = append(tickets, HelpDeskTicket{
			ID:      int64(start + i),
			Subject: fmt.Sprintf("ticket %d", start+i),
		})
	}
	return tickets
}

func TestSearchTicketsPaginatesUntilShortPage(t *testing.T) {
	var pagesServed []int
	client, _ := newTestFreshserviceClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, _, ok := r.BasicAuth(); !ok || user != "test-api-key-1234" {
			t.Errorf("missing api-key basic auth, got %q", user)
		}
		q := r.URL.Query()
		if q.Get("email") != "sender@example.com" {
			t.Errorf("email filter = %q", q.Get("email"))
		}
		if q.Get("updated_since") != "2026-08-01T00:00:00Z" {
			t.Errorf("updated_since filter = %q", q.Get("updated_since"))
		}
		page, _ := strconv.Atoi(q.Get("page"))
		pagesServed = append(pagesServed, page)

		count := ticketsPerPage
		if page == 2 {
			count = 50 // short page ends pagination
		}
		json.NewEncoder(w).Encode(ticketListResponse{Tickets: ticketPage((page-1)*ticketsPerPage+1, count)})
	}))

	tickets, err := client.SearchTickets("sender@example.com", "2026-08-01T00:00:00Z", 500)
	if err != nil {
		t.Fatalf("SearchTickets failed: %v", err)
	}
	if len(tickets) != 150 {
		t.Fatalf("expected 150 tickets, got %d", len(tickets))
	}
	if len(pagesServed) != 2 || pagesServed[0] != 1 || pagesServed[1] != 2 {
		t.Fatalf("unexpected pages served: %v", pagesServed)
	}
}

func TestSearchTicketsRespectsMaxTickets(t *testing.T) {
	requests := 0
	client, _ := newTestFreshserviceClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode(ticketListResponse{Tickets: ticketPage((page-1)*ticketsPerPage+1, ticketsPerPage)})
	}))

	tickets, err := client.SearchTickets("", "", 150)
	if err != nil {
		t.Fatalf("SearchTickets failed: %v", err)
	}
	if len(tickets) != 150 {
		t.Fatalf("expected cap at 150 tickets, got %d", len(tickets))
	}
	if requests != 2 {
		t.Fatalf("expected 2 page requests, got %d", requests)
	}
}

func TestSearchTicketsErrorStatus(t *testing.T) {
	client, _ := newTestFreshserviceClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid credentials"}`, http.StatusUnauthorized)
	}))

	if _, err := client.SearchTickets("", "", 10); err == nil {
		t.Fatal("expected error on 401 response")
	}
}

func TestGetTicket(t *testing.T) {
	client, _ := newTestFreshserviceClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/tickets/42":
			json.NewEncoder(w).Encode(ticketResponse{Ticket: &HelpDeskTicket{ID: 42, Subject: "found"}})
		default:
			http.NotFound(w, r)
		}
	}))

	ticket, err := client.GetTicket(42)
	if err != nil {
		t.Fatalf("GetTicket failed: %v", err)
	}
	if ticket == nil || ticket.ID != 42 {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}

	// 404 is "no such ticket", not an error.
	missing, err := client.GetTicket(999)
	if err != nil {
		t.Fatalf("GetTicket(999) failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing ticket, got %+v", missing)
	}
}

func TestNewFreshserviceClientDomainNormalization(t *testing.T) {
	cases := []struct {
		domain string
		want   string
	}{
		{"acme", "https://acme.freshservice.com/api/v2"},
		{"acme.freshservice.com", "https://acme.freshservice.com/api/v2"},
		{"https://acme.freshservice.com/", "https://acme.freshservice.com/api/v2"},
	}
	for _, tc := range cases {
		c := NewFreshserviceClient(tc.domain, "test-api-key-1234", false)
		if c.baseURL != tc.want {
			t.Fatalf("baseURL for %q = %q, want %q", tc.domain, c.baseURL, tc.want)
		}
	}
}

func TestInsecureTLSIsPerClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ticketListResponse{})
	}))
	defer srv.Close()

	insecure := NewFreshserviceClient("acme", "test-api-key-1234", true)
	insecure.baseURL = srv.URL + "/api/v2"
	if err := insecure.TestConnection(); err != nil {
		t.Fatalf("insecure client rejected self-signed cert: %v", err)
	}

	secure := NewFreshserviceClient("acme", "test-api-key-1234", false)
	secure.baseURL = srv.URL + "/api/v2"
	if err := secure.TestConnection(); err == nil {
		t.Fatal("secure client accepted a self-signed cert")
	}

	// The insecure option never leaks into the shared client.
	if externalHTTPClient.Transport != nil {
		t.Fatal("shared HTTP client transport was modified")
	}
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("AEST", 10*3600)
	ts := time.Date(2026, 8, 28, 10, 30, 0, 0, loc)
	if got := FormatTimestamp(ts); got != "2026-08-28T00:30:00Z" {
		t.Fatalf("FormatTimestamp = %q", got)
	}
}
