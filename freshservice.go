package main

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const externalHTTPTimeout = 30 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}

const (
	ticketsPerPage    = 100 // Freshservice API maximum
	maxTicketScan     = 500 // hard cap for unfiltered searches
	pageCourtesyDelay = 500 * time.Millisecond
)

// TicketSource is the read-only contract the verifier needs from the
// help-desk system.
type TicketSource interface {
	// SearchTickets returns tickets filtered by requester email and/or an
	// updated-since timestamp (either may be empty), paginating until a
	// short page or maxTickets is reached.
	SearchTickets(requesterEmail, updatedSince string, maxTickets int) ([]HelpDeskTicket, error)
	GetTicket(id int64) (*HelpDeskTicket, error)
}

type FreshserviceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	pageDelay  time.Duration
}

// NewFreshserviceClient builds a client for the given domain. insecureTLS
// disables certificate verification for this client only; it never touches
// process-wide transport state.
func NewFreshserviceClient(domain, apiKey string, insecureTLS bool) *FreshserviceClient {
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	if !strings.HasSuffix(domain, ".freshservice.com") {
		domain += ".freshservice.com"
	}

	client := externalHTTPClient
	if insecureTLS {
		client = &http.Client{
			Timeout: externalHTTPTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	return &FreshserviceClient{
		baseURL:    "https://" + domain + "/api/v2",
		apiKey:     apiKey,
		httpClient: client,
		pageDelay:  pageCourtesyDelay,
	}
}

type ticketListResponse struct {
	Tickets []HelpDeskTicket `json:"tickets"`
}

type ticketResponse struct {
	Ticket *HelpDeskTicket `json:"ticket"`
}

func (c *FreshserviceClient) SearchTickets(requesterEmail, updatedSince string, maxTickets int) ([]HelpDeskTicket, error) {
	if maxTickets <= 0 {
		maxTickets = maxTicketScan
	}

	var all []HelpDeskTicket
	page := 1

	for len(all) < maxTickets {
		tickets, err := c.fetchTicketPage(requesterEmail, updatedSince, page)
		if err != nil {
			return nil, err
		}
		all = append(all, tickets...)

		// A short page means the last page.
		if len(tickets) < ticketsPerPage {
			break
		}
		page++
		// Courtesy throttle between pages, not a retry mechanism.
		time.Sleep(c.pageDelay)
	}

	if len(all) > maxTickets {
		all = all[:maxTickets]
	}
	return all, nil
}

func (c *FreshserviceClient) fetchTicketPage(requesterEmail, updatedSince string, page int) ([]HelpDeskTicket, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(ticketsPerPage))
	params.Set("page", strconv.Itoa(page))
	if requesterEmail != "" {
		params.Set("email", requesterEmail)
	}
	if updatedSince != "" {
		params.Set("updated_since", updatedSince)
	}

	body, status, err := c.get("/tickets?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching tickets page %d: %w", page, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ticket search returned %d: %s", status, truncateBody(body))
	}

	var result ticketListResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing ticket search response: %w", err)
	}
	return result.Tickets, nil
}

func (c *FreshserviceClient) GetTicket(id int64) (*HelpDeskTicket, error) {
	body, status, err := c.get(fmt.Sprintf("/tickets/%d", id))
	if err != nil {
		return nil, fmt.Errorf("fetching ticket %d: %w", id, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ticket %d lookup returned %d: %s", id, status, truncateBody(body))
	}

	var result ticketResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing ticket response: %w", err)
	}
	return result.Ticket, nil
}

// TestConnection does a one-ticket probe so bad credentials surface before
// a batch starts.
func (c *FreshserviceClient) TestConnection() error {
	_, status, err := c.get("/tickets?per_page=1")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("connection test returned %d", status)
	}
	return nil
}

func (c *FreshserviceClient) get(path string) ([]byte, int, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	// API key as basic-auth username, literal "X" as password.
	req.SetBasicAuth(c.apiKey, "X")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// FormatTimestamp renders a time in the filter format the ticket API
// expects (YYYY-MM-DDTHH:MM:SSZ).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func logTicketSubjects(tickets []HelpDeskTicket) {
	n := len(tickets)
	if n > 10 {
		n = 10
	}
	for _, t := range tickets[:n] {
		log.Printf("candidate ticket id=%d subject=%q", t.ID, t.Subject)
	}
}
