package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"time"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// EmailSender delivers generated ticket emails through Microsoft Graph
// sendMail. It consumes a ready bearer token; acquiring one is the
// caller's problem.
type EmailSender struct {
	accessToken string
	senderEmail string
	baseURL     string
	httpClient  *http.Client
}

func NewEmailSender(accessToken, senderEmail string) *EmailSender {
	return &EmailSender{
		accessToken: accessToken,
		senderEmail: senderEmail,
		baseURL:     graphBaseURL,
		httpClient:  externalHTTPClient,
	}
}

type graphSendRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems string       `json:"saveToSentItems"`
}

type graphMessage struct {
	Subject      string           `json:"subject"`
	Body         graphBody        `json:"body"`
	ToRecipients []graphRecipient `json:"toRecipients"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphAddress `json:"emailAddress"`
}

type graphAddress struct {
	Address string `json:"address"`
}

type graphErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send delivers one plain-text email. Graph answers 202 when the message
// is queued.
func (s *EmailSender) Send(toEmail, subject, body string) error {
	payload := graphSendRequest{
		Message: graphMessage{
			Subject: subject,
			Body:    graphBody{ContentType: "Text", Content: body},
			ToRecipients: []graphRecipient{
				{EmailAddress: graphAddress{Address: toEmail}},
			},
		},
		SaveToSentItems: "true",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding sendMail payload: %w", err)
	}

	url := fmt.Sprintf("%s/users/%s/sendMail", s.baseURL, s.senderEmail)
	req, err := http.NewRequest("POST", url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}

	detail := string(respBody)
	var graphErr graphErrorResponse
	if json.Unmarshal(respBody, &graphErr) == nil && graphErr.Error != nil && graphErr.Error.Message != "" {
		detail = graphErr.Error.Message
	}
	return fmt.Errorf("sendMail returned %d: %s", resp.StatusCode, detail)
}

// SendWithDelay waits before sending so a batch doesn't hammer the
// receiving inbox and its ticket-creation pipeline.
func (s *EmailSender) SendWithDelay(toEmail, subject, body string, delay time.Duration) error {
	if delay > 0 {
		log.Printf("send waiting delay=%s", delay)
		time.Sleep(delay)
	}
	return s.Send(toEmail, subject, body)
}

// TestConnection fetches the signed-in profile to confirm the token works.
func (s *EmailSender) TestConnection() error {
	req, err := http.NewRequest("GET", s.baseURL+"/me", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connection test returned %d", resp.StatusCode)
	}
	return nil
}

var emailAddressRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validEmailAddress(email string) bool {
	return emailAddressRe.MatchString(email)
}
