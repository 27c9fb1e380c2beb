package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-3-5-haiku-20241022"

// Pricing per 1M tokens for the default model.
const (
	costPer1MInputTokens  = 0.80
	costPer1MOutputTokens = 4.00
)

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// TicketSpec is one planned test ticket: the classification the email is
// written to provoke, and therefore the expectation verification checks.
type TicketSpec struct {
	Category    string
	SubCategory string
	Item        string
	Priority    string // "Priority 1".."Priority 4"
	Type        string // "Incident" or "Service Request"
}

func (s TicketSpec) CategoryPath() string {
	parts := []string{s.Category}
	if s.SubCategory != "" {
		parts = append(parts, s.SubCategory)
	}
	if s.Item != "" {
		parts = append(parts, s.Item)
	}
	return strings.Join(parts, ">")
}

// ContentGenerator produces ticket email subject/body pairs with Claude.
type ContentGenerator struct {
	apiKey      string
	model       string
	temperature float64
	quality     string
	usage       LLMUsage
}

func NewContentGenerator(cfg Config) *ContentGenerator {
	model := cfg.ClaudeModel
	if model == "" {
		model = defaultClaudeModel
	}
	return &ContentGenerator{
		apiKey:      cfg.AnthropicAPIKey,
		model:       model,
		temperature: cfg.ClaudeTemperature,
		quality:     cfg.WritingQuality,
	}
}

const generateRetries = 3

// GenerateEmail produces the subject and body for one ticket spec. The
// returned subject carries the sequence tag; the body carries a plain
// ticket-number header for human readers.
func (g *ContentGenerator) GenerateEmail(spec TicketSpec, seq int64) (string, string, error) {
	prompt := buildEmailPrompt(spec, g.quality)

	var lastErr error
	for attempt := 0; attempt < generateRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}

		text, usage, err := g.callClaude(prompt)
		g.usage.Add(usage)
		if err != nil {
			lastErr = err
			log.Printf("generate sequence=%d attempt=%d error: %v", seq, attempt+1, err)
			continue
		}

		subject, description, err := parseEmailContent(text)
		if err != nil {
			lastErr = err
			log.Printf("generate sequence=%d attempt=%d parse error: %v", seq, attempt+1, err)
			continue
		}

		return SubjectTag(seq) + " " + subject,
			fmt.Sprintf("[Ticket #%d]\n\n%s", seq, description),
			nil
	}
	return "", "", fmt.Errorf("generating email content after %d attempts: %w", generateRetries, lastErr)
}

func (g *ContentGenerator) callClaude(prompt string) (string, LLMUsage, error) {
	client := anthropic.NewClient(option.WithAPIKey(g.apiKey))

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   400,
		Temperature: anthropic.Float(g.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

// EstimatedCost returns the running USD cost of all generation calls.
func (g *ContentGenerator) EstimatedCost() float64 {
	return float64(g.usage.InputTokens)/1_000_000*costPer1MInputTokens +
		float64(g.usage.OutputTokens)/1_000_000*costPer1MOutputTokens
}

func (g *ContentGenerator) Usage() LLMUsage {
	return g.usage
}

var (
	emailJSONRe   = regexp.MustCompile(`(?s)\{[^{}]*"subject"[^{}]*"description"[^{}]*\}`)
	subjectreRe   = regexp.MustCompile(`"subject"\s*:\s*"([^"]+)"`)
	descriptionRe = regexp.MustCompile(`(?s)"description"\s*:\s*"([^"]+)"`)
)

type emailContent struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// parseEmailContent pulls subject/description out of the model response:
// strict JSON first, then a JSON-shaped substring, then bare regex
// extraction for responses that wrap or mangle the JSON.
func parseEmailContent(text string) (string, string, error) {
	content := strings.TrimSpace(text)

	// Strip markdown code fences if present.
	if strings.HasPrefix(content, "```") {
		parts := strings.Split(content, "```")
		if len(parts) > 1 {
			content = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "json"))
		}
	}

	if match := emailJSONRe.FindString(content); match != "" {
		content = match
	}

	var parsed emailContent
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		subject := strings.TrimSpace(parsed.Subject)
		description := strings.TrimSpace(parsed.Description)
		if subject != "" && description != "" {
			return subject, description, nil
		}
	}

	// Fallback: field-by-field regex extraction.
	subjMatch := subjectreRe.FindStringSubmatch(content)
	descMatch := descriptionRe.FindStringSubmatch(content)
	if subjMatch != nil && descMatch != nil {
		subject := strings.TrimSpace(subjMatch[1])
		description := strings.TrimSpace(descMatch[1])
		if subject != "" && description != "" {
			return subject, description, nil
		}
	}

	snippet := content
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return "", "", fmt.Errorf("response has no usable subject/description: %q", snippet)
}

const emailPromptTemplate = `Generate a realistic IT support ticket email from an end user at a building supplies company.

TICKET SPECIFICATIONS:
Category: %s
Sub-Category: %s
Item: %s
Priority Level: %s
Ticket Type: %s

PRIORITY LEVEL GUIDELINES:

Priority 1 - URGENT (Critical Incident):
- Critical business operations halted (site network down, all POS offline, ERP unavailable)
- Tone: urgent, stressed, business-critical
- Subject style: direct factual problem statement

Priority 2 - HIGH (Major Incident):
- Significant disruption needing quick resolution (one POS unit down, PC won't boot, site-wide slowness)
- Tone: concerned, needs quick attention

Priority 3 - MEDIUM (Standard):
- Affects work but doesn't halt operations (flaky laptop, dead monitor, new user setup)
- Tone: normal, matter-of-fact

Priority 4 - LOW (Service Request):
- Minimal disruption, can be scheduled (peripherals, password reset, software install)
- Tone: polite, non-urgent

TICKET TYPE GUIDELINES:
Incident: something is broken or malfunctioning; focus on the problem and its impact.
Service Request: asking for something new or a standard service; focus on what is needed.

CRITICAL SUBJECT LINE RULES:
- NEVER include priority words like "URGENT", "HIGH PRIORITY", "CRITICAL", "EMERGENCY" in the subject
- NEVER include descriptive words like "intermittent", "occasional", "sporadic" in the subject
- DO write subjects as a user would naturally write them - short, direct, factual
- The subject should be 3-8 words maximum
- Let the email body convey the urgency, impact and details

WRITING STYLE: %s

INSTRUCTIONS:
Create an email that sounds like a real employee (branch staff, warehouse, sales, estimating, production), matches the priority's tone in the BODY only, is specific to the category/sub-category/item, includes realistic business impact, and uses Australian English.

Respond ONLY with JSON in this exact format:
{"subject": "email subject here", "description": "email body here"}

Do not include any other text, explanation, or markdown formatting.`

var writingStyles = map[string]string{
	"basic": `BASIC USER WRITING (7th grade level):
- Very casual, like texting a friend; little punctuation or capitalization
- Common typos and text-speak (definately, cant, plz, asap)
- Run-on sentences or bare fragments, usually no greeting or sign-off
- Example: "laptop keeps shutting off idk whats wrong can u fix it"`,
	"realistic": `REALISTIC USER WRITING (10th grade level):
- Casual everyday language with minor grammatical imperfections
- Contractions, occasional typos, short choppy or run-on sentences
- Minimal detail unless necessary
- Example: "hi, my laptop keeps shutting down randomly can someone help?"`,
	"polished": `POLISHED PROFESSIONAL WRITING:
- Proper grammar, punctuation and structure; professional tone
- Clear, well-organized explanations with appropriate detail
- Example: "Hello, my laptop has been shutting down randomly. Could someone please assist?"`,
}

func buildEmailPrompt(spec TicketSpec, quality string) string {
	style, ok := writingStyles[quality]
	if !ok {
		style = writingStyles["realistic"]
	}
	sub := spec.SubCategory
	if sub == "" {
		sub = "General"
	}
	item := spec.Item
	if item == "" {
		item = "General"
	}
	return fmt.Sprintf(emailPromptTemplate, spec.Category, sub, item, spec.Priority, spec.Type, style)
}
