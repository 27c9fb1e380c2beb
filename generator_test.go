package main

import (
	"strings"
	"testing"
)

func TestParseEmailContent(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		subject string
		body    string
		wantErr bool
	}{
		{
			name:    "clean json",
			input:   `{"subject": "VPN not connecting", "description": "Hi, my VPN wont connect since this morning."}`,
			subject: "VPN not connecting",
			body:    "Hi, my VPN wont connect since this morning.",
		},
		{
			name: "fenced json",
			input: "```json\n" +
				`{"subject": "Printer offline", "description": "the warehouse printer is offline again"}` +
				"\n```",
			subject: "Printer offline",
			body:    "the warehouse printer is offline again",
		},
		{
			name:    "json wrapped in prose",
			input:   `Sure, here you go: {"subject": "Monitor flickering", "description": "my second monitor keeps flickering"} hope that helps!`,
			subject: "Monitor flickering",
			body:    "my second monitor keeps flickering",
		},
		{
			name: "regex fallback on broken json",
			input: `{"subject": "Laptop wont boot", "description": "laptop shows a black screen
it was fine yesterday"}`,
			subject: "Laptop wont boot",
			body:    "laptop shows a black screen\nit was fine yesterday",
		},
		{
			name:    "empty response",
			input:   "",
			wantErr: true,
		},
		{
			name:    "no usable fields",
			input:   "I cannot generate that email.",
			wantErr: true,
		},
		{
			name:    "blank subject rejected",
			input:   `{"subject": "", "description": "body"}`,
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subject, body, err := parseEmailContent(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got subject=%q body=%q", subject, body)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEmailContent failed: %v", err)
			}
			if subject != tc.subject {
				t.Fatalf("subject = %q, want %q", subject, tc.subject)
			}
			if body != tc.body {
				t.Fatalf("body = %q, want %q", body, tc.body)
			}
		})
	}
}

func TestBuildEmailPrompt(t *testing.T) {
	spec := TicketSpec{
		Category:    "Network",
		SubCategory: "VPN",
		Item:        "Down",
		Priority:    "Priority 1",
		Type:        "Incident",
	}

	prompt := buildEmailPrompt(spec, "polished")
	for _, want := range []string{"Network", "VPN", "Down", "Priority 1", "Incident", "POLISHED PROFESSIONAL WRITING"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}

	// Empty levels render as General, unknown quality falls back to realistic.
	bare := TicketSpec{Category: "Software", Priority: "Priority 3", Type: "Incident"}
	prompt = buildEmailPrompt(bare, "shakespearean")
	if !strings.Contains(prompt, "Sub-Category: General") {
		t.Fatal("expected empty sub-category to render as General")
	}
	if !strings.Contains(prompt, "REALISTIC USER WRITING") {
		t.Fatal("expected unknown quality to fall back to realistic style")
	}
}

func TestTicketSpecCategoryPath(t *testing.T) {
	cases := []struct {
		spec TicketSpec
		want string
	}{
		{TicketSpec{Category: "Network", SubCategory: "VPN", Item: "Down"}, "Network>VPN>Down"},
		{TicketSpec{Category: "Hardware", SubCategory: "Printer"}, "Hardware>Printer"},
		{TicketSpec{Category: "Software"}, "Software"},
	}
	for _, tc := range cases {
		if got := tc.spec.CategoryPath(); got != tc.want {
			t.Fatalf("CategoryPath = %q, want %q", got, tc.want)
		}
	}
}

func TestLLMUsageAndCost(t *testing.T) {
	g := &ContentGenerator{}
	g.usage.Add(LLMUsage{InputTokens: 1_000_000, OutputTokens: 500_000})

	u := g.Usage()
	if u.TotalTokens() != 1_500_000 {
		t.Fatalf("total tokens = %d", u.TotalTokens())
	}
	want := costPer1MInputTokens + 0.5*costPer1MOutputTokens
	if got := g.EstimatedCost(); got < want-0.0001 || got > want+0.0001 {
		t.Fatalf("estimated cost = %f, want %f", got, want)
	}
}
