package main

import "testing"

func TestValidatePromptTemplate(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		body    string
		wantErr bool
	}{
		{"valid", "Summary", "Summarize: " + placeholderToken, false},
		{"missing title", "", "body", true},
		{"blank title", "   ", "body", true},
		{"missing body", "Summary", "", true},
		{"blank body", "Summary", "\n\t", true},
	}

	for _, tt := range tests {
		err := validatePromptTemplate(tt.title, tt.body)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestPromptListItems(t *testing.T) {
	prompts := []PromptTemplate{
		{ID: "p1", Title: "Summary", Prompt: "Summarize"},
		{ID: "p2", Title: "Titles", Prompt: "Three titles"},
	}

	items := promptListItems(prompts)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].FilterValue() != "Summary" {
		t.Errorf("filter value = %q, want Summary", items[0].FilterValue())
	}
}
