package ai

import (
	"testing"
)

func TestExtractJSONStrategies(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string // expected "action" value
	}{
		{
			name: "direct",
			text: `{"action": "insert", "amount": 50000}`,
			want: "insert",
		},
		{
			name: "direct with whitespace",
			text: "  \n{\"action\": \"report\"}\n  ",
			want: "report",
		},
		{
			name: "fenced block",
			text: "Here you go:\n```json\n{\"action\": \"delete\"}\n```",
			want: "delete",
		},
		{
			name: "fenced block without language tag",
			text: "```\n{\"action\": \"query\"}\n```",
			want: "query",
		},
		{
			name: "surrounding prose",
			text: `Sure! The parsed result is {"action": "update", "amount": 30000} as requested.`,
			want: "update",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data, ok := extractJSON(c.text)
			if !ok {
				t.Fatalf("expected extraction to succeed for %q", c.text)
			}
			if got := data["action"]; got != c.want {
				t.Fatalf("want action %q, got %v", c.want, got)
			}
		})
	}
}

func TestExtractJSONFailure(t *testing.T) {
	for _, text := range []string{
		"",
		"no json here",
		"{ broken json",
		"``` not even json ```",
	} {
		if _, ok := extractJSON(text); ok {
			t.Fatalf("expected extraction to fail for %q", text)
		}
	}
}
