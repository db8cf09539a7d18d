package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := NewPrompter(strings.NewReader(tt.input), &out)

		got, err := p.Confirm(context.Background(), "Delete a.txt?")
		if err != nil {
			t.Fatalf("Confirm(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Delete a.txt? [y/N]: " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestPrompter_ConfirmEOF(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	if _, err := p.Confirm(context.Background(), "?"); err == nil {
		t.Error("Confirm() on empty input should fail")
	}
}

func TestPrompter_ConfirmCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPrompter(strings.NewReader("y\n"), &bytes.Buffer{})
	if _, err := p.Confirm(ctx, "?"); err == nil {
		t.Error("Confirm() with a cancelled context should fail")
	}
}

func TestPrompter_SequentialLines(t *testing.T) {
	p := NewPrompter(strings.NewReader("alice\nsecret\n"), &bytes.Buffer{})

	user, _ := p.Line("Username: ")
	pwd, _ := p.Password("Password: ")
	if user != "alice" || pwd != "secret" {
		t.Errorf("answers = %q, %q, want alice, secret", user, pwd)
	}
}
