package protect

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	g := New("/home/ana")
	if len(g.patterns) == 0 || len(g.keywords) == 0 || len(g.fileTypes) == 0 {
		t.Fatal("expected default rules to be loaded")
	}
	if !g.roots["/home/ana"] || !g.roots["/"] {
		t.Error("expected roots to include home and /")
	}
}

func TestGuard_Check(t *testing.T) {
	g := New("/home/ana")

	tests := []struct {
		name     string
		path     string
		expected bool
		reason   string
	}{
		{"home itself", "/home/ana", true, "protected root"},
		{"home with trailing slash", "/home/ana/", true, "protected root"},
		{"filesystem root", "/", true, "protected root"},
		{"ssh dir", "/home/ana/.ssh", true, ".ssh"},
		{"system config", "/etc/hosts", true, "/etc/**"},
		{"git metadata", "/home/ana/code/app/.git", true, ".git"},
		{"keyword in name", "/home/ana/Documents/passwords-2025.txt", true, "password"},
		{"keyword only in parent is fine", "/home/ana/private-notes/todo.txt", false, ""},
		{"protected file type", "/home/ana/code/app/.env", true, ".env"},
		{"pem file", "/home/ana/Downloads/server.PEM", true, ".pem"},
		{"ordinary folder", "/home/ana/Downloads/old-installers", false, ""},
		{"home child", "/home/ana/Projects", false, ""},
		{"empty", "", false, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := g.Check(tc.path)
			if got != tc.expected {
				t.Fatalf("Check(%q) = %v (%s), expected %v", tc.path, got, reason, tc.expected)
			}
			if tc.reason != "" && !strings.Contains(reason, tc.reason) {
				t.Errorf("reason %q should mention %q", reason, tc.reason)
			}
		})
	}
}

func TestGuard_Extend(t *testing.T) {
	g := New()
	if g.IsProtected("/home/ana/Taxes/2025.pdf") {
		t.Fatal("not protected before extending")
	}

	g.Extend(Rules{
		Patterns:  []string{"**/Taxes/**"},
		Keywords:  []string{"Invoice"},
		FileTypes: []string{"ledger"},
	})

	for _, p := range []string{
		"/home/ana/Taxes/2025.pdf",
		"/home/ana/Downloads/invoice-42.pdf",
		"/home/ana/books/2026.ledger",
	} {
		if !g.IsProtected(p) {
			t.Errorf("IsProtected(%q) = false after Extend", p)
		}
	}
}
