package directory

import (
	"strings"
	"testing"
	"time"
)

func TestValidateNewEmployee(t *testing.T) {
	valid := NewEmployee{
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		DepartmentID: "d1",
		PositionID:   "p1",
		HireDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := ValidateNewEmployee(valid); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*NewEmployee)
	}{
		{"missing name", func(e *NewEmployee) { e.Name = "" }},
		{"missing email", func(e *NewEmployee) { e.Email = "" }},
		{"malformed email", func(e *NewEmployee) { e.Email = "not-an-email" }},
		{"missing department", func(e *NewEmployee) { e.DepartmentID = "" }},
		{"missing position", func(e *NewEmployee) { e.PositionID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			if err := ValidateNewEmployee(input); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestFormatEmployeeID(t *testing.T) {
	if got := FormatEmployeeID(1); got != "EMP00001" {
		t.Fatalf("got %q", got)
	}
	if got := FormatEmployeeID(12345); got != "EMP12345" {
		t.Fatalf("got %q", got)
	}
	if got := FormatEmployeeID(123456); got != "EMP123456" {
		t.Fatalf("sequence past five digits must not truncate, got %q", got)
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Ada   LOVELACE "); got != "ada lovelace" {
		t.Fatalf("got %q", got)
	}
}

func TestWouldCreateCycle(t *testing.T) {
	managerOf := map[string]string{
		"EMP00001": "",
		"EMP00002": "EMP00001",
		"EMP00003": "EMP00002",
	}

	if WouldCreateCycle(managerOf, "EMP00003", "EMP00001") {
		t.Fatalf("chain to the root is not a cycle")
	}
	if !WouldCreateCycle(managerOf, "EMP00001", "EMP00003") {
		t.Fatalf("reassigning the root under its descendant must cycle")
	}
	if !WouldCreateCycle(managerOf, "EMP00002", "EMP00002") {
		t.Fatalf("self-management must cycle")
	}
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"john", "john", 0},
		{"john", "jon", 1},
		{"smith", "smyth", 1},
		{"sarah", "zara", 2},
	}
	for _, tc := range cases {
		if got := EditDistance(tc.a, tc.b); got != tc.want {
			t.Fatalf("EditDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFuzzyMatches(t *testing.T) {
	pool := []Employee{
		{ID: "EMP00001", Name: "Jon Smith"},
		{ID: "EMP00002", Name: "John Smith"},
		{ID: "EMP00003", Name: "Completely Different"},
	}

	got := fuzzyMatches("John Smyth", pool)
	if len(got) != 1 || got[0].ID != "EMP00002" {
		ids := make([]string, len(got))
		for i, e := range got {
			ids[i] = e.ID
		}
		t.Fatalf("expected single closest match EMP00002, got [%s]", strings.Join(ids, ", "))
	}

	if got := fuzzyMatches("zzzzzzzz", pool); len(got) != 0 {
		t.Fatalf("distant query must not match, got %d", len(got))
	}
}
