package directory

import (
	"fmt"
	"regexp"
	"strings"

	"hrengine/internal/apperror"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateNewEmployee enforces the creation invariants: name, email,
// department and position are required, and the email must be well formed.
func ValidateNewEmployee(input NewEmployee) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperror.Validation("name is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return apperror.Validation("email is required")
	}
	if !emailPattern.MatchString(input.Email) {
		return apperror.Validation("invalid email format: %s", input.Email)
	}
	if input.DepartmentID == "" {
		return apperror.Validation("department is required")
	}
	if input.PositionID == "" {
		return apperror.Validation("position is required")
	}
	return nil
}

// FormatEmployeeID renders the canonical employee identifier for a sequence
// value, e.g. 7 -> EMP00007.
func FormatEmployeeID(seq int64) string {
	return fmt.Sprintf("EMP%05d", seq)
}

// NormalizeName lowercases and collapses internal whitespace so "Jane  Doe"
// and "jane doe" compare equal.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// WouldCreateCycle walks the manager chain upward from candidate manager.
// managerOf maps employee id to its current manager id ("" for none). The
// chain is finite because visited nodes are tracked.
func WouldCreateCycle(managerOf map[string]string, employeeID, newManagerID string) bool {
	if newManagerID == "" {
		return false
	}
	if newManagerID == employeeID {
		return true
	}
	visited := map[string]bool{employeeID: true}
	current := newManagerID
	for current != "" {
		if visited[current] {
			return true
		}
		visited[current] = true
		current = managerOf[current]
	}
	return false
}

// FuzzyDistanceLimit is the maximum edit distance accepted when fuzzy
// resolution is enabled.
const FuzzyDistanceLimit = 2

// EditDistance computes the Levenshtein distance between two strings using
// the two-row dynamic program.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// fuzzyMatches returns the candidates whose normalized name is within the
// minimal observed edit distance (bounded by FuzzyDistanceLimit) of name.
func fuzzyMatches(name string, candidates []Employee) []Employee {
	target := NormalizeName(name)
	best := FuzzyDistanceLimit + 1
	var matches []Employee
	for _, cand := range candidates {
		d := EditDistance(target, NormalizeName(cand.Name))
		if d > FuzzyDistanceLimit {
			continue
		}
		switch {
		case d < best:
			best = d
			matches = []Employee{cand}
		case d == best:
			matches = append(matches, cand)
		}
	}
	return matches
}
