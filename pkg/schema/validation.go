package schema

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// ValidationSeverity indicates whether an issue is an error or warning.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is a single lint problem located by its dialog path
// (e.g. "actions[2].cases[0]"). The empty path is the dialog root.
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (i ValidationIssue) String() string {
	p := i.Path
	if p == "" {
		p = "(root)"
	}
	return fmt.Sprintf("%s %s [%s] %s", i.Severity, p, i.Code, i.Message)
}

// ValidationResult collects the issues found while linting a dialog. Only
// errors make a dialog invalid; layout still draws dialogs with warnings.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityError})
}

func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityWarning})
}

// Merge appends other's issues. A nil other is a no-op.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Issues returns errors and warnings in document order: by path, errors
// first on a shared path. The receiver is not modified.
func (r *ValidationResult) Issues() []ValidationIssue {
	all := slices.Concat(r.Errors, r.Warnings)
	slices.SortStableFunc(all, func(a, b ValidationIssue) int {
		if c := comparePaths(a.Path, b.Path); c != 0 {
			return c
		}
		return cmp.Compare(severityRank(a.Severity), severityRank(b.Severity))
	})
	return all
}

// Summary is a one-line count, e.g. "2 errors, 1 warning".
func (r *ValidationResult) Summary() string {
	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		return "ok"
	}
	return plural(len(r.Errors), "error") + ", " + plural(len(r.Warnings), "warning")
}

// ToError returns nil for a valid result, otherwise a VALIDATION_ERROR
// carrying the issues as details. With strict set, warnings also fail.
func (r *ValidationResult) ToError(strict ...bool) error {
	failing := r.Errors
	if len(strict) > 0 && strict[0] && len(failing) == 0 {
		failing = r.Warnings
	}
	if len(failing) == 0 {
		return nil
	}

	msg := failing[0].Message
	if len(failing) > 1 {
		msg = "lint failed: " + r.Summary()
	}
	return NewError(ErrCodeValidation, msg).
		WithNode(failing[0].Path).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"issues":        r.Issues(),
		})
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func severityRank(s ValidationSeverity) int {
	if s == SeverityError {
		return 0
	}
	return 1
}

// comparePaths orders dialog paths segment by segment so that
// "actions[2]" sorts before "actions[10]" and a parent before its children.
func comparePaths(a, b string) int {
	as, bs := splitPath(a), splitPath(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(as), len(bs))
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

func compareSegment(a, b string) int {
	an, ai, aok := indexed(a)
	bn, bi, bok := indexed(b)
	if aok && bok && an == bn {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(a, b)
}

// indexed splits "cases[3]" into ("cases", 3, true).
func indexed(seg string) (string, int, bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 || !strings.HasSuffix(seg, "]") {
		return seg, 0, false
	}
	var n int
	if _, err := fmt.Sscanf(seg[open+1:len(seg)-1], "%d", &n); err != nil {
		return seg, 0, false
	}
	return seg[:open], n, true
}
