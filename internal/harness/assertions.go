package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Event)
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%s", event.Error)
			}
			for _, d := range event.Deliveries {
				fmt.Fprintf(&buf, " {%s user=%d pushed=%t mailed=%t}", d.Notification, d.Recipient, d.Pushed, d.Mailed)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertNotificationCount:
		return assertCount(result, a, "notifications", len(result.Notifications))
	case AssertPushCount:
		return assertCount(result, a, "pushes"+forUser(a.User), result.PushCount(a.User))
	case AssertEmailCount:
		return assertCount(result, a, "emails"+forUser(a.User), result.EmailCount(a.User))
	case AssertEmailSubject:
		return assertEmailSubject(result, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertCount(result *Result, a Assertion, what string, got int) error {
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", got, what),
		Trace:    result.Trace,
	}
}

func assertEmailSubject(result *Result, a Assertion) error {
	var seen []string
	for _, e := range result.Emails {
		if e.To != a.User {
			continue
		}
		if e.Subject == a.Subject {
			return nil
		}
		seen = append(seen, fmt.Sprintf("%q", e.Subject))
	}
	actual := "no email"
	if len(seen) > 0 {
		actual = strings.Join(seen, ", ")
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("email to user %d with subject %q", a.User, a.Subject),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func forUser(id int64) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf(" to user %d", id)
}
