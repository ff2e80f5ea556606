package relay

import (
	"strconv"
	"strings"

	"wxrelay/internal/constants"
	"wxrelay/internal/params"
)

// SendRequest is the fully merged message request: request overrides layered
// over configuration fallbacks. Credentials live only for the duration of
// one relay call.
type SendRequest struct {
	Recipients  []string
	AppID       string
	AppSecret   string
	TemplateID  string
	RedirectURL string
	Titles      []string
	Content     string
	Contents    []string
}

// DispatchOutcome is the per-recipient delivery verdict, consumed by the
// aggregation step and discarded once the response is built.
type DispatchOutcome struct {
	Recipient string
	Success   bool
	ErrorMsg  string
}

type AggregateResult struct {
	Outcomes  []DispatchOutcome
	Succeeded int
}

// FirstError returns the first recipient's error message in list order.
func (r AggregateResult) FirstError() string {
	if len(r.Outcomes) == 0 {
		return "Unknown error"
	}
	return r.Outcomes[0].ErrorMsg
}

// SplitRecipients parses the pipe-delimited recipient list, trimming
// whitespace and dropping empty entries.
func SplitRecipients(s string) []string {
	parts := strings.Split(s, constants.RecipientSeparator)
	recipients := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}

// collectTitles gathers title1..title5 in positional order. Gaps are kept as
// empty strings so later titles stay at their template positions.
func collectTitles(bag params.Bag) []string {
	titles := make([]string, 0, constants.MaxTitleFields)
	last := 0
	for i := 1; i <= constants.MaxTitleFields; i++ {
		titles = append(titles, bag.Get("title"+strconv.Itoa(i)))
		if titles[i-1] != "" {
			last = i
		}
	}
	return titles[:last]
}

// collectContents gathers the positional content1..content10 fields.
func collectContents(bag params.Bag) []string {
	contents := make([]string, 0, constants.MaxContentFields)
	last := 0
	for i := 1; i <= constants.MaxContentFields; i++ {
		contents = append(contents, bag.Get("content"+strconv.Itoa(i)))
		if contents[i-1] != "" {
			last = i
		}
	}
	return contents[:last]
}

func hasContent(bag params.Bag) bool {
	if bag.Get("content") != "" {
		return true
	}
	for i := 1; i <= constants.MaxContentFields; i++ {
		if bag.Get("content"+strconv.Itoa(i)) != "" {
			return true
		}
	}
	return false
}
