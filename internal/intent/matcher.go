// Package intent answers common questions from a fixed keyword table so that
// they never reach the completion API.
package intent

import "strings"

const (
	PackagesReply = "Here are our core packages: Starter ($499) for a one-page site or a short promo edit, " +
		"Growth ($1,499) for a multi-page site or a 3-video content bundle, and Premium ($3,999) for a full " +
		"brand launch with site, video and copy. Tell me which one sounds closest and I'll share details."
	PricingReply = "Pricing starts at $499 for the Starter package, $1,499 for Growth and $3,999 for Premium. " +
		"Custom work is quoted per project; share what you need and we'll send a quote within one business day."
	TimelineReply = "Typical timelines: Starter takes about 1 week, Growth 2-3 weeks and Premium 4-6 weeks " +
		"from kickoff. Rush delivery is available on request."
	ContactReply = "You can reach a human at hello@example.com or +1 (555) 010-2030, Monday to Friday 9am-5pm. " +
		"Leave your email here and we'll get back to you."
)

// Rule maps any of its keywords to a fixed reply. Keywords must be lower case.
type Rule struct {
	Name     string
	Keywords []string
	Reply    string
}

func (r Rule) matches(lowered string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// Matcher evaluates its rules in order; the first match wins.
type Matcher struct {
	rules []Rule
}

func NewMatcher(rules ...Rule) *Matcher {
	return &Matcher{rules: rules}
}

// DefaultRules is the business rule table, highest priority first.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "packages", Keywords: []string{"package"}, Reply: PackagesReply},
		{Name: "pricing", Keywords: []string{"price", "cost", "quote"}, Reply: PricingReply},
		{Name: "timeline", Keywords: []string{"timeline", "how long"}, Reply: TimelineReply},
		{Name: "contact", Keywords: []string{"human", "talk to human", "contact"}, Reply: ContactReply},
	}
}

func DefaultMatcher() *Matcher {
	return NewMatcher(DefaultRules()...)
}

// Match returns the canned reply for text, if any rule applies.
func (m *Matcher) Match(text string) (string, bool) {
	rule, ok := m.MatchRule(text)
	if !ok {
		return "", false
	}
	return rule.Reply, true
}

func (m *Matcher) MatchRule(text string) (Rule, bool) {
	lowered := strings.ToLower(text)
	for _, r := range m.rules {
		if r.matches(lowered) {
			return r, true
		}
	}
	return Rule{}, false
}
