// Package axe drives the axe-core accessibility engine inside a live page.
//
// The engine itself is third-party JavaScript. This package only knows how to
// get the bundle (Source), inject and run it through an Evaluator, and decode
// what comes back (Results). Rule selection by tag is passed straight through
// to axe.run as its runOnly option.
package axe

import "errors"

// Impact levels reported by axe-core, most severe first.
const (
	ImpactCritical = "critical"
	ImpactSerious  = "serious"
	ImpactModerate = "moderate"
	ImpactMinor    = "minor"
)

// Impacts lists the recognised impact levels in severity order.
var Impacts = []string{ImpactCritical, ImpactSerious, ImpactModerate, ImpactMinor}

var (
	// ErrScriptUnavailable means the engine bundle could not be loaded.
	ErrScriptUnavailable = errors.New("axe-core script unavailable")

	// ErrEvaluation means injecting or running the engine in the page failed.
	ErrEvaluation = errors.New("axe-core evaluation failed")
)

// Results is the subset of axe.run output this server consumes.
type Results struct {
	TestEngine   TestEngine `json:"testEngine"`
	URL          string     `json:"url"`
	Timestamp    string     `json:"timestamp"`
	Violations   []Rule     `json:"violations"`
	Passes       []Rule     `json:"passes"`
	Incomplete   []Rule     `json:"incomplete"`
	Inapplicable []Rule     `json:"inapplicable"`
}

// TestEngine identifies the axe-core build that produced a result.
type TestEngine struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Rule is one rule outcome. Impact is empty for rules axe does not grade.
type Rule struct {
	ID          string   `json:"id"`
	Impact      string   `json:"impact"`
	Description string   `json:"description"`
	Help        string   `json:"help"`
	HelpURL     string   `json:"helpUrl"`
	Tags        []string `json:"tags"`
	Nodes       []Node   `json:"nodes"`
}

// Node is an element a rule matched.
//
// Target is the selector path. Elements inside iframes or shadow roots are
// addressed by nested selector arrays, so entries are either strings or
// string slices.
type Node struct {
	HTML           string `json:"html"`
	Impact         string `json:"impact"`
	Target         []any  `json:"target"`
	FailureSummary string `json:"failureSummary"`
}

// HasTag reports whether the rule carries tag.
func (r Rule) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
