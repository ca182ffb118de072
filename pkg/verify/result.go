package verify

import (
	"fmt"
	"strings"
)

// VerificationName is the name of a check run against an optimization result.
type VerificationName string

const (
	VerificationGoalViolation VerificationName = "goal violation"
	VerificationDeadBrokers   VerificationName = "dead brokers"
	VerificationNewBrokers    VerificationName = "new brokers"
	VerificationRegression    VerificationName = "regression"
)

var allVerifications = []VerificationName{
	VerificationGoalViolation,
	VerificationDeadBrokers,
	VerificationNewBrokers,
	VerificationRegression,
}

// AllVerifications returns every verification in its default order.
func AllVerifications() []VerificationName {
	return append([]VerificationName{}, allVerifications...)
}

// ParseVerification converts a name (case-insensitive, with dashes, underscores, or spaces)
// into a VerificationName.
func ParseVerification(name string) (VerificationName, error) {
	normalized := strings.ToLower(
		strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(name)),
	)
	for _, verification := range allVerifications {
		if string(verification) == normalized {
			return verification, nil
		}
	}
	return "", fmt.Errorf("Unrecognized verification: %s", name)
}

// VerificationResults stores the results of verifying a single optimization run.
type VerificationResults struct {
	Results []VerificationResult
}

// VerificationResult contains the name and status of a single verification. Skipped
// verifications didn't apply to the cluster (e.g., there were no dead brokers) and are OK.
type VerificationResult struct {
	Name        VerificationName
	OK          bool
	Skipped     bool
	Description string
}

// AllOK returns true if all subresults are OK, otherwise it returns false.
func (r *VerificationResults) AllOK() bool {
	for _, result := range r.Results {
		if !result.OK {
			return false
		}
	}

	return true
}

// Failed returns the results that aren't OK.
func (r *VerificationResults) Failed() []VerificationResult {
	failed := []VerificationResult{}
	for _, result := range r.Results {
		if !result.OK {
			failed = append(failed, result)
		}
	}
	return failed
}

// AppendResult adds a new verification result to the results.
func (r *VerificationResults) AppendResult(result VerificationResult) {
	r.Results = append(r.Results, result)
}

// UpdateLastResult updates the details of the most recently added result.
func (r *VerificationResults) UpdateLastResult(ok bool, description string) {
	r.Results[len(r.Results)-1].OK = ok
	r.Results[len(r.Results)-1].Description = description
}

// SkipLastResult marks the most recently added result as not applicable.
func (r *VerificationResults) SkipLastResult(description string) {
	r.UpdateLastResult(true, description)
	r.Results[len(r.Results)-1].Skipped = true
}
