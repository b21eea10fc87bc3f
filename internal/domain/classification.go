package domain

// UnknownLabel is returned when inference cannot run at all.
const UnknownLabel = "UNKNOWN"

// ClassificationResult is the raw output of one inference call, before
// it is mapped to an application-level category.
type ClassificationResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // in [0, 1]
}

// Category is the closed set of application-level message categories.
type Category string

const (
	// CategoryNone is the baseline "not flagged" category. Unknown
	// classifier labels downgrade to it.
	CategoryNone   Category = "none"
	CategorySpam   Category = "spam"
	CategoryAbuse  Category = "abuse"
	CategorySexual Category = "sexual"
	CategoryScam   Category = "scam"
)

// VerdictSource indicates which stage of the filter decided a verdict.
type VerdictSource string

const (
	VerdictByRule  VerdictSource = "rule"
	VerdictByModel VerdictSource = "model"
)

// Verdict is the filter's decision for a single message.
type Verdict struct {
	Category   Category             `json:"category"`
	Confidence float64              `json:"confidence"`
	Source     VerdictSource        `json:"source"`
	Rule       string               `json:"rule,omitempty"` // matching pattern when Source == rule
	Raw        ClassificationResult `json:"raw"`
}

// Flagged reports whether the message should be acted on.
func (v Verdict) Flagged() bool { return v.Category != CategoryNone }
