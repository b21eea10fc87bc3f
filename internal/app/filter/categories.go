package filter

import (
	"log"
	"strings"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/metrics"
)

// labelCategories maps classifier output labels onto the closed
// application category set. Classifier labels are free text; matching
// is case-insensitive.
var labelCategories = map[string]domain.Category{
	"ok":        domain.CategoryNone,
	"none":      domain.CategoryNone,
	"clean":     domain.CategoryNone,
	"spam":      domain.CategorySpam,
	"ad":        domain.CategorySpam,
	"abuse":     domain.CategoryAbuse,
	"toxic":     domain.CategoryAbuse,
	"insult":    domain.CategoryAbuse,
	"sexual":    domain.CategorySexual,
	"nsfw":      domain.CategorySexual,
	"scam":      domain.CategoryScam,
	"phishing":  domain.CategoryScam,
	"UNKNOWN":   domain.CategoryNone,
}

// categoryFor maps a raw classifier label to an application category.
// An unrecognized label is a soft anomaly: logged, counted, and
// downgraded to the baseline category while the raw confidence is kept
// by the caller.
func categoryFor(label string) domain.Category {
	if c, ok := labelCategories[label]; ok {
		return c
	}
	if c, ok := labelCategories[strings.ToLower(label)]; ok {
		return c
	}
	log.Printf("[filter] WARNING: unknown classifier label %q, treating as not flagged", label)
	metrics.UnknownLabels.Inc()
	return domain.CategoryNone
}
