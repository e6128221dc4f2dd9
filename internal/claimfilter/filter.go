// Package claimfilter narrows and orders a claim collection for the dashboards.
// It performs no I/O and never modifies its input.
package claimfilter

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
)

// SortField selects the sort key
type SortField string

// SortDirection selects ascending or descending order
type SortDirection string

const (
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"

	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"

	// StatusAll disables the status filter
	StatusAll = "all"

	// DateLayout is the accepted format of the date parameter
	DateLayout = "2006-01-02"
)

// Spec describes a filter. The zero value keeps every claim and sorts by date, newest first.
type Spec struct {
	Status        models.ClaimStatus
	Search        string
	Date          time.Time
	SortField     SortField
	SortDirection SortDirection
}

// Filter returns the claims matching spec in the requested order. The result
// is a new slice; claims and the values they point to are left untouched.
func Filter(claims []*models.Claim, spec Spec) []*models.Claim {
	search := strings.ToLower(strings.TrimSpace(spec.Search))
	var day time.Time
	if !spec.Date.IsZero() {
		day = startOfDay(spec.Date)
	}

	out := make([]*models.Claim, 0, len(claims))
	for _, c := range claims {
		if c == nil {
			continue
		}
		if spec.Status != "" && spec.Status != StatusAll && c.Status != spec.Status {
			continue
		}
		if search != "" && !matches(c, search) {
			continue
		}
		if !day.IsZero() && !startOfDay(c.SubmissionDate).Equal(day) {
			continue
		}
		out = append(out, c)
	}

	field, dir := spec.SortField, spec.SortDirection
	if field == "" {
		field = SortByDate
	}
	if dir == "" {
		dir = Descending
	}
	less := lessFunc(field)
	sort.SliceStable(out, func(i, j int) bool {
		if dir == Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func matches(c *models.Claim, term string) bool {
	return strings.Contains(strings.ToLower(c.Description), term) ||
		strings.Contains(strings.ToLower(c.PatientName), term) ||
		strings.Contains(strings.ToLower(c.PatientEmail), term)
}

func lessFunc(field SortField) func(a, b *models.Claim) bool {
	if field == SortByAmount {
		return func(a, b *models.Claim) bool { return a.Amount < b.Amount }
	}
	return func(a, b *models.Claim) bool { return a.SubmissionDate.Before(b.SubmissionDate) }
}

// startOfDay normalises t to midnight UTC
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseSpec reads status, search, date, sort and order from query parameters
func ParseSpec(q url.Values) (Spec, error) {
	verr := apperrors.Validation("invalid filter")
	spec := Spec{Search: strings.TrimSpace(q.Get("search"))}

	switch status := strings.ToLower(strings.TrimSpace(q.Get("status"))); {
	case status == "" || status == StatusAll:
	case models.ClaimStatus(status).Valid():
		spec.Status = models.ClaimStatus(status)
	default:
		verr.Add("status", "must be one of all, pending, approved, rejected")
	}

	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		day, err := time.ParseInLocation(DateLayout, raw, time.UTC)
		if err != nil {
			verr.Add("date", "must be a calendar date in YYYY-MM-DD form")
		} else {
			spec.Date = day
		}
	}

	switch field := SortField(strings.ToLower(strings.TrimSpace(q.Get("sort")))); field {
	case "", SortByDate, SortByAmount:
		spec.SortField = field
	default:
		verr.Add("sort", "must be date or amount")
	}

	switch dir := SortDirection(strings.ToLower(strings.TrimSpace(q.Get("order")))); dir {
	case "", Ascending, Descending:
		spec.SortDirection = dir
	default:
		verr.Add("order", "must be asc or desc")
	}

	if err := verr.OrNil(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}
