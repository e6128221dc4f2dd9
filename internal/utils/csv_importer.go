package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"go.uber.org/zap"
)

// Column aliases accepted in the header row
var (
	patientIDColumns      = []string{"Patient ID", "PatientID", "patientId"}
	patientNameColumns    = []string{"Patient Name", "PatientName", "patientName", "Name"}
	patientEmailColumns   = []string{"Patient Email", "PatientEmail", "patientEmail", "Email"}
	amountColumns         = []string{"Amount", "Claim Amount", "amount"}
	descriptionColumns    = []string{"Description", "description"}
	statusColumns         = []string{"Status", "status"}
	submissionDateColumns = []string{"Submission Date", "submissionDate", "Date"}
	approvedAmountColumns = []string{"Approved Amount", "approvedAmount"}
	reviewedByColumns     = []string{"Reviewed By", "reviewedBy"}
	commentsColumns       = []string{"Comments", "comments"}
	documentsColumns      = []string{"Documents", "documents"}
)

// ImportResult summarises one CSV import
type ImportResult struct {
	TotalRows int      `json:"totalRows"`
	Imported  int      `json:"imported"`
	Errors    []string `json:"errors"`
}

// ClaimCSVImporter seeds the claim store from a spreadsheet export
type ClaimCSVImporter struct {
	claimRepo repositories.ClaimRepository
	logger    *zap.Logger
}

// NewClaimCSVImporter creates a new ClaimCSVImporter
func NewClaimCSVImporter(claimRepo repositories.ClaimRepository, logger *zap.Logger) *ClaimCSVImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimCSVImporter{claimRepo: claimRepo, logger: logger}
}

type columns struct {
	patientID, patientName, patientEmail, amount, description, status int
	submissionDate, approvedAmount, reviewedBy, comments, documents   int
}

// Import reads claims from r. Rows that fail validation are reported in the
// result and skipped; a store error stops the import.
func (i *ClaimCSVImporter) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := columns{
		patientID:      FindColumnIndex(header, patientIDColumns),
		patientName:    FindColumnIndex(header, patientNameColumns),
		patientEmail:   FindColumnIndex(header, patientEmailColumns),
		amount:         FindColumnIndex(header, amountColumns),
		description:    FindColumnIndex(header, descriptionColumns),
		status:         FindColumnIndex(header, statusColumns),
		submissionDate: FindColumnIndex(header, submissionDateColumns),
		approvedAmount: FindColumnIndex(header, approvedAmountColumns),
		reviewedBy:     FindColumnIndex(header, reviewedByColumns),
		comments:       FindColumnIndex(header, commentsColumns),
		documents:      FindColumnIndex(header, documentsColumns),
	}
	if cols.patientID == -1 || cols.amount == -1 || cols.description == -1 {
		return nil, errors.New("CSV needs Patient ID, Amount and Description columns")
	}

	result := &ImportResult{Errors: []string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}

		claim, err := parseClaimRow(row, cols)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		if err := i.claimRepo.Create(ctx, claim); err != nil {
			return result, fmt.Errorf("row %d: store claim: %w", result.TotalRows, err)
		}
		result.Imported++
	}

	i.logger.Info("claim import finished",
		zap.Int("rows", result.TotalRows),
		zap.Int("imported", result.Imported),
		zap.Int("rejected", len(result.Errors)))
	return result, nil
}

func parseClaimRow(row []string, cols columns) (*models.Claim, error) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	claim := &models.Claim{
		PatientID:    cell(cols.patientID),
		PatientName:  cell(cols.patientName),
		PatientEmail: strings.ToLower(cell(cols.patientEmail)),
		Description:  cell(cols.description),
		Status:       models.StatusPending,
		ReviewedBy:   cell(cols.reviewedBy),
		Comments:     cell(cols.comments),
	}
	if claim.PatientID == "" {
		return nil, errors.New("no patient id")
	}
	if utf8.RuneCountInString(claim.Description) < 5 {
		return nil, errors.New("description must be at least 5 characters")
	}

	amount, ok := parseAmount(cell(cols.amount))
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", cell(cols.amount))
	}
	claim.Amount = amount

	if raw := cell(cols.status); raw != "" {
		claim.Status = models.ClaimStatus(strings.ToLower(raw))
		if !claim.Status.Valid() {
			return nil, fmt.Errorf("invalid status: %q", raw)
		}
	}

	if raw := cell(cols.submissionDate); raw != "" {
		date, err := ParseDate(raw)
		if err != nil {
			return nil, err
		}
		claim.SubmissionDate = date
	}

	if claim.Status.IsDecision() && (claim.ReviewedBy == "" || claim.Comments == "") {
		return nil, errors.New("approved and rejected rows need Reviewed By and Comments")
	}

	switch claim.Status {
	case models.StatusApproved:
		approved := claim.Amount
		if raw := cell(cols.approvedAmount); raw != "" {
			if approved, ok = parseAmount(raw); !ok {
				return nil, fmt.Errorf("invalid approved amount: %q", raw)
			}
		}
		claim.ApprovedAmount = &approved
	case models.StatusPending:
		claim.ReviewedBy = ""
		claim.Comments = ""
	}

	for _, url := range SplitList(cell(cols.documents)) {
		doc := models.Document{URL: url}
		if !doc.HasHTTPURL() {
			return nil, fmt.Errorf("invalid document URL: %q", url)
		}
		claim.Documents = append(claim.Documents, doc)
	}
	return claim, nil
}

// parseAmount accepts finite, strictly positive numbers only
func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
