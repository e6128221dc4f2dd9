package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/claimfilter"
	"github.com/ArowuTest/healthclaims-backend/internal/config"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	patientSession = &models.Session{UserID: "patient-1", Name: "John Doe", Email: "patient@example.com", Role: models.RolePatient}
	otherPatient   = &models.Session{UserID: "patient-2", Name: "Jane Roe", Email: "jane@example.com", Role: models.RolePatient}
	insurerSession = &models.Session{UserID: "insurer-1", Name: "Acme Health", Email: "insurer@example.com", Role: models.RoleInsurer}
)

func newClaimService(policy string) (ClaimService, *memory.ClaimRepository) {
	repo := memory.NewClaimRepository()
	return NewClaimService(repo, policy, nil), repo
}

func submit(t *testing.T, svc ClaimService, amount float64) *models.Claim {
	t.Helper()
	claim, err := svc.Submit(context.Background(), patientSession, SubmitClaimInput{
		Amount:      amount,
		Description: "Emergency room visit due to high fever",
		Documents:   []models.Document{{URL: "https://files.example.com/er.pdf", OriginalName: "er.pdf"}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return claim
}

func ptr(f float64) *float64 { return &f }

func TestSubmit_CreatesPendingClaim(t *testing.T) {
	svc, _ := newClaimService("")
	claim := submit(t, svc, 1250)

	if claim.Status != models.StatusPending {
		t.Errorf("status = %q, want pending", claim.Status)
	}
	if claim.ReviewedBy != "" || claim.ApprovedAmount != nil || claim.Comments != "" {
		t.Errorf("review fields set on a new claim: %+v", claim)
	}
	if claim.PatientID != "patient-1" || claim.PatientName != "John Doe" || claim.PatientEmail != "patient@example.com" {
		t.Errorf("patient identity not taken from session: %+v", claim)
	}
	if claim.ID.IsZero() || claim.SubmissionDate.IsZero() {
		t.Errorf("id or submission date missing: %+v", claim)
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, repo := newClaimService("")
	tests := []struct {
		name  string
		in    SubmitClaimInput
		field string
	}{
		{"zero amount", SubmitClaimInput{Amount: 0, Description: "Annual physical"}, "amount"},
		{"negative amount", SubmitClaimInput{Amount: -5, Description: "Annual physical"}, "amount"},
		{"nan amount", SubmitClaimInput{Amount: math.NaN(), Description: "Annual physical"}, "amount"},
		{"short description", SubmitClaimInput{Amount: 10, Description: "  abc  "}, "description"},
		{"relative document url", SubmitClaimInput{Amount: 10, Description: "Annual physical",
			Documents: []models.Document{{URL: "https://ok.example.com/a.pdf"}, {URL: "/tmp/b.pdf"}}}, "documents[1].url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), patientSession, tt.in)
			var verr *apperrors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("missing field %q in %v", tt.field, verr.Fields)
			}
		})
	}
	if all, _ := repo.FindAll(context.Background()); len(all) != 0 {
		t.Errorf("invalid submissions were stored: %d", len(all))
	}
}

func TestSubmit_InsurerForbidden(t *testing.T) {
	svc, _ := newClaimService("")
	_, err := svc.Submit(context.Background(), insurerSession, SubmitClaimInput{Amount: 10, Description: "Annual physical"})
	if !apperrors.IsAuthorization(err) {
		t.Errorf("expected AuthorizationError, got %v", err)
	}
}

func TestSubmitThenGet_RoundTrip(t *testing.T) {
	svc, _ := newClaimService("")
	created := submit(t, svc, 450)

	got, err := svc.Get(context.Background(), patientSession, created.ID.Hex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Amount != created.Amount || got.Description != created.Description ||
		got.PatientID != created.PatientID || got.Status != created.Status ||
		len(got.Documents) != 1 || got.Documents[0] != created.Documents[0] {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, created)
	}
}

func TestGet_Errors(t *testing.T) {
	svc, _ := newClaimService("")
	claim := submit(t, svc, 100)
	ctx := context.Background()

	_, foreignErr := svc.Get(ctx, otherPatient, claim.ID.Hex())
	if !apperrors.IsAuthorization(foreignErr) {
		t.Errorf("other patient: expected AuthorizationError, got %v", foreignErr)
	}
	for _, id := range []string{primitive.NewObjectID().Hex(), "not-an-id"} {
		_, err := svc.Get(ctx, otherPatient, id)
		if !apperrors.IsAuthorization(err) {
			t.Errorf("patient, missing id %q: expected AuthorizationError, got %v", id, err)
			continue
		}
		if err.Error() != foreignErr.Error() {
			t.Errorf("missing id reported differently from a foreign claim: %q vs %q", err, foreignErr)
		}
	}
	if _, err := svc.Get(ctx, insurerSession, claim.ID.Hex()); err != nil {
		t.Errorf("insurer: %v", err)
	}
	if _, err := svc.Get(ctx, insurerSession, primitive.NewObjectID().Hex()); !apperrors.IsNotFound(err) {
		t.Errorf("unknown id: expected NotFoundError, got %v", err)
	}
	if _, err := svc.Get(ctx, insurerSession, "not-an-id"); !apperrors.IsNotFound(err) {
		t.Errorf("malformed id: expected NotFoundError, got %v", err)
	}
}

func TestReview_ApproveDefaultsToClaimAmount(t *testing.T) {
	svc, _ := newClaimService("")
	claim := submit(t, svc, 1250)

	reviewed, err := svc.Review(context.Background(), insurerSession, claim.ID.Hex(), ReviewInput{
		Decision: models.StatusApproved,
		Comments: "Covered under plan",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Status != models.StatusApproved || reviewed.ReviewedBy != "insurer-1" {
		t.Errorf("unexpected claim: %+v", reviewed)
	}
	if reviewed.ApprovedAmount == nil || *reviewed.ApprovedAmount != 1250 {
		t.Errorf("approved amount = %v, want 1250", reviewed.ApprovedAmount)
	}
}

func TestReview_ApproveWithSuppliedAmount(t *testing.T) {
	svc, _ := newClaimService("")
	claim := submit(t, svc, 1250)

	reviewed, err := svc.Review(context.Background(), insurerSession, claim.ID.Hex(), ReviewInput{
		Decision:       models.StatusApproved,
		ApprovedAmount: ptr(1000),
		Comments:       "Partial coverage",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if *reviewed.ApprovedAmount != 1000 || reviewed.Amount != 1250 {
		t.Errorf("unexpected amounts: approved %v, claimed %v", *reviewed.ApprovedAmount, reviewed.Amount)
	}
}

func TestReview_RejectClearsApprovedAmount(t *testing.T) {
	svc, _ := newClaimService("")
	claim := submit(t, svc, 75)

	reviewed, err := svc.Review(context.Background(), insurerSession, claim.ID.Hex(), ReviewInput{
		Decision:       models.StatusRejected,
		ApprovedAmount: ptr(75),
		Comments:       "Not covered",
	})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Status != models.StatusRejected || reviewed.ApprovedAmount != nil {
		t.Errorf("unexpected claim: %+v", reviewed)
	}
	if reviewed.Comments != "Not covered" {
		t.Errorf("comments = %q", reviewed.Comments)
	}
}

func TestReview_Validation(t *testing.T) {
	svc, _ := newClaimService("")
	claim := submit(t, svc, 75)
	tests := []struct {
		name  string
		in    ReviewInput
		field string
	}{
		{"pending is not a decision", ReviewInput{Decision: models.StatusPending, Comments: "x"}, "status"},
		{"blank comments", ReviewInput{Decision: models.StatusRejected, Comments: "   "}, "comments"},
		{"non-positive amount", ReviewInput{Decision: models.StatusApproved, ApprovedAmount: ptr(0), Comments: "x"}, "approvedAmount"},
	}
	for _, tt := range tests {
		_, err := svc.Review(context.Background(), insurerSession, claim.ID.Hex(), tt.in)
		var verr *apperrors.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tt.name, err)
			continue
		}
		if _, ok := verr.Fields[tt.field]; !ok {
			t.Errorf("%s: missing field %q", tt.name, tt.field)
		}
	}
}

func TestReview_AuthorizationBeforeExistence(t *testing.T) {
	svc, _ := newClaimService("")
	in := ReviewInput{Decision: models.StatusApproved, Comments: "self approval"}

	if _, err := svc.Review(context.Background(), patientSession, primitive.NewObjectID().Hex(), in); !apperrors.IsAuthorization(err) {
		t.Errorf("patient on unknown id: expected AuthorizationError, got %v", err)
	}
	if _, err := svc.Review(context.Background(), insurerSession, primitive.NewObjectID().Hex(), in); !apperrors.IsNotFound(err) {
		t.Errorf("insurer on unknown id: expected NotFoundError, got %v", err)
	}
}

func TestReview_PendingOnlyPolicyConflicts(t *testing.T) {
	svc, repo := newClaimService(config.ReviewPolicyPendingOnly)
	claim := submit(t, svc, 450)
	ctx := context.Background()

	if _, err := svc.Review(ctx, insurerSession, claim.ID.Hex(), ReviewInput{Decision: models.StatusApproved, Comments: "ok"}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	_, err := svc.Review(ctx, insurerSession, claim.ID.Hex(), ReviewInput{Decision: models.StatusRejected, Comments: "changed my mind"})
	if !apperrors.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, claim.ID)
	if stored.Status != models.StatusApproved || stored.Comments != "ok" {
		t.Errorf("conflicting review changed the claim: %+v", stored)
	}
}

func TestReview_OverwritePolicyReplacesDecision(t *testing.T) {
	svc, _ := newClaimService(config.ReviewPolicyOverwrite)
	claim := submit(t, svc, 450)
	ctx := context.Background()

	if _, err := svc.Review(ctx, insurerSession, claim.ID.Hex(), ReviewInput{Decision: models.StatusApproved, Comments: "ok"}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	second := &models.Session{UserID: "insurer-2", Role: models.RoleInsurer}
	updated, err := svc.Review(ctx, second, claim.ID.Hex(), ReviewInput{Decision: models.StatusRejected, Comments: "duplicate claim"})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if updated.Status != models.StatusRejected || updated.ApprovedAmount != nil || updated.ReviewedBy != "insurer-2" {
		t.Errorf("decision not replaced: %+v", updated)
	}
}

func TestReview_ConcurrentReviewsOneWins(t *testing.T) {
	svc, _ := newClaimService(config.ReviewPolicyPendingOnly)
	claim := submit(t, svc, 300)

	const reviewers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := models.StatusApproved
			if i%2 == 0 {
				decision = models.StatusRejected
			}
			_, err := svc.Review(context.Background(), insurerSession, claim.ID.Hex(), ReviewInput{Decision: decision, Comments: "race"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperrors.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 || conflicts != reviewers-1 {
		t.Errorf("wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestListAll_PatientForbidden(t *testing.T) {
	svc, _ := newClaimService("")
	if _, err := svc.ListAll(context.Background(), patientSession, claimfilter.Spec{}); !apperrors.IsAuthorization(err) {
		t.Errorf("expected AuthorizationError, got %v", err)
	}
}

func TestListByPatient(t *testing.T) {
	svc, repo := newClaimService("")
	day := time.Date(2023, 6, 20, 0, 0, 0, 0, time.UTC)
	repo.Seed(
		&models.Claim{PatientID: "patient-1", Amount: 1250, Description: "Emergency room visit due to high fever", Status: models.StatusPending, SubmissionDate: day.Add(time.Hour)},
		&models.Claim{PatientID: "patient-1", Amount: 75, Description: "Prescription medication", Status: models.StatusApproved, SubmissionDate: day.Add(2 * time.Hour)},
		&models.Claim{PatientID: "patient-2", Amount: 450, Description: "Annual physical examination", Status: models.StatusPending, SubmissionDate: day},
	)
	ctx := context.Background()

	own, err := svc.ListByPatient(ctx, patientSession, "patient-1", claimfilter.Spec{SortField: claimfilter.SortByAmount, SortDirection: claimfilter.Ascending})
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if len(own) != 2 || own[0].Amount != 75 || own[1].Amount != 1250 {
		t.Errorf("unexpected claims: %v", own)
	}

	if _, err := svc.ListByPatient(ctx, patientSession, "patient-2", claimfilter.Spec{}); !apperrors.IsAuthorization(err) {
		t.Errorf("other patient: expected AuthorizationError, got %v", err)
	}

	viaInsurer, err := svc.ListByPatient(ctx, insurerSession, "patient-2", claimfilter.Spec{})
	if err != nil || len(viaInsurer) != 1 {
		t.Errorf("insurer listing: %v, %v", viaInsurer, err)
	}

	filtered, _ := svc.ListAll(ctx, insurerSession, claimfilter.Spec{Search: "FEVER"})
	if len(filtered) != 1 || filtered[0].Amount != 1250 {
		t.Errorf("search through ListAll: %v", filtered)
	}
}

func TestStats(t *testing.T) {
	svc, repo := newClaimService("")
	repo.Seed(
		&models.Claim{PatientID: "p1", Amount: 0.1, Status: models.StatusApproved, ApprovedAmount: ptr(0.1)},
		&models.Claim{PatientID: "p1", Amount: 0.2, Status: models.StatusApproved, ApprovedAmount: ptr(0.2)},
		&models.Claim{PatientID: "p2", Amount: 100, Status: models.StatusRejected},
		&models.Claim{PatientID: "p2", Amount: 50, Status: models.StatusPending},
	)

	stats, err := svc.Stats(context.Background(), insurerSession)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := models.ClaimStats{
		Total:               4,
		Pending:             1,
		Approved:            2,
		Rejected:            1,
		AverageClaimAmount:  37.58,
		TotalClaimedAmount:  150.3,
		TotalApprovedAmount: 0.3,
	}
	if *stats != want {
		t.Errorf("got %+v, want %+v", *stats, want)
	}

	if _, err := svc.Stats(context.Background(), patientSession); !apperrors.IsAuthorization(err) {
		t.Errorf("patient: expected AuthorizationError, got %v", err)
	}
	if empty := Summarize(nil); empty.AverageClaimAmount != 0 || empty.Total != 0 {
		t.Errorf("empty summary: %+v", empty)
	}
}
