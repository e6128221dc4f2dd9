package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClaimStatus is the lifecycle state of a claim
type ClaimStatus string

const (
	StatusPending  ClaimStatus = "pending"
	StatusApproved ClaimStatus = "approved"
	StatusRejected ClaimStatus = "rejected"
)

// Valid reports whether s is a known status
func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsDecision reports whether s is a terminal state a reviewer may choose
func (s ClaimStatus) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

// Claim represents a patient's reimbursement request
type Claim struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PatientID      string             `bson:"patientId" json:"patientId"`
	PatientName    string             `bson:"patientName" json:"patientName"`
	PatientEmail   string             `bson:"patientEmail" json:"patientEmail"`
	Amount         float64            `bson:"amount" json:"amount"`
	Description    string             `bson:"description" json:"description"`
	Status         ClaimStatus        `bson:"status" json:"status"`
	SubmissionDate time.Time          `bson:"submissionDate" json:"submissionDate"`
	ApprovedAmount *float64           `bson:"approvedAmount,omitempty" json:"approvedAmount,omitempty"`
	ReviewedBy     string             `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	Comments       string             `bson:"comments,omitempty" json:"comments,omitempty"`
	Documents      []Document         `bson:"documents" json:"documents"`
}

// ClaimReview carries the fields that leave the pending state together
type ClaimReview struct {
	Status         ClaimStatus
	ApprovedAmount *float64
	ReviewedBy     string
	Comments       string
}

// SubmitClaimRequest is the body of POST /api/claims
type SubmitClaimRequest struct {
	Amount      float64    `json:"amount" binding:"required"`
	Description string     `json:"description" binding:"required"`
	Documents   []Document `json:"documents"`
}

// ReviewClaimRequest is the body of PUT /api/claims/:claimId
type ReviewClaimRequest struct {
	Status         ClaimStatus `json:"status" binding:"required,claimdecision"`
	ApprovedAmount *float64    `json:"approvedAmount"`
	Comments       string      `json:"comments" binding:"required"`
}

// ClaimStats summarises a claim collection for the insurer dashboard
type ClaimStats struct {
	Total               int     `json:"total"`
	Pending             int     `json:"pending"`
	Approved            int     `json:"approved"`
	Rejected            int     `json:"rejected"`
	AverageClaimAmount  float64 `json:"averageClaimAmount"`
	TotalClaimedAmount  float64 `json:"totalClaimedAmount"`
	TotalApprovedAmount float64 `json:"totalApprovedAmount"`
}
