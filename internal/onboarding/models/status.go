package models

// ApplicationStatus is the lifecycle state of an onboarding application.
//
// Invariant: transitions only follow the edges in validTransitions. Approved
// and Rejected are terminal for the review workflow; Rejected additionally
// admits the GDPR deletion sub-flow (markForDeletion, anonymize), which does
// not change status.
type ApplicationStatus string

const (
	StatusInitiated         ApplicationStatus = "INITIATED"
	StatusOtpVerified       ApplicationStatus = "OTP_VERIFIED"
	StatusDocumentsUploaded ApplicationStatus = "DOCUMENTS_UPLOADED"
	StatusSubmitted         ApplicationStatus = "SUBMITTED"
	StatusUnderReview       ApplicationStatus = "UNDER_REVIEW"
	StatusVerified          ApplicationStatus = "VERIFIED"
	StatusFlaggedSuspicious ApplicationStatus = "FLAGGED_SUSPICIOUS"
	StatusRequiresMoreInfo  ApplicationStatus = "REQUIRES_MORE_INFO"
	StatusApproved          ApplicationStatus = "APPROVED"
	StatusRejected          ApplicationStatus = "REJECTED"
)

// validTransitions is the single source of truth for the state machine edges.
var validTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusInitiated:         {StatusOtpVerified},
	StatusOtpVerified:       {StatusDocumentsUploaded},
	StatusDocumentsUploaded: {StatusSubmitted},
	StatusSubmitted:         {StatusUnderReview},
	StatusUnderReview:       {StatusVerified, StatusFlaggedSuspicious, StatusRequiresMoreInfo, StatusRejected},
	StatusRequiresMoreInfo:  {StatusUnderReview},
	StatusVerified:          {StatusApproved, StatusRejected},
	StatusFlaggedSuspicious: {StatusApproved, StatusRejected},
	StatusApproved:          {},
	StatusRejected:          {},
}

// CanTransitionTo reports whether the state machine admits the edge s → next.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the review workflow is finished.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s ApplicationStatus) String() string {
	return string(s)
}
