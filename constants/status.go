package constants

// VerdictStatus is the outcome of a single verification run.
type VerdictStatus string

const (
	VerdictPending      VerdictStatus = "pending"       // queued for human review
	VerdictAutoVerified VerdictStatus = "auto_verified" // accepted without review
)

// SubmissionStatus is the workflow status stored on submission records by the
// external review workflow. Store these exact strings.
type SubmissionStatus string

const (
	SubmissionPending         SubmissionStatus = "pending"
	SubmissionAutoVerified    SubmissionStatus = "auto_verified"
	SubmissionFacultyVerified SubmissionStatus = "faculty_verified"
	SubmissionRejected        SubmissionStatus = "rejected"
)

// ApprovedStatuses are the submission statuses that count as a prior approval
// for the hash fast-path.
var ApprovedStatuses = []SubmissionStatus{SubmissionAutoVerified, SubmissionFacultyVerified}

// RejectedStatuses are the statuses reported as a prior rejection.
var RejectedStatuses = []SubmissionStatus{SubmissionRejected}

// HashMatchReason is the fixed reason attached to fast-path verdicts.
const HashMatchReason = "Verified by previously stored hash (tamper-proof)."

// NoSignalReason is the reason attached to verdicts left pending.
const NoSignalReason = "No strong signal found."
