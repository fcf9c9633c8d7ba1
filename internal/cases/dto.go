package cases

import (
	"strings"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/core/common/validation"
	caseDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/cases"
)

const DefaultWorkflowErrorTitle = "Failed to update workflow"

// CloseOutcome tells the caller whether a close request changed anything.
type CloseOutcome string

const (
	OutcomeClosed        CloseOutcome = "closed"
	OutcomeAlreadyClosed CloseOutcome = "already_closed"
)

type CloseResult struct {
	Outcome CloseOutcome               `json:"outcome"`
	Case    *caseDatamodel.CaseSummary `json:"case,omitempty"`
	Message string                     `json:"message"`
}

// DocumentUpload is one file selected on the upload form.
type DocumentUpload struct {
	Filename     string
	Content      []byte
	DocumentType caseDatamodel.DocumentType
	Description  string
}

func actionNames() []string {
	return []string{
		string(caseDatamodel.ActionForward),
		string(caseDatamodel.ActionApprove),
		string(caseDatamodel.ActionReject),
		string(caseDatamodel.ActionTerminate),
		string(caseDatamodel.ActionReleaseNotice),
	}
}

func paymentMethodNames() []string {
	return []string{
		string(caseDatamodel.PaymentBankTransfer),
		string(caseDatamodel.PaymentCash),
		string(caseDatamodel.PaymentCheque),
		string(caseDatamodel.PaymentOnline),
	}
}

func documentTypeNames() []string {
	return []string{
		string(caseDatamodel.DocumentPatwariInspection),
		string(caseDatamodel.DocumentPostmortemReport),
		string(caseDatamodel.DocumentInspectionReport),
	}
}

// ValidateWorkflowUpdate checks the action vocabulary and the remark. Whether
// the action is legal at the case's current stage is left to the backend.
func ValidateWorkflowUpdate(u caseDatamodel.WorkflowUpdate) *errors.AppError {
	v := validation.NewValidator()
	v.Field("action", string(u.Action)).
		RequiredWithCode(errors.ErrCodeInvalidAction).
		OneOf(errors.ErrCodeInvalidAction, actionNames()...)
	v.Field("remark", u.Remark).
		RequiredWithCode(errors.ErrCodeRemarkRequired).
		MaxLength(2000)
	return v.Validate()
}

func ValidateCloseRequest(req caseDatamodel.CloseCaseRequest) *errors.AppError {
	v := validation.NewValidator()
	v.Field("amount", req.Amount.String()).
		RequiredWithCode(errors.ErrCodeInvalidAmount).
		PositiveDecimal(errors.ErrCodeInvalidAmount)
	v.Field("paymentMethod", string(req.PaymentMethod)).
		RequiredWithCode(errors.ErrCodeInvalidPaymentMethod).
		OneOf(errors.ErrCodeInvalidPaymentMethod, paymentMethodNames()...)
	v.Field("beneficiaryDetails.name", req.BeneficiaryDetails.Name).
		RequiredWithCode(errors.ErrCodeBeneficiaryRequired)

	if req.PaymentMethod == caseDatamodel.PaymentBankTransfer {
		v.Field("beneficiaryDetails.accountNumber", req.BeneficiaryDetails.AccountNumber).
			RequiredWithCode(errors.ErrCodeBeneficiaryRequired)
		v.Field("beneficiaryDetails.bankName", req.BeneficiaryDetails.BankName).
			RequiredWithCode(errors.ErrCodeBeneficiaryRequired)
		v.Field("beneficiaryDetails.ifscCode", req.BeneficiaryDetails.IFSCCode).
			RequiredWithCode(errors.ErrCodeBeneficiaryRequired)
	}
	return v.Validate()
}

func ValidateCreateCase(req caseDatamodel.CreateCaseRequest) *errors.AppError {
	v := validation.NewValidator()
	v.Field("caseType", string(req.CaseType)).
		RequiredWithCode(errors.ErrCodeInvalidCaseType).
		OneOf(errors.ErrCodeInvalidCaseType, string(caseDatamodel.CaseTypeUnnaturalDeath), string(caseDatamodel.CaseTypeHitAndRun))
	v.Field("victim.name", req.Victim.Name).Required()
	v.Field("victim.dob", req.Victim.DOB).Required().Date()
	v.Field("victim.dod", req.Victim.DOD).Required().Date()
	v.Field("victim.address", req.Victim.Address).Required()
	v.Field("victim.description", req.Victim.Description).Required()
	v.Field("victim.relative.name", req.Victim.Relative.Name).Required()
	v.Field("victim.relative.relation", req.Victim.Relative.Relation).Required()
	v.Field("victim.relative.contact", strings.TrimSpace(req.Victim.Relative.Contact)).Required().MinLength(10)
	v.Field("thanaInchargeId", req.ThanaInchargeID).Required()
	return v.Validate()
}

func ValidateDocumentUploads(uploads []DocumentUpload) *errors.AppError {
	if len(uploads) == 0 {
		return errors.NewValidationFieldError("documents", "at least one document is required", errors.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	for _, u := range uploads {
		v.Field("filename", u.Filename).Required()
		v.Field("documentType", string(u.DocumentType)).
			RequiredWithCode(errors.ErrCodeInvalidDocumentType).
			OneOf(errors.ErrCodeInvalidDocumentType, documentTypeNames()...)
	}
	return v.Validate()
}
