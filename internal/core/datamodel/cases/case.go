package cases

import (
	"encoding/json"
	"errors"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusClosed   Status = "closed"
)

// Stage is a named step of the approval sequence. The set of stages and their
// order is owned by the backend; only the terminal stage is known here.
type Stage string

const StageClosed Stage = "closed"

type Action string

const (
	ActionForward       Action = "forward"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionTerminate     Action = "terminate"
	ActionReleaseNotice Action = "release_notice"
)

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCash         PaymentMethod = "cash"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentOnline       PaymentMethod = "online"
)

type DocumentType string

const (
	DocumentPatwariInspection DocumentType = "patwari-inspection"
	DocumentPostmortemReport  DocumentType = "postmortem-report"
	DocumentInspectionReport  DocumentType = "inspection-report"
)

type CaseType string

const (
	CaseTypeUnnaturalDeath CaseType = "unnatural-death"
	CaseTypeHitAndRun      CaseType = "hit-and-run"
)

type Relative struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Relation string `json:"relation"`
}

type Victim struct {
	Name        string   `json:"name"`
	DOB         string   `json:"dob"`
	DOD         string   `json:"dod"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Relative    Relative `json:"relative"`
}

type FileRef struct {
	ID           string `json:"_id"`
	OriginalName string `json:"originalName"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimetype"`
}

type Document struct {
	File FileRef      `json:"fileId"`
	Type DocumentType `json:"type"`
}

type Payment struct {
	ID     string  `json:"_id"`
	Status string  `json:"status"`
	Amount float64 `json:"amount"`
	Remark string  `json:"remark"`
}

type Remark struct {
	ID     string    `json:"_id,omitempty"`
	Stage  int       `json:"stage"`
	Remark string    `json:"remark"`
	UserID string    `json:"userId"`
	Date   time.Time `json:"date"`
}

// RoleUserMap binds each workflow role to the user assigned to the case.
type RoleUserMap map[string]string

type Case struct {
	ID           string      `json:"_id"`
	CaseID       string      `json:"caseId"`
	RoleUserMap  RoleUserMap `json:"roleUserMap"`
	Victim       Victim      `json:"victim"`
	Stage        Stage       `json:"stage"`
	Status       Status      `json:"status"`
	CurrentRoles []string    `json:"currentRoles"`
	Documents    []Document  `json:"documents"`
	Payment      *Payment    `json:"paymentId"`
	CreatedBy    string      `json:"createdBy"`
	Remarks      []Remark    `json:"remarks"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// UnmarshalJSON accepts paymentId either populated or as a bare id string.
func (c *Case) UnmarshalJSON(data []byte) error {
	type alias Case
	aux := struct {
		*alias
		Payment json.RawMessage `json:"paymentId"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Payment = nil
	if len(aux.Payment) == 0 || string(aux.Payment) == "null" {
		return nil
	}
	var id string
	if err := json.Unmarshal(aux.Payment, &id); err == nil {
		c.Payment = &Payment{ID: id}
		return nil
	}
	var p Payment
	if err := json.Unmarshal(aux.Payment, &p); err != nil {
		return err
	}
	c.Payment = &p
	return nil
}

var (
	ErrClosedWithoutPayment = errors.New("closed case has no payment reference")
	ErrRemarksOutOfOrder    = errors.New("remarks are not ordered by stage and date")
)

// Validate checks the aggregate invariants the dashboard relies on when it
// renders a case. The backend owns the case; a violation is a data problem.
func (c *Case) Validate() error {
	if c.Status == StatusClosed && (c.Payment == nil || c.Payment.ID == "") {
		return ErrClosedWithoutPayment
	}
	for i := 1; i < len(c.Remarks); i++ {
		prev, cur := c.Remarks[i-1], c.Remarks[i]
		if cur.Stage < prev.Stage || (cur.Stage == prev.Stage && cur.Date.Before(prev.Date)) {
			return ErrRemarksOutOfOrder
		}
	}
	return nil
}

// WorkflowStatus is the backend's view of what may happen next. AvailableActions
// is authoritative and is never derived locally.
type WorkflowStatus struct {
	CaseID           string   `json:"caseId"`
	Stage            Stage    `json:"stage"`
	Status           Status   `json:"status"`
	CurrentRoles     []string `json:"currentRoles"`
	AvailableActions []Action `json:"availableActions"`
	NextStage        Stage    `json:"nextStage"`
	CanProceed       bool     `json:"canProceed"`
}

func (w WorkflowStatus) Offers(action Action) bool {
	for _, a := range w.AvailableActions {
		if a == action {
			return true
		}
	}
	return false
}

type WorkflowUpdate struct {
	Action Action `json:"action"`
	Remark string `json:"remark"`
}

// CaseSummary is what workflow, document and close mutations return.
type CaseSummary struct {
	CaseID       string     `json:"caseId"`
	Stage        Stage      `json:"stage"`
	Status       Status     `json:"status"`
	CurrentRoles []string   `json:"currentRoles,omitempty"`
	PaymentID    string     `json:"paymentId,omitempty"`
	Documents    []Document `json:"documents,omitempty"`
	Remarks      []Remark   `json:"remarks,omitempty"`
}

type CreateCaseRequest struct {
	CaseType        CaseType `json:"caseType"`
	Victim          Victim   `json:"victim"`
	ThanaInchargeID string   `json:"thanaInchargeId"`
}

type BeneficiaryDetails struct {
	Name          string `json:"name"`
	AccountNumber string `json:"accountNumber,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	IFSCCode      string `json:"ifscCode,omitempty"`
}

// CloseCaseRequest carries the amount as a JSON number literal so no precision is lost on the way out.
type CloseCaseRequest struct {
	Amount             json.Number        `json:"amount"`
	Remark             string             `json:"remark,omitempty"`
	PaymentMethod      PaymentMethod      `json:"paymentMethod"`
	BeneficiaryDetails BeneficiaryDetails `json:"beneficiaryDetails"`
}

type DocumentLink struct {
	FileID       string       `json:"fileId"`
	DocumentType DocumentType `json:"documentType"`
}

type StageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

type Stats struct {
	Total    int          `json:"total"`
	Pending  int          `json:"pending"`
	Approved int          `json:"approved"`
	Rejected int          `json:"rejected"`
	Closed   int          `json:"closed"`
	ByStage  []StageCount `json:"byStage"`
}

type WorkflowStage struct {
	Stage       int      `json:"stage"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Roles       []string `json:"roles"`
	Actions     []Action `json:"actions"`
	NextStage   string   `json:"nextStage"`
}

type DocumentTypeInfo struct {
	Type        DocumentType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Required    bool         `json:"required"`
	UploadedBy  string       `json:"uploadedBy"`
}

type UploadedFile struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

// PDF is a case report streamed from the backend.
type PDF struct {
	ContentType string
	Filename    string
	Body        []byte
}
