package cases

import (
	"net/url"
	"time"

	"github.com/frahmantamala/rahat-dashboard/internal/cache"
)

const (
	TTLAllCases       = 2 * time.Minute
	TTLPending        = time.Minute
	TTLCase           = time.Minute
	TTLWorkflowStatus = 30 * time.Second
	TTLStats          = 5 * time.Minute
	TTLWorkflowStages = 10 * time.Minute
	TTLDocumentTypes  = 10 * time.Minute
	TTLReadyToClose   = 2 * time.Minute
)

var (
	KeyCases         = cache.NewKey("cases")
	KeyAllCases      = KeyCases.Append("all")
	KeyPending       = KeyCases.Append("pending")
	KeyStats         = KeyCases.Append("stats")
	KeyWorkflowStage = KeyCases.Append("workflow-stages")
	KeyDocumentTypes = KeyCases.Append("document-types")
	KeyReadyToClose  = KeyCases.Append("ready-to-close")
)

func KeyCase(caseID string) cache.Key {
	return KeyCases.Append(caseID)
}

func KeyWorkflowStatus(caseID string) cache.Key {
	return KeyCases.Append(caseID, "workflow-status")
}

// withParams appends the encoded query so each filter combination caches separately.
func withParams(k cache.Key, v url.Values) cache.Key {
	return k.Append(v.Encode())
}

// workflowInvalidations are the views a workflow transition can change.
func workflowInvalidations(caseID string) []cache.Key {
	return []cache.Key{KeyCase(caseID), KeyPending, KeyAllCases, KeyReadyToClose, KeyStats}
}
