package backend

import (
	"context"
	"fmt"
	"net/http"

	caseDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/cases"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
)

func (c *Client) CreateCase(ctx context.Context, req caseDatamodel.CreateCaseRequest) (*caseDatamodel.CaseSummary, error) {
	var env Envelope[caseDatamodel.CaseSummary]
	if _, err := c.mutate(ctx, "cases.create", http.MethodPost, "/v1/cases", req, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) ListCases(ctx context.Context, q ListCasesQuery) (*Page[caseDatamodel.Case], error) {
	var env Envelope[Page[caseDatamodel.Case]]
	if err := c.read(ctx, "cases.list", "/v1/cases", q.Values(), &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) MyPendingCases(ctx context.Context, q PageQuery) (*Page[caseDatamodel.Case], error) {
	var env Envelope[Page[caseDatamodel.Case]]
	if err := c.read(ctx, "cases.my_pending", "/v1/cases/my-pending", q.Values(), &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) ReadyToCloseCases(ctx context.Context, q PageQuery) (*DocsPage[caseDatamodel.Case], error) {
	var env Envelope[DocsPage[caseDatamodel.Case]]
	if err := c.read(ctx, "cases.ready_to_close", "/v1/cases/ready-to-close", q.Values(), &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) GetCase(ctx context.Context, caseID string) (*caseDatamodel.Case, error) {
	var env Envelope[caseDatamodel.Case]
	if err := c.read(ctx, "cases.get", "/v1/cases/"+escape(caseID), nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) WorkflowStatus(ctx context.Context, caseID string) (*caseDatamodel.WorkflowStatus, error) {
	var env Envelope[caseDatamodel.WorkflowStatus]
	if err := c.read(ctx, "cases.workflow_status", "/v1/cases/"+escape(caseID)+"/workflow/status", nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) UpdateWorkflow(ctx context.Context, caseID string, update caseDatamodel.WorkflowUpdate) (*caseDatamodel.CaseSummary, error) {
	var env Envelope[caseDatamodel.CaseSummary]
	if _, err := c.mutate(ctx, "cases.update_workflow", http.MethodPut, "/v1/cases/"+escape(caseID)+"/workflow", update, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) LinkDocuments(ctx context.Context, caseID string, links []caseDatamodel.DocumentLink) (*caseDatamodel.CaseSummary, error) {
	var env Envelope[caseDatamodel.CaseSummary]
	body := map[string][]caseDatamodel.DocumentLink{"documents": links}
	if _, err := c.mutate(ctx, "cases.link_documents", http.MethodPost, "/v1/cases/"+escape(caseID)+"/documents", body, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) CloseCase(ctx context.Context, caseID string, req caseDatamodel.CloseCaseRequest) (*caseDatamodel.CaseSummary, error) {
	var env Envelope[caseDatamodel.CaseSummary]
	if _, err := c.mutate(ctx, "cases.close", http.MethodPost, "/v1/cases/"+escape(caseID)+"/close", req, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) Stats(ctx context.Context) (*caseDatamodel.Stats, error) {
	var env Envelope[caseDatamodel.Stats]
	if err := c.read(ctx, "cases.stats", "/v1/cases/stats/overview", nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) WorkflowStages(ctx context.Context) ([]caseDatamodel.WorkflowStage, error) {
	var env Envelope[[]caseDatamodel.WorkflowStage]
	if err := c.read(ctx, "cases.workflow_stages", "/v1/cases/workflow/stages", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) DocumentTypes(ctx context.Context) ([]caseDatamodel.DocumentTypeInfo, error) {
	var env Envelope[[]caseDatamodel.DocumentTypeInfo]
	if err := c.read(ctx, "cases.document_types", "/v1/cases/documents/types", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) SearchThanaIncharge(ctx context.Context, q SearchQuery) (*DocsPage[userDatamodel.ThanaIncharge], error) {
	var env Envelope[DocsPage[userDatamodel.ThanaIncharge]]
	if err := c.read(ctx, "cases.search_thana_incharge", "/v1/cases/search/thana-incharge", q.Values(), &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// CasePDF downloads the case report, or the final report when final is set.
func (c *Client) CasePDF(ctx context.Context, caseID string, final bool) (*caseDatamodel.PDF, error) {
	suffix, filename := "/pdf", fmt.Sprintf("case-%s.pdf", caseID)
	if final {
		suffix, filename = "/final-pdf", fmt.Sprintf("case-%s-final.pdf", caseID)
	}
	res, err := c.do(ctx, call{op: "cases.pdf", method: http.MethodGet, path: "/v1/cases/" + escape(caseID) + suffix, retry: true}, nil)
	if err != nil {
		return nil, err
	}

	contentType := res.header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &caseDatamodel.PDF{ContentType: contentType, Filename: filename, Body: res.body}, nil
}
