package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cases"
	caseDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/cases"
	"github.com/spf13/cobra"
)

var (
	listStage     string
	listStatus    string
	listCreatedBy string
	listSortBy    string
	listSortOrder string
	listPage      int
	listLimit     int

	workflowAction string
	workflowRemark string

	closeAmount      string
	closeMethod      string
	closeRemark      string
	closeBeneficiary caseDatamodel.BeneficiaryDetails

	pdfFinal bool
	pdfOut   string
)

// newCaseService has no publisher: the audit trail is written by the server only.
func newCaseService(cmd *cobra.Command) (context.Context, *cases.Service, *clientDeps) {
	ctx, deps := newClient(cmd)
	return ctx, cases.NewService(deps.Backend, deps.Cache, nil, deps.Logger), deps
}

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Browse relief cases",
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cases with filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, svc, _ := newCaseService(cmd)
		page, err := svc.ListCases(ctx, backend.ListCasesQuery{
			PageQuery: backend.PageQuery{Page: listPage, Limit: listLimit},
			Stage:     listStage,
			Status:    listStatus,
			CreatedBy: listCreatedBy,
			SortBy:    listSortBy,
			SortOrder: listSortOrder,
		})
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

var casesPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List cases waiting on the signed-in officer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, svc, _ := newCaseService(cmd)
		page, err := svc.PendingCases(ctx, backend.PageQuery{Page: listPage, Limit: listLimit})
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

var casesReadyCmd = &cobra.Command{
	Use:   "ready-to-close",
	Short: "List approved cases awaiting closure",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, svc, _ := newCaseService(cmd)
		page, err := svc.ReadyToClose(ctx, backend.PageQuery{Page: listPage, Limit: listLimit})
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

var casesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show case counts by status and stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, svc, _ := newCaseService(cmd)
		stats, err := svc.Stats(ctx)
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var casesGetCmd = &cobra.Command{
	Use:   "get [case-id]",
	Short: "Show one case with its workflow status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, svc, _ := newCaseService(cmd)
		c, err := svc.GetCase(ctx, args[0])
		if err != nil {
			return describeError(err)
		}
		st, err := svc.GetWorkflowStatus(ctx, args[0])
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"case": c, "workflow": st})
	},
}

var casesPDFCmd = &cobra.Command{
	Use:   "pdf [case-id]",
	Short: "Download the case PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, svc, _ := newCaseService(cmd)
		pdf, err := svc.CasePDF(ctx, args[0], pdfFinal)
		if err != nil {
			return describeError(err)
		}
		out := pdfOut
		if out == "" {
			out = filepath.Base(pdf.Filename)
		}
		if err := os.WriteFile(out, pdf.Body, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes)\n", out, len(pdf.Body))
		return nil
	},
}

var workflowCmd = &cobra.Command{
	Use:   "workflow [case-id]",
	Short: "Submit a workflow action on a case",
	Long:  `Submit one of the actions the backend offers for the case (forward, approve, reject, terminate, release_notice). A remark is required.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, svc, deps := newCaseService(cmd)
		ctx, err := withViewer(ctx, deps)
		if err != nil {
			return describeError(err)
		}
		summary, err := svc.SubmitWorkflowAction(ctx, args[0], caseDatamodel.WorkflowUpdate{
			Action: caseDatamodel.Action(workflowAction),
			Remark: workflowRemark,
		})
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), summary)
	},
}

var closeCmd = &cobra.Command{
	Use:   "close [case-id]",
	Short: "Close an approved case with its payment details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, svc, deps := newCaseService(cmd)
		ctx, err := withViewer(ctx, deps)
		if err != nil {
			return describeError(err)
		}
		res, err := svc.CloseCase(ctx, args[0], caseDatamodel.CloseCaseRequest{
			Amount:             json.Number(closeAmount),
			Remark:             closeRemark,
			PaymentMethod:      caseDatamodel.PaymentMethod(closeMethod),
			BeneficiaryDetails: closeBeneficiary,
		})
		if err != nil {
			return describeError(err)
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	for _, c := range []*cobra.Command{casesListCmd, casesPendingCmd, casesReadyCmd} {
		c.Flags().IntVar(&listPage, "page", 1, "page number")
		c.Flags().IntVar(&listLimit, "limit", 10, "page size")
	}
	casesListCmd.Flags().StringVar(&listStage, "stage", "", "filter by workflow stage")
	casesListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	casesListCmd.Flags().StringVar(&listCreatedBy, "created-by", "", "filter by creator user id")
	casesListCmd.Flags().StringVar(&listSortBy, "sort-by", "", "sort field")
	casesListCmd.Flags().StringVar(&listSortOrder, "sort-order", "", "asc or desc")

	casesPDFCmd.Flags().BoolVar(&pdfFinal, "final", false, "download the final PDF of a closed case")
	casesPDFCmd.Flags().StringVarP(&pdfOut, "out", "o", "", "output file")

	casesCmd.AddCommand(casesListCmd, casesPendingCmd, casesReadyCmd, casesStatsCmd, casesGetCmd, casesPDFCmd)

	workflowCmd.Flags().StringVar(&workflowAction, "action", "", "workflow action")
	workflowCmd.Flags().StringVar(&workflowRemark, "remark", "", "remark recorded with the action")
	_ = workflowCmd.MarkFlagRequired("action")

	closeCmd.Flags().StringVar(&closeAmount, "amount", "", "relief amount in rupees")
	closeCmd.Flags().StringVar(&closeMethod, "method", string(caseDatamodel.PaymentBankTransfer), "bank_transfer, cash, cheque or online")
	closeCmd.Flags().StringVar(&closeRemark, "remark", "", "closing remark")
	closeCmd.Flags().StringVar(&closeBeneficiary.Name, "beneficiary-name", "", "beneficiary name")
	closeCmd.Flags().StringVar(&closeBeneficiary.AccountNumber, "account-number", "", "beneficiary bank account (bank_transfer only)")
	closeCmd.Flags().StringVar(&closeBeneficiary.BankName, "bank-name", "", "beneficiary bank (bank_transfer only)")
	closeCmd.Flags().StringVar(&closeBeneficiary.IFSCCode, "ifsc", "", "beneficiary IFSC code (bank_transfer only)")

	rootCmd.AddCommand(casesCmd, workflowCmd, closeCmd)
}
