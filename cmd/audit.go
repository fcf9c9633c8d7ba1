package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/rahat-dashboard/internal/audit"
	auditPostgres "github.com/frahmantamala/rahat-dashboard/internal/audit/postgres"
	"github.com/frahmantamala/rahat-dashboard/internal/core/events"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit trail commands",
	Long:  `Inspect the dashboard's audit trail and check that case events reach it`,
}

var auditTrailCmd = &cobra.Command{
	Use:   "trail [case-id]",
	Short: "Print the recorded actions on a case",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := audit.NewService(openAuditRepository())
		entries, err := svc.CaseTrail(cmd.Context(), args[0], auditLimit)
		if err != nil {
			log.Fatalf("failed to load audit trail: %v", err)
		}
		if len(entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no audit entries for case %s\n", args[0])
			return
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %-14s %-10s %s/%s  %s\n",
				e.OccurredAt.Format(time.RFC3339), e.EventType, e.Outcome, e.Action, e.ActorRole, e.ActorID, e.Message)
		}
	},
}

var auditPublishCmd = &cobra.Command{
	Use:   "publish [event-type] [case-id]",
	Short: "Publish a test case event through the audit recorder",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(cmd.Context(), args[0], args[1])
	},
}

var (
	auditLimit   int
	eventMessage string
)

func openAuditRepository() audit.RepositoryAPI {
	cfg, err := loadConfig(configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := initDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open gorm: %v", err)
	}
	return auditPostgres.NewAuditRepository(gormDB)
}

func publishTestEvent(ctx context.Context, eventType, caseID string) {
	lg := logger.LoggerWrapper()

	eventBus := events.NewEventBus(lg)
	audit.NewRecorder(openAuditRepository(), lg).Register(eventBus)

	ev := events.NewCaseEvent(eventType, caseID, events.Actor{UserID: "cli", RahatRole: "admin"}, "test", eventMessage)
	lg.Info("publishing test event", "event_type", eventType, "event_id", ev.EventID(), "case_id", caseID)

	if err := eventBus.PublishSync(ctx, ev); err != nil {
		lg.Error("failed to publish event", "error", err)
		return
	}
	lg.Info("test event recorded")
}

func init() {
	auditTrailCmd.Flags().IntVar(&auditLimit, "limit", audit.DefaultListLimit, "maximum entries to print")
	auditPublishCmd.Flags().StringVar(&eventMessage, "message", "test message", "event message")

	auditCmd.AddCommand(auditTrailCmd, auditPublishCmd)
	rootCmd.AddCommand(auditCmd)
}
