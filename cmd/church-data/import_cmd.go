package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	givingpersistence "github.com/dchoinie/church-membership-app-sub003/modules/giving/infrastructure/persistence"
	givingservices "github.com/dchoinie/church-membership-app-sub003/modules/giving/services"
	membershippersistence "github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence"
	membershipservices "github.com/dchoinie/church-membership-app-sub003/modules/membership/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
	"github.com/dchoinie/church-membership-app-sub003/pkg/csvimport"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

type importOptions struct {
	tenant string
	file   string
	apply  bool
	strict bool
}

func newImportMembersCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import-members",
		Short: "Import membership rows from a CSV or XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), "members", opts)
		},
	}
	addImportFlags(cmd, &opts)
	return cmd
}

func newImportGivingCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import-giving",
		Short: "Import giving rows from a CSV or XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), "giving", opts)
		},
	}
	addImportFlags(cmd, &opts)
	return cmd
}

func addImportFlags(cmd *cobra.Command, opts *importOptions) {
	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "Tenant UUID or domain (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to the CSV/XLSX file (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Apply changes to DB (default is dry-run)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Reject the whole file when any row fails")

	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")
}

type importSummary struct {
	Status   string   `json:"status"`
	Entity   string   `json:"entity"`
	TenantID string   `json:"tenant_id"`
	File     string   `json:"file"`
	Success  int      `json:"success"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// runImport drives one of the import services against a local file. The
// whole run shares a single transaction, so dry-run sees exactly what
// apply would commit, households included.
func runImport(ctx context.Context, entity string, opts importOptions) error {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("read %s: %w", opts.file, err))
	}

	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	logger := configuration.Use().Logger()
	ctx = composables.WithPool(ctx, pool)
	ctx = context.WithValue(ctx, constants.LoggerKey, logrus.NewEntry(logger))

	tenantID, err := resolveTenant(ctx, opts.tenant)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return withCode(exitDB, fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ctx = composables.WithTenantID(ctx, tenantID)
	ctx = composables.WithTx(ctx, tx)

	result, err := runImportService(ctx, entity, data)
	if err != nil {
		var structural *csvimport.StructuralError
		if as(err, &structural) {
			return withCode(exitValidation, err)
		}
		return withCode(exitDB, err)
	}

	summary := importSummary{
		Status:   "dry_run",
		Entity:   entity,
		TenantID: tenantID.String(),
		File:     opts.file,
		Success:  result.Success,
		Failed:   result.Failed,
		Errors:   result.Errors,
	}

	if opts.strict && result.Failed > 0 {
		summary.Status = "rejected"
		if err := writeJSONLine(summary); err != nil {
			return err
		}
		return withCode(exitValidation, fmt.Errorf("%d row(s) failed", result.Failed))
	}

	if opts.apply {
		if err := tx.Commit(ctx); err != nil {
			return withCode(exitDBWrite, fmt.Errorf("commit: %w", err))
		}
		summary.Status = "applied"
	}
	return writeJSONLine(summary)
}

func runImportService(ctx context.Context, entity string, data []byte) (*csvimport.Result, error) {
	switch entity {
	case "members":
		svc := membershipservices.NewMemberImportService(
			membershippersistence.NewMemberRepository(),
			membershippersistence.NewHouseholdRepository(),
			outbox.NewPublisher(),
		)
		return svc.ImportCSV(ctx, data)
	case "giving":
		svc := givingservices.NewGivingImportService(
			givingpersistence.NewGivingRepository(),
			givingpersistence.NewCategoryRepository(),
			membershippersistence.NewMemberRepository(),
			outbox.NewPublisher(),
		)
		return svc.ImportCSV(ctx, data)
	default:
		return nil, withCode(exitUsage, fmt.Errorf("unsupported entity: %s", entity))
	}
}
