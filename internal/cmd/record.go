package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
)

var (
	recordTenant    string
	recordDate      string
	recordStatus    string
	recordReason    string
	recordProject   string
	recordTask      string
	recordWorkDone  []string
	recordFiles     []string
	recordTech      []string
	recordBlockers  string
	recordLearnings []string
	recordImpact    []string
	recordNextPlan  string
	recordHours     float64
	recordNoTrigger bool

	recordFrom string
	recordTo   string
)

func NewRecordCmd() *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Add or list work-log records",
	}
	recordCmd.AddCommand(newRecordAddCmd())
	recordCmd.AddCommand(newRecordListCmd())
	return recordCmd
}

func newRecordAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one day of work and run the period-closing trigger",
		RunE:  runRecordAdd,
	}

	cmd.Flags().StringVarP(&recordTenant, "tenant", "t", "", "Tenant identifier")
	cmd.Flags().StringVarP(&recordDate, "date", "d", "", "Record date (YYYY-MM-DD), defaults to today (UTC)")
	cmd.Flags().StringVarP(&recordStatus, "status", "s", string(storage.StatusAvailable), "Available, No Work, Leave or Holiday")
	cmd.Flags().StringVar(&recordReason, "reason", "", "Reason when status is not Available")
	cmd.Flags().StringVar(&recordProject, "project", "", "Project name")
	cmd.Flags().StringVar(&recordTask, "task", "", "Task title")
	cmd.Flags().StringArrayVar(&recordWorkDone, "done", nil, "Work item completed (repeatable)")
	cmd.Flags().StringArrayVar(&recordFiles, "file", nil, "File touched (repeatable)")
	cmd.Flags().StringSliceVar(&recordTech, "tech", nil, "Technologies used (comma separated)")
	cmd.Flags().StringVar(&recordBlockers, "blockers", "", "Blockers")
	cmd.Flags().StringArrayVar(&recordLearnings, "learned", nil, "Learning (repeatable)")
	cmd.Flags().StringArrayVar(&recordImpact, "impact", nil, "Impact (repeatable)")
	cmd.Flags().StringVar(&recordNextPlan, "next", "", "Plan for the next day")
	cmd.Flags().Float64Var(&recordHours, "hours", 0, "Hours worked")
	cmd.Flags().BoolVar(&recordNoTrigger, "no-trigger", false, "Only save the record, skip summary generation")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func newRecordListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's records in a date range",
		RunE:  runRecordList,
	}
	cmd.Flags().StringVarP(&recordTenant, "tenant", "t", "", "Tenant identifier")
	cmd.Flags().StringVar(&recordFrom, "from", "", "Start date (YYYY-MM-DD), defaults to 7 days ago")
	cmd.Flags().StringVar(&recordTo, "to", "", "End date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func runRecordAdd(cmd *cobra.Command, args []string) error {
	date := period.StartOfDay(time.Now())
	if recordDate != "" {
		d, err := period.ParseDay(recordDate)
		if err != nil {
			return err
		}
		date = d
	}

	record := &storage.Record{
		Tenant:       recordTenant,
		Date:         date,
		Status:       storage.RecordStatus(recordStatus),
		NoWorkReason: recordReason,
		Project:      recordProject,
		Task:         recordTask,
		WorkDone:     recordWorkDone,
		FilesTouched: recordFiles,
		TechStack:    recordTech,
		Blockers:     recordBlockers,
		Learnings:    recordLearnings,
		Impact:       recordImpact,
		NextPlan:     recordNextPlan,
		Hours:        recordHours,
	}
	if !record.Status.Valid() {
		return fmt.Errorf("invalid status %q (must be Available, No Work, Leave or Holiday)", recordStatus)
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SaveRecord(context.Background(), record); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Record %s saved for %s on %s.\n", record.ID, record.Tenant, record.Date.Format(period.DayLayout))

	if recordNoTrigger {
		return nil
	}
	closing := period.ClosingTypes(record.Date)
	if len(closing) == 0 {
		return nil
	}

	if err := a.withExecutor(); err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}
	fmt.Fprintf(os.Stdout, "%s closes a period, generating %v summaries...\n", record.Date.Format(period.DayLayout), closing)
	a.executor.OnRecordWritten(record.Tenant, record.Date)
	a.executor.Drain()
	return nil
}

func runRecordList(cmd *cobra.Command, args []string) error {
	to := period.StartOfDay(time.Now())
	if recordTo != "" {
		d, err := period.ParseDay(recordTo)
		if err != nil {
			return err
		}
		to = d
	}
	from := to.AddDate(0, 0, -7)
	if recordFrom != "" {
		d, err := period.ParseDay(recordFrom)
		if err != nil {
			return err
		}
		from = d
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.FindRecords(context.Background(), recordTenant, from, period.EndOfDay(to))
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stdout, "No records found for %s between %s and %s\n",
			recordTenant, from.Format(period.DayLayout), to.Format(period.DayLayout))
		return nil
	}

	fmt.Fprintf(os.Stdout, "Records for %s\n", recordTenant)
	fmt.Fprintf(os.Stdout, "================\n\n")
	for _, r := range records {
		if r.Status != storage.StatusAvailable {
			fmt.Fprintf(os.Stdout, "%s  [%s] %s\n", r.Date.Format(period.DayLayout), r.Status, r.NoWorkReason)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s  %s / %s (%.1fh)\n", r.Date.Format(period.DayLayout), r.Project, r.Task, r.Hours)
		for _, item := range r.WorkDone {
			fmt.Fprintf(os.Stdout, "    - %s\n", item)
		}
		if len(r.TechStack) > 0 {
			fmt.Fprintf(os.Stdout, "    tech: %s\n", strings.Join(r.TechStack, ", "))
		}
	}
	return nil
}
