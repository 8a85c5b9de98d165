package main

import (
	"errors"
	"fmt"

	"ringan/utils"
	"ringan/utils/log"
	"ringan/work-flows/client"
	"ringan/work-flows/gateway"
	"ringan/work-flows/managers"
	"ringan/work-flows/services"

	"github.com/spf13/cobra"
)

const exportsDir = "exports"

// errReported marks failures the view has already shown to the user.
var errReported = errors.New("already reported")

var (
	envLoaded  bool
	configPath string
	problemID  int
	outFormat  string

	cfg *utils.Config

	rootCmd = &cobra.Command{
		Use:               "ringan",
		Short:             "Terminal client for the Ringan mental health assistant",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		RunE:              runChat,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE:  runChat,
	}

	problemsCmd = &cobra.Command{
		Use:   "problems",
		Short: "List the problems the assistant can help with",
		RunE:  runProblems,
	}

	suggestionsCmd = &cobra.Command{
		Use:   "suggestions",
		Short: "List suggestions for a problem",
		RunE:  runSuggestions,
	}

	assessmentsCmd = &cobra.Command{
		Use:   "assessments",
		Short: "List self-assessment questions for a problem",
		RunE:  runAssessments,
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Show knowledge base statistics and usage",
		RunE:  runReport,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml or $HOME/.ringan/config.yaml)")

	for _, cmd := range []*cobra.Command{suggestionsCmd, assessmentsCmd} {
		cmd.Flags().IntVar(&problemID, "problem-id", 0, "problem id")
		cmd.MarkFlagRequired("problem-id")
	}
	reportCmd.Flags().StringVar(&outFormat, "o", "", "also export the report (json|yaml)")

	rootCmd.AddCommand(chatCmd, problemsCmd, suggestionsCmd, assessmentsCmd, reportCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = utils.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.File); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	log.Infow("ringan starting", "command", cmd.Name(), "api", cfg.API.BaseURL, "dotenv", envLoaded)
	return nil
}

func newSession(view managers.View) *managers.ChatSession {
	opts := []managers.Option{managers.WithFeedbackDelay(cfg.Feedback.ConfirmationDelay)}
	if cfg.Translation.Enabled {
		opts = append(opts, managers.WithTranslator(
			services.NewGoogleTranslator(cfg.Translation.SourceLang, cfg.Translation.TargetLang)))
	}

	return managers.NewChatSession(
		client.NewAPIClient(cfg.API.BaseURL, cfg.API.Timeout),
		services.NewReferenceCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval),
		view,
		opts...,
	)
}

func runChat(cmd *cobra.Command, args []string) error {
	view := gateway.NewTerminalView(nil)
	orchestrator := gateway.NewChatbotOrchestrator(newSession(view), view, gateway.NewInputReader(utils.Output), nil)
	orchestrator.SetExportDir(exportsDir)
	return orchestrator.Run(cmd.Context())
}

func runProblems(cmd *cobra.Command, args []string) error {
	session := newSession(gateway.NewTerminalView(nil))
	defer session.Close()
	if _, err := session.LoadProblems(cmd.Context()); err != nil {
		return errReported
	}
	return nil
}

func runSuggestions(cmd *cobra.Command, args []string) error {
	session := newSession(gateway.NewTerminalView(nil))
	defer session.Close()
	if _, err := session.LoadSuggestions(cmd.Context(), problemID); err != nil {
		return errReported
	}
	return nil
}

func runAssessments(cmd *cobra.Command, args []string) error {
	session := newSession(gateway.NewTerminalView(nil))
	defer session.Close()
	if _, err := session.LoadAssessments(cmd.Context(), problemID); err != nil {
		return errReported
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := utils.ParseExportFormat(outFormat)
	if err != nil {
		return err
	}

	apiClient := client.NewAPIClient(cfg.API.BaseURL, cfg.API.Timeout)
	report, err := managers.NewReportManager(apiClient).Fetch(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(utils.Output, gateway.RenderReport(report))

	if format == utils.ExportNone {
		return nil
	}
	path, err := utils.Export(exportsDir, "kb_report", format, "kb_report", apiClient.BaseURL()+"/admin/kb-usage-report", report)
	if err != nil {
		return err
	}
	utils.PrintSuccess(fmt.Sprintf("Report exported to %s", path))
	return nil
}
