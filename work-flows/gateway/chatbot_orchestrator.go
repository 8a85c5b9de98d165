package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ringan/utils"
	"ringan/utils/log"
	"ringan/work-flows/managers"
	"ringan/work-flows/models"

	"github.com/fatih/color"
)

const (
	chatPrompt     = "➤ "
	defaultExports = "exports"
)

type ChatbotOrchestrator struct {
	session   *managers.ChatSession
	view      *TerminalView
	reader    InputReader
	out       io.Writer
	exportDir string
}

func NewChatbotOrchestrator(session *managers.ChatSession, view *TerminalView, reader InputReader, out io.Writer) *ChatbotOrchestrator {
	if out == nil {
		out = utils.Output
	}
	return &ChatbotOrchestrator{
		session:   session,
		view:      view,
		reader:    reader,
		out:       out,
		exportDir: defaultExports,
	}
}

// SetExportDir changes where /history exports are written.
func (co *ChatbotOrchestrator) SetExportDir(dir string) {
	co.exportDir = dir
}

// Run shows the problem list and reads commands until /quit, EOF or ctx ends.
func (co *ChatbotOrchestrator) Run(ctx context.Context) error {
	co.printWelcome()
	co.session.LoadProblems(ctx)

	err := co.interactiveSession(ctx)
	co.endSession()
	return err
}

func (co *ChatbotOrchestrator) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold)
	white := color.New(color.FgWhite)

	cyan.Fprintln(co.out, "🌿 Ringan: mental health support chat")
	white.Fprintln(co.out, "Pick a problem with /select <n> or just start typing. /help lists all commands.")
}

func (co *ChatbotOrchestrator) interactiveSession(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, err := co.reader.ReadLine(chatPrompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if quit := co.handleInput(ctx, input); quit {
			return nil
		}
	}
}

// handleInput dispatches one line and reports whether the session should end.
func (co *ChatbotOrchestrator) handleInput(ctx context.Context, input string) bool {
	if input == "" {
		if draft := co.view.TakeDraft(); draft != "" {
			co.processUserMessage(ctx, draft)
		}
		return false
	}

	if !strings.HasPrefix(input, "/") {
		co.processUserMessage(ctx, input)
		return false
	}

	command, args, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(command) {
	case "quit", "exit":
		return true
	case "help":
		co.showHelp()
	case "problems":
		co.session.LoadProblems(ctx)
	case "refresh":
		co.session.Refresh(ctx)
	case "select":
		co.selectProblem(ctx, args)
	case "suggestions":
		co.showSuggestions(ctx)
	case "use":
		co.useSuggestion(args)
	case "assess":
		co.runAssessment(ctx)
	case "feedback":
		co.submitFeedback(ctx, args)
	case "stats":
		co.showStats()
	case "history":
		co.showConversationHistory(args)
	case "cancel":
		n := co.session.CancelPending()
		utils.PrintInfo(fmt.Sprintf("Cancelled %d pending request(s)", n))
	default:
		utils.PrintWarning(fmt.Sprintf("Unknown command /%s. Type /help for the list.", command))
	}
	return false
}

func (co *ChatbotOrchestrator) processUserMessage(ctx context.Context, message string) {
	exchange := co.session.SendMessage(ctx, message)
	if exchange == nil {
		return
	}
	co.await(ctx, exchange)
}

// await blocks until the exchange settles so replies don't interleave with
// the next prompt. The exchange reports its own failure into the view.
func (co *ChatbotOrchestrator) await(ctx context.Context, exchange *managers.Exchange) {
	if _, err := exchange.Wait(ctx); err != nil && ctx.Err() != nil {
		exchange.Cancel()
	}
}

func (co *ChatbotOrchestrator) selectProblem(ctx context.Context, args string) {
	problems := co.view.Problems()
	if len(problems) == 0 {
		problems, _ = co.session.LoadProblems(ctx)
	}

	idx, ok := parseChoice(args, len(problems))
	if !ok {
		utils.PrintWarning(fmt.Sprintf("Choose a problem between 1 and %d", len(problems)))
		return
	}

	problem := problems[idx]
	exchange, err := co.session.SelectProblem(ctx, problem)
	if err == nil {
		utils.PrintSuccess(fmt.Sprintf("Selected: %s", problem.ProblemName))
	}
	if exchange != nil {
		co.await(ctx, exchange)
	}
}

func (co *ChatbotOrchestrator) showSuggestions(ctx context.Context) {
	selected := co.session.SelectedProblemID()
	if selected == nil {
		utils.PrintInfo("Select a problem first with /select <n>")
		return
	}
	co.session.LoadSuggestions(ctx, *selected)
}

func (co *ChatbotOrchestrator) useSuggestion(args string) {
	suggestions := co.view.Suggestions()
	idx, ok := parseChoice(args, len(suggestions))
	if !ok {
		utils.PrintWarning(fmt.Sprintf("Choose a suggestion between 1 and %d", len(suggestions)))
		return
	}
	co.session.UseSuggestion(suggestions[idx])
}

func (co *ChatbotOrchestrator) runAssessment(ctx context.Context) {
	selected := co.session.SelectedProblemID()
	if selected == nil {
		utils.PrintInfo("Select a problem first with /select <n>")
		return
	}

	assessments, err := co.session.LoadAssessments(ctx, *selected)
	if err != nil || len(assessments) == 0 {
		return
	}

	for _, assessment := range assessments {
		for {
			value, err := co.reader.ReadLine(fmt.Sprintf("%s [%s] ", assessment.QuestionText, answerHint(assessment.ResponseType)))
			if err != nil {
				return
			}
			if value == "" {
				// blank skips the question
				break
			}
			if _, err := co.session.AnswerAssessment(assessment, value); err != nil {
				utils.PrintWarning(err.Error())
				continue
			}
			break
		}
	}
	utils.PrintSuccess("Self assessment recorded")
}

func (co *ChatbotOrchestrator) submitFeedback(ctx context.Context, text string) {
	err := co.session.SubmitFeedback(ctx, text)
	if errors.Is(err, managers.ErrFeedbackNotReady) {
		if co.session.SessionID() == "" {
			utils.PrintInfo("Send a message first, then tell us what you think.")
		} else {
			utils.PrintInfo("Usage: /feedback <your feedback>")
		}
	}
}

func (co *ChatbotOrchestrator) endSession() {
	co.session.Close()

	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)

	stats := co.session.Stats()
	green.Fprintln(co.out, "\n💚 Take care of yourself. See you next time!")
	cyan.Fprintf(co.out, "📈 Messages exchanged: %d (you: %d, assistant: %d)\n",
		stats["total_messages"], stats["user_messages"], stats["ai_messages"])
	if id := co.session.SessionID(); id != "" {
		cyan.Fprintf(co.out, "🔑 Session ID: %s\n", id)
	}
	log.Infow("chat session ended", "session_id", co.session.SessionID(), "messages", stats["total_messages"])
}

func (co *ChatbotOrchestrator) showHelp() {
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)

	yellow.Fprintln(co.out, "\n📖 Available Commands:")
	white.Fprintln(co.out, "• /problems - List problems")
	white.Fprintln(co.out, "• /select <n> - Focus the conversation on problem n")
	white.Fprintln(co.out, "• /suggestions - Show suggestions for the selected problem")
	white.Fprintln(co.out, "• /use <n> - Put suggestion n into your draft (Enter on an empty line sends it)")
	white.Fprintln(co.out, "• /assess - Answer the self-assessment for the selected problem")
	white.Fprintln(co.out, "• /feedback <text> - Rate the last answer")
	white.Fprintln(co.out, "• /stats - Show conversation statistics")
	white.Fprintln(co.out, "• /history [n] [--o json|yaml] - Show the last n messages (all by default) and optionally export them")
	white.Fprintln(co.out, "• /refresh - Reload problems and suggestions from the server")
	white.Fprintln(co.out, "• /cancel - Abort pending requests")
	white.Fprintln(co.out, "• /quit - End the session")
	white.Fprintln(co.out, "• Any other text - Send it to the assistant")
}

func (co *ChatbotOrchestrator) showStats() {
	stats := co.session.Stats()

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)

	cyan.Fprintln(co.out, "\n📊 Conversation Statistics:")
	green.Fprintf(co.out, "• Total messages: %d\n", stats["total_messages"])
	green.Fprintf(co.out, "• Your messages: %d\n", stats["user_messages"])
	green.Fprintf(co.out, "• Assistant replies: %d\n", stats["ai_messages"])
	green.Fprintf(co.out, "• System notices: %d\n", stats["system_messages"])
	green.Fprintf(co.out, "• Pending requests: %d\n", stats["pending_requests"])
	green.Fprintf(co.out, "• Cached entries: %d\n", stats["cached_entries"])
	if id := co.session.SessionID(); id != "" {
		green.Fprintf(co.out, "• Session ID: %s\n", id)
	}
}

func (co *ChatbotOrchestrator) showConversationHistory(args string) {
	rest, format := utils.ParseExportFlag(args)
	history := co.session.History().GetConversationHistory()
	if n, err := strconv.Atoi(rest); err == nil && n > 0 {
		history = co.session.History().GetRecentHistory(n)
	}

	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	blue := color.New(color.FgBlue)
	faint := color.New(color.Faint)

	yellow.Fprintln(co.out, "\n📜 Conversation History")
	if len(history) == 0 {
		cyan.Fprintln(co.out, "No conversation history available yet.")
		return
	}

	for _, message := range history {
		switch message.Role {
		case models.MessageRoleUser:
			green.Fprintf(co.out, "[%d] You: %s\n", message.Index+1, message.Content)
		case models.MessageRoleAI:
			blue.Fprintf(co.out, "[%d] AI: %s\n", message.Index+1, message.Content)
		case models.MessageRoleSystem:
			faint.Fprintf(co.out, "[%d] %s\n", message.Index+1, message.Content)
		}
	}

	if format == utils.ExportNone {
		return
	}

	exportData := map[string]any{
		"session_id": co.session.SessionID(),
		"history":    history,
	}
	path, err := utils.Export(co.exportDir, "conversation_history", format, "conversation_export", "/chat", exportData)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to export history: %s", err))
		return
	}
	utils.PrintSuccess(fmt.Sprintf("History exported to %s", path))
}

// parseChoice converts a 1-based menu number into an index.
func parseChoice(arg string, n int) (int, bool) {
	choice, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || choice < 1 || choice > n {
		return 0, false
	}
	return choice - 1, true
}
