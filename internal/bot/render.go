package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskboard/internal/controller"
	"taskboard/internal/model"
)

const (
	iconPending   = "⬜"
	iconCompleted = "✅"
	iconError     = "⚠️"
	iconLoading   = "⏳"
)

// A Telegram message holds 4096 characters and an inline keyboard 100
// buttons; lists are cut well below both.
const (
	maxListedTasks = 40
	maxListRunes   = 3500
	maxTitleRunes  = 200
	maxDetailRunes = 300
	maxErrorRunes  = 300
)

var filterOrder = []model.Filter{model.FilterAll, model.FilterPending, model.FilterCompleted}

// listView is everything the task list message shows, taken from one snapshot.
type listView struct {
	Title   string
	Filter  model.Filter
	Counts  model.Counts
	Tasks   []model.Task
	Hidden  int
	Loading bool
	Error   string
}

func viewOf(state controller.State) listView {
	tasks, hidden := capTasks(state.ActiveFilter.Apply(state.Tasks))
	return listView{
		Title:   state.ActiveFilter.Title(),
		Filter:  state.ActiveFilter,
		Counts:  model.CountTasks(state.Tasks),
		Tasks:   tasks,
		Hidden:  hidden,
		Loading: state.Loading,
		Error:   state.Error,
	}
}

// capTasks keeps the leading tasks that fit in one message and reports how
// many were left out.
func capTasks(tasks []model.Task) ([]model.Task, int) {
	budget := maxListRunes
	for i, task := range tasks {
		size := utf8.RuneCountInString(formatTask(task))
		if i == maxListedTasks || size > budget {
			return tasks[:i], len(tasks) - i
		}
		budget -= size
	}
	return tasks, 0
}

func renderList(v listView) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>%s</b>\n", escape(v.Title)))
	b.WriteString(fmt.Sprintf("All: %d · Pending: %d · Completed: %d\n\n", v.Counts.All, v.Counts.Pending, v.Counts.Completed))

	if v.Error != "" {
		b.WriteString(renderError(v.Error))
		b.WriteString("\n\n")
	}
	if v.Loading {
		b.WriteString(iconLoading + " Loading...\n\n")
	}

	if len(v.Tasks) == 0 && v.Hidden == 0 {
		b.WriteString("No tasks here yet. Add one with /new.")
		return strings.TrimSpace(b.String())
	}
	for _, task := range v.Tasks {
		b.WriteString(formatTask(task))
	}
	if v.Hidden > 0 {
		b.WriteString(fmt.Sprintf("…and %d more", v.Hidden))
	}
	return strings.TrimSpace(b.String())
}

func formatTask(task model.Task) string {
	var b strings.Builder
	icon := iconPending
	if task.Status.Completed() {
		icon = iconCompleted
	}
	b.WriteString(fmt.Sprintf("%s <b>#%s</b> %s\n", icon, escape(clip(task.ID.String(), maxTitleRunes)), escape(clip(normalizeTitle(task.Title), maxTitleRunes))))
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(clip(task.Description, maxDetailRunes))))
	}
	if !task.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("   🕒 %s\n", task.UpdatedAt.Format("2006-01-02 15:04")))
	}
	b.WriteByte('\n')
	return b.String()
}

func renderError(message string) string {
	return fmt.Sprintf("%s <b>Error!</b> %s", iconError, escape(clip(message, maxErrorRunes)))
}

// clip cuts s to at most max runes, marking the cut with an ellipsis.
func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

func renderSaved(task model.TaskForm, editing bool) string {
	var b strings.Builder
	if editing {
		b.WriteString("✅ <b>Task updated</b>\n")
	} else {
		b.WriteString("✅ <b>Task created</b>\n")
	}
	b.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(normalizeTitle(task.Title))))
	b.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(task.Description)))
	b.WriteString(fmt.Sprintf("• <b>Status:</b> %s", model.StatusFromBool(task.Completed)))
	return b.String()
}

// listKeyboard has one row per visible task and a filter row with counts.
func listKeyboard(v listView) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(v.Tasks)+1)
	for _, task := range v.Tasks {
		id := task.ID.String()
		if id == "" {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✏️ #%s · %s", id, shortTitle(task.Title, 20)), cbEditPrefix+id),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbDeletePrefix+id),
		))
	}

	filters := make([]tgbotapi.InlineKeyboardButton, 0, len(filterOrder))
	for _, f := range filterOrder {
		label := fmt.Sprintf("%s (%d)", filterLabel(f), v.Counts.Of(f))
		if f == v.Filter || (f == model.FilterAll && !isKnownFilter(v.Filter)) {
			label = "• " + label
		}
		filters = append(filters, tgbotapi.NewInlineKeyboardButtonData(label, cbFilterPrefix+string(f)))
	}
	rows = append(rows, filters)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func filterLabel(f model.Filter) string {
	switch f {
	case model.FilterPending:
		return "Pending"
	case model.FilterCompleted:
		return "Completed"
	default:
		return "All"
	}
}

func isKnownFilter(f model.Filter) bool {
	for _, known := range filterOrder {
		if f == known {
			return true
		}
	}
	return false
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelRefresh),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard(withSkip bool) tgbotapi.ReplyKeyboardMarkup {
	row := tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnYes),
		tgbotapi.NewKeyboardButton(btnNo),
	)
	if withSkip {
		row = append(row, tgbotapi.NewKeyboardButton(btnSkip))
	}
	kb := tgbotapi.NewReplyKeyboard(
		row,
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func confirmKeyboard(id model.ID) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirmPrefix+id.String()),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+id.String()),
		),
	)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	return strings.TrimSpace(strings.ToLower(text)) == strings.ToLower(btnCancelDialog)
}

// parseYesNo reads the completed toggle. ok is false for anything else.
func parseYesNo(text string) (value, ok bool) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "yes", "y", "done", strings.ToLower(btnYes):
		return true, true
	case "no", "n", "pending", strings.ToLower(btnNo):
		return false, true
	default:
		return false, false
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
