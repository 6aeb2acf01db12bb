package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"taskboard/internal/controller"
	"taskboard/internal/model"
	"taskboard/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageCompleted
)

const (
	cbEditPrefix    = "edit:"
	cbDeletePrefix  = "delete:"
	cbFilterPrefix  = "filter:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
)

const (
	btnSkip          = "⏭️ Skip"
	btnYes           = "Yes"
	btnNo            = "No"
	btnConfirm       = "✅ Confirm"
	btnCancel        = "↩️ Cancel"
	btnCancelDialog  = "⏪ Cancel input"
	menuLabelNewTask = "➕ New task"
	menuLabelTasks   = "📋 Tasks"
	menuLabelRefresh = "🔄 Refresh"
	menuLabelHelp    = "ℹ️ Help"
)

// conversationState tracks the form a chat is filling in. The controller's
// modal is open for as long as a conversation exists.
type conversationState struct {
	stage   conversationStage
	form    model.TaskForm
	editing *model.Task
}

// botAPI is the part of the Telegram client the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TokenStore persists the API token entered through /token.
type TokenStore interface {
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Bot renders one task screen per private chat.
type Bot struct {
	api           botAPI
	sessions      *service.SessionService
	tokens        TokenStore
	logger        zerolog.Logger
	conversations map[int64]*conversationState
	confirmations map[int64]model.ID
	mu            sync.Mutex
}

func New(token string, sessions *service.SessionService, tokens TokenStore, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info().Str("account", api.Self.UserName).Msg("bot authorized")
	return newBot(api, sessions, tokens, logger), nil
}

func newBot(api botAPI, sessions *service.SessionService, tokens TokenStore, logger zerolog.Logger) *Bot {
	return &Bot{
		api:           api,
		sessions:      sessions,
		tokens:        tokens,
		logger:        logger.With().Str("component", "bot").Logger(),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]model.ID),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	b.logger.Info().Msg("stopped polling updates")
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Error().Err(err).Msg("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Error().Err(err).Msg("handle message")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		return b.handleCancel(ctx, chatID)
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.logger.Info().Int64("chat_id", chatID).Str("command", msg.Command()).Msg("command received")
		return b.handleCommand(ctx, msg)
	}

	if id, ok := b.getConfirmation(chatID); ok {
		return b.handleConfirmationResponse(ctx, chatID, msg.Text, id)
	}

	if b.hasConversation(chatID) {
		return b.handleConversation(ctx, chatID, msg.Text)
	}

	return b.sendText(chatID, "I did not understand that. Send /new to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(chatID)
	case "tasks":
		return b.handleListTasks(ctx, chatID, args)
	case "new":
		return b.startCreate(ctx, chatID)
	case "edit":
		return b.startEdit(ctx, chatID, model.ID(args))
	case "delete":
		return b.askDeleteConfirmation(ctx, chatID, model.ID(args))
	case "cancel":
		return b.handleCancel(ctx, chatID)
	case "dismiss":
		b.sessions.Acquire(ctx, chatID).ClearError()
		return b.sendText(chatID, "Error dismissed.")
	case "refresh":
		ctrl := b.sessions.Acquire(ctx, chatID)
		ctrl.Load(ctx)
		return b.sendTaskList(chatID, ctrl)
	case "token":
		return b.handleToken(ctx, msg, args)
	case "logout":
		return b.handleLogout(ctx, chatID)
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your task list in sync with the task service.</b>\n\n", escape(name)) + helpText
	if err := b.sendText(msg.Chat.ID, text); err != nil {
		return err
	}
	return b.sendTaskList(msg.Chat.ID, b.sessions.Acquire(ctx, msg.Chat.ID))
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /tasks [all|pending|completed] — show tasks\n" +
	"• /new — add a task step by step\n" +
	"• /edit &lt;id&gt; — edit a task\n" +
	"• /delete &lt;id&gt; — delete a task\n" +
	"• /refresh — reload tasks from the server\n" +
	"• /dismiss — hide the current error\n" +
	"• /token &lt;token&gt; — set the API token\n" +
	"• /logout — forget the API token\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleHelp(chatID int64) error {
	return b.sendText(chatID, helpText)
}

func (b *Bot) handleListTasks(ctx context.Context, chatID int64, args string) error {
	ctrl := b.sessions.Acquire(ctx, chatID)
	if args != "" {
		ctrl.SetFilter(model.ParseFilter(args))
	}
	return b.sendTaskList(chatID, ctrl)
}

func (b *Bot) startCreate(ctx context.Context, chatID int64) error {
	ctrl := b.sessions.Acquire(ctx, chatID)
	ctrl.OpenCreate()
	b.clearConfirmation(chatID)
	b.setConversation(chatID, &conversationState{stage: stageTitle})
	b.logger.Info().Int64("chat_id", chatID).Msg("start create conversation")
	return b.sendWithReplyMarkup(chatID, "🆕 New task.\n<b>Step 1/3:</b> what is the title?", cancelKeyboard())
}

func (b *Bot) startEdit(ctx context.Context, chatID int64, id model.ID) error {
	if id.IsZero() {
		return b.sendText(chatID, "Give the task ID: /edit 12")
	}
	ctrl := b.sessions.Acquire(ctx, chatID)
	task, ok := ctrl.Task(id)
	if !ok {
		return b.sendText(chatID, "Task not found.")
	}

	ctrl.OpenEdit(task)
	b.clearConfirmation(chatID)
	b.setConversation(chatID, &conversationState{
		stage:   stageTitle,
		form:    model.FormFromTask(task),
		editing: &task,
	})
	b.logger.Info().Int64("chat_id", chatID).Str("task_id", id.String()).Msg("start edit conversation")
	text := fmt.Sprintf("✏️ Editing #%s.\n<b>Step 1/3:</b> new title? Current: <i>%s</i>", escape(id.String()), escape(task.Title))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, chatID int64, input string) error {
	state := b.getConversation(chatID)
	if state == nil {
		return nil
	}
	editing := state.editing != nil
	text := strings.TrimSpace(input)

	switch state.stage {
	case stageTitle:
		if !(editing && isSkipInput(text)) {
			state.form.Title = text
		}
		state.stage = stageDescription
		if editing {
			return b.sendWithReplyMarkup(chatID, fmt.Sprintf("<b>Step 2/3:</b> new description? Current: <i>%s</i>", escape(state.form.Description)), skipKeyboard())
		}
		return b.sendWithReplyMarkup(chatID, "<b>Step 2/3:</b> add a short description.", cancelKeyboard())
	case stageDescription:
		if !(editing && isSkipInput(text)) {
			state.form.Description = text
		}
		state.stage = stageCompleted
		return b.sendWithReplyMarkup(chatID, "<b>Step 3/3:</b> is it completed?", yesNoKeyboard(editing))
	case stageCompleted:
		if !(editing && isSkipInput(text)) {
			completed, ok := parseYesNo(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Answer «Yes» or «No».", yesNoKeyboard(editing))
			}
			state.form.Completed = completed
		}
		return b.finishSubmit(ctx, chatID, state)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "The dialog was reset. Try again with /new.")
	}
}

// finishSubmit hands the collected form to the controller. A locally rejected
// form, or a failed request, keeps the modal open and restarts the dialog.
func (b *Bot) finishSubmit(ctx context.Context, chatID int64, state *conversationState) error {
	ctrl := b.sessions.Acquire(ctx, chatID)
	editing := state.editing != nil
	syncModal(ctrl, state)

	if !ctrl.Submit(ctx, state.form) {
		state.stage = stageTitle
		return b.sendWithReplyMarkup(chatID, "Title and description are required.\n<b>Step 1/3:</b> what is the title?", cancelKeyboard())
	}

	snapshot := ctrl.Snapshot()
	if snapshot.Error != "" {
		state.stage = stageTitle
		text := renderError(snapshot.Error) + "\nSend the title again to retry, or /cancel."
		return b.sendWithReplyMarkup(chatID, text, cancelKeyboard())
	}

	b.clearConversation(chatID)
	if err := b.sendTextWithRemove(chatID, renderSaved(state.form.Normalize(), editing)); err != nil {
		return err
	}
	return b.sendTaskList(chatID, ctrl)
}

// syncModal reopens the modal when the chat's controller was swept and
// remounted while the dialog was running.
func syncModal(ctrl *controller.Controller, state *conversationState) {
	snapshot := ctrl.Snapshot()
	switch {
	case state.editing != nil:
		if snapshot.Editing == nil || snapshot.Editing.ID != state.editing.ID {
			ctrl.OpenEdit(*state.editing)
		}
	case !snapshot.ModalOpen || snapshot.Editing != nil:
		ctrl.OpenCreate()
	}
}

func (b *Bot) handleCancel(ctx context.Context, chatID int64) error {
	b.sessions.Acquire(ctx, chatID).CloseModal()
	b.clearConversation(chatID)
	b.clearConfirmation(chatID)
	return b.sendText(chatID, "⏪ Input cancelled.")
}

func (b *Bot) handleToken(ctx context.Context, msg *tgbotapi.Message, token string) error {
	chatID := msg.Chat.ID
	if token == "" {
		return b.sendText(chatID, "Give the token: /token &lt;value&gt;")
	}

	// The token should not stay in the chat history.
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		b.logger.Warn().Err(err).Msg("delete token message")
	}

	if err := b.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	b.sessions.Release(chatID)
	if err := b.sendText(chatID, "🔑 Token saved."); err != nil {
		return err
	}
	return b.sendTaskList(chatID, b.sessions.Acquire(ctx, chatID))
}

func (b *Bot) handleLogout(ctx context.Context, chatID int64) error {
	if err := b.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	b.sessions.Release(chatID)
	b.clearConversation(chatID)
	b.clearConfirmation(chatID)
	return b.sendText(chatID, "🔒 Token removed.")
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("callback ack")
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	b.logger.Info().Int64("chat_id", chatID).Str("data", data).Msg("callback received")

	switch {
	case strings.HasPrefix(data, cbEditPrefix):
		return b.startEdit(ctx, chatID, model.ID(strings.TrimPrefix(data, cbEditPrefix)))
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.askDeleteConfirmation(ctx, chatID, model.ID(strings.TrimPrefix(data, cbDeletePrefix)))
	case strings.HasPrefix(data, cbFilterPrefix):
		return b.handleListTasks(ctx, chatID, strings.TrimPrefix(data, cbFilterPrefix))
	case strings.HasPrefix(data, cbConfirmPrefix):
		b.clearConfirmation(chatID)
		return b.deleteTaskAndRefresh(ctx, chatID, model.ID(strings.TrimPrefix(data, cbConfirmPrefix)))
	case strings.HasPrefix(data, cbCancelPrefix):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "Deletion cancelled.")
	default:
		return nil
	}
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, id model.ID) error {
	if id.IsZero() {
		return b.sendText(chatID, "Give the task ID: /delete 12")
	}
	task, ok := b.sessions.Acquire(ctx, chatID).Task(id)
	if !ok {
		return b.sendText(chatID, "Task not found.")
	}

	b.setConfirmation(chatID, id)
	text := fmt.Sprintf("Delete task \"%s\" (#%s)?", escape(normalizeTitle(task.Title)), escape(id.String()))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard(id))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, chatID int64, text string, id model.ID) error {
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(chatID)
		return b.deleteTaskAndRefresh(ctx, chatID, id)
	case isCancelInput(text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "Deletion cancelled.")
	default:
		return b.sendWithReplyMarkup(chatID, "Confirm or cancel the deletion.", confirmKeyboard(id))
	}
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, id model.ID) error {
	ctrl := b.sessions.Acquire(ctx, chatID)
	task, _ := ctrl.Task(id)

	if !ctrl.Delete(ctx, id) {
		return b.sendTaskList(chatID, ctrl)
	}

	b.logger.Info().Int64("chat_id", chatID).Str("task_id", id.String()).Msg("task deleted")
	title := task.Title
	if title == "" {
		title = "#" + id.String()
	}
	if err := b.sendText(chatID, fmt.Sprintf("🗑 Task \"%s\" deleted.", escape(normalizeTitle(title)))); err != nil {
		return err
	}
	return b.sendTaskList(chatID, ctrl)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(strings.ToLower(msg.Text)) {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startCreate(ctx, chatID)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, chatID, "")
	case strings.ToLower(menuLabelRefresh):
		ctrl := b.sessions.Acquire(ctx, chatID)
		ctrl.Load(ctx)
		return true, b.sendTaskList(chatID, ctrl)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(chatID)
	default:
		return false, nil
	}
}

// sendTaskList renders the chat's screen: title, counts, error and tasks.
func (b *Bot) sendTaskList(chatID int64, ctrl *controller.Controller) error {
	view := viewOf(ctrl.Snapshot())
	msg := tgbotapi.NewMessage(chatID, renderList(view))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = listKeyboard(view)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(chatID int64) (model.ID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.confirmations[chatID]
	return id, ok
}

func (b *Bot) setConfirmation(chatID int64, id model.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = id
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}
