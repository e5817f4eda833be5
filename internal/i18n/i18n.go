// Package i18n holds the user-facing strings in Hebrew (default) and English.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	ErrGeneric        = "error.generic"
	ErrAssistant      = "error.assistant"
	ErrLoadTasks      = "error.load_tasks"
	ErrTaskNotFound   = "error.task_not_found"
	ErrAmbiguousID    = "error.ambiguous_id"
	ErrTitleRequired  = "error.title_required"
	ErrAssistantBusy  = "error.assistant_busy"
	ErrKeyInvalid     = "error.key_invalid"
	ErrNoModel        = "error.no_model"
	TaskCreated       = "task.created"
	TaskCompleted     = "task.completed"
	TaskRecurringDone = "task.recurring_done"
	TaskArchived      = "task.archived"
	TaskRestored      = "task.restored"
	TaskDeleted       = "task.deleted"
	TaskAlreadyDone   = "task.already_done"
	TasksEmpty        = "tasks.empty"
	TasksHeader       = "tasks.header"
	ArchiveEmpty      = "archive.empty"
	ArchiveHeader     = "archive.header"
	RecsHeader        = "recs.header"
	AskTitle          = "dialog.ask_title"
	AskDescription    = "dialog.ask_description"
	AskDueType        = "dialog.ask_due_type"
	AskDate           = "dialog.ask_date"
	BadDate           = "dialog.bad_date"
	AskRecurring      = "dialog.ask_recurring"
	AskPattern        = "dialog.ask_pattern"
	DialogCancelled   = "dialog.cancelled"
	AssistantClosed   = "assistant.closed"
	SettingsHeader    = "settings.header"
	SettingsSaved     = "settings.saved"
	KeySaved          = "settings.key_saved"
	DigestTitle       = "digest.title"
	Start             = "bot.start"
	Help              = "bot.help"
	UnknownCommand    = "bot.unknown_command"
	UnknownMessage    = "bot.unknown_message"
	Usage             = "bot.usage"
	ErrInvalidInput   = "error.invalid_input"
	ConfirmComplete   = "confirm.complete"
	ConfirmArchive    = "confirm.archive"
	ConfirmPrompt     = "confirm.prompt"
	Cancelled         = "confirm.cancelled"
	LanguageSaved     = "settings.language_saved"
	KeyNotSet         = "settings.key_not_set"
	KeySet            = "settings.key_set"
	On                = "label.on"
	Off               = "label.off"
	BtnSkip           = "button.skip"
	BtnYes            = "button.yes"
	BtnNo             = "button.no"
	BtnConfirm        = "button.confirm"
	BtnCancel         = "button.cancel"
	BtnCancelDialog   = "button.cancel_dialog"
	BtnComplete       = "button.complete"
	BtnArchive        = "button.archive"
	BtnRestore        = "button.restore"
	MenuNewTask       = "menu.new_task"
	MenuTasks         = "menu.tasks"
	MenuRecommend     = "menu.recommend"
	MenuAssistant     = "menu.assistant"
	DueLabelDate      = "due.date"
	DueLabelUnknown   = "due.unknown"
	DueLabelUrgent    = "due.urgent"
	DueLabelASAP      = "due.asap"
	RecurDaily        = "recur.daily"
	RecurWeekly       = "recur.weekly"
	RecurMonthly      = "recur.monthly"
	StatusPending     = "status.pending"
	StatusInProgress  = "status.in_progress"
	StatusCompleted   = "status.completed"
	TaskStatusChanged = "task.status_changed"
	TaskRenamed       = "task.renamed"
	Overdue           = "task.overdue"
)

var supported = []language.Tag{language.Hebrew, language.English}

var (
	matcher = language.NewMatcher(supported)
	cat     = build()
)

// Tag maps a settings language code to a supported tag. Anything unknown
// falls back to Hebrew.
func Tag(lang string) language.Tag {
	_, idx, _ := matcher.Match(language.Make(lang))
	return supported[idx]
}

// Printer returns a printer for the settings language code.
func Printer(lang string) *message.Printer {
	return message.NewPrinter(Tag(lang), message.Catalog(cat))
}

// T formats key in lang.
func T(lang, key string, args ...any) string {
	return Printer(lang).Sprintf(key, args...)
}

func build() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Hebrew))
	for key, pair := range entries {
		_ = b.SetString(language.Hebrew, key, pair[0])
		_ = b.SetString(language.English, key, pair[1])
	}
	return b
}

// entries maps key to {Hebrew, English}.
var entries = map[string][2]string{
	ErrGeneric:        {"אירעה שגיאה בעת עיבוד הבקשה", "Something went wrong while processing the request"},
	ErrAssistant:      {"העוזר לא הצליח לענות כרגע, נסה שוב", "The assistant could not answer right now, please try again"},
	ErrLoadTasks:      {"שגיאה בטעינת המשימות", "Failed to load tasks"},
	ErrTaskNotFound:   {"המשימה לא נמצאה", "Task not found"},
	ErrAmbiguousID:    {"המזהה מתאים ליותר ממשימה אחת, הקלד מזהה ארוך יותר", "That id matches more than one task, type more characters"},
	ErrTitleRequired:  {"נא להזין כותרת למשימה", "Please enter a task title"},
	ErrAssistantBusy:  {"רגע, אני עוד עונה על ההודעה הקודמת", "One moment, I am still answering your previous message"},
	ErrKeyInvalid:     {"מפתח ה-API אינו תקין", "The API key is not valid"},
	ErrNoModel:        {"העוזר החכם אינו מוגדר. הוסף מפתח API בהגדרות", "The assistant is not configured. Add an API key in settings"},
	TaskCreated:       {"✅ המשימה «%s» נוצרה בהצלחה", "✅ Task «%s» created"},
	TaskCompleted:     {"✅ המשימה «%s» הושלמה", "✅ Task «%s» completed"},
	TaskRecurringDone: {"♻️ המשימה «%s» סומנה כבוצעה. המועד הבא: %s", "♻️ Task «%s» marked done. Next due: %s"},
	TaskArchived:      {"📦 המשימה «%s» הועברה לארכיון", "📦 Task «%s» archived"},
	TaskRestored:      {"המשימה «%s» שוחזרה בהצלחה", "Task «%s» restored"},
	TaskDeleted:       {"🗑 המשימה «%s» נמחקה בהצלחה", "🗑 Task «%s» deleted"},
	TaskAlreadyDone:   {"המשימה כבר הושלמה", "The task is already completed"},
	TasksEmpty:        {"אין לך משימות פעילות. הוסף משימה חדשה עם /newtask", "You have no active tasks. Add one with /newtask"},
	TasksHeader:       {"📋 <b>המשימות שלך</b>", "📋 <b>Your tasks</b>"},
	ArchiveEmpty:      {"אין משימות בארכיון", "The archive is empty"},
	ArchiveHeader:     {"📦 <b>ארכיון משימות</b>", "📦 <b>Archived tasks</b>"},
	RecsHeader:        {"💡 <b>המלצות העוזר האישי</b>", "💡 <b>Assistant recommendations</b>"},
	AskTitle:          {"🆕 משימה חדשה.\n<b>שלב 1:</b> מה כותרת המשימה?", "🆕 New task.\n<b>Step 1:</b> what is the title?"},
	AskDescription:    {"✏️ הוסף תיאור קצר (או «דלג»)", "✏️ Add a short description (or «skip»)"},
	AskDueType:        {"⏰ מתי המשימה צריכה להתבצע?", "⏰ When is the task due?"},
	AskDate:           {"📆 הזן תאריך בפורמט <code>2026-11-30</code>", "📆 Enter a date as <code>2026-11-30</code>"},
	BadDate:           {"לא הצלחתי לזהות את התאריך. השתמש בפורמט <code>2026-11-30</code>", "Could not read the date. Use <code>2026-11-30</code>"},
	AskRecurring:      {"🔁 האם המשימה חוזרת?", "🔁 Does the task repeat?"},
	AskPattern:        {"כל כמה זמן?", "How often?"},
	DialogCancelled:   {"⏪ יצירת המשימה בוטלה", "⏪ Task creation cancelled"},
	AssistantClosed:   {"👋 השיחה עם העוזר הסתיימה", "👋 Assistant conversation closed"},
	SettingsHeader:    {"⚙️ <b>הגדרות</b>\nשפה: %s\nערכת נושא: %s\nהתראות: %s\nמפתח API אישי: %s", "⚙️ <b>Settings</b>\nLanguage: %s\nTheme: %s\nNotifications: %s\nPersonal API key: %s"},
	SettingsSaved:     {"ההגדרות נשמרו", "Settings saved"},
	KeySaved:          {"🔑 מפתח ה-API נשמר", "🔑 API key saved"},
	DigestTitle:       {"📋 עדכון משימות", "📋 Task update"},
	Start: {"👋 שלום %s!\n<b>אני העוזר האישי למשימות שלך.</b>\n\n/newtask — משימה חדשה\n/tasks — משימות פעילות\n/recommend — המלצות\n/assistant — שיחה עם העוזר\n/help — עזרה",
		"👋 Hi %s!\n<b>I am your personal task assistant.</b>\n\n/newtask — new task\n/tasks — active tasks\n/recommend — recommendations\n/assistant — chat with the assistant\n/help — help"},
	Help: {"ℹ️ <b>פקודות</b>\n/newtask — משימה חדשה\n/tasks [סטטוס] — משימות פעילות\n/archive [חיפוש] — ארכיון\n/complete &lt;id&gt; — סימון כהושלם\n/status &lt;id&gt; &lt;pending|in_progress|completed&gt; — שינוי סטטוס\n/edit &lt;id&gt; &lt;כותרת&gt; — שינוי כותרת\n/delete &lt;id&gt; — מחיקה\n/restore &lt;id&gt; — שחזור מהארכיון\n/recommend — המלצות\n/assistant — שיחה עם העוזר, /close לסיום\n/ask &lt;prioritize|split|motivate&gt; &lt;טקסט&gt; — שאלה חד-פעמית\n/settings, /language, /theme, /notifications, /apikey\n/cancel — ביטול",
		"ℹ️ <b>Commands</b>\n/newtask — new task\n/tasks [status] — active tasks\n/archive [search] — archive\n/complete &lt;id&gt; — mark completed\n/status &lt;id&gt; &lt;pending|in_progress|completed&gt; — change status\n/edit &lt;id&gt; &lt;title&gt; — rename\n/delete &lt;id&gt; — delete\n/restore &lt;id&gt; — restore from archive\n/recommend — recommendations\n/assistant — chat with the assistant, /close to end\n/ask &lt;prioritize|split|motivate&gt; &lt;text&gt; — one-off question\n/settings, /language, /theme, /notifications, /apikey\n/cancel — cancel"},
	UnknownCommand: {"הפקודה אינה נתמכת. ראה /help", "Unknown command. See /help"},
	UnknownMessage: {"לא הבנתי. /newtask ליצירת משימה או /assistant לשיחה עם העוזר", "I did not get that. Use /newtask to add a task or /assistant to chat"},
	Usage:          {"שימוש: %s", "Usage: %s"},

	ErrInvalidInput:   {"הקלט אינו תקין: %s", "Invalid input: %s"},
	ConfirmComplete:   {"לסמן את «%s» כהושלמה?", "Mark «%s» as completed?"},
	ConfirmArchive:    {"להעביר את «%s» לארכיון?", "Archive «%s»?"},
	ConfirmPrompt:     {"אשר או בטל את הפעולה", "Confirm or cancel the action"},
	Cancelled:         {"הפעולה בוטלה", "Cancelled"},
	LanguageSaved:     {"השפה עודכנה לעברית", "Language set to English"},
	KeyNotSet:         {"לא הוגדר", "not set"},
	KeySet:            {"הוגדר", "set"},
	On:                {"פעיל", "on"},
	Off:               {"כבוי", "off"},
	BtnSkip:           {"⏭️ דלג", "⏭️ Skip"},
	BtnYes:            {"כן", "Yes"},
	BtnNo:             {"לא", "No"},
	BtnConfirm:        {"✅ אישור", "✅ Confirm"},
	BtnCancel:         {"↩️ ביטול", "↩️ Cancel"},
	BtnCancelDialog:   {"⏪ בטל הזנה", "⏪ Stop input"},
	BtnComplete:       {"✅", "✅"},
	BtnArchive:        {"📦", "📦"},
	BtnRestore:        {"♻️ שחזר", "♻️ Restore"},
	MenuNewTask:       {"➕ משימה חדשה", "➕ New task"},
	MenuTasks:         {"📋 משימות", "📋 Tasks"},
	MenuRecommend:     {"💡 המלצות", "💡 Recommendations"},
	MenuAssistant:     {"🤖 עוזר", "🤖 Assistant"},
	DueLabelDate:      {"📆 תאריך", "📆 Date"},
	DueLabelUnknown:   {"❔ לא ידוע", "❔ Unknown"},
	DueLabelUrgent:    {"🔥 דחוף", "🔥 Urgent"},
	DueLabelASAP:      {"⚡ בהקדם", "⚡ ASAP"},
	RecurDaily:        {"יומי", "Daily"},
	RecurWeekly:       {"שבועי", "Weekly"},
	RecurMonthly:      {"חודשי", "Monthly"},
	StatusPending:     {"ממתינה", "pending"},
	StatusInProgress:  {"בביצוע", "in progress"},
	StatusCompleted:   {"הושלמה", "completed"},
	TaskStatusChanged: {"הסטטוס של «%s» עודכן: %s", "«%s» is now %s"},
	TaskRenamed:       {"✏️ המשימה עודכנה: «%s»", "✏️ Task updated: «%s»"},
	Overdue:           {"באיחור", "overdue"},
}
