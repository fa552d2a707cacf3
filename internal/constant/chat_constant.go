package constant

import "time"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"

	// Title shown for a conversation until the titler renames it.
	ConversationDefaultTitle = "New chat"

	// Titling happens asynchronously after the first user message.
	ConversationTitleTopic = "CONVERSATION_TITLE"

	// Maximum length of an auto-derived conversation title.
	ConversationTitleMaxLen = 60

	// Cap on the non-pinned sidebar section.
	SidebarRecentsLimit = 20
)

const (
	GuestPromptLimit   = 50
	GuestCookieName    = "corevai_guest_used"
	GuestCookieMaxAge  = 7 * 24 * time.Hour
	SessionCookieName  = "corevai_session"
	SessionTokenExpiry = 24 * time.Hour
)

const (
	TOTPIssuer      = "CoreVAI"
	BackupCodeCount = 10

	// Step-up verification marker. Grants expire after 12h; cookie
	// policy is lax everywhere.
	StepUpCookieName = "mfa_ok_v2"
	StepUpWindow     = 12 * time.Hour
)
