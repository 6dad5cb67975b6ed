package domain

import "errors"

// Failure taxonomy shared by the registrar, queue and publisher. Callers
// wrap these with fmt.Errorf("...: %w", err) when adding context.
var (
	// ErrCredentialMissing means the operator has no stored posting-bot token.
	ErrCredentialMissing = errors.New("posting-bot credential not configured")
	// ErrCredentialInvalid means Telegram rejected the posting-bot token.
	ErrCredentialInvalid = errors.New("posting-bot credential rejected by Telegram")
	// ErrChannelUnreachable means getChat failed for a channel handle.
	ErrChannelUnreachable = errors.New("channel is not reachable")
	// ErrChannelNotAdmin means the posting bot is not an administrator of the channel.
	ErrChannelNotAdmin = errors.New("posting bot is not a channel administrator")
	// ErrNoActiveChannels means an enqueue was attempted with zero active channels.
	ErrNoActiveChannels = errors.New("operator has no active channels")
	// ErrSendFailed marks a single failed send attempt to one channel.
	ErrSendFailed = errors.New("send to channel failed")

	ErrOperatorNotFound = errors.New("operator not found")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrNoPendingPosts   = errors.New("no pending posts")
)
