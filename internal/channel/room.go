package channel

import "context"

// PasswordFlags is the framework's chat-room password flag set.
type PasswordFlags uint32

// PasswordFlagProvide means the room is waiting for a password.
const PasswordFlagProvide PasswordFlags = 8

// RoomPasswordChannel is an observed chat-room channel that may require a password.
type RoomPasswordChannel interface {
	Channel

	// TargetID is the room identifier; the wallet entry name for its password.
	TargetID() string
	PasswordFlags(ctx context.Context) (PasswordFlags, error)
	// ProvidePassword reports whether the room accepted the password.
	ProvidePassword(ctx context.Context, password string) (bool, error)
}
