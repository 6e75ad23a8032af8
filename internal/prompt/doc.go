// Package prompt defines how authentication strategies ask the user for
// input, and provides a desktop implementation that runs zenity dialogs.
//
// A Prompter call blocks until the user answers, so strategies run it off the
// event loop and receive the result as a continuation. Cancelling the context
// passed to a call dismisses the dialog. A user who dismisses a dialog yields
// ErrCancelled.
package prompt
