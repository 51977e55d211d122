// Package cli provides the interactive shell in front of the storage kernel.
//
// The shell owns only I/O: prompts, password entry and printing results.
// Every menu action is one call into services.FileService or
// services.UserService; errors come back tagged with their kind and are
// printed as such.
//
// Before login the shell accepts register, login and exit. After login it
// accepts the file commands (create, read, write, delete, open, close,
// opened, share, list, status) plus logout. Commands take the file name as
// an argument or prompt for it. For single-name commands the whole rest of
// the line is the name, so "read my notes.txt" reads "my notes.txt". share
// splits its arguments on whitespace; a file name with spaces has to be
// entered at its prompt.
//
// The loop is started with Shell.Run, which blocks until the user exits,
// input ends, or the context is cancelled.
package cli
