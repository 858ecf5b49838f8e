// Package cli provides the interactive Send It command-line client.
//
// It wires configuration, the local session store, the backend client and
// the two synchronized fields (the user's text and the uploaded files), and
// serves a REPL over them. A saved session is restored on start; otherwise
// the user signs in through the browser with 'signin'.
//
// Key features:
//   - Sign in / sign out, whoami
//   - Show and edit the text; edits are written after a short quiet period
//   - List, drop (replace), add and clear files; uploads run in the
//     background with progress redrawn in place on a terminal
//   - Notices when another client changes the text or the file list
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
