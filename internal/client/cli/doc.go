// Package cli provides the interactive GophMail command-line client.
//
// It wires configuration, the local inbox, the protocol driver and an
// interactive REPL. Typical flow: register or log in, send messages to other
// users by name, fetch new messages and browse the local history.
//
// Key features:
//   - Register / Login / Logout (passwords are read without echo)
//   - Send: text is sealed with the shared key before it leaves the process
//   - Get: pull new messages and keep them in the local inbox
//   - History: show received messages without contacting the server
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
