// Package protocol defines the GophMail wire vocabulary shared by the server
// session and the client driver: the greeting, command names, status tokens,
// failure reasons and the envelope used to deliver stored messages.
//
// Every exchange follows the same three steps over frame-delimited I/O:
//
//  1. the client sends a command frame;
//  2. the server answers with an error frame or a command-specific
//     continuation (READY, a message count, LOGOUT_SUCCESS, GOODBYE);
//  3. the client sends the command's argument frames and the server answers
//     with one final status frame.
//
// Only one exchange is in flight per connection.
package protocol
