// Package inbox provides the client-side store of received messages.
//
// The server forgets a message once it has been delivered, so the inbox is
// where a user's history lives. Rows keep the ciphertext exactly as it was
// delivered; decryption happens in the messenger service.
//
// Key Types
//
//   - type Repository       : interface used by higher-level services
//   - type SQLiteRepository : SQLite implementation over dbx.DBTX
//
// Typical Usage
//
//	repo := inbox.NewSQLiteRepository(db)
//	_ = repo.Save(ctx, msg)
//	last10, _ := repo.List(ctx, "alice", 10)
package inbox
