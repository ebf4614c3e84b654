// Package formvault is an embeddable persistence manager for a single
// application-state document, built for form-style applications that must
// never lose user input.
//
// The manager wraps a flat key/value byte store (memory, filesystem, bbolt,
// S3, MinIO or DynamoDB) and layers three guarantees on top of it:
//
//   - serialized writes: every save goes through a single ordered queue with
//     priority support, so at most one write is ever in flight and a slow
//     writer can never clobber a newer one;
//   - bounded backup rotation: saves snapshot the previous primary into a
//     ring of at most N compressed backups, replaced atomically as one blob;
//   - automatic recovery: a corrupted primary record is silently substituted
//     with the newest structurally valid backup on load.
//
// Save, load and recovery outcomes are published on an event bus with
// per-subscriber panic isolation, and a synchronous emergency flush covers
// shutdown paths where asynchronous completion cannot be guaranteed.
//
// Basic usage:
//
//	store := kvstore.NewMemoryStore()
//	vault, err := formvault.New(ctx, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer vault.Close()
//
//	res := vault.Load(ctx)
//	res.Data.Profile.FullName = "Ada Lovelace"
//
//	if err := vault.Save(ctx, res.Data); err != nil {
//	    log.Fatal(err)
//	}
package formvault
