// Package notifications keeps an in-memory notification inbox consistent with
// a remote persistence service.
//
// # Architecture
//
//   - Client: the persistence contract (list, create, delete, mark read, mark all read)
//   - Normalizer: maps heterogeneous payloads and response envelopes to Notification
//   - Store: owns the ordered collection, applies mutations optimistically and
//     reconciles them with the Client in the background
//   - Policy: decides what happens when a confirmation fails
//   - Storage: the server-side port used by the REST service and StorageClient
//
// # Basic Usage
//
//	store := notifications.NewStore(client,
//	    notifications.WithStoreLogger(log),
//	)
//	defer store.Close()
//
//	store.Init(ctx)
//
//	n, _ := store.Add(notifications.Input{
//	    Title: "Invoice sent",
//	    Type:  notifications.TypeSuccess,
//	})
//	// n is already visible with a local id; the future resolves once the
//	// remote id has replaced it.
//
//	store.MarkRead(n.ID)
//	fmt.Println(store.UnreadCount())
//
// # Optimistic Mutation and Reconciliation
//
// Add inserts the new entry at the head of the collection with a local id
// (see Store.IsLocal) before the create request is sent. When persistence answers,
// the entry with that local id is replaced by the normalized response. If the
// entry was removed in the meantime the response is discarded and the remote
// copy deleted again, also from the collection if a reload brought it in:
// removal wins.
//
// Local ids are never sent to persistence. Marking a pending entry read is
// carried over to the confirmed entry.
//
// # Failure Handling
//
// No Store operation returns a persistence error. Each mutation returns an
// async.Future of Outcome that reports Confirmed, Failed or Skipped. The
// default policy, KeepOptimistic, logs failures and keeps the local state.
// RollbackOnFailure reverts the mutation; RetryWithBackoff retries with
// exponential backoff before deferring to another policy.
//
// # Ephemeral Notifications
//
// Add with WithoutPersist keeps the entry local. Success and info entries are
// removed after the expiry delay (five seconds by default); other types stay
// until removed explicitly.
package notifications
