package tuplekit

import (
	"context"
	"errors"
	"testing"
)

// TestIntegrationTupleLifecycle tests write, check and revoke against a real
// database
func TestIntegrationTupleLifecycle(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	docID := h.UniqueID("doc")
	txid := h.Grant("user", "alice", "owner", "document", docID)
	if txid <= 0 {
		t.Fatalf("expected a positive consistency token, got %d", txid)
	}

	h.AssertAllowed("user:alice", "owner", "document:"+docID)
	h.AssertAllowed("user:alice", "viewer", "document:"+docID)
	h.AssertDenied("user:bob", "viewer", "document:"+docID)

	h.Revoke("user", "alice", "owner", "document", docID)
	h.AssertDenied("user:alice", "owner", "document:"+docID)

	// The same fact writes again after the soft delete
	h.Grant("user", "alice", "owner", "document", docID)
	h.AssertAllowed("user:alice", "owner", "document:"+docID)
}

// TestIntegrationDuplicateTuple tests the live-row uniqueness index
func TestIntegrationDuplicateTuple(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	docID := h.UniqueID("doc")
	h.Grant("user", "alice", "owner", "document", docID)

	_, err := h.GetService().WriteTuples(h.GetContext(), []TupleKey{
		NewTupleKey("user", "alice", "owner", "document", docID),
	})
	if !IsDuplicateTuple(err) {
		t.Errorf("expected duplicate tuple error, got %v", err)
	}
}

// TestIntegrationRewriteChain tests userset and parent inheritance on a real
// database
func TestIntegrationRewriteChain(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	service := h.GetService()
	ctx := h.GetContext()

	teamID := h.UniqueID("team")
	folderID := h.UniqueID("folder")
	docID := h.UniqueID("doc")

	_, err := service.WriteTuples(ctx, []TupleKey{
		NewTupleKey("user", "carol", "member", "team", teamID),
		NewUsersetTupleKey("team", teamID, "member", "viewer", "folder", folderID),
		NewTupleKey("folder", folderID, "parent", "document", docID),
	})
	if err != nil {
		t.Fatalf("Failed to write tuples: %v", err)
	}

	// team member -> folder viewer -> document viewer via parent.viewer
	h.AssertAllowed("user:carol", "viewer", "folder:"+folderID)
	h.AssertAllowed("user:carol", "viewer", "document:"+docID)
	h.AssertDenied("user:dave", "viewer", "document:"+docID)
}

// TestIntegrationConsistencyToken tests read-your-writes with tokens
func TestIntegrationConsistencyToken(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	docID := h.UniqueID("doc")
	txid := h.Grant("user", "alice", "viewer", "document", docID)

	result, err := h.GetService().Check(h.GetContext(), CheckRequest{
		User:     "user:alice",
		Relation: "viewer",
		Object:   "document:" + docID,
		MinTxid:  txid,
	})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.Allowed {
		t.Error("check with the write's own token should be allowed")
	}

	_, err = h.GetService().Check(h.GetContext(), CheckRequest{
		User:     "user:alice",
		Relation: "viewer",
		Object:   "document:" + docID,
		MinTxid:  txid + 1000000,
	})
	if !errors.Is(err, ErrStaleRead) {
		t.Errorf("expected stale read error, got %v", err)
	}
}

// TestIntegrationQueries tests the tuple query surface
func TestIntegrationQueries(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	service := h.GetService()
	ctx := h.GetContext()

	userID := h.UniqueID("user")
	docA := h.UniqueID("doc")
	docB := h.UniqueID("doc")

	_, err := service.WriteTuples(ctx, []TupleKey{
		NewTupleKey("user", userID, "viewer", "document", docA),
		NewTupleKey("user", userID, "viewer", "document", docB),
		NewTupleKey("user", userID, "owner", "document", docA),
	})
	if err != nil {
		t.Fatalf("Failed to write tuples: %v", err)
	}

	rows, err := service.QueryTuples(ctx, NewTupleQuery().
		WithUser("user", userID).
		WithRelation("viewer"))
	if err != nil {
		t.Fatalf("QueryTuples failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 viewer rows, got %d", len(rows))
	}

	objects, err := service.ListObjects(ctx, "user:"+userID, "viewer", "document")
	if err != nil {
		t.Fatalf("ListObjects failed: %v", err)
	}
	if len(objects) != 2 {
		t.Errorf("expected 2 objects, got %d", len(objects))
	}

	subjects, err := service.ListSubjects(ctx, "document:"+docA, "viewer")
	if err != nil {
		t.Fatalf("ListSubjects failed: %v", err)
	}
	if len(subjects) != 1 || subjects[0].String() != "user:"+userID {
		t.Errorf("unexpected subjects: %v", subjects)
	}
}

// TestIntegrationChangelog tests the mutation log end to end
func TestIntegrationChangelog(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	service := h.GetService()
	ctx := h.GetContext()

	docID := h.UniqueID("doc")
	writeTxid := h.Grant("user", "alice", "viewer", "document", docID)
	deleteTxid := h.Revoke("user", "alice", "viewer", "document", docID)

	latest, err := service.GetLatestTxid(ctx)
	if err != nil {
		t.Fatalf("GetLatestTxid failed: %v", err)
	}
	if latest < deleteTxid {
		t.Errorf("latest txid %d is behind the delete at %d", latest, deleteTxid)
	}

	changes, err := service.GetChangesAfter(ctx, writeTxid-1, 100)
	if err != nil {
		t.Fatalf("GetChangesAfter failed: %v", err)
	}
	var sawWrite, sawDelete bool
	for _, change := range changes {
		if change.Txid == writeTxid && change.Operation == OpWrite {
			sawWrite = true
		}
		if change.Txid == deleteTxid && change.Operation == OpDelete {
			sawDelete = true
		}
	}
	if !sawWrite || !sawDelete {
		t.Errorf("expected both operations in the log, write=%v delete=%v", sawWrite, sawDelete)
	}

	// Acknowledge everything this test produced
	unprocessed, err := service.FindUnprocessed(ctx, 1000)
	if err != nil {
		t.Fatalf("FindUnprocessed failed: %v", err)
	}
	var ids []string
	for _, entry := range unprocessed {
		if entry.Txid >= writeTxid {
			ids = append(ids, entry.ID)
		}
	}
	if err := service.MarkProcessed(ctx, ids); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
}

// TestIntegrationModelVersions tests model lifecycle against a real database
func TestIntegrationModelVersions(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	service := h.GetService()
	ctx := h.GetContext()

	staged, err := service.CreateModel(ctx, "type user {}\ntype thing {\n  relations {\n    holder: [user]\n  }\n}", false)
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	// Staging does not change the active model
	active, err := service.GetActiveModel(ctx)
	if err != nil {
		t.Fatalf("GetActiveModel failed: %v", err)
	}
	if active.VersionID == staged.VersionID {
		t.Error("staged model must not be active")
	}

	records, err := service.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	found := false
	for _, r := range records {
		if r.VersionID == staged.VersionID {
			found = true
			if r.IsActive {
				t.Error("staged record flagged active")
			}
		}
	}
	if !found {
		t.Error("staged model missing from the listing")
	}

	// Deleting the staged version is fine; deleting the active one is not
	if err := service.DeleteModel(ctx, staged.VersionID); err != nil {
		t.Errorf("DeleteModel failed: %v", err)
	}
	if err := service.DeleteModel(ctx, active.VersionID); !errors.Is(err, ErrModelActive) {
		t.Errorf("expected active-model error, got %v", err)
	}
}

// TestIntegrationTransaction tests atomic multi-operation transactions
func TestIntegrationTransaction(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	service := h.GetService()
	ctx := h.GetContext()

	docID := h.UniqueID("doc")
	err := service.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		if _, err := tx.WriteTuples(ctx, []TupleKey{
			NewTupleKey("user", "alice", "owner", "document", docID),
		}); err != nil {
			return err
		}
		_, err := tx.WriteTuples(ctx, []TupleKey{
			NewTupleKey("user", "bob", "viewer", "document", docID),
		})
		return err
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
	h.AssertAllowed("user:alice", "owner", "document:"+docID)
	h.AssertAllowed("user:bob", "viewer", "document:"+docID)

	// A failing transaction leaves nothing behind
	rollbackDoc := h.UniqueID("doc")
	err = service.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		if _, err := tx.WriteTuples(ctx, []TupleKey{
			NewTupleKey("user", "carol", "owner", "document", rollbackDoc),
		}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected the transaction to fail")
	}
	h.AssertDenied("user:carol", "owner", "document:"+rollbackDoc)

	metrics := service.GetTransactionMetrics()
	if metrics.TotalTransactions == 0 {
		t.Error("expected transaction metrics to be recorded")
	}
}

// TestIntegrationTransactionModelActivation tests that a model activated
// inside a transaction is visible through the parent service after commit
func TestIntegrationTransactionModelActivation(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	service := h.GetService()
	ctx := h.GetContext()

	previous, err := service.GetActiveModel(ctx)
	if err != nil {
		t.Fatalf("GetActiveModel failed: %v", err)
	}

	var created *AuthorizationModel
	err = service.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		model, err := tx.CreateModel(ctx, "type user {}\ntype gadget {\n  relations {\n    holder: [user]\n  }\n}", true)
		created = model
		return err
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	active, err := service.GetActiveModel(ctx)
	if err != nil {
		t.Fatalf("GetActiveModel failed: %v", err)
	}
	if active.VersionID != created.VersionID {
		t.Errorf("parent serves version %s, transaction activated %s", active.VersionID, created.VersionID)
	}

	// A rolled-back activation does not stick in the cache
	err = service.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		if _, err := tx.CreateModel(ctx, "type user {}", true); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected the transaction to fail")
	}
	active, err = service.GetActiveModel(ctx)
	if err != nil {
		t.Fatalf("GetActiveModel failed: %v", err)
	}
	if active.VersionID != created.VersionID {
		t.Errorf("expected version %s after rollback, got %s", created.VersionID, active.VersionID)
	}

	// Restore the suite's model
	if err := service.ActivateModel(ctx, previous.VersionID); err != nil {
		t.Fatalf("ActivateModel failed: %v", err)
	}
	if err := service.DeleteModel(ctx, created.VersionID); err != nil {
		t.Errorf("DeleteModel failed: %v", err)
	}
}

// TestIntegrationRequirePermission tests the guard helper with context users
func TestIntegrationRequirePermission(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}

	service := h.GetService()
	docID := h.UniqueID("doc")
	h.Grant("user", "alice", "owner", "document", docID)

	if err := service.RequirePermission(h.GetContext(), "user:alice", "editor", "document:"+docID); err != nil {
		t.Errorf("expected permission, got %v", err)
	}
	err := service.RequirePermission(h.GetContext(), "user:bob", "editor", "document:"+docID)
	if !IsDenied(err) {
		t.Errorf("expected denial, got %v", err)
	}
}
