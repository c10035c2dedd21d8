// Package tuplekit implements a relationship-based access control (ReBAC) engine.
//
// TupleKit answers one question: does a subject hold a given relation to an
// object? Permissions are derived from relationship tuples and a compiled
// authorization model in the style of Google Zanzibar: relations are rewritten
// into direct assignments, computed relations, tuple-to-userset indirections
// and boolean combinators (union, intersection, exclusion).
//
// # Core Concepts
//
// Tuple: a relationship fact (user, relation, object), e.g. "user:alice is a
// viewer of document:readme". The user side may itself be a userset reference
// such as "team:platform#member" (all members of the platform team).
//
// Model: the authorization model compiled from DSL source. Each object type
// declares its relations and how they rewrite:
//
//	type user {}
//
//	type team {
//	    relations {
//	        member: [user]
//	    }
//	}
//
//	type document {
//	    relations {
//	        parent: [folder]
//	        owner: [user]
//	        editor: [user] or owner
//	        viewer: [user, team#member] or editor or parent.viewer
//	    }
//	}
//
// A rewrite expression is a direct type list ("[user, team#member, *]"), a
// computed relation ("owner"), a tuple-to-userset ("parent.viewer" — follow
// "parent" tuples, then check "viewer" on the referenced object), or a
// combination with "or", "and" and "but not".
//
// # Basic Usage
//
//	// 1. Connect the database and create the service
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := tuplekit.NewService(db)
//
//	// 2. Run migrations
//	db.Migrate(ctx, service.Migrations())
//
//	// 3. Compile and activate a model
//	model, err := service.CreateModel(ctx, source, true)
//
//	// 4. Write relationship tuples (returns a transaction id)
//	txid, err := service.WriteTuples(ctx, []tuplekit.TupleKey{
//	    tuplekit.NewTupleKey("user", "alice", "owner", "document", "readme"),
//	})
//
//	// 5. Check permissions
//	res, err := service.Check(ctx, tuplekit.CheckRequest{
//	    User:     "user:alice",
//	    Relation: "viewer",
//	    Object:   "document:readme",
//	})
//	if res.Allowed {
//	    // alice may view the document
//	}
//
// # Consistency Tokens
//
// Every write and delete runs in one transaction that assigns a monotonically
// increasing transaction id, stamps it on the affected tuples and appends
// changelog rows. The returned id doubles as a consistency token: pass it as
// CheckRequest.MinTxid to require that a check is evaluated against state no
// older than that write.
//
// # Contextual Tuples
//
// CheckRequest.ContextualTuples supplies tuples for a single evaluation
// without persisting them, enabling "what-if" checks:
//
//	res, _ := service.Check(ctx, tuplekit.CheckRequest{
//	    User:     "user:bob",
//	    Relation: "viewer",
//	    Object:   "document:readme",
//	    ContextualTuples: []tuplekit.TupleKey{
//	        tuplekit.NewTupleKey("user", "bob", "owner", "document", "readme"),
//	    },
//	})
//
// # Changelog
//
// Tuple mutations are never physically removed: deletion stamps a deleting
// transaction id, and an append-only changelog keyed by transaction id feeds
// downstream cache invalidation and audit consumers. Consumers poll with
// FindUnprocessed/GetChangesAfter and acknowledge with MarkProcessed.
//
// # Stores
//
// The Postgres-backed Service is the production store. MemoryStore implements
// the same Store contract in memory for tests, development and single-node
// deployments; the Checker works against either.
package tuplekit
