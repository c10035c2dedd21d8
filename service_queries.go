package tuplekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// TUPLE QUERIES
// ============================================================================

// QueryTuples returns stored rows matching the filter. Unlike the check
// engine reads this surfaces full rows, including soft-deleted history when
// the filter asks for it.
//
// Example:
//
//	rows, err := service.QueryTuples(ctx, tuplekit.NewTupleQuery().
//	    WithObjectType("document").
//	    WithRelation("viewer"))
func (s *Service) QueryTuples(ctx context.Context, filter TupleQuery) ([]RelationTuple, error) {
	var rows []RelationTuple
	q := s.db.NewSelect().Model(&rows)

	if filter.UserType != "" {
		q = q.Where("user_type = ?", filter.UserType)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.UserRelation != "" {
		q = q.Where("user_relation = ?", filter.UserRelation)
	}
	if filter.Relation != "" {
		q = q.Where("relation = ?", filter.Relation)
	}
	if filter.ObjectType != "" {
		q = q.Where("object_type = ?", filter.ObjectType)
	}
	if filter.ObjectID != "" {
		q = q.Where("object_id = ?", filter.ObjectID)
	}
	if !filter.IncludeDeleted {
		q = q.Where("deleted_txid = 0")
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("created_txid ASC")
	err := dbkit.WithErr1(q.Scan(ctx), "QueryTuples").Err()
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ListObjects returns the ids of objects of a type the user is directly
// related to through stored tuples. This is a tuple-level reverse lookup:
// relations granted only through rewrites (computed, tuple-to-userset) do not
// appear; use Check per candidate when rewrite semantics matter.
//
// Example:
//
//	ids, err := service.ListObjects(ctx, "user:alice", "viewer", "document")
func (s *Service) ListObjects(ctx context.Context, user, relation, objectType string) ([]string, error) {
	u, err := ParseUserRef(user)
	if err != nil {
		return nil, err
	}
	if err := validateRelationName(relation); err != nil {
		return nil, err
	}
	if err := validateTypeName(objectType); err != nil {
		return nil, err
	}

	var ids []string
	err = dbkit.WithErr1(s.db.NewSelect().
		Model((*RelationTuple)(nil)).
		ColumnExpr("DISTINCT object_id").
		Where("user_type = ? AND user_id = ? AND user_relation = ?",
			u.Object.Type, u.Object.ID, u.Relation).
		Where("relation = ?", relation).
		Where("object_type = ?", objectType).
		Where("deleted_txid = 0").
		Scan(ctx, &ids), "ListObjects").Err()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListSubjects returns the users directly related to an object through stored
// tuples, including userset references. Same tuple-level caveat as
// ListObjects.
//
// Example:
//
//	subjects, err := service.ListSubjects(ctx, "document:readme", "viewer")
func (s *Service) ListSubjects(ctx context.Context, object, relation string) ([]UserRef, error) {
	o, err := ParseObjectRef(object)
	if err != nil {
		return nil, err
	}
	if err := validateRelationName(relation); err != nil {
		return nil, err
	}

	keys, err := s.FindTuplesByRelation(ctx, o, relation)
	if err != nil {
		return nil, err
	}

	subjects := make([]UserRef, len(keys))
	for i, key := range keys {
		subjects[i] = key.User
	}
	return subjects, nil
}
