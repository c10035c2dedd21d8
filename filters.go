package tuplekit

// TupleQuery provides options for filtering tuple queries.
// All non-empty fields are ANDed together. Only live rows are returned
// unless IncludeDeleted is set.
type TupleQuery struct {
	// Filter by the user side of the tuple
	UserType     string
	UserID       string
	UserRelation string

	// Filter by tuple relation
	Relation string

	// Filter by the object side of the tuple
	ObjectType string
	ObjectID   string

	// Include soft-deleted rows (history queries)
	IncludeDeleted bool

	// Pagination
	Limit  int
	Offset int
}

// NewTupleQuery creates a TupleQuery with the default limit.
func NewTupleQuery() TupleQuery {
	return TupleQuery{Limit: 100}
}

// WithUser sets the direct-user filter.
func (q TupleQuery) WithUser(userType, userID string) TupleQuery {
	q.UserType = userType
	q.UserID = userID
	return q
}

// WithUserset sets the userset-user filter.
func (q TupleQuery) WithUserset(userType, userID, relation string) TupleQuery {
	q.UserType = userType
	q.UserID = userID
	q.UserRelation = relation
	return q
}

// WithRelation sets the relation filter.
func (q TupleQuery) WithRelation(relation string) TupleQuery {
	q.Relation = relation
	return q
}

// WithObject sets the object filter.
func (q TupleQuery) WithObject(objectType, objectID string) TupleQuery {
	q.ObjectType = objectType
	q.ObjectID = objectID
	return q
}

// WithObjectType sets only the object type filter.
func (q TupleQuery) WithObjectType(objectType string) TupleQuery {
	q.ObjectType = objectType
	return q
}

// WithDeleted includes soft-deleted rows in the result.
func (q TupleQuery) WithDeleted() TupleQuery {
	q.IncludeDeleted = true
	return q
}

// WithPagination sets both limit and offset.
func (q TupleQuery) WithPagination(limit, offset int) TupleQuery {
	q.Limit = limit
	q.Offset = offset
	return q
}

// Matches returns true if the row matches the filter. Used by the in-memory
// store; the Postgres store translates the same fields into WHERE clauses.
func (q TupleQuery) Matches(rt *RelationTuple) bool {
	if !q.IncludeDeleted && !rt.IsLive() {
		return false
	}
	if q.UserType != "" && rt.UserType != q.UserType {
		return false
	}
	if q.UserID != "" && rt.UserID != q.UserID {
		return false
	}
	if q.UserRelation != "" && rt.UserRelation != q.UserRelation {
		return false
	}
	if q.Relation != "" && rt.Relation != q.Relation {
		return false
	}
	if q.ObjectType != "" && rt.ObjectType != q.ObjectType {
		return false
	}
	if q.ObjectID != "" && rt.ObjectID != q.ObjectID {
		return false
	}
	return true
}
