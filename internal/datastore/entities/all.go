package entities

// All returns every model in migration order.
func All() []any {
	return []any{
		&Organization{},
		&Session{},
		&SessionAssignee{},
		&Feature{},
		&TestCase{},
		&Feedback{},
		&ChangelogEntry{},
	}
}
