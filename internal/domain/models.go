package domain

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Qualification{},
		&FactorSet{},
		&AuditLog{},
		&ImportBatch{},
	}
}
