package domain

// Models 迁移顺序：被引用的表在前
func Models() []any {
	return []any{&User{}, &Trip{}, &Signup{}, &Recipient{}}
}
