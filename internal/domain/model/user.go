package model

import "slices"

// Actor аутентифицированный пользователь, выполняющий операцию
type Actor struct {
	ID       string   `json:"id"`
	Role     Role     `json:"role"`
	GroupIDs []string `json:"group_ids,omitempty"`
}

// SystemActor актор фоновых задач
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// IsAdmin сообщает, обладает ли актор правами администратора
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// InGroup сообщает, состоит ли актор в группе
func (a Actor) InGroup(groupID string) bool {
	return slices.Contains(a.GroupIDs, groupID)
}
