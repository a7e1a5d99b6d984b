package model

// Role роль пользователя
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	// RoleSystem используется фоновыми задачами (переходы по расписанию)
	RoleSystem Role = "system"
)

// Valid сообщает, является ли роль одной из известных
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleSystem:
		return true
	}
	return false
}
