package auth

import (
	"slices"

	"schoolhub/internal/model"
)

// Permission names an action gated by RequirePermission.
type Permission string

const (
	PermissionAll               Permission = "*"
	PermissionManageSchool      Permission = "manage_school"
	PermissionManageUsers       Permission = "manage_users"
	PermissionManageClasses     Permission = "manage_classes"
	PermissionViewReports       Permission = "view_reports"
	PermissionManageLessons     Permission = "manage_lessons"
	PermissionManageQuizzes     Permission = "manage_quizzes"
	PermissionViewStudents      Permission = "view_students"
	PermissionViewGrades        Permission = "view_grades"
	PermissionTakeQuizzes       Permission = "take_quizzes"
	PermissionViewAssignments   Permission = "view_assignments"
	PermissionViewChildProgress Permission = "view_child_progress"
)

type permissionSet map[Permission]struct{}

// rolePermissions is built once and never mutated.
var rolePermissions = map[model.Role]permissionSet{
	model.RoleSuperAdmin: newPermissionSet(PermissionAll),
	model.RoleSchoolAdmin: newPermissionSet(
		PermissionManageSchool, PermissionManageUsers, PermissionManageClasses, PermissionViewReports,
	),
	model.RoleTeacher: newPermissionSet(
		PermissionManageClasses, PermissionManageLessons, PermissionManageQuizzes, PermissionViewStudents,
	),
	model.RoleStudent: newPermissionSet(
		PermissionViewGrades, PermissionTakeQuizzes, PermissionViewAssignments,
	),
	model.RoleParent: newPermissionSet(
		PermissionViewChildProgress, PermissionViewGrades, PermissionViewAssignments,
	),
}

func newPermissionSet(perms ...Permission) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Can reports whether role holds permission, directly or through the wildcard.
func Can(role model.Role, permission Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	if _, ok := set[PermissionAll]; ok {
		return true
	}
	_, ok = set[permission]
	return ok
}

// PermissionsFor returns the permissions granted to role, sorted.
func PermissionsFor(role model.Role) []Permission {
	set := rolePermissions[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
