package types

import "regexp"

// Standard table names.
const (
	TableHabits       = "habits"
	TableHabitLogs    = "habit_logs"
	TableTasks        = "tasks"
	TableCategories   = "categories"
	TableTransactions = "transactions"
	TableMentalStates = "mental_states"
	TableVisionBoards = "vision_boards"
	TableVisionItems  = "vision_items"
	TableUsers        = "users"
)

// StandardTableNames lists all standard table names. A fresh snapshot holds
// an empty table for each of them.
var StandardTableNames = []string{
	TableHabits,
	TableHabitLogs,
	TableTasks,
	TableCategories,
	TableTransactions,
	TableMentalStates,
	TableVisionBoards,
	TableVisionItems,
	TableUsers,
}

var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidTableName reports whether name can be used as a table name.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}
