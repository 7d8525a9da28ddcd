package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	// Register general tasks
	RegisterHandler(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	// Register ledger tasks
	RegisterHandler(LateFeeSweepTask.TaskID(), LateFeeSweepTask.HandleExecution)

	// Register notification tasks
	RegisterHandler(SendVoucherNotificationTask.TaskID(), SendVoucherNotificationTask.HandleExecution)
}
