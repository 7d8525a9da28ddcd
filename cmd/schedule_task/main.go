package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"matricula_app_echo/internal/models"
	"matricula_app_echo/internal/services"
	"matricula_app_echo/internal/tasks"

	"github.com/joho/godotenv"
)

func main() {
	// defined flags
	taskName := flag.String("task_name", "", "Name of the task (mandatory)")
	argsStr := flag.String("arguments", "{}", "JSON arguments for the task")
	dueStr := flag.String("due", "", "Due date (mandatory, format: 2006-01-02 15:04)")
	taskType := flag.String("tasktype", "onetime", "Task type (optional, default: onetime)")
	recurring := flag.String("recurring", "", "Recurring interval rule (optional, RRULE string)")
	maxAttempt := flag.Int("max_attempt", 3, "Max attempts (optional, default: 3)")

	flag.Parse()

	// Validation
	if *taskName == "" || *dueStr == "" {
		fmt.Println("Usage: schedule_task -task_name <name> -due <YYYY-MM-DD HH:MM> [options]")
		fmt.Println("Example: schedule_task -task_name latefee_sweep -due '2026-01-01 02:00' -tasktype recurring -recurring 'FREQ=DAILY'")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	// Init DB
	db, err := services.InitDB(dsn)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	// Parse arguments JSON
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(*argsStr), &args); err != nil {
		log.Fatalf("Invalid JSON arguments: %v", err)
	}

	// RFC3339 first, then the local simple layout
	due, err := time.Parse(time.RFC3339, *dueStr)
	if err != nil {
		due, err = time.ParseInLocation("2006-01-02 15:04", *dueStr, time.Local)
		if err != nil {
			log.Fatalf("Invalid due date format. Use '2006-01-02 15:04' (Local) or RFC3339: %v", err)
		}
	}

	var recurringPtr *string
	if *recurring != "" {
		recurringPtr = recurring
	}

	task, err := tasks.BuildScheduledTask(*taskName, args, due, recurringPtr, models.ScheduledTaskType(*taskType), *maxAttempt)
	if err != nil {
		log.Fatalf("Failed to build task: %v", err)
	}

	if err := db.Create(task).Error; err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}

	fmt.Printf("Successfully created task ID: %d\n", task.ID)
	fmt.Printf("Task: %s\nDue: %s\nType: %s\n", task.TaskName, task.Due, task.TaskType)
}
