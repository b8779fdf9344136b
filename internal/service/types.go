package service

import "voxtodo/internal/tasks"

// Task is one to-do item.
type Task = tasks.Task

// View is a snapshot of everything the user sees.
type View struct {
	Tasks        []Task
	AlarmInput   string
	Output       string
	Listening    bool
	EmailPrefill string
	EmailActive  string
	AlarmActive  bool
}

// SyncResult counts the changes a mirror sync made.
type SyncResult struct {
	Inserted  int
	Updated   int
	Deleted   int
	Unchanged int
}
