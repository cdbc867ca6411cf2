package pipeline

// Task is one of the progress indicators shown while generating
type Task string

const (
	TaskCandidate   Task = "candidate"
	TaskVacancy     Task = "vacancy"
	TaskLogic       Task = "logic"
	TaskResume      Task = "resume"
	TaskCoverLetter Task = "coverletter"
)

// Tasks returns every task in display order
func Tasks() []Task {
	return []Task{TaskCandidate, TaskVacancy, TaskLogic, TaskResume, TaskCoverLetter}
}

// TaskStatus drives the visual state of a task indicator
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskBoard maps every task to its status
type TaskBoard map[Task]TaskStatus

// NewTaskBoard returns a board with every task pending
func NewTaskBoard() TaskBoard {
	board := make(TaskBoard, len(Tasks()))
	for _, t := range Tasks() {
		board[t] = TaskPending
	}
	return board
}

// Clone copies the board
func (b TaskBoard) Clone() TaskBoard {
	out := make(TaskBoard, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// With returns a copy with one task changed
func (b TaskBoard) With(task Task, status TaskStatus) TaskBoard {
	out := b.Clone()
	out[task] = status
	return out
}

// Completed reports whether the task finished successfully
func (b TaskBoard) Completed(task Task) bool {
	return b[task] == TaskCompleted
}
