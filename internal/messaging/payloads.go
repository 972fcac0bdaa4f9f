package messaging

// TaskStatus описывает итог обработки задачи генерации карусели.
type TaskStatus string

const (
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusError   TaskStatus = "error"
)

// CarouselTaskPayload - задача из очереди от платформы историй.
// Платформа ставит задачу, когда текст истории финализирован.
type CarouselTaskPayload struct {
	TaskID  string `json:"task_id"`
	StoryID string `json:"story_id"`
	// ShareAfterRender == true означает, что после генерации карусель
	// нужно сразу опубликовать в соцсети.
	ShareAfterRender bool `json:"share_after_render,omitempty"`
}

// CarouselResultPayload - уведомление о результате обработки задачи.
// Отправляется в очередь обновлений для каждой задачи, успешной или нет.
type CarouselResultPayload struct {
	TaskID        string     `json:"task_id"`
	StoryID       string     `json:"story_id"`
	Status        TaskStatus `json:"status"`
	SlideCount    int        `json:"slide_count"`
	FallbackCount int        `json:"fallback_count"`
	CacheHits     int        `json:"cache_hits"`
	Shared        bool       `json:"shared"`
	PostID        string     `json:"post_id,omitempty"`
	ErrorDetails  string     `json:"error_details,omitempty"`
}
