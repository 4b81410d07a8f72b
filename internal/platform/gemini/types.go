package gemini

// SimplifyInput is the content of a text_processing request.
type SimplifyInput struct {
	Text     string `json:"text"     validate:"required,max=50000"`
	Language string `json:"language" validate:"omitempty,bcp47_language_tag"`
}

// SimplifiedText is the result of simplifying a text.
type SimplifiedText struct {
	Simplified string   `json:"simplified"`
	KeyPoints  []string `json:"key_points,omitempty"`
}

// QuestionsInput is the content of a question_generation request.
type QuestionsInput struct {
	Text  string `json:"text"  validate:"required,max=50000"`
	Count int    `json:"count" validate:"omitempty,min=1,max=20"`
}

// Question is one generated comprehension question.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Hint     string `json:"hint,omitempty"`
}

// QuestionSet is the result of generating questions from a text.
type QuestionSet struct {
	Questions []Question `json:"questions"`
}

// VideoInput is the content of a video_processing request.
type VideoInput struct {
	URL      string `json:"url"       validate:"required,url"`
	MIMEType string `json:"mime_type" validate:"omitempty"`
}

// KeyMoment is a notable point in a video.
type KeyMoment struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

// VideoSummary is the result of summarizing a video.
type VideoSummary struct {
	Summary    string      `json:"summary"`
	KeyMoments []KeyMoment `json:"key_moments,omitempty"`
}

// promptData is passed to every prompt template.
type promptData struct {
	Text     string
	Language string
	Count    int
}
