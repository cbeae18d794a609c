package dto

type StoryURI struct {
	StoryID string `uri:"storyId" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type AcceptedResponse struct {
	StoryID string `json:"story_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
