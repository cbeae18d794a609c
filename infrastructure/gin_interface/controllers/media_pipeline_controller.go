package controllers

import (
	"net/http"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/domain"
	"story-video-pipeline/infrastructure/gin_interface/dto"

	"github.com/gin-gonic/gin"
)

type MediaPipelineController interface {
	ProcessStoryMedia(c *gin.Context)
	RenderVideo(c *gin.Context)
	RegisterRoutes(g *gin.Engine)
}

type mediaPipelineController struct {
	logger    outbound.LoggerPort
	pipeline  inbound.MediaPipelinePort
	assembler inbound.VideoAssemblyPort
	lifecycle inbound.VideoLifecyclePort
}

func NewMediaPipelineController(
	logger outbound.LoggerPort,
	pipeline inbound.MediaPipelinePort,
	assembler inbound.VideoAssemblyPort,
	lifecycle inbound.VideoLifecyclePort,
) MediaPipelineController {
	return &mediaPipelineController{
		logger:    logger,
		pipeline:  pipeline,
		assembler: assembler,
		lifecycle: lifecycle,
	}
}

// ProcessStoryMedia starts audio and image generation for every scene and
// answers before any of it has run.
func (m *mediaPipelineController) ProcessStoryMedia(c *gin.Context) {
	var uri dto.StoryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortWithError(c, domain.Validationf("%s", err.Error()))
		return
	}

	if _, err := m.pipeline.StartStory(c.Request.Context(), uri.StoryID); err != nil {
		m.logger.ErrorWithFields(err, "Failed to start media processing", map[string]interface{}{
			"story_id": uri.StoryID,
		})
		abortWithError(c, err)
		return
	}

	view, err := m.lifecycle.CurrentStatus(c.Request.Context(), uri.StoryID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

func (m *mediaPipelineController) RenderVideo(c *gin.Context) {
	var uri dto.StoryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortWithError(c, domain.Validationf("%s", err.Error()))
		return
	}

	render := m.assembler.RenderStory(c.Request.Context(), uri.StoryID)
	select {
	case <-render.Done():
		// Settled before answering: the job was rejected or failed right away.
		if _, err := render.Wait(); err != nil {
			abortWithError(c, err)
			return
		}
	default:
	}

	c.JSON(http.StatusAccepted, dto.AcceptedResponse{
		StoryID: uri.StoryID,
		Status:  string(domain.VideoStatusProcessing),
		Message: "video rendering started",
	})
}

func (m *mediaPipelineController) RegisterRoutes(g *gin.Engine) {
	g.POST("/api/stories/:storyId/media", m.ProcessStoryMedia)
	g.POST("/api/videos/:storyId/render", m.RenderVideo)
}
