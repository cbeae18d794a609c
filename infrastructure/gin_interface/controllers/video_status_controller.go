package controllers

import (
	"net/http"
	"story-video-pipeline/application/ports/inbound"
	"story-video-pipeline/application/ports/outbound"
	"story-video-pipeline/domain"
	"story-video-pipeline/infrastructure/gin_interface/dto"
	"story-video-pipeline/middleware"

	"github.com/donovanhide/eventsource"
	"github.com/gin-gonic/gin"
)

type VideoStatusController interface {
	GetStatus(c *gin.Context)
	StreamStatus(c *gin.Context)
	Unsubscribe(c *gin.Context)
	RegisterRoutes(g *gin.Engine)
}

type videoStatusController struct {
	logger    outbound.LoggerPort
	lifecycle inbound.VideoLifecyclePort
	streaming inbound.StatusStreamingPort
}

func NewVideoStatusController(
	logger outbound.LoggerPort,
	lifecycle inbound.VideoLifecyclePort,
	streaming inbound.StatusStreamingPort,
) VideoStatusController {
	return &videoStatusController{
		logger:    logger,
		lifecycle: lifecycle,
		streaming: streaming,
	}
}

// streamFrame adapts a domain.StreamEvent to eventsource.Event.
type streamFrame struct {
	event domain.StreamEvent
}

func (f streamFrame) Id() string    { return f.event.ID }
func (f streamFrame) Event() string { return string(f.event.Name) }
func (f streamFrame) Data() string  { return f.event.Data }

func (v *videoStatusController) GetStatus(c *gin.Context) {
	var uri dto.StoryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortWithError(c, domain.Validationf("%s", err.Error()))
		return
	}

	view, err := v.lifecycle.CurrentStatus(c.Request.Context(), uri.StoryID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// StreamStatus holds the request open and relays subscription events until
// the server closes the subscription or the client goes away.
func (v *videoStatusController) StreamStatus(c *gin.Context) {
	var uri dto.StoryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortWithError(c, domain.Validationf("%s", err.Error()))
		return
	}

	sub, err := v.streaming.Subscribe(c.Request.Context(), uri.StoryID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer v.streaming.Release(sub)

	c.Status(http.StatusOK)
	encoder := eventsource.NewEncoder(c.Writer, false)
	clientGone := c.Request.Context().Done()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := encoder.Encode(streamFrame{event: ev}); err != nil {
				v.logger.WarnWithFields("Failed to write stream event", map[string]interface{}{
					"story_id": uri.StoryID,
					"error":    err.Error(),
				})
				return
			}
			c.Writer.Flush()
		case <-clientGone:
			v.logger.DebugWithFields("Stream client disconnected", map[string]interface{}{
				"story_id": uri.StoryID,
			})
			return
		}
	}
}

func (v *videoStatusController) Unsubscribe(c *gin.Context) {
	var uri dto.StoryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortWithError(c, domain.Validationf("%s", err.Error()))
		return
	}

	v.streaming.Complete(uri.StoryID)
	c.Status(http.StatusNoContent)
}

func (v *videoStatusController) RegisterRoutes(g *gin.Engine) {
	status := g.Group("/api/videos/status")
	status.GET("/:storyId", v.GetStatus)
	status.GET("/sse/:storyId", middleware.SSEMiddleware(), v.StreamStatus)
	status.DELETE("/sse/:storyId", v.Unsubscribe)
}
