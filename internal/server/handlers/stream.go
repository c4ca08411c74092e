package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/repository/live"
)

// streamQuery pushes every snapshot of q as a server-sent event named event until the
// client disconnects. render shapes the items before they are encoded.
func streamQuery[T any](c *gin.Context, logger *zap.Logger, q *live.Query[T], event string, render func([]T) any) {
	ctx := c.Request.Context()
	sub := q.Subscribe(ctx)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Updates():
			if !ok {
				return
			}
			if snap.Err != nil {
				logger.Warn("live query read failed", zap.String("event", event), zap.Error(snap.Err))
				c.SSEvent("error", gin.H{"error": snap.Err.Error()})
			} else {
				c.SSEvent(event, render(snap.Items))
			}
			c.Writer.Flush()
		}
	}
}

func asIs[T any](items []T) any {
	if items == nil {
		return []T{}
	}
	return items
}
