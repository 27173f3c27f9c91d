package streams

import (
	"context"
	"fmt"
	"log/slog"
)

// ImageRenderer produces raw image bytes for a post title. A nil or empty
// result means the render failed or no image backend is configured.
type ImageRenderer interface {
	GenerateImage(ctx context.Context, title, style string) []byte
}

// ImageSink stores rendered bytes against a post.
type ImageSink interface {
	AttachImage(ctx context.Context, postID uint, data []byte) error
}

// HandleImageBuild returns a handler function that renders the requested
// hero image and attaches it to the post.
func HandleImageBuild(renderer ImageRenderer, sink ImageSink) func(context.Context, ImageBuildRequest) error {
	return func(ctx context.Context, req ImageBuildRequest) error {
		data := renderer.GenerateImage(ctx, req.Title, req.Style)
		if len(data) == 0 {
			return fmt.Errorf("image render unavailable for post %d", req.PostID)
		}

		if err := sink.AttachImage(ctx, req.PostID, data); err != nil {
			return fmt.Errorf("failed to attach image: %w", err)
		}

		slog.Info("Hero image attached",
			"post_id", req.PostID,
			"bytes", len(data),
		)
		return nil
	}
}
