package streams

// Stream name constants
const (
	StreamImageBuilds = "image:builds"
)

// Consumer group constants
const (
	GroupImageWorkers = "image-workers"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// ImageBuildRequest asks the image pipeline to render a hero image for a
// post. The post already exists when this is published; the build runs
// out of band and attaches its result when done.
type ImageBuildRequest struct {
	PostID uint   `json:"post_id"`
	Title  string `json:"title"`
	Style  string `json:"style"`
}
