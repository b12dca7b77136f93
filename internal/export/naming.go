package export

import (
	"fmt"
	"time"
)

// ArtifactName builds the file name of an export. ext is the extension of the
// container that was actually negotiated.
func ArtifactName(width, height int, ts time.Time, ext string) string {
	return fmt.Sprintf("video_export_%dx%d_%d.%s", width, height, ts.UnixMilli(), ext)
}
