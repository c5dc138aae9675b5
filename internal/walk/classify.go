package walk

import (
	"strings"

	"github.com/mnj/dupdupninja-v2/internal/ffmpeg"
)

// MediaClass is one of the three fixed extension classes the spec names,
// or "other" for everything else.
type MediaClass string

const (
	ClassImage MediaClass = "image"
	ClassVideo MediaClass = "video"
	ClassAudio MediaClass = "audio"
	ClassOther MediaClass = "other"
)

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {},
	".webp": {}, ".tiff": {}, ".tif": {}, ".heic": {}, ".heif": {},
}

var audioExts = map[string]struct{}{
	".mp3": {}, ".flac": {}, ".wav": {}, ".aac": {}, ".ogg": {},
	".m4a": {}, ".wma": {}, ".opus": {},
}

// ClassifyByExtension assigns a MediaClass by the lower-cased file
// extension against three fixed extension sets, per spec.md §4.A. Video
// detection defers to ffmpeg.IsVideoFile so there's one extension list
// for "is this a video" shared with the probe package.
func ClassifyByExtension(name string) MediaClass {
	ext := strings.ToLower(extOf(name))
	if _, ok := imageExts[ext]; ok {
		return ClassImage
	}
	if ffmpeg.IsVideoFile(name) {
		return ClassVideo
	}
	if _, ok := audioExts[ext]; ok {
		return ClassAudio
	}
	return ClassOther
}

func extOf(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[i:]
		}
	}
	return ""
}
