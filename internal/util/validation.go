package util

import "strings"

// avatarExtensions maps allowed avatar content types to file extensions
var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AvatarExtension returns the file extension for an allowed avatar content type.
func AvatarExtension(contentType string) (string, bool) {
	ext, ok := avatarExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}
