package config

// UploadRules - правила для одного контекста загрузки.
type UploadRules struct {
	AllowedMimeTypes []string
	MaxSizeMB        int64
	MaxCount         int
	Folder           string
}

// UploadContexts - правила загрузки по типу вложения.
// Лимиты заявок: не более 5 изображений, каждое не больше 5 МБ.
var UploadContexts = map[string]UploadRules{
	"request_image": {
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/jpg"},
		MaxSizeMB:        5,
		MaxCount:         5,
		Folder:           "requests",
	},
	"application_image": {
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/jpg"},
		MaxSizeMB:        5,
		MaxCount:         5,
		Folder:           "applications",
	},
	"profile_photo": {
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/jpg"},
		MaxSizeMB:        5,
		MaxCount:         1,
		Folder:           "avatars",
	},
}
