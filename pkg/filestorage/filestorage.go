package filestorage

import "io"

// UploadResult - результат загрузки файла в blob-хранилище.
// PublicID нужен для последующего удаления объекта.
type UploadResult struct {
	URL      string
	PublicID string
}

// FileStorageInterface определяет контракт для сервиса хранения файлов.
// Blob-хранилище вызывается ДО удаления записей из БД, чтобы не плодить
// осиротевшие объекты.
type FileStorageInterface interface {
	Upload(file io.Reader, size int64, originalFileName string, folder string) (*UploadResult, error)
	Delete(publicID string) error
}
