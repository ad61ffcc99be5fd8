package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	"marketplace-system/config"
	apperrors "marketplace-system/pkg/errors"
)

// ValidateFiles проверяет пакет файлов ДО какой-либо записи в хранилище.
// contextName - ключ из config.UploadContexts (например, "request_image").
func ValidateFiles(fileHeaders []*multipart.FileHeader, contextName string) error {
	rules, ok := config.UploadContexts[contextName]
	if !ok {
		return fmt.Errorf("внутренняя ошибка: неизвестный контекст загрузки '%s'", contextName)
	}

	if rules.MaxCount > 0 && len(fileHeaders) > rules.MaxCount {
		return apperrors.NewValidationError(map[string][]string{
			"images": {fmt.Sprintf("количество файлов (%d) превышает лимит в %d", len(fileHeaders), rules.MaxCount)},
		})
	}

	for _, fh := range fileHeaders {
		if err := validateOne(fh, rules); err != nil {
			return err
		}
	}
	return nil
}

func validateOne(fileHeader *multipart.FileHeader, rules config.UploadRules) error {
	if rules.MaxSizeMB > 0 {
		maxSizeBytes := rules.MaxSizeMB * 1024 * 1024
		if fileHeader.Size > maxSizeBytes {
			return apperrors.NewValidationError(map[string][]string{
				"images": {fmt.Sprintf("размер файла '%s' (%.2f MB) превышает лимит в %d MB",
					fileHeader.Filename, float64(fileHeader.Size)/1024/1024, rules.MaxSizeMB)},
			})
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	// Проверка содержимого по magic numbers (первые 512 байт)
	buffer := make([]byte, 512)
	if _, err := file.Read(buffer); err != nil && err != io.EOF {
		return fmt.Errorf("ошибка чтения файла")
	}

	mimeType := http.DetectContentType(buffer)
	if !slices.Contains(rules.AllowedMimeTypes, mimeType) {
		return apperrors.NewValidationError(map[string][]string{
			"images": {fmt.Sprintf("недопустимый формат файла: %s", mimeType)},
		})
	}

	return nil
}
