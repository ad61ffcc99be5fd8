package validation

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "marketplace-system/pkg/errors"
)

// buildFileHeaders собирает настоящие multipart-заголовки из пар имя/содержимое,
// чтобы проверка magic numbers читала реальные байты.
func buildFileHeaders(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["images"]
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestValidateFiles_AcceptsImagesWithinLimits(t *testing.T) {
	headers := buildFileHeaders(t, map[string][]byte{
		"photo.png": append(append([]byte{}, pngHeader...), make([]byte, 128)...),
	})

	assert.NoError(t, ValidateFiles(headers, "request_image"))
}

func TestValidateFiles_RejectsTooManyFiles(t *testing.T) {
	// Лимит проверяется до открытия файлов, пустых заголовков достаточно.
	headers := make([]*multipart.FileHeader, 6)
	for i := range headers {
		headers[i] = &multipart.FileHeader{Filename: "photo.png"}
	}

	err := ValidateFiles(headers, "request_image")

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "images")
}

func TestValidateFiles_RejectsOversizedFile(t *testing.T) {
	headers := []*multipart.FileHeader{
		{Filename: "huge.png", Size: 6 * 1024 * 1024},
	}

	err := ValidateFiles(headers, "request_image")

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestValidateFiles_RejectsDisguisedContent(t *testing.T) {
	// Расширение .png, но содержимое - обычный текст.
	headers := buildFileHeaders(t, map[string][]byte{
		"fake.png": []byte("<html><body>not an image</body></html>"),
	})

	err := ValidateFiles(headers, "request_image")

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestValidateFiles_UnknownContext(t *testing.T) {
	assert.Error(t, ValidateFiles(nil, "nonexistent_context"))
}
