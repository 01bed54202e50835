package resize

import (
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
)

// Number of header bytes filetype needs to match every image type it knows.
const sniffLen = 261

// sniffImage rejects files whose content is not an image, whatever
// their extension says. It returns the detected MIME type.
func sniffImage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read image header %s: %w", path, err)
	}
	head = head[:n]

	if !filetype.IsImage(head) {
		return "", fmt.Errorf("file %s is not a supported image", path)
	}

	kind, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type of %s: %w", path, err)
	}
	return kind.MIME.Value, nil
}
