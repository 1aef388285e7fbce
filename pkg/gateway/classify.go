package gateway

import "strings"

// File type categories reported in StoredObject.FileType
const (
	TypeImage   = "image"
	TypePDF     = "pdf"
	TypeWord    = "word"
	TypeExcel   = "excel"
	TypePPT     = "ppt"
	TypeText    = "text"
	TypeArchive = "archive"
	TypeVideo   = "video"
	TypeAudio   = "audio"
	TypeFile    = "file"
	TypeUnknown = "unknown"
)

var fileTypes = map[string]string{
	"jpg":  TypeImage,
	"jpeg": TypeImage,
	"png":  TypeImage,
	"gif":  TypeImage,
	"bmp":  TypeImage,
	"webp": TypeImage,
	"svg":  TypeImage,
	"pdf":  TypePDF,
	"doc":  TypeWord,
	"docx": TypeWord,
	"xls":  TypeExcel,
	"xlsx": TypeExcel,
	"ppt":  TypePPT,
	"pptx": TypePPT,
	"txt":  TypeText,
	"zip":  TypeArchive,
	"rar":  TypeArchive,
	"7z":   TypeArchive,
	"mp4":  TypeVideo,
	"avi":  TypeVideo,
	"mov":  TypeVideo,
	"mp3":  TypeAudio,
	"wav":  TypeAudio,
}

// extension returns the lowercase text after the last '.', or "" when there is none
func extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// IsImage reports whether name has an image extension, ignoring case
func IsImage(name string) bool {
	return fileTypes[extension(name)] == TypeImage
}

// FileType maps the extension of name to a display category. Unlisted
// extensions are TypeFile; names without one are TypeUnknown.
func FileType(name string) string {
	ext := extension(name)
	if ext == "" {
		return TypeUnknown
	}
	if t, ok := fileTypes[ext]; ok {
		return t
	}
	return TypeFile
}
