package mime

import (
	"encoding/hex"
	"sort"
)

// signature maps a magic-byte prefix to a content type and extension.
type signature struct {
	prefix []byte
	mime   string
	ext    string
}

// mustHex panics on malformed table entries; the table is static.
func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("mime: bad signature " + s)
	}
	return b
}

const (
	mimeZip       = "application/zip"
	mimeOLE       = "application/x-ole-storage"
	mimeOctet     = "application/octet-stream"
	extFallback   = "bin"
	mimeTextPlain = "text/plain"
	extTextPlain  = "txt"
)

// magicTable holds the fixed prefix signatures. Order does not matter here;
// Identify sorts longer prefixes first so e.g. the 8-byte PNG signature is
// tried before the 2-byte MZ one.
var magicTable = []signature{
	{mustHex("25504446"), "application/pdf", "pdf"},
	{mustHex("89504e470d0a1a0a"), "image/png", "png"},
	{mustHex("ffd8ff"), "image/jpeg", "jpg"},
	{mustHex("474946383761"), "image/gif", "gif"},
	{mustHex("474946383961"), "image/gif", "gif"},
	{mustHex("504b0304"), mimeZip, "zip"},
	{mustHex("504b0506"), mimeZip, "zip"}, // empty archive
	{mustHex("d0cf11e0a1b11ae1"), mimeOLE, "ole"},
	{mustHex("4d5a"), "application/x-msdownload", "exe"},
	{mustHex("7f454c46"), "application/x-executable", "elf"},
	{mustHex("1f8b"), "application/gzip", "gz"},
	{mustHex("425a68"), "application/x-bzip2", "bz2"},
	{mustHex("377abcaf271c"), "application/x-7z-compressed", "7z"},
	{mustHex("526172211a07"), "application/vnd.rar", "rar"},
	{mustHex("49492a00"), "image/tiff", "tiff"},
	{mustHex("4d4d002a"), "image/tiff", "tiff"},
	{mustHex("424d"), "image/bmp", "bmp"},
	{mustHex("494433"), "audio/mpeg", "mp3"},
	{mustHex("4f676753"), "audio/ogg", "ogg"},
	{mustHex("664c6143"), "audio/flac", "flac"},
	{mustHex("3c3f786d6c"), "application/xml", "xml"},
	{mustHex("25215053"), "application/postscript", "ps"},
	{mustHex("53514c69746520666f726d6174203300"), "application/vnd.sqlite3", "sqlite"},
	{mustHex("cafebabe"), "application/java-vm", "class"},
	{mustHex("00000100"), "image/x-icon", "ico"},
	{mustHex("00000200"), "image/x-icon", "cur"},
}

// extensionTable maps lowercase file extensions (no dot) to content types.
var extensionTable = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
	"ico":  "image/x-icon",
	"svg":  "image/svg+xml",
	"zip":  mimeZip,
	"gz":   "application/gzip",
	"bz2":  "application/x-bzip2",
	"7z":   "application/x-7z-compressed",
	"rar":  "application/vnd.rar",
	"tar":  "application/x-tar",
	"doc":  "application/msword",
	"xls":  "application/vnd.ms-excel",
	"ppt":  "application/vnd.ms-powerpoint",
	"msg":  "application/vnd.ms-outlook",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"txt":  mimeTextPlain,
	"csv":  "text/csv",
	"md":   "text/markdown",
	"html": "text/html",
	"htm":  "text/html",
	"xml":  "application/xml",
	"json": "application/json",
	"js":   "text/javascript",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"exe":  "application/x-msdownload",
	"dll":  "application/x-msdownload",
	"ps":   "application/postscript",
	"rtf":  "application/rtf",
	"eml":  "message/rfc822",
	"bin":  mimeOctet,
}

// mimeToExtension is the inverse lookup used for claimed content types.
// Built once at init; when several extensions share a type the shortest
// conventional one wins (jpg over jpeg, html over htm).
var mimeToExtension = map[string]string{}

// dangerousTypes are content classes that force attachment disposition when
// they disagree with what the client claimed.
var dangerousTypes = map[string]bool{
	"application/x-msdownload":   true,
	"application/x-executable":   true,
	"application/x-dosexec":      true,
	"application/x-msi":          true,
	"application/java-vm":        true,
	"application/java-archive":   true,
	"application/x-sh":           true,
	"application/x-csh":          true,
	"application/x-bat":          true,
	"text/html":                  true,
	"application/xhtml+xml":      true,
	"image/svg+xml":              true,
	"text/javascript":            true,
	"application/javascript":     true,
	"application/vnd.ms-outlook": true,
}

// ooxmlTypes maps the container directory prefix inside an OOXML zip to the
// refined (mime, ext) pair.
var ooxmlTypes = map[string]signature{
	"word/": {nil, extensionTable["docx"], "docx"},
	"xl/":   {nil, extensionTable["xlsx"], "xlsx"},
	"ppt/":  {nil, extensionTable["pptx"], "pptx"},
}

// ole2Types maps legacy Office extensions to their refined types.
var ole2Types = map[string]signature{
	".doc": {nil, extensionTable["doc"], "doc"},
	".xls": {nil, extensionTable["xls"], "xls"},
	".ppt": {nil, extensionTable["ppt"], "ppt"},
	".msg": {nil, extensionTable["msg"], "msg"},
}

func init() {
	// Longest signatures first so a generic short prefix never shadows a
	// more specific one.
	sort.SliceStable(magicTable, func(i, j int) bool {
		return len(magicTable[i].prefix) > len(magicTable[j].prefix)
	})

	preferred := map[string]string{
		"image/jpeg":               "jpg",
		"text/html":                "html",
		"image/tiff":               "tiff",
		"application/x-msdownload": "exe",
	}
	for ext, m := range extensionTable {
		if want, ok := preferred[m]; ok && ext != want {
			continue
		}
		mimeToExtension[m] = ext
	}
}
