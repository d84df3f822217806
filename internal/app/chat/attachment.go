package chat

import (
	"encoding/base64"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffPrefixChars is how much of the base64 payload is decoded to detect the
// content type. It is a multiple of 4 so the prefix decodes on its own.
const sniffPrefixChars = 4096

// attachmentInfo describes a relayed file for logging. It never alters the envelope.
type attachmentInfo struct {
	// DetectedMIME is sniffed from the leading bytes of the decoded content.
	DetectedMIME string

	// Extension is the lowercased filename extension, including the dot.
	Extension string

	// Size is the decoded content length in bytes.
	Size int
}

// inspectAttachment decodes the start of the payload to sniff its MIME type.
// The payload has already been validated as standard base64.
func inspectAttachment(f FileTransfer) attachmentInfo {
	info := attachmentInfo{
		DetectedMIME: "application/octet-stream",
		Extension:    strings.ToLower(filepath.Ext(f.Filename)),
		Size:         base64.StdEncoding.DecodedLen(len(f.File)) - strings.Count(f.File[max(0, len(f.File)-2):], "="),
	}

	prefix := f.File
	if len(prefix) > sniffPrefixChars {
		prefix = prefix[:sniffPrefixChars]
	}

	head, err := base64.StdEncoding.DecodeString(prefix)
	if err != nil {
		return info
	}

	info.DetectedMIME = mimetype.Detect(head).String()
	return info
}
