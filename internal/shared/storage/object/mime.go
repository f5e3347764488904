package object

import (
	"net/http"
	"path/filepath"
	"strings"
)

// Mime types for the document formats the service accepts and produces.
const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain; charset=utf-8"
	MimePNG  = "image/png"
)

var mimeByExt = map[string]string{
	".pdf":  MimePDF,
	".doc":  MimeDOC,
	".docx": MimeDOCX,
	".txt":  MimeText,
	".png":  MimePNG,
}

// DetectMIME sniffs content and refines generic results using the file extension.
func DetectMIME(fileName string, head []byte) string {
	sniffed := http.DetectContentType(head)
	byExt, ok := mimeByExt[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		return sniffed
	}
	switch strings.Split(sniffed, ";")[0] {
	case "application/zip", "application/octet-stream", "text/plain", "application/x-ole-storage":
		return byExt
	}
	return sniffed
}

// MimeForName maps a file name to a mime type by extension, defaulting to octet-stream.
func MimeForName(fileName string) string {
	if m, ok := mimeByExt[strings.ToLower(filepath.Ext(fileName))]; ok {
		return m
	}
	return "application/octet-stream"
}
