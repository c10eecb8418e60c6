package app

import (
	"log"
	"mime"

	"github.com/nhfoods/ledgerdesk/internal/reports/export"
)

func init() {
	for _, f := range []export.Format{export.FormatXLSX, export.FormatCSV, export.FormatPDF, export.FormatHTML} {
		ensureMimeType("."+string(f), f.ContentType())
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
