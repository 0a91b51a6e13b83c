package lib

import (
	"log"

	"github.com/yeqown/go-qrcode"
)

// WriteQRCode renders data as a JPEG QR code at filePath.
func WriteQRCode(data, filePath string) error {
	qrc, err := qrcode.New(data)
	if err != nil {
		return err
	}
	if err := qrc.Save(filePath); err != nil {
		log.Printf("Could not save qrcode to file [%s]: %s\n", filePath, err.Error())
		return err
	}
	return nil
}
